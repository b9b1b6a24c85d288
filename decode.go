package blog

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DecodeBody turns a stored base64 body into text. Line breaks inside the
// encoding are tolerated; anything else that is not standard padded base64
// of UTF-8 text fails with ErrMalformedContent.
func DecodeBody(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", fmt.Errorf("%w: base64: %v", ErrMalformedContent, err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: body is not valid UTF-8", ErrMalformedContent)
	}
	return string(raw), nil
}

// EncodeBody is the inverse of DecodeBody.
func EncodeBody(plain string) string {
	return base64.StdEncoding.EncodeToString([]byte(plain))
}
