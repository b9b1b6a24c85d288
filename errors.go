package blog

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Failure kinds. Every error a handler returns is wrapped around one of these.
var (
	ErrNotFound         = errors.New("post not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrMalformedContent = errors.New("malformed post content")
	ErrRender           = errors.New("render failed")
)

// Kind names used in the failure log line.
const (
	kindNotFound         = "not_found"
	kindStoreUnavailable = "store_unavailable"
	kindMalformedContent = "malformed_content"
	kindRender           = "render_error"
	kindHTTP             = "http_error"
	kindInternal         = "internal"
)

// PostError ties a failure to the post it happened on.
type PostError struct {
	ID  int64
	Err error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("post %d: %v", e.ID, e.Err)
}

func (e *PostError) Unwrap() error {
	return e.Err
}

// classify maps err to its log kind and HTTP status.
func classify(err error) (string, int) {
	switch {
	case errors.Is(err, ErrNotFound):
		return kindNotFound, http.StatusNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return kindStoreUnavailable, http.StatusInternalServerError
	case errors.Is(err, ErrMalformedContent):
		return kindMalformedContent, http.StatusInternalServerError
	case errors.Is(err, ErrRender):
		return kindRender, http.StatusInternalServerError
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code == http.StatusNotFound {
			return kindNotFound, http.StatusNotFound
		}
		return kindHTTP, he.Code
	}
	return kindInternal, http.StatusInternalServerError
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
