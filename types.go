package blog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// English is the language tag that puts a post in the English section.
const English Language = "en"

// DateLayout is how post dates are stored and printed.
const DateLayout = "2006-01-02"

// Language is the tag stored in the lang column, e.g. "en" or "nb".
type Language string

// IsEnglish reports whether the tag is exactly "en".
func (l Language) IsEnglish() bool {
	return l == English
}

// DisplayName returns the English name of the language, or the raw tag
// when it cannot be parsed.
func (l Language) DisplayName() string {
	tag, err := language.Parse(string(l))
	if err != nil {
		return string(l)
	}
	if name := display.Languages(language.English).Name(tag); name != "" {
		return name
	}
	return string(l)
}

// PostSummary is one row of the post listing.
type PostSummary struct {
	ID               int64
	Title            string
	ShortDescription string
	Language         Language
	Date             Date
}

// Link returns the detail route of the post.
func (p PostSummary) Link() string {
	return "/post/" + strconv.FormatInt(p.ID, 10)
}

// PostDetail is a single post with its body still base64 encoded.
type PostDetail struct {
	ID          int64
	Title       string
	BodyEncoded string
	Date        Date
}

// PostCollection splits the listing into the English and the
// other-language section.
type PostCollection struct {
	English []PostSummary
	Other   []PostSummary
}

// GroupByLanguage partitions posts, keeping the order they came in.
func GroupByLanguage(posts []PostSummary) PostCollection {
	var c PostCollection
	for _, p := range posts {
		if p.Language.IsEnglish() {
			c.English = append(c.English, p)
		} else {
			c.Other = append(c.Other, p)
		}
	}
	return c
}

// OtherLanguages lists the display names of the languages in the other
// section, in order of first appearance.
func (c PostCollection) OtherLanguages() string {
	seen := make(map[Language]struct{})
	var names []string
	for _, p := range c.Other {
		if _, ok := seen[p.Language]; ok {
			continue
		}
		seen[p.Language] = struct{}{}
		names = append(names, p.Language.DisplayName())
	}
	return strings.Join(names, ", ")
}

// Date is a calendar date read from the date column.
type Date struct {
	time.Time
}

// NewDate returns the date y-m-d.
func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

// Scan implements sql.Scanner. Postgres hands back time.Time while SQLite
// may hand back text.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case nil:
		return errors.New("date is NULL")
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*d = NewDate(t.Year(), t.Month(), t.Day())
			return nil
		}
	}
	return fmt.Errorf("cannot parse date %q", s)
}

func (d Date) String() string {
	return d.Format(DateLayout)
}
