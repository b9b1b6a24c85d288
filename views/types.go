package views

// Page is the data every page receives.
type Page struct {
	Site  string // Site name from SiteConfig
	Title string
}

// PostItem is one entry of the post listing.
type PostItem struct {
	Title       string
	Description string
	Date        string
	Link        string // detail route, e.g. /post/5
}

// ListPage carries the two sections of the post listing.
type ListPage struct {
	Page
	English        []PostItem
	Other          []PostItem
	OtherLanguages string // display names of the languages in Other
}

// PostPage carries a single decoded post. Body is trusted author HTML and
// is written without escaping.
type PostPage struct {
	Page
	Body string
	Date string
}
