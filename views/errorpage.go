package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// ServerError is the 500 page. It does not use layout so it stays
// independent of the other pages.
func ServerError(site string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		name := templ.EscapeString(site)
		_, err := io.WriteString(w, `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Server error - `+name+`</title>
</head>
<body>
  <main>
    <h1>500</h1>
    <p>Something went wrong on our side. Please try again later.</p>
    <p><a href="/">Back to `+name+`</a></p>
  </main>
</body>
</html>
`)
		return err
	})
}
