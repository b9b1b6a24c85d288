// Package views holds the templ components for the blog pages.
package views

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Home is the landing page.
func Home(p Page) templ.Component {
	return layout(p, func(b *strings.Builder) {
		b.WriteString(`    <section class="home">
      <h1>`)
		b.WriteString(templ.EscapeString(p.Site))
		b.WriteString(`</h1>
      <p>Welcome. The posts live on the <a href="/blog">blog</a>.</p>
    </section>
`)
	})
}

// Blog lists the English posts first and every other language after them.
func Blog(p ListPage) templ.Component {
	return layout(p.Page, func(b *strings.Builder) {
		b.WriteString(`    <section id="english" class="posts">
      <h2>English</h2>
`)
		postList(b, p.English)
		b.WriteString(`    </section>
    <section id="other" class="posts">
      <h2>Other languages`)
		if p.OtherLanguages != "" {
			b.WriteString(" (" + templ.EscapeString(p.OtherLanguages) + ")")
		}
		b.WriteString(`</h2>
`)
		postList(b, p.Other)
		b.WriteString(`    </section>
`)
	})
}

// Post shows a single post. The body is written as is.
func Post(p PostPage) templ.Component {
	return layout(p.Page, func(b *strings.Builder) {
		date := templ.EscapeString(p.Date)
		b.WriteString(`    <article class="post">
      <h1>`)
		b.WriteString(templ.EscapeString(p.Title))
		b.WriteString(`</h1>
      <time datetime="` + date + `">` + date + `</time>
      <div class="body">
`)
		b.WriteString(p.Body)
		b.WriteString(`
      </div>
    </article>
`)
	})
}

// NotFound is the 404 page shared by unknown routes and unknown posts.
func NotFound(p Page) templ.Component {
	return layout(p, func(b *strings.Builder) {
		b.WriteString(`    <section class="not-found">
      <h1>404</h1>
      <p>There is nothing here. Try the <a href="/blog">list of posts</a>.</p>
    </section>
`)
	})
}

func postList(b *strings.Builder, items []PostItem) {
	if len(items) == 0 {
		b.WriteString("      <p>No posts yet.</p>\n")
		return
	}
	b.WriteString("      <ul>\n")
	for _, it := range items {
		date := templ.EscapeString(it.Date)
		b.WriteString(`        <li>
          <a href="` + templ.EscapeString(string(templ.URL(it.Link))) + `">` + templ.EscapeString(it.Title) + `</a>
          <p>` + templ.EscapeString(it.Description) + `</p>
          <time datetime="` + date + `">` + date + `</time>
        </li>
`)
	}
	b.WriteString("      </ul>\n")
}

// layout wraps content in the shared page chrome. The page is assembled in
// memory and written once.
func layout(p Page, content func(b *strings.Builder)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		site := templ.EscapeString(p.Site)
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>` + templ.EscapeString(p.Title) + ` - ` + site + `</title>
  <link rel="stylesheet" href="/static/style.css">
</head>
<body>
  <header>
    <nav><a href="/">` + site + `</a> <a href="/blog">Blog</a></nav>
  </header>
  <main>
`)
		content(&b)
		b.WriteString(`  </main>
</body>
</html>
`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
