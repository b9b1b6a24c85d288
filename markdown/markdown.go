// Package markdown converts post bodies written in a small Markdown subset
// to HTML: headings, paragraphs, lists, quotes, fenced code and inline
// emphasis, code and links. All text is escaped.
package markdown

import (
	"bytes"
	"html"
	"net/url"
	"regexp"
	"strings"
)

var (
	reBold        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic      = regexp.MustCompile(`\*([^*]+)\*`)
	reInlineCode  = regexp.MustCompile("`([^`]+)`")
	reLink        = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]*)\)`)
	reOrderedList = regexp.MustCompile(`^\d+\.\s`)
)

// Render returns the HTML for md.
func Render(md string) string {
	var buf bytes.Buffer
	RenderTo(&buf, md)
	return buf.String()
}

// RenderTo writes the HTML for md to buf.
func RenderTo(buf *bytes.Buffer, md string) {
	var (
		inPara, inCode, inQuote bool
		list                    string // "ul", "ol" or ""
	)
	flushPara := func() {
		if inPara {
			buf.WriteString("</p>")
			inPara = false
		}
	}
	flushList := func() {
		if list != "" {
			buf.WriteString("</" + list + ">")
			list = ""
		}
	}
	flushQuote := func() {
		if inQuote {
			buf.WriteString("</blockquote>")
			inQuote = false
		}
	}
	flushAll := func() {
		flushPara()
		flushList()
		flushQuote()
	}
	openList := func(kind string) {
		if list == kind {
			return
		}
		flushAll()
		buf.WriteString("<" + kind + ">")
		list = kind
	}

	for _, line := range strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				buf.WriteString("</code></pre>")
				inCode = false
				continue
			}
			flushAll()
			buf.WriteString("<pre><code")
			if lang := strings.TrimSpace(strings.TrimPrefix(trimmed, "```")); lang != "" {
				buf.WriteString(` class="language-` + html.EscapeString(lang) + `"`)
			}
			buf.WriteString(">")
			inCode = true
			continue
		}
		if inCode {
			buf.WriteString(html.EscapeString(line))
			buf.WriteString("\n")
			continue
		}

		switch {
		case trimmed == "":
			flushAll()
		case strings.HasPrefix(trimmed, "#"):
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			if level > 6 || len(trimmed) == level || trimmed[level] != ' ' {
				writeParaLine(buf, &inPara, trimmed)
				continue
			}
			flushAll()
			tag := "h" + string(rune('0'+level))
			buf.WriteString("<" + tag + ">")
			buf.WriteString(FormatInline(strings.TrimSpace(trimmed[level:])))
			buf.WriteString("</" + tag + ">")
		case strings.HasPrefix(trimmed, "> ") || trimmed == ">":
			if !inQuote {
				flushAll()
				buf.WriteString("<blockquote>")
				inQuote = true
			}
			buf.WriteString("<p>" + FormatInline(strings.TrimSpace(strings.TrimPrefix(trimmed, ">"))) + "</p>")
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			openList("ul")
			buf.WriteString("<li>" + FormatInline(trimmed[2:]) + "</li>")
		case reOrderedList.MatchString(trimmed):
			openList("ol")
			item := reOrderedList.ReplaceAllString(trimmed, "")
			buf.WriteString("<li>" + FormatInline(item) + "</li>")
		default:
			flushList()
			flushQuote()
			writeParaLine(buf, &inPara, trimmed)
		}
	}
	if inCode {
		buf.WriteString("</code></pre>")
	}
	flushAll()
}

func writeParaLine(buf *bytes.Buffer, inPara *bool, line string) {
	if *inPara {
		buf.WriteString(" ")
	} else {
		buf.WriteString("<p>")
		*inPara = true
	}
	buf.WriteString(FormatInline(line))
}

// FormatInline escapes s and applies inline code, links, bold and italic.
func FormatInline(s string) string {
	// Code spans are cut out first so their content is left alone.
	var spans []string
	s = reInlineCode.ReplaceAllStringFunc(s, func(m string) string {
		spans = append(spans, "<code>"+html.EscapeString(m[1:len(m)-1])+"</code>")
		return "\x00" + string(rune('a'+len(spans)-1)) + "\x00"
	})
	s = html.EscapeString(s)
	s = reLink.ReplaceAllStringFunc(s, func(m string) string {
		parts := reLink.FindStringSubmatch(m)
		href := html.UnescapeString(parts[2])
		if !safeURL(href) {
			return parts[1]
		}
		return `<a href="` + html.EscapeString(href) + `">` + parts[1] + `</a>`
	})
	s = reBold.ReplaceAllString(s, "<strong>$1</strong>")
	s = reItalic.ReplaceAllString(s, "<em>$1</em>")
	for i, span := range spans {
		s = strings.Replace(s, "\x00"+string(rune('a'+i))+"\x00", span, 1)
	}
	return s
}

func safeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return true
	}
	return false
}
