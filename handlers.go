package blog

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/eringen/blog/markdown"
	"github.com/eringen/blog/views"
)

func (a *App) handleHome(c echo.Context) error {
	return a.render(c, "home", a.Views.Home(a.page("Home")))
}

func (a *App) handleBlog(c echo.Context) error {
	posts, err := a.Store.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	collection := GroupByLanguage(posts)
	return a.render(c, "blog", a.Views.Blog(views.ListPage{
		Page:           a.page("Blog"),
		English:        postItems(collection.English),
		Other:          postItems(collection.Other),
		OtherLanguages: collection.OtherLanguages(),
	}))
}

func (a *App) handlePost(c echo.Context) error {
	id, ok := parsePostID(c.Param("id"))
	if !ok {
		// A malformed id gets the same 404 as a missing post.
		return fmt.Errorf("post id %q: %w", c.Param("id"), ErrNotFound)
	}
	post, err := a.Store.GetPost(c.Request().Context(), id)
	if err != nil {
		return err
	}
	body, err := DecodeBody(post.BodyEncoded)
	if err != nil {
		return &PostError{ID: id, Err: err}
	}
	return a.render(c, "post", a.Views.Post(views.PostPage{
		Page: a.page(post.Title),
		Body: a.formatBody(body),
		Date: post.Date.String(),
	}))
}

// parsePostID accepts base-10 integers greater than zero that fit the
// Postgres SERIAL id column.
func parsePostID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (a *App) formatBody(body string) string {
	if a.Config.BodyFormat == BodyMarkdown {
		return markdown.Render(body)
	}
	return body
}

func (a *App) page(title string) views.Page {
	return views.Page{Site: a.Config.Name, Title: title}
}

func postItems(posts []PostSummary) []views.PostItem {
	items := make([]views.PostItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, views.PostItem{
			Title:       p.Title,
			Description: p.ShortDescription,
			Date:        p.Date.String(),
			Link:        p.Link(),
		})
	}
	return items
}

// render writes page with status 200 and logs the served route.
func (a *App) render(c echo.Context, page string, cmp templ.Component) error {
	if err := Render(c, cmp); err != nil {
		return fmt.Errorf("%w: page %s: %w", ErrRender, page, err)
	}
	a.log.WithFields(logrus.Fields{
		"route":      c.Path(),
		"path":       c.Request().URL.Path,
		"request_id": requestID(c),
	}).Info("served")
	return nil
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	kind, code := classify(err)
	fields := logrus.Fields{
		"kind":       kind,
		"status":     code,
		"route":      c.Path(),
		"path":       c.Request().URL.Path,
		"request_id": requestID(c),
	}
	var pe *PostError
	if errors.As(err, &pe) {
		fields["post_id"] = pe.ID
	}

	switch {
	case code == http.StatusNotFound:
		rerr := RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.page("Not found")))
		if rerr == nil {
			a.log.WithFields(fields).WithError(err).Info("not found")
			return
		}
		// Only the final 500 is logged.
		fields["kind"] = kindRender
		fields["status"] = http.StatusInternalServerError
		fields["page"] = "not_found"
		a.log.WithFields(fields).WithError(fmt.Errorf("%w: page not_found: %w", ErrRender, rerr)).Error("request failed")
		_ = RenderStatus(c, http.StatusInternalServerError, a.Views.ServerError(a.Config.Name))
	case code >= http.StatusInternalServerError:
		a.log.WithFields(fields).WithError(err).Error("request failed")
		_ = RenderStatus(c, code, a.Views.ServerError(a.Config.Name))
	default:
		a.log.WithFields(fields).WithError(err).Warn("request rejected")
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
