package blog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/blog/views"
)

type testApp struct {
	*App
	logs   *bytes.Buffer
	logger *logrus.Logger
}

func newTestApp(t *testing.T, store PostStore, opts ...Option) *testApp {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(logs)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	opts = append([]Option{WithLogger(logger)}, opts...)
	app, err := New(SiteConfig{Name: "Test Blog", DatabaseURL: "unused"}, store, opts...)
	require.NoError(t, err)
	return &testApp{App: app, logs: logs, logger: logger}
}

func (a *testApp) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

// entries decodes the JSON log lines written so far.
func (a *testApp) entries(t *testing.T) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(a.logs.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func (a *testApp) entriesWith(t *testing.T, key string, value interface{}) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, e := range a.entries(t) {
		if e[key] == value {
			out = append(out, e)
		}
	}
	return out
}

type stubStore struct {
	list func(ctx context.Context) ([]PostSummary, error)
	get  func(ctx context.Context, id int64) (PostDetail, error)
}

func (s stubStore) ListPosts(ctx context.Context) ([]PostSummary, error) {
	return s.list(ctx)
}

func (s stubStore) GetPost(ctx context.Context, id int64) (PostDetail, error) {
	return s.get(ctx, id)
}

func failingComponent() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return errors.New("template exploded")
	})
}

// failingViews breaks every page except the 500 page.
var failingViews = ViewFuncs{
	Home:     func(views.Page) templ.Component { return failingComponent() },
	Blog:     func(views.ListPage) templ.Component { return failingComponent() },
	Post:     func(views.PostPage) templ.Component { return failingComponent() },
	NotFound: func(views.Page) templ.Component { return failingComponent() },
}

func seededApp(t *testing.T, opts ...Option) *testApp {
	t.Helper()
	s := setupTestStore(t)
	insertPosts(t, s,
		testPost{id: 1, title: "Hello", body: "<p>first</p>", shortDesc: "World", date: "2024-01-01", lang: "en"},
		testPost{id: 2, title: "Hei", body: "<p>andre</p>", shortDesc: "Verden", date: "2024-01-02", lang: "no"},
		testPost{id: 3, title: "Second", body: "<p>third</p>", shortDesc: "Again", date: "2024-01-03", lang: "en"},
		testPost{id: 5, title: "Five", body: "<p>Hi</p>", shortDesc: "Greeting", date: "2024-01-05", lang: "en"},
	)
	return newTestApp(t, s, opts...)
}

func TestHome(t *testing.T) {
	app := seededApp(t)
	rec := app.get("/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, echo.MIMETextHTMLCharsetUTF8, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "Test Blog")

	served := app.entriesWith(t, "msg", "served")
	require.Len(t, served, 1)
	assert.Equal(t, "/", served[0]["route"])
}

func TestBlogListPartitionsByLanguage(t *testing.T) {
	app := seededApp(t)
	rec := app.get("/blog")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	english := strings.Index(body, `id="english"`)
	other := strings.Index(body, `id="other"`)
	require.True(t, english >= 0 && other > english)
	englishSection, otherSection := body[english:other], body[other:]

	for _, want := range []string{"Hello", "World", "2024-01-01", `href="/post/1"`, "Second", "Five"} {
		assert.Contains(t, englishSection, want)
		assert.NotContains(t, otherSection, want)
	}
	for _, want := range []string{"Hei", "Verden", `href="/post/2"`, "Norwegian"} {
		assert.Contains(t, otherSection, want)
		assert.NotContains(t, englishSection, want)
	}
	// Store order is kept within a section.
	assert.Less(t, strings.Index(englishSection, "Hello"), strings.Index(englishSection, "Second"))

	served := app.entriesWith(t, "msg", "served")
	require.Len(t, served, 1)
	assert.Equal(t, "/blog", served[0]["route"])
}

func TestPostRendersDecodedBody(t *testing.T) {
	app := seededApp(t)
	rec := app.get("/post/5")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<p>Hi</p>")
	assert.Contains(t, body, "<h1>Five</h1>")
	assert.Contains(t, body, "2024-01-05")

	served := app.entriesWith(t, "msg", "served")
	require.Len(t, served, 1)
	assert.Equal(t, "/post/:id", served[0]["route"])
}

func TestPostMarkdownBody(t *testing.T) {
	s := setupTestStore(t)
	insertPosts(t, s, testPost{id: 1, title: "MD", body: "# Title\n\nSome **bold** text", shortDesc: "d", date: "2024-01-01", lang: "en"})
	app := newTestApp(t, s)
	app.Config.BodyFormat = BodyMarkdown

	rec := app.get("/post/1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Title</h1>")
	assert.Contains(t, rec.Body.String(), "<strong>bold</strong>")
}

func TestMissingAndMalformedIDsAreIdentical404s(t *testing.T) {
	app := seededApp(t)
	missing := app.get("/post/999")
	require.Equal(t, http.StatusNotFound, missing.Code)
	assert.Contains(t, missing.Body.String(), "<h1>404</h1>")

	for _, path := range []string{"/post/abc", "/post/0", "/post/-3", "/post/1.5", "/post/99999999999999999999", "/post/2147483648", "/nowhere", "/post/5/extra"} {
		rec := app.get(path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, missing.Body.String(), rec.Body.String(), path)
	}

	for _, e := range app.entriesWith(t, "status", float64(http.StatusNotFound)) {
		assert.Equal(t, kindNotFound, e["kind"])
	}
	assert.Empty(t, app.entriesWith(t, "msg", "served"))
}

func TestMalformedBodyIs500WithoutDetails(t *testing.T) {
	s := setupTestStore(t)
	insertRaw(t, s, testPost{id: 7, title: "Broken", shortDesc: "d", date: "2024-01-01", lang: "en"}, "!!!not base64!!!")
	insertRaw(t, s, testPost{id: 8, title: "Latin1", shortDesc: "d", date: "2024-01-01", lang: "en"}, "/w==")
	app := newTestApp(t, s)

	for id, path := range map[float64]string{7: "/post/7", 8: "/post/8"} {
		rec := app.get(path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		body := rec.Body.String()
		assert.Contains(t, body, "<h1>500</h1>")
		assert.NotContains(t, body, "illegal base64")
		assert.NotContains(t, body, "UTF-8")
		assert.NotContains(t, body, "malformed")

		var found bool
		for _, e := range app.entriesWith(t, "kind", kindMalformedContent) {
			if e["post_id"] == id {
				found = true
			}
		}
		assert.True(t, found, "no malformed_content log line for post %v", id)
	}
}

func TestStoreUnavailableIs500(t *testing.T) {
	s := setupTestStore(t)
	app := newTestApp(t, s)
	require.NoError(t, s.db.Close())

	for _, path := range []string{"/blog", "/post/1"} {
		rec := app.get(path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.NotContains(t, rec.Body.String(), "database is closed")
	}
	assert.Len(t, app.entriesWith(t, "kind", kindStoreUnavailable), 2)
}

func TestStubStoreFailures(t *testing.T) {
	app := newTestApp(t, stubStore{
		list: func(ctx context.Context) ([]PostSummary, error) {
			return nil, unavailable("list posts", errors.New("connection refused"))
		},
		get: func(ctx context.Context, id int64) (PostDetail, error) {
			return PostDetail{}, &PostError{ID: id, Err: ErrNotFound}
		},
	})

	rec := app.get("/blog")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = app.get("/post/12")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	notFound := app.entriesWith(t, "kind", kindNotFound)
	require.Len(t, notFound, 1)
	assert.Equal(t, float64(12), notFound[0]["post_id"])
}

func TestRenderErrorIs500(t *testing.T) {
	app := seededApp(t, WithViews(failingViews))

	for _, path := range []string{"/", "/blog", "/post/5", "/post/abc"} {
		rec := app.get(path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "<h1>500</h1>", path)
		assert.NotContains(t, rec.Body.String(), "template exploded", path)
	}
	assert.Len(t, app.entriesWith(t, "kind", kindRender), 4)
	assert.Empty(t, app.entriesWith(t, "msg", "served"))
}

func TestNotFoundRenderFailureLogsOnce(t *testing.T) {
	app := seededApp(t, WithViews(failingViews))

	rec := app.get("/post/abc")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	entries := app.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, kindRender, entries[0]["kind"])
	assert.Equal(t, float64(http.StatusInternalServerError), entries[0]["status"])
	assert.Empty(t, app.entriesWith(t, "kind", kindNotFound))
}

func TestCustomViewsKeepDefaults(t *testing.T) {
	app := seededApp(t, WithViews(ViewFuncs{
		Home: func(p views.Page) templ.Component {
			return templ.Raw("<p>custom " + templ.EscapeString(p.Site) + "</p>")
		},
	}))

	rec := app.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>custom Test Blog</p>", rec.Body.String())

	rec = app.get("/blog")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="english"`)
}

func TestLargeIDNeverReachesStore(t *testing.T) {
	var calls int
	app := newTestApp(t, stubStore{
		get: func(ctx context.Context, id int64) (PostDetail, error) {
			calls++
			return PostDetail{}, unavailable("get post", errors.New("value out of range for type integer"))
		},
	})

	for _, path := range []string{"/post/2147483648", "/post/3000000000"} {
		rec := app.get(path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	assert.Zero(t, calls)
	assert.Empty(t, app.entriesWith(t, "kind", kindStoreUnavailable))
}

func TestRequestLogStatusMatchesResponse(t *testing.T) {
	app := seededApp(t)
	app.logger.SetLevel(logrus.DebugLevel)

	for path, code := range map[string]int{
		"/post/5":   http.StatusOK,
		"/post/999": http.StatusNotFound,
		"/post/abc": http.StatusNotFound,
		"/nowhere":  http.StatusNotFound,
	} {
		rec := app.get(path)
		require.Equal(t, code, rec.Code, path)

		var logged []map[string]interface{}
		for _, e := range app.entriesWith(t, "msg", "request") {
			if e["uri"] == path {
				logged = append(logged, e)
			}
		}
		require.Len(t, logged, 1, path)
		assert.Equal(t, float64(code), logged[0]["status"], path)
	}
}

func TestWWWHostIsServedDirectly(t *testing.T) {
	app := seededApp(t)
	req := httptest.NewRequest(http.MethodGet, "/blog", nil)
	req.Host = "www.example.com"
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderLocation))
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{}"), 0o644))
	app := seededApp(t, WithStaticDir(dir))

	rec := app.get("/static/style.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{}", rec.Body.String())
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))

	rec = app.get("/static/missing.css")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	app := seededApp(t)
	rec := app.get("/")
	id := rec.Header().Get(echo.HeaderXRequestID)
	require.NotEmpty(t, id)

	served := app.entriesWith(t, "msg", "served")
	require.Len(t, served, 1)
	assert.Equal(t, id, served[0]["request_id"])
}

func TestConcurrentRequests(t *testing.T) {
	app := seededApp(t)
	var wg sync.WaitGroup
	codes := make(chan int, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := "/post/5"
			if i%2 == 0 {
				path = "/blog"
			}
			codes <- app.get(path).Code
		}(i)
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
}

func TestParsePostID(t *testing.T) {
	tests := []struct {
		raw string
		id  int64
		ok  bool
	}{
		{"1", 1, true},
		{"42", 42, true},
		{"+7", 7, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"1e3", 0, false},
		{"2147483647", 2147483647, true},
		{"2147483648", 0, false},
		{"9223372036854775808", 0, false},
	}
	for _, tt := range tests {
		id, ok := parsePostID(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.id, id, tt.raw)
	}
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(SiteConfig{}, nil)
	assert.Error(t, err)
}
