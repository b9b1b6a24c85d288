// Package blog is a small server-rendered blog built with Go and Echo.
// It lists posts in an English and an other-languages section, renders
// single posts whose bodies are stored base64 encoded, and serves static
// assets under /static.
package blog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/eringen/blog/views"
)

// ViewFuncs holds the templ components the handlers render. Fields left
// nil fall back to the components in the views package.
type ViewFuncs struct {
	Home        func(p views.Page) templ.Component
	Blog        func(p views.ListPage) templ.Component
	Post        func(p views.PostPage) templ.Component
	NotFound    func(p views.Page) templ.Component
	ServerError func(site string) templ.Component
}

// DefaultViews returns the built-in pages.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		Blog:        views.Blog,
		Post:        views.Post,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

func (v ViewFuncs) withDefaults() ViewFuncs {
	d := DefaultViews()
	if v.Home == nil {
		v.Home = d.Home
	}
	if v.Blog == nil {
		v.Blog = d.Blog
	}
	if v.Post == nil {
		v.Post = d.Post
	}
	if v.NotFound == nil {
		v.NotFound = d.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = d.ServerError
	}
	return v
}

// App wires the store, the page components, the handlers and the middleware.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  PostStore
	Views  ViewFuncs

	log       logrus.FieldLogger
	staticDir string
}

// New creates an App serving posts from store. The returned App is ready to
// serve through a.Echo; Start runs the listener.
func New(cfg SiteConfig, store PostStore, opts ...Option) (*App, error) {
	cfg.setDefaults()
	if store == nil {
		return nil, errors.New("blog: store is required")
	}

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Store:     store,
		log:       logrus.StandardLogger(),
		staticDir: cfg.StaticDir,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Views = a.Views.withDefaults()

	a.Echo.HideBanner = true
	a.Echo.HidePort = true
	a.Echo.Server.ReadHeaderTimeout = 10 * time.Second
	a.Echo.Server.IdleTimeout = 2 * time.Minute

	a.setupMiddleware()
	a.setupRoutes()
	return a, nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/static", a.staticDir)

	e.GET("/", a.handleHome)
	e.GET("/blog", a.handleBlog)
	e.GET("/post/:id", a.handlePost)

	if a.Config.PprofEnabled {
		pprof.Register(e)
	}
}

// Start listens on Config.Addr until ctx is cancelled, then shuts the server
// down gracefully.
func (a *App) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.Config.Addr).Info("listening")
		errc <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	if err := a.Echo.Shutdown(sctx); err != nil {
		return fmt.Errorf("blog: shutdown: %w", err)
	}
	return nil
}

// Close releases the store when it holds resources.
func (a *App) Close() error {
	if c, ok := a.Store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
