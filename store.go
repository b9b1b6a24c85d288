package blog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// PostStore is the read side of the post table the handlers depend on.
type PostStore interface {
	ListPosts(ctx context.Context) ([]PostSummary, error)
	GetPost(ctx context.Context, id int64) (PostDetail, error)
}

const listPostsQuery = `SELECT id, title, lang, short_desc, date FROM blog_posts`

var getPostQuery = map[string]string{
	DriverPostgres: `SELECT title, body, date FROM blog_posts WHERE id = $1`,
	DriverSQLite:   `SELECT title, body, date FROM blog_posts WHERE id = ?`,
}

var schema = map[string]string{
	DriverPostgres: `
CREATE TABLE IF NOT EXISTS blog_posts (
    id SERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    short_desc TEXT NOT NULL,
    date DATE NOT NULL DEFAULT CURRENT_DATE,
    lang TEXT NOT NULL DEFAULT 'en',
    published BOOLEAN NOT NULL DEFAULT FALSE
);`,
	DriverSQLite: `
CREATE TABLE IF NOT EXISTS blog_posts (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    short_desc TEXT NOT NULL,
    date DATE NOT NULL,
    lang TEXT NOT NULL DEFAULT 'en',
    published INTEGER NOT NULL DEFAULT 0
);`,
}

// Store reads posts from a Postgres or SQLite database.
type Store struct {
	db      *sql.DB
	driver  string
	timeout time.Duration
}

// OpenStore opens the pool described by cfg and checks that the database
// answers.
func OpenStore(ctx context.Context, cfg SiteConfig) (*Store, error) {
	cfg.setDefaults()
	driver := cfg.DatabaseDriver
	if _, ok := getPostQuery[driver]; !ok {
		return nil, fmt.Errorf("blog: unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, dataSource(driver, cfg.DatabaseURL))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, unavailable("connect", err)
	}
	return NewStore(db, driver, cfg.QueryTimeout), nil
}

// NewStore wraps an already opened pool. A zero timeout falls back to the
// default query timeout.
func NewStore(db *sql.DB, driver string, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Store{db: db, driver: driver, timeout: timeout}
}

// dataSource strips the URL scheme SQLite paths may carry and sets a busy
// timeout on every pooled connection so readers wait on a locked file.
func dataSource(driver, url string) string {
	if driver != DriverSQLite {
		return url
	}
	for _, prefix := range []string{"sqlite://", "sqlite:"} {
		if strings.HasPrefix(url, prefix) {
			url = strings.TrimPrefix(url, prefix)
			break
		}
	}
	if strings.Contains(url, "busy_timeout") {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "_pragma=busy_timeout(5000)"
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates blog_posts if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, schema[s.driver]); err != nil {
		return unavailable("ensure schema", err)
	}
	return nil
}

// ListPosts returns every post in the order the database yields them.
// The published column is not consulted.
func (s *Store) ListPosts(ctx context.Context) ([]PostSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, listPostsQuery)
	if err != nil {
		return nil, unavailable("list posts", err)
	}
	defer rows.Close()

	var posts []PostSummary
	for rows.Next() {
		var p PostSummary
		var lang string
		if err := rows.Scan(&p.ID, &p.Title, &lang, &p.ShortDescription, &p.Date); err != nil {
			return nil, unavailable("list posts", err)
		}
		p.Language = Language(lang)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list posts", err)
	}
	return posts, nil
}

// GetPost returns the post with the given primary key.
func (s *Store) GetPost(ctx context.Context, id int64) (PostDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p := PostDetail{ID: id}
	err := s.db.QueryRowContext(ctx, getPostQuery[s.driver], id).Scan(&p.Title, &p.BodyEncoded, &p.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return PostDetail{}, &PostError{ID: id, Err: ErrNotFound}
	}
	if err != nil {
		return PostDetail{}, &PostError{ID: id, Err: unavailable("get post", err)}
	}
	return p, nil
}
