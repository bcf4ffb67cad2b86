package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nikbrunner/cortex/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SettingsKey is the fixed key of the settings row.
const SettingsKey = "userSettings"

var (
	// ErrConstraint is returned by the Add methods when the id already exists.
	ErrConstraint = errors.New("constraint violation")
	// ErrNotFound is returned by point lookups for a missing record.
	ErrNotFound = errors.New("record not found")
)

// CategoryRecord is a persisted category. Bookmarks live in their own
// collection keyed by category id.
type CategoryRecord struct {
	ID          int64
	Name        string
	Order       int
	IsCollapsed bool
}

// Primary is the structured record store backed by SQLite. It holds four
// independent collections: categories, bookmarks, settings and themes.
// It does not validate what it stores.
type Primary struct {
	reader
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and applies pending
// schema migrations.
func Open(ctx context.Context, path string) (*Primary, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Primary{reader: reader{q: db}, db: db, path: path}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	drv, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	// m.Close would also close db, so only the source is released.
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (p *Primary) Path() string {
	return p.path
}

// Close closes the database connection.
func (p *Primary) Close() error {
	return p.db.Close()
}

// Update runs fn inside a single transaction. The transaction commits when
// fn returns nil and rolls back otherwise.
func (p *Primary) Update(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{reader: reader{q: sqlTx}, tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Clear deletes every record from every collection.
func (p *Primary) Clear(ctx context.Context) error {
	return p.Update(ctx, func(tx *Tx) error {
		for _, table := range []string{"bookmark_tags", "bookmarks", "categories", "settings", "themes"} {
			if _, err := tx.tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// reader holds the read operations shared by Primary and Tx.
type reader struct {
	q querier
}

// Category returns the category with id.
func (r reader) Category(ctx context.Context, id int64) (CategoryRecord, error) {
	var c CategoryRecord
	var collapsed int
	err := r.q.QueryRowContext(ctx, `
		SELECT id, name, sort_order, is_collapsed FROM categories WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Order, &collapsed)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return c, err
	}
	c.IsCollapsed = collapsed == 1
	return c, nil
}

// Categories returns every category in id order.
func (r reader) Categories(ctx context.Context) ([]CategoryRecord, error) {
	return r.queryCategories(ctx, `
		SELECT id, name, sort_order, is_collapsed FROM categories ORDER BY id
	`)
}

// CategoriesByOrder returns the categories whose order equals order.
func (r reader) CategoriesByOrder(ctx context.Context, order int) ([]CategoryRecord, error) {
	return r.queryCategories(ctx, `
		SELECT id, name, sort_order, is_collapsed FROM categories WHERE sort_order = ? ORDER BY id
	`, order)
}

func (r reader) queryCategories(ctx context.Context, query string, args ...any) ([]CategoryRecord, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []CategoryRecord{}
	for rows.Next() {
		var c CategoryRecord
		var collapsed int
		if err := rows.Scan(&c.ID, &c.Name, &c.Order, &collapsed); err != nil {
			return nil, err
		}
		c.IsCollapsed = collapsed == 1
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Bookmark returns the bookmark with id.
func (r reader) Bookmark(ctx context.Context, id int64) (model.Bookmark, error) {
	bookmarks, err := r.queryBookmarks(ctx, `
		SELECT id, category_id, title, url, tags FROM bookmarks WHERE id = ?
	`, id)
	if err != nil {
		return model.Bookmark{}, err
	}
	if len(bookmarks) == 0 {
		return model.Bookmark{}, fmt.Errorf("bookmark %d: %w", id, ErrNotFound)
	}
	return bookmarks[0], nil
}

// Bookmarks returns every bookmark.
func (r reader) Bookmarks(ctx context.Context) ([]model.Bookmark, error) {
	return r.queryBookmarks(ctx, `
		SELECT id, category_id, title, url, tags FROM bookmarks ORDER BY category_id, position, id
	`)
}

// BookmarksByCategory returns the bookmarks of one category in their
// stored position.
func (r reader) BookmarksByCategory(ctx context.Context, categoryID int64) ([]model.Bookmark, error) {
	return r.queryBookmarks(ctx, `
		SELECT id, category_id, title, url, tags FROM bookmarks
		WHERE category_id = ?
		ORDER BY position, id
	`, categoryID)
}

// BookmarksByTag returns every bookmark carrying tag.
func (r reader) BookmarksByTag(ctx context.Context, tag string) ([]model.Bookmark, error) {
	return r.queryBookmarks(ctx, `
		SELECT b.id, b.category_id, b.title, b.url, b.tags FROM bookmarks b
		JOIN bookmark_tags t ON t.bookmark_id = b.id
		WHERE t.tag = ?
		ORDER BY b.id
	`, tag)
}

func (r reader) queryBookmarks(ctx context.Context, query string, args ...any) ([]model.Bookmark, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookmarks := []model.Bookmark{}
	for rows.Next() {
		var b model.Bookmark
		var tagsJSON string
		if err := rows.Scan(&b.ID, &b.CategoryID, &b.Title, &b.URL, &tagsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tagsJSON), &b.Tags); err != nil || b.Tags == nil {
			b.Tags = []string{}
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// Setting returns the raw JSON value stored under key.
func (r reader) Setting(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := r.q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

// Themes returns every stored theme keyed by id.
func (r reader) Themes(ctx context.Context) (map[string]model.Theme, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, data FROM themes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	themes := map[string]model.Theme{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		var t model.Theme
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return nil, fmt.Errorf("theme %q: %w", id, err)
		}
		themes[id] = t
	}
	return themes, rows.Err()
}

// Theme returns the theme with id.
func (r reader) Theme(ctx context.Context, id string) (model.Theme, error) {
	var t model.Theme
	var data string
	err := r.q.QueryRowContext(ctx, `SELECT data FROM themes WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("theme %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return t, err
	}
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return t, fmt.Errorf("theme %q: %w", id, err)
	}
	return t, nil
}

// mapError converts a primary key violation into ErrConstraint.
func mapError(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%w: %v", ErrConstraint, err)
		}
	}
	return err
}
