package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nikbrunner/cortex/internal/model"
)

// Tx is a write transaction on Primary. Add methods fail with ErrConstraint
// when the id exists; Put methods insert or replace. A failed statement does
// not abort the transaction, so callers may retry an Add as a Put.
type Tx struct {
	reader
	tx *sql.Tx
}

// AddCategory inserts a new category record.
func (t *Tx) AddCategory(ctx context.Context, c CategoryRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO categories (id, name, sort_order, is_collapsed) VALUES (?, ?, ?, ?)
	`, c.ID, c.Name, c.Order, boolInt(c.IsCollapsed))
	return mapError(err)
}

// PutCategory inserts or replaces a category record.
func (t *Tx) PutCategory(ctx context.Context, c CategoryRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO categories (id, name, sort_order, is_collapsed) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			sort_order = excluded.sort_order,
			is_collapsed = excluded.is_collapsed
	`, c.ID, c.Name, c.Order, boolInt(c.IsCollapsed))
	return err
}

// DeleteCategory removes a category record. Its bookmarks are left alone;
// see DeleteBookmarksByCategory.
func (t *Tx) DeleteCategory(ctx context.Context, id int64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	return err
}

// AddBookmark inserts a new bookmark record at position within its category.
func (t *Tx) AddBookmark(ctx context.Context, b model.Bookmark, position int) error {
	tags, err := encodeTags(b.Tags)
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO bookmarks (id, category_id, title, url, tags, position) VALUES (?, ?, ?, ?, ?, ?)
	`, b.ID, b.CategoryID, b.Title, b.URL, tags, position); err != nil {
		return mapError(err)
	}
	return t.indexTags(ctx, b)
}

// PutBookmark inserts or replaces a bookmark record.
func (t *Tx) PutBookmark(ctx context.Context, b model.Bookmark, position int) error {
	tags, err := encodeTags(b.Tags)
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO bookmarks (id, category_id, title, url, tags, position) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_id = excluded.category_id,
			title = excluded.title,
			url = excluded.url,
			tags = excluded.tags,
			position = excluded.position
	`, b.ID, b.CategoryID, b.Title, b.URL, tags, position); err != nil {
		return err
	}
	return t.indexTags(ctx, b)
}

// indexTags rewrites the tag index rows of b.
func (t *Tx) indexTags(ctx context.Context, b model.Bookmark) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM bookmark_tags WHERE bookmark_id = ?`, b.ID); err != nil {
		return fmt.Errorf("clear tag index: %w", err)
	}
	for _, tag := range b.Tags {
		if _, err := t.tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO bookmark_tags (bookmark_id, tag) VALUES (?, ?)
		`, b.ID, tag); err != nil {
			return fmt.Errorf("index tag %q: %w", tag, err)
		}
	}
	return nil
}

// DeleteBookmark removes a bookmark record and its tag index rows.
func (t *Tx) DeleteBookmark(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM bookmark_tags WHERE bookmark_id = ?`, id); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
	return err
}

// DeleteBookmarksByCategory removes every bookmark owned by categoryID and
// returns how many were removed.
func (t *Tx) DeleteBookmarksByCategory(ctx context.Context, categoryID int64) (int, error) {
	if _, err := t.tx.ExecContext(ctx, `
		DELETE FROM bookmark_tags WHERE bookmark_id IN (SELECT id FROM bookmarks WHERE category_id = ?)
	`, categoryID); err != nil {
		return 0, err
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM bookmarks WHERE category_id = ?`, categoryID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// PutSetting stores a raw JSON value under key.
func (t *Tx) PutSetting(ctx context.Context, key string, value []byte) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(value))
	return err
}

// DeleteSetting removes the value under key.
func (t *Tx) DeleteSetting(ctx context.Context, key string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

// AddTheme inserts a theme under id.
func (t *Tx) AddTheme(ctx context.Context, id string, theme model.Theme) error {
	data, err := json.Marshal(theme)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `INSERT INTO themes (id, data) VALUES (?, ?)`, id, string(data))
	return mapError(err)
}

// PutTheme inserts or replaces the theme under id.
func (t *Tx) PutTheme(ctx context.Context, id string, theme model.Theme) error {
	data, err := json.Marshal(theme)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO themes (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, id, string(data))
	return err
}

// DeleteTheme removes the theme under id.
func (t *Tx) DeleteTheme(ctx context.Context, id string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM themes WHERE id = ?`, id)
	return err
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		return "[]", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
