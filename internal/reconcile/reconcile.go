// Package reconcile converges the persisted category and bookmark records
// to an in-memory category tree.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/nikbrunner/cortex/internal/logger"
	"github.com/nikbrunner/cortex/internal/model"
	"github.com/nikbrunner/cortex/internal/storage"
)

// SkippedBookmark is a bookmark whose write failed during a sync.
type SkippedBookmark struct {
	ID         int64
	CategoryID int64
	Title      string
	Err        error
}

// Report summarizes the writes of one sync.
type Report struct {
	CategoriesAdded    int
	CategoriesUpdated  int
	CategoriesDeleted  int
	BookmarksAdded     int
	BookmarksUpdated   int
	BookmarksDeleted   int
	BookmarksUnchanged int
	Skipped            []SkippedBookmark
	// MirrorErr is set when the primary store converged but the fallback
	// mirror could not be written.
	MirrorErr error
}

// Writes is the number of records written or deleted.
func (r Report) Writes() int {
	return r.CategoriesAdded + r.CategoriesUpdated + r.CategoriesDeleted +
		r.BookmarksAdded + r.BookmarksUpdated + r.BookmarksDeleted
}

// Engine syncs category trees into a Primary store and mirrors them into a
// Fallback. At most one sync runs at a time.
type Engine struct {
	primary  *storage.Primary
	fallback *storage.Fallback
	log      logger.Logger

	queue
}

// New creates an Engine. fallback may be nil.
func New(primary *storage.Primary, fallback *storage.Fallback, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{primary: primary, fallback: fallback, log: log}
}

// Sync makes the stored categories and bookmarks equal to desired. The
// whole diff is applied in one transaction. A bookmark whose write fails is
// listed in Report.Skipped and does not abort the sync.
//
// If another sync is running, the call waits. A call still waiting when a
// newer one arrives returns ErrSuperseded without touching the store.
func (e *Engine) Sync(ctx context.Context, desired model.Categories) (Report, error) {
	if err := e.acquire(ctx); err != nil {
		return Report{}, err
	}
	defer e.release()

	report, err := e.apply(ctx, desired)
	if err != nil {
		return Report{}, err
	}

	if err := e.fallback.SaveCategories(ctx, desired); err != nil {
		e.log.Error("fallback mirror write failed", logger.Error(err))
		report.MirrorErr = err
	}
	return report, nil
}

func (e *Engine) apply(ctx context.Context, desired model.Categories) (Report, error) {
	var report Report
	err := e.primary.Update(ctx, func(tx *storage.Tx) error {
		report = Report{}

		current, err := tx.Categories(ctx)
		if err != nil {
			return fmt.Errorf("read categories: %w", err)
		}
		existing := make(map[int64]storage.CategoryRecord, len(current))
		for _, c := range current {
			existing[c.ID] = c
		}
		wanted := make(map[int64]bool, len(desired))
		for _, c := range desired {
			wanted[c.ID] = true
		}

		// Deletes first so ids of removed records never collide with writes.
		for _, c := range current {
			if wanted[c.ID] {
				continue
			}
			if err := tx.DeleteCategory(ctx, c.ID); err != nil {
				return fmt.Errorf("delete category %d: %w", c.ID, err)
			}
			n, err := tx.DeleteBookmarksByCategory(ctx, c.ID)
			if err != nil {
				return fmt.Errorf("delete bookmarks of category %d: %w", c.ID, err)
			}
			report.CategoriesDeleted++
			report.BookmarksDeleted += n
		}
		n, err := e.deleteOrphans(ctx, tx, wanted)
		if err != nil {
			return err
		}
		report.BookmarksDeleted += n

		for _, c := range desired {
			if err := writeCategory(ctx, tx, c, existing, &report); err != nil {
				return err
			}
		}

		for _, c := range desired {
			if err := e.syncBookmarks(ctx, tx, c, &report); err != nil {
				return err
			}
		}
		return nil
	})
	return report, err
}

// deleteOrphans removes bookmarks whose category has no record, left over
// from an interrupted write.
func (e *Engine) deleteOrphans(ctx context.Context, tx *storage.Tx, wanted map[int64]bool) (int, error) {
	all, err := tx.Bookmarks(ctx)
	if err != nil {
		return 0, fmt.Errorf("read bookmarks: %w", err)
	}
	var n int
	for _, b := range all {
		if wanted[b.CategoryID] {
			continue
		}
		if err := tx.DeleteBookmark(ctx, b.ID); err != nil {
			return n, fmt.Errorf("delete bookmark %d: %w", b.ID, err)
		}
		n++
	}
	if n > 0 {
		e.log.Info("removed orphaned bookmarks", logger.Int("count", n))
	}
	return n, nil
}

func writeCategory(ctx context.Context, tx *storage.Tx, c model.Category, existing map[int64]storage.CategoryRecord, report *Report) error {
	rec := storage.CategoryRecord{
		ID:          c.ID,
		Name:        c.Name,
		Order:       c.Order,
		IsCollapsed: c.IsCollapsed,
	}

	if cur, ok := existing[c.ID]; ok {
		if cur == rec {
			return nil
		}
		if err := tx.PutCategory(ctx, rec); err != nil {
			return fmt.Errorf("update category %d: %w", c.ID, err)
		}
		report.CategoriesUpdated++
		return nil
	}

	err := tx.AddCategory(ctx, rec)
	if errors.Is(err, storage.ErrConstraint) {
		err = tx.PutCategory(ctx, rec)
	}
	if err != nil {
		return fmt.Errorf("add category %d: %w", c.ID, err)
	}
	// A desired list may repeat an id; the later entry replaces the earlier.
	existing[c.ID] = rec
	report.CategoriesAdded++
	return nil
}

func (e *Engine) syncBookmarks(ctx context.Context, tx *storage.Tx, c model.Category, report *Report) error {
	current, err := tx.BookmarksByCategory(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("read bookmarks of category %d: %w", c.ID, err)
	}

	wanted := make(map[int64]bool, len(c.Bookmarks))
	for _, b := range c.Bookmarks {
		wanted[b.ID] = true
	}
	position := make(map[int64]int, len(current))
	stored := make(map[int64]model.Bookmark, len(current))
	for i, b := range current {
		if !wanted[b.ID] {
			if err := tx.DeleteBookmark(ctx, b.ID); err != nil {
				return fmt.Errorf("delete bookmark %d: %w", b.ID, err)
			}
			report.BookmarksDeleted++
			continue
		}
		position[b.ID] = i
		stored[b.ID] = b
	}

	for i, b := range c.Bookmarks {
		b.CategoryID = c.ID
		if b.Tags == nil {
			b.Tags = []string{}
		}

		if cur, ok := stored[b.ID]; ok && position[b.ID] == i && sameBookmark(cur, b) {
			report.BookmarksUnchanged++
			continue
		}

		added := true
		err := tx.AddBookmark(ctx, b, i)
		if errors.Is(err, storage.ErrConstraint) {
			added = false
			err = tx.PutBookmark(ctx, b, i)
		}
		if err != nil {
			e.log.Error("bookmark write skipped",
				logger.Int64("id", b.ID),
				logger.Int64("category_id", c.ID),
				logger.String("title", b.Title),
				logger.Error(err))
			report.Skipped = append(report.Skipped, SkippedBookmark{ID: b.ID, CategoryID: c.ID, Title: b.Title, Err: err})
			continue
		}
		if added {
			report.BookmarksAdded++
		} else {
			report.BookmarksUpdated++
		}
	}
	return nil
}

func sameBookmark(a, b model.Bookmark) bool {
	return a.ID == b.ID && a.CategoryID == b.CategoryID &&
		a.Title == b.Title && a.URL == b.URL && slices.Equal(a.Tags, b.Tags)
}

// Load assembles the stored category tree: every category with its
// bookmarks attached, sorted by order. Ties keep store order.
func (e *Engine) Load(ctx context.Context) (model.Categories, error) {
	records, err := e.primary.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}

	categories := make(model.Categories, 0, len(records))
	for _, r := range records {
		bookmarks, err := e.primary.BookmarksByCategory(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("read bookmarks of category %d: %w", r.ID, err)
		}
		categories = append(categories, model.Category{
			ID:          r.ID,
			Name:        r.Name,
			Order:       r.Order,
			IsCollapsed: r.IsCollapsed,
			Bookmarks:   bookmarks,
		})
	}
	categories.SortByOrder()
	return categories, nil
}
