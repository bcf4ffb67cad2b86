package model

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrBookmarkNotFound = errors.New("bookmark not found")
	ErrTooManyTags      = errors.New("too many tags")
)

// DefaultCategoryName is the name of the category created when nothing is stored.
const DefaultCategoryName = "General"

// Category groups bookmarks. Bookmarks is only populated in the application
// view; persisted category records carry no bookmarks.
type Category struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Order       int        `json:"order"`
	IsCollapsed bool       `json:"isCollapsed"`
	Bookmarks   []Bookmark `json:"bookmarks"`
}

// NewCategory creates an empty Category with a generated ID.
func NewCategory(name string) Category {
	return Category{
		ID:        NewID(),
		Name:      name,
		Bookmarks: []Bookmark{},
	}
}

// DefaultCategory is the floor returned when no category is stored anywhere.
func DefaultCategory() Category {
	return Category{
		ID:        1,
		Name:      DefaultCategoryName,
		Bookmarks: []Bookmark{},
	}
}

func (c Category) clone() Category {
	out := c
	out.Bookmarks = make([]Bookmark, len(c.Bookmarks))
	for i, b := range c.Bookmarks {
		out.Bookmarks[i] = b.clone()
	}
	return out
}

// Categories is the in-memory application state. Every mutating method
// returns a new slice and leaves the receiver untouched.
type Categories []Category

// Clone returns a deep copy.
func (cs Categories) Clone() Categories {
	out := make(Categories, len(cs))
	for i, c := range cs {
		out[i] = c.clone()
	}
	return out
}

// IndexOf returns the position of the category with id, or -1.
func (cs Categories) IndexOf(id int64) int {
	for i := range cs {
		if cs[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns the category with id, or nil.
func (cs Categories) Get(id int64) *Category {
	if i := cs.IndexOf(id); i >= 0 {
		return &cs[i]
	}
	return nil
}

// FindByName returns the first category whose name matches case-insensitively.
func (cs Categories) FindByName(name string) *Category {
	for i := range cs {
		if strings.EqualFold(cs[i].Name, name) {
			return &cs[i]
		}
	}
	return nil
}

// AddCategory appends a new empty category at the end of the order.
func (cs Categories) AddCategory(name string) (Categories, Category) {
	c := NewCategory(strings.TrimSpace(name))
	c.Order = len(cs)
	out := append(cs.Clone(), c)
	return out, c
}

// DeleteCategory removes the category and, with it, its bookmarks.
func (cs Categories) DeleteCategory(id int64) (Categories, error) {
	i := cs.IndexOf(id)
	if i < 0 {
		return cs, ErrCategoryNotFound
	}
	out := cs.Clone()
	return append(out[:i], out[i+1:]...), nil
}

// RenameCategory changes a category's name.
func (cs Categories) RenameCategory(id int64, name string) (Categories, error) {
	i := cs.IndexOf(id)
	if i < 0 {
		return cs, ErrCategoryNotFound
	}
	out := cs.Clone()
	out[i].Name = strings.TrimSpace(name)
	return out, nil
}

// ToggleCollapsed flips the collapsed flag of a category.
func (cs Categories) ToggleCollapsed(id int64) (Categories, error) {
	i := cs.IndexOf(id)
	if i < 0 {
		return cs, ErrCategoryNotFound
	}
	out := cs.Clone()
	out[i].IsCollapsed = !out[i].IsCollapsed
	return out, nil
}

// MoveUp swaps the category with its predecessor and reassigns order values.
// Moving the first category is a no-op.
func (cs Categories) MoveUp(id int64) (Categories, error) {
	i := cs.IndexOf(id)
	if i < 0 {
		return cs, ErrCategoryNotFound
	}
	if i == 0 {
		return cs, nil
	}
	out := cs.Clone()
	out[i-1], out[i] = out[i], out[i-1]
	out.renumber()
	return out, nil
}

// MoveDown swaps the category with its successor and reassigns order values.
// Moving the last category is a no-op.
func (cs Categories) MoveDown(id int64) (Categories, error) {
	i := cs.IndexOf(id)
	if i < 0 {
		return cs, ErrCategoryNotFound
	}
	if i == len(cs)-1 {
		return cs, nil
	}
	out := cs.Clone()
	out[i], out[i+1] = out[i+1], out[i]
	out.renumber()
	return out, nil
}

func (cs Categories) renumber() {
	for i := range cs {
		cs[i].Order = i
	}
}

// SortByOrder sorts in place by Order, keeping the current order on ties.
func (cs Categories) SortByOrder() {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Order < cs[j].Order
	})
}

// AddBookmark appends b to the category. A zero ID is replaced with a generated one.
func (cs Categories) AddBookmark(categoryID int64, b Bookmark) (Categories, Bookmark, error) {
	i := cs.IndexOf(categoryID)
	if i < 0 {
		return cs, Bookmark{}, ErrCategoryNotFound
	}
	if len(b.Tags) > MaxTagsPerBookmark {
		return cs, Bookmark{}, ErrTooManyTags
	}
	if b.ID == 0 {
		b.ID = NewID()
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	b.CategoryID = categoryID

	out := cs.Clone()
	out[i].Bookmarks = append(out[i].Bookmarks, b.clone())
	return out, b, nil
}

// BookmarkUpdate holds the fields to change on a bookmark. Nil fields are kept.
type BookmarkUpdate struct {
	Title *string
	URL   *string
	Tags  []string
}

// UpdateBookmark applies u to the bookmark in the given category.
func (cs Categories) UpdateBookmark(categoryID, bookmarkID int64, u BookmarkUpdate) (Categories, error) {
	ci := cs.IndexOf(categoryID)
	if ci < 0 {
		return cs, ErrCategoryNotFound
	}
	if u.Tags != nil && len(u.Tags) > MaxTagsPerBookmark {
		return cs, ErrTooManyTags
	}

	out := cs.Clone()
	for bi := range out[ci].Bookmarks {
		b := &out[ci].Bookmarks[bi]
		if b.ID != bookmarkID {
			continue
		}
		if u.Title != nil {
			b.Title = *u.Title
		}
		if u.URL != nil {
			b.URL = *u.URL
		}
		if u.Tags != nil {
			b.Tags = append([]string{}, u.Tags...)
		}
		return out, nil
	}
	return cs, ErrBookmarkNotFound
}

// DeleteBookmark removes a bookmark from its category.
func (cs Categories) DeleteBookmark(categoryID, bookmarkID int64) (Categories, error) {
	ci := cs.IndexOf(categoryID)
	if ci < 0 {
		return cs, ErrCategoryNotFound
	}
	out := cs.Clone()
	bms := out[ci].Bookmarks
	for bi := range bms {
		if bms[bi].ID == bookmarkID {
			out[ci].Bookmarks = append(bms[:bi], bms[bi+1:]...)
			return out, nil
		}
	}
	return cs, ErrBookmarkNotFound
}

// FindBookmark locates a bookmark anywhere in the tree.
func (cs Categories) FindBookmark(bookmarkID int64) (categoryID int64, b *Bookmark) {
	for ci := range cs {
		for bi := range cs[ci].Bookmarks {
			if cs[ci].Bookmarks[bi].ID == bookmarkID {
				return cs[ci].ID, &cs[ci].Bookmarks[bi]
			}
		}
	}
	return 0, nil
}

// DeleteTagFromAll strips tag from every bookmark.
func (cs Categories) DeleteTagFromAll(tag string) Categories {
	out := cs.Clone()
	for ci := range out {
		for bi := range out[ci].Bookmarks {
			b := &out[ci].Bookmarks[bi]
			kept := b.Tags[:0]
			for _, t := range b.Tags {
				if t != tag {
					kept = append(kept, t)
				}
			}
			b.Tags = kept
		}
	}
	return out
}

// AllTags returns every distinct tag, sorted.
func (cs Categories) AllTags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, c := range cs {
		for _, b := range c.Bookmarks {
			for _, t := range b.Tags {
				if !seen[t] {
					seen[t] = true
					tags = append(tags, t)
				}
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// HasURL reports whether any bookmark already points at url.
func (cs Categories) HasURL(url string) bool {
	for _, c := range cs {
		for _, b := range c.Bookmarks {
			if b.URL == url {
				return true
			}
		}
	}
	return false
}

// BookmarkCount returns the total number of bookmarks.
func (cs Categories) BookmarkCount() int {
	n := 0
	for _, c := range cs {
		n += len(c.Bookmarks)
	}
	return n
}
