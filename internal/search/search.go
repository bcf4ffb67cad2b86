// Package search finds bookmarks in a category tree.
package search

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/nikbrunner/cortex/internal/model"
)

// Filter keeps the bookmarks whose title, URL or one of whose tags contains
// query, ignoring case. Categories left without bookmarks are dropped. An
// empty query returns categories unchanged.
func Filter(categories model.Categories, query string) model.Categories {
	if query == "" {
		return categories
	}
	q := strings.ToLower(query)

	var out model.Categories
	for _, c := range categories {
		var kept []model.Bookmark
		for _, b := range c.Bookmarks {
			if matches(b, q) {
				kept = append(kept, b)
			}
		}
		if len(kept) > 0 {
			c.Bookmarks = kept
			out = append(out, c)
		}
	}
	return out
}

func matches(b model.Bookmark, q string) bool {
	if strings.Contains(strings.ToLower(b.Title), q) || strings.Contains(strings.ToLower(b.URL), q) {
		return true
	}
	for _, t := range b.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Entry is a bookmark together with the name of its category.
type Entry struct {
	Category string
	Bookmark model.Bookmark
}

// Entries lists every bookmark in category order.
func Entries(categories model.Categories) []Entry {
	var out []Entry
	for _, c := range categories {
		for _, b := range c.Bookmarks {
			out = append(out, Entry{Category: c.Name, Bookmark: b})
		}
	}
	return out
}

// Result represents a fuzzy search match.
type Result struct {
	Entry          Entry
	MatchedIndexes []int
	Score          int
}

// entryTitles implements fuzzy.Source for an entry slice.
type entryTitles []Entry

func (et entryTitles) String(i int) string {
	return et[i].Bookmark.Title
}

func (et entryTitles) Len() int {
	return len(et)
}

// Fuzzy searches bookmark titles using fuzzy matching.
// Returns results sorted by match score (best first).
func Fuzzy(entries []Entry, query string) []Result {
	if query == "" {
		return nil
	}

	matches := fuzzy.FindFrom(query, entryTitles(entries))

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Entry:          entries[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}
