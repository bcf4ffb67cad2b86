package exporter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/nikbrunner/cortex/internal/model"
)

// FeedOptions describes the generated feed.
type FeedOptions struct {
	Title string
	Link  string
	Now   time.Time
}

// Feed renders every bookmark as an Atom entry. Entries carry the category
// and tags in their description.
func Feed(categories model.Categories, opts FeedOptions) (string, error) {
	if opts.Title == "" {
		opts.Title = "Cortex Bookmarks"
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	feed := &feeds.Feed{
		Title:       opts.Title,
		Link:        &feeds.Link{Href: opts.Link},
		Description: "Bookmarks exported from cortex.",
		Created:     opts.Now,
	}

	for _, c := range categories {
		for _, b := range c.Bookmarks {
			desc := "Category: " + c.Name
			if len(b.Tags) > 0 {
				desc += " | Tags: " + strings.Join(b.Tags, ", ")
			}
			feed.Add(&feeds.Item{
				Title:       b.Title,
				Link:        &feeds.Link{Href: b.URL},
				Id:          b.URL + "#" + strconv.FormatInt(b.ID, 10),
				Description: desc,
				Created:     time.UnixMilli(b.ID),
			})
		}
	}

	atom, err := feed.ToAtom()
	if err != nil {
		return "", fmt.Errorf("render atom feed: %w", err)
	}
	return atom, nil
}
