package model

// ImportEntry is a bookmark flattened out of an external bookmark tree,
// addressed by the name of the category it should land in.
type ImportEntry struct {
	Category string
	Title    string
	URL      string
	Tags     []string
}

// ImportMerge adds entries to the categories. Categories are matched by name
// and created at the end of the order when missing. Entries whose URL already
// exists are skipped.
func (cs Categories) ImportMerge(entries []ImportEntry) (out Categories, added, skipped int) {
	out = cs.Clone()
	seen := make(map[string]bool)
	for _, c := range out {
		for _, b := range c.Bookmarks {
			seen[b.URL] = true
		}
	}

	for _, e := range entries {
		if seen[e.URL] {
			skipped++
			continue
		}

		target := out.FindByName(e.Category)
		if target == nil {
			var c Category
			out, c = out.AddCategory(e.Category)
			target = out.Get(c.ID)
		}

		tags := append([]string{}, e.Tags...)
		if len(tags) > MaxTagsPerBookmark {
			tags = tags[:MaxTagsPerBookmark]
		}
		target.Bookmarks = append(target.Bookmarks, Bookmark{
			ID:         NewID(),
			Title:      e.Title,
			URL:        e.URL,
			Tags:       tags,
			CategoryID: target.ID,
		})
		seen[e.URL] = true
		added++
	}
	return out, added, skipped
}
