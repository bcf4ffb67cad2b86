package validate

import (
	"fmt"
	"regexp"

	"github.com/nikbrunner/cortex/internal/model"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Bookmark validates a bookmark record.
func Bookmark(b model.Bookmark) Report {
	var errs []string

	if r := SanitizeTitle(b.Title); !r.IsValid {
		errs = append(errs, "Title: "+r.Error)
	}
	if r := URL(b.URL); !r.IsValid {
		errs = append(errs, "URL: "+r.Error)
	}
	errs = append(errs, tagErrors(b.Tags)...)

	return newReport(errs)
}

func tagErrors(tags []string) []string {
	if len(tags) > MaxTagsInRecord {
		return []string{fmt.Sprintf("Too many tags (max %d)", MaxTagsInRecord)}
	}
	var errs []string
	for i, tag := range tags {
		if r := SanitizeTag(tag); !r.IsValid {
			errs = append(errs, fmt.Sprintf("Tag %d: %s", i+1, r.Error))
		}
	}
	return errs
}

// Category validates a category record. Bookmarks must be a non-nil slice.
func Category(c model.Category) Report {
	var errs []string

	if r := SanitizeCategoryName(c.Name); !r.IsValid {
		errs = append(errs, "Name: "+r.Error)
	}
	if c.ID == 0 {
		errs = append(errs, "Invalid category ID")
	}
	if c.Bookmarks == nil {
		errs = append(errs, "Bookmarks must be an array")
	}

	return newReport(errs)
}

// Theme reports whether t is a usable theme: a name, a light or dark type
// and every required color in #RRGGBB form.
func Theme(t model.Theme) bool {
	if t.Name == "" {
		return false
	}
	if t.Type != model.ThemeLight && t.Type != model.ThemeDark {
		return false
	}
	for _, color := range t.Colors() {
		if !hexColor.MatchString(color) {
			return false
		}
	}
	return true
}

// SanitizeBookmark returns b with its title, URL and tags replaced by their
// sanitized values. Duplicate tags collapse to one.
func SanitizeBookmark(b model.Bookmark) (model.Bookmark, Report) {
	report := Bookmark(b)
	if !report.IsValid {
		return b, report
	}

	out := b
	out.Title = SanitizeTitle(b.Title).Sanitized
	out.URL = URL(b.URL).Sanitized
	out.Tags = make([]string, 0, len(b.Tags))
	seen := make(map[string]bool)
	for _, tag := range b.Tags {
		t := SanitizeTag(tag).Sanitized
		if !seen[t] {
			seen[t] = true
			out.Tags = append(out.Tags, t)
		}
	}
	return out, report
}

// DroppedBookmark records a bookmark removed while sanitizing a category.
type DroppedBookmark struct {
	ID     int64
	Title  string
	Errors []string
}

// CategoryResult is the outcome of SanitizeCategory.
type CategoryResult struct {
	Category model.Category
	Report   Report
	Dropped  []DroppedBookmark
}

// SanitizeCategory validates c and returns it with a sanitized name and
// sanitized bookmarks. Bookmarks failing validation are removed and listed
// in Dropped; they do not make the category itself invalid.
func SanitizeCategory(c model.Category) CategoryResult {
	res := CategoryResult{Category: c, Report: Category(c)}
	if !res.Report.IsValid {
		return res
	}

	res.Category.Name = SanitizeCategoryName(c.Name).Sanitized
	res.Category.Bookmarks = make([]model.Bookmark, 0, len(c.Bookmarks))
	for _, b := range c.Bookmarks {
		clean, report := SanitizeBookmark(b)
		if !report.IsValid {
			res.Dropped = append(res.Dropped, DroppedBookmark{ID: b.ID, Title: b.Title, Errors: report.Errors})
			continue
		}
		clean.CategoryID = c.ID
		res.Category.Bookmarks = append(res.Category.Bookmarks, clean)
	}
	return res
}
