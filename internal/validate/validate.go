// Package validate checks and cleans user supplied text, URLs and records
// before they reach storage. Every check returns the cleaned value together
// with the verdict so callers never derive a "clean" value on their own.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Length limits, in characters.
const (
	MinURLLength          = 3
	MaxURLLength          = 2048
	MaxTitleLength        = 200
	MaxTagLength          = 30
	MaxCategoryNameLength = 250
	MaxTagsInRecord       = 10
)

// Result is the verdict of a single field check.
type Result struct {
	IsValid   bool   `json:"isValid"`
	Sanitized string `json:"sanitized"`
	Error     string `json:"error,omitempty"`
}

// Report is the verdict of a record check.
type Report struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

func newReport(errs []string) Report {
	if errs == nil {
		errs = []string{}
	}
	return Report{IsValid: len(errs) == 0, Errors: errs}
}

// Joined returns the errors as one comma separated message.
func (r Report) Joined() string {
	return strings.Join(r.Errors, ", ")
}

func ok(s string) Result { return Result{IsValid: true, Sanitized: s} }

func fail(s, msg string) Result { return Result{Sanitized: s, Error: msg} }

var (
	controlChars    = regexp.MustCompile(`[\x{0000}-\x{001F}\x{007F}-\x{009F}]`)
	angleBrackets   = regexp.MustCompile(`[<>]`)
	scriptInjection = regexp.MustCompile(`(?i)<script|javascript:|on\w+\s*=`)
	tagDisallowed   = regexp.MustCompile(`[^a-z0-9\-_]`)
)

func length(s string) int { return utf8.RuneCountInString(s) }

func truncate(s string, n int) string {
	if length(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// stripText removes angle brackets and C0/C1 control characters.
func stripText(s string) string {
	s = angleBrackets.ReplaceAllString(s, "")
	return controlChars.ReplaceAllString(s, "")
}

// SanitizeTitle validates a bookmark title.
func SanitizeTitle(raw string) Result {
	title := strings.TrimSpace(raw)
	if title == "" {
		return fail("", "Title cannot be empty")
	}
	if length(title) > MaxTitleLength {
		return fail(truncate(title, MaxTitleLength), fmt.Sprintf("Title too long (max %d chars)", MaxTitleLength))
	}

	sanitized := stripText(title)
	if scriptInjection.MatchString(sanitized) {
		return fail("", "Potentially malicious content detected")
	}
	sanitized = strings.TrimSpace(sanitized)
	if sanitized == "" {
		return fail("", "Title cannot be empty")
	}
	return ok(sanitized)
}

// SanitizeTag validates a tag and reduces it to [a-z0-9-_].
func SanitizeTag(raw string) Result {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if tag == "" {
		return fail("", "Tag cannot be empty")
	}
	if length(tag) > MaxTagLength {
		return fail(truncate(tag, 15), fmt.Sprintf("Tag too long (max %d chars)", MaxTagLength))
	}

	sanitized := tagDisallowed.ReplaceAllString(tag, "")
	if sanitized == "" {
		return fail("", "Tag contains invalid characters")
	}
	return ok(sanitized)
}

// SanitizeCategoryName validates a category name.
func SanitizeCategoryName(raw string) Result {
	name := strings.TrimSpace(raw)
	if name == "" {
		return fail("", "Category name cannot be empty")
	}
	if length(name) > MaxCategoryNameLength {
		return fail(truncate(name, MaxCategoryNameLength), fmt.Sprintf("Category name too long (max %d chars)", MaxCategoryNameLength))
	}

	sanitized := stripText(name)
	if scriptInjection.MatchString(sanitized) {
		return fail("", "Potentially malicious content detected")
	}
	sanitized = strings.TrimSpace(sanitized)
	if sanitized == "" {
		return fail("", "Category name cannot be empty")
	}
	return ok(sanitized)
}
