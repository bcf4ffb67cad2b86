package validate

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// The raw variants below inspect untyped JSON so that shape errors such as
// "bookmarks is a string" are reported instead of being lost during decoding.

// CategoryJSON validates a raw category object.
func CategoryJSON(r gjson.Result) Report {
	if !r.IsObject() {
		return newReport([]string{"Invalid category object"})
	}

	var errs []string
	if res := SanitizeCategoryName(stringField(r, "name")); !res.IsValid {
		errs = append(errs, "Name: "+requiredMessage(r, "name", "Category name is required", res.Error))
	}
	if id := r.Get("id"); id.Type != gjson.Number || id.Num == 0 {
		errs = append(errs, "Invalid category ID")
	}
	if !r.Get("bookmarks").IsArray() {
		errs = append(errs, "Bookmarks must be an array")
	}

	return newReport(errs)
}

// ImportedData validates the shape of a backup file.
func ImportedData(raw []byte) Report {
	if !gjson.ValidBytes(raw) {
		return newReport([]string{"Invalid data format"})
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return newReport([]string{"Invalid data format"})
	}

	var errs []string
	if !truthy(root.Get("version")) {
		errs = append(errs, "Missing version information")
	}

	categories := root.Get("categories")
	if !categories.IsArray() {
		errs = append(errs, "Categories must be an array")
	} else {
		for i, c := range categories.Array() {
			if r := CategoryJSON(c); !r.IsValid {
				errs = append(errs, fmt.Sprintf("Category %d: %s", i+1, r.Joined()))
			}
		}
	}

	if settings := root.Get("settings"); settings.Exists() && settings.Type != gjson.Null && !settings.IsObject() {
		errs = append(errs, "Invalid settings format")
	}

	return newReport(errs)
}

func stringField(r gjson.Result, key string) string {
	v := r.Get(key)
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}

// requiredMessage reports a missing or non-string field as required and
// otherwise passes the sanitizer's message through.
func requiredMessage(r gjson.Result, key, required, msg string) string {
	if v := r.Get(key); v.Type != gjson.String || v.Str == "" {
		return required
	}
	return msg
}

// truthy mirrors the loose presence checks of the backup format: missing,
// null, false, 0 and "" all count as absent.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	default:
		return r.Exists()
	}
}
