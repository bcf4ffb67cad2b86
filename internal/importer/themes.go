package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nikbrunner/cortex/internal/model"
	"github.com/nikbrunner/cortex/internal/secure"
	"github.com/nikbrunner/cortex/internal/validate"
)

var (
	ErrInvalidThemeFile = errors.New("invalid theme file format")
	ErrNoValidThemes    = errors.New("no valid themes found in file")
)

// ImportThemes reads a theme file: a JSON array of themes. Entries that fail
// validation are skipped; a file without a single valid theme is an error.
func ImportThemes(r io.Reader) ([]model.Theme, error) {
	raw, err := readLimited(r)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidThemeFile, ErrMalformedJSON)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		return nil, ErrInvalidThemeFile
	}

	var themes []model.Theme
	for _, item := range root.Array() {
		if !item.IsObject() {
			continue
		}
		var t model.Theme
		if err := secure.DecodeInto([]byte(item.Raw), &t); err != nil {
			continue
		}
		if validate.Theme(t) {
			themes = append(themes, t)
		}
	}
	if len(themes) == 0 {
		return nil, ErrNoValidThemes
	}
	return themes, nil
}

// MergeThemes adds incoming themes to existing ones. A theme whose name
// matches an existing one, ignoring case, replaces it in place.
func MergeThemes(existing, incoming []model.Theme) []model.Theme {
	out := append([]model.Theme{}, existing...)
	for _, t := range incoming {
		replaced := false
		for i := range out {
			if strings.EqualFold(out[i].Name, t.Name) {
				out[i] = t
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, t)
		}
	}
	return out
}
