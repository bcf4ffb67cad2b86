package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Settings is the singleton user preference record.
type Settings struct {
	GridColumns  int               `json:"gridColumns"`
	Language     string            `json:"language"`
	Theme        string            `json:"theme"`
	FontFamily   string            `json:"fontFamily"`
	FontSize     string            `json:"fontSize"`
	IconStyle    string            `json:"iconStyle"`
	OpenInNewTab bool              `json:"openInNewTab"`
	TagColors    map[string]string `json:"tagColors"`
	HoverEffect  string            `json:"hoverEffect"`
	CardLayout   string            `json:"cardLayout"`
}

// DefaultSettings returns the settings used on first load.
func DefaultSettings() Settings {
	return Settings{
		GridColumns:  3,
		Language:     "en",
		Theme:        "cortex-dark",
		FontFamily:   "system",
		FontSize:     "medium",
		IconStyle:    "solid",
		OpenInNewTab: true,
		TagColors:    map[string]string{},
		HoverEffect:  "border",
		CardLayout:   "horizontal",
	}
}

// ErrInvalidSettings marks a settings record that is not a JSON object or
// has a field of the wrong type.
var ErrInvalidSettings = errors.New("invalid settings")

// MergeSettings overlays a persisted, possibly partial, settings record on
// top of the defaults. Fields absent from raw keep their default value.
// The returned Settings is usable even when err is non-nil.
func MergeSettings(raw []byte) (Settings, error) {
	return DefaultSettings().Overlay(raw)
}

// Overlay applies the fields of raw to s one at a time. A field with the
// wrong type keeps its current value and is named in the returned error,
// which wraps ErrInvalidSettings. Null values and unknown keys are skipped.
func (s Settings) Overlay(raw []byte) (Settings, error) {
	if s.TagColors == nil {
		s.TagColors = map[string]string{}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return s, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return s, fmt.Errorf("%w: not an object", ErrInvalidSettings)
	}

	setters := map[string]func(json.RawMessage) bool{
		"gridColumns":  setField(&s.GridColumns),
		"language":     setField(&s.Language),
		"theme":        setField(&s.Theme),
		"fontFamily":   setField(&s.FontFamily),
		"fontSize":     setField(&s.FontSize),
		"iconStyle":    setField(&s.IconStyle),
		"openInNewTab": setField(&s.OpenInNewTab),
		"tagColors":    setField(&s.TagColors),
		"hoverEffect":  setField(&s.HoverEffect),
		"cardLayout":   setField(&s.CardLayout),
	}

	var bad []string
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		set, known := setters[key]
		if !known || bytes.Equal(bytes.TrimSpace(fields[key]), []byte("null")) {
			continue
		}
		if !set(fields[key]) {
			bad = append(bad, key)
		}
	}
	if len(bad) > 0 {
		return s, fmt.Errorf("%w: wrong type for %s", ErrInvalidSettings, strings.Join(bad, ", "))
	}
	return s, nil
}

// setField returns a setter that decodes into a fresh T and only assigns
// it to dst when decoding succeeds.
func setField[T any](dst *T) func(json.RawMessage) bool {
	return func(raw json.RawMessage) bool {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return false
		}
		*dst = v
		return true
	}
}
