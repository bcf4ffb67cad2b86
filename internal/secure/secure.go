// Package secure deep-copies untrusted JSON data before it is persisted or
// exported.
package secure

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidObjectType is returned when a value outside the JSON data model
// is found while cloning.
var ErrInvalidObjectType = errors.New("invalid object type")

// forbiddenKeys are never copied into a clone.
var forbiddenKeys = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
}

// Clone returns a deep copy of v. Only the JSON data model is accepted:
// map[string]any, []any, string, float64, json.Number, bool and nil.
// Object keys named __proto__, constructor or prototype are dropped at every
// depth.
func Clone(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, float64, json.Number, bool:
		return t, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			c, err := Clone(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			if forbiddenKeys[k] {
				continue
			}
			c, err := Clone(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = c
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidObjectType, v)
	}
}

// CloneJSON converts a typed value to the JSON data model and clones it.
func CloneJSON(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return CloneBytes(raw)
}

// CloneBytes decodes raw JSON and clones the result. Numbers are kept as
// json.Number so integer ids survive unchanged.
func CloneBytes(raw []byte) (any, error) {
	var v any
	if err := unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return Clone(v)
}

// Into clones src through the JSON data model and decodes the result into
// dst, which must be a pointer.
func Into(src any, dst any) error {
	c, err := CloneJSON(src)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal clone: %w", err)
	}
	return json.Unmarshal(raw, dst)
}

// DecodeInto decodes raw JSON into dst after cloning it, so forbidden keys
// never reach the typed value.
func DecodeInto(raw []byte, dst any) error {
	c, err := CloneBytes(raw)
	if err != nil {
		return err
	}
	out, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal clone: %w", err)
	}
	return json.Unmarshal(out, dst)
}
