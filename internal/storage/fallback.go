package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nikbrunner/cortex/internal/model"
)

// Fallback keys.
const (
	KeyCategories = "cortex_categories"
	KeySettings   = "cortex_settings"
	KeyThemes     = "userThemes"
	KeyPending    = "pendingBookmark"
)

// Fallback is the flat mirror of the primary store: one JSON blob per
// logical collection. A nil *Fallback is a disabled mirror; reads find
// nothing and writes are dropped.
type Fallback struct {
	kv KV
}

// NewFallback wraps kv.
func NewFallback(kv KV) *Fallback {
	return &Fallback{kv: kv}
}

func (f *Fallback) enabled() bool {
	return f != nil && f.kv != nil
}

func (f *Fallback) get(ctx context.Context, key string) ([]byte, bool, error) {
	if !f.enabled() {
		return nil, false, nil
	}
	vals, err := f.kv.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("fallback get %s: %w", key, err)
	}
	v, ok := vals[key]
	return v, ok, nil
}

func (f *Fallback) put(ctx context.Context, key string, v any) error {
	if !f.enabled() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("fallback encode %s: %w", key, err)
	}
	if err := f.kv.Set(ctx, map[string][]byte{key: data}); err != nil {
		return fmt.Errorf("fallback set %s: %w", key, err)
	}
	return nil
}

// Categories returns the raw categories blob.
func (f *Fallback) Categories(ctx context.Context) ([]byte, bool, error) {
	return f.get(ctx, KeyCategories)
}

// SaveCategories mirrors the full category tree.
func (f *Fallback) SaveCategories(ctx context.Context, categories model.Categories) error {
	if categories == nil {
		categories = model.Categories{}
	}
	return f.put(ctx, KeyCategories, categories)
}

// Settings returns the raw settings blob.
func (f *Fallback) Settings(ctx context.Context) ([]byte, bool, error) {
	return f.get(ctx, KeySettings)
}

// SaveSettings mirrors the raw settings record.
func (f *Fallback) SaveSettings(ctx context.Context, raw []byte) error {
	return f.put(ctx, KeySettings, json.RawMessage(raw))
}

// Themes returns the raw themes blob, a JSON array of themes.
func (f *Fallback) Themes(ctx context.Context) ([]byte, bool, error) {
	return f.get(ctx, KeyThemes)
}

// SaveThemes mirrors the user themes.
func (f *Fallback) SaveThemes(ctx context.Context, themes []model.Theme) error {
	if themes == nil {
		themes = []model.Theme{}
	}
	return f.put(ctx, KeyThemes, themes)
}

// Pending returns the pending bookmark handoff record.
func (f *Fallback) Pending(ctx context.Context) (model.PendingBookmark, bool, error) {
	var p model.PendingBookmark
	raw, ok, err := f.get(ctx, KeyPending)
	if err != nil || !ok {
		return p, false, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, false, fmt.Errorf("fallback decode %s: %w", KeyPending, err)
	}
	return p, true, nil
}

// SetPending stores the pending bookmark handoff record.
func (f *Fallback) SetPending(ctx context.Context, p model.PendingBookmark) error {
	return f.put(ctx, KeyPending, p)
}

// ClearPending removes the pending bookmark handoff record.
func (f *Fallback) ClearPending(ctx context.Context) error {
	if !f.enabled() {
		return nil
	}
	return f.kv.Remove(ctx, KeyPending)
}

// Clear removes everything from the underlying store.
func (f *Fallback) Clear(ctx context.Context) error {
	if !f.enabled() {
		return nil
	}
	return f.kv.Clear(ctx)
}
