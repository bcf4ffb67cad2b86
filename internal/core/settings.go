package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/nikbrunner/cortex/internal/logger"
	"github.com/nikbrunner/cortex/internal/model"
	"github.com/nikbrunner/cortex/internal/secure"
	"github.com/nikbrunner/cortex/internal/storage"
	"github.com/nikbrunner/cortex/internal/validate"
)

// LoadSettings returns the stored settings merged over the defaults, so
// fields missing from an older record get their default value.
func (s *Service) LoadSettings(ctx context.Context) (model.Settings, error) {
	raw, err := s.primary.Setting(ctx, storage.SettingsKey)
	if err != nil {
		if ctx.Err() != nil {
			return model.Settings{}, ctx.Err()
		}
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Error("primary store read failed", logger.Error(err))
		}
		raw = s.fallbackSettings(ctx)
	}

	settings, err := model.MergeSettings(raw)
	if err != nil {
		s.log.Warn("stored settings partly unreadable, defaults kept for bad fields", logger.Error(err))
	}
	return settings, nil
}

func (s *Service) fallbackSettings(ctx context.Context) []byte {
	raw, ok, err := s.fallback.Settings(ctx)
	if err != nil {
		s.log.Error("fallback store read failed", logger.Error(err))
		return nil
	}
	if !ok || !gjson.ParseBytes(raw).IsObject() {
		return nil
	}
	s.log.Info("loaded settings from fallback")
	return raw
}

// SaveSettings persists settings to the primary store and mirrors them.
func (s *Service) SaveSettings(ctx context.Context, settings model.Settings) error {
	cloned, err := secure.CloneJSON(settings)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	raw, err := json.Marshal(cloned)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return s.saveSettingsRaw(ctx, raw)
}

// PatchSettings overlays a partial JSON settings object on the stored
// settings and saves the result. Errors caused by the patch itself wrap
// model.ErrInvalidSettings and nothing is saved.
func (s *Service) PatchSettings(ctx context.Context, patch []byte) (model.Settings, error) {
	if !gjson.ValidBytes(patch) || !gjson.ParseBytes(patch).IsObject() {
		return model.Settings{}, fmt.Errorf("%w: settings must be an object", model.ErrInvalidSettings)
	}
	cloned, err := secure.CloneBytes(patch)
	if err != nil {
		return model.Settings{}, fmt.Errorf("%w: %v", model.ErrInvalidSettings, err)
	}
	clean, err := json.Marshal(cloned)
	if err != nil {
		return model.Settings{}, fmt.Errorf("patch settings: %w", err)
	}

	current, err := s.LoadSettings(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	next, err := current.Overlay(clean)
	if err != nil {
		return model.Settings{}, err
	}
	if err := s.SaveSettings(ctx, next); err != nil {
		return model.Settings{}, err
	}
	return next, nil
}

func (s *Service) saveSettingsRaw(ctx context.Context, raw []byte) error {
	err := s.primary.Update(ctx, func(tx *storage.Tx) error {
		return tx.PutSetting(ctx, storage.SettingsKey, raw)
	})
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if err := s.fallback.SaveSettings(ctx, raw); err != nil {
		s.log.Error("fallback mirror write failed", logger.Error(err))
	}
	return nil
}

// LoadUserThemes returns the stored user themes, sorted by name. Themes
// that fail validation are dropped.
func (s *Service) LoadUserThemes(ctx context.Context) ([]model.Theme, error) {
	stored, err := s.primary.Themes(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Error("primary store read failed", logger.Error(err))
	}

	var themes []model.Theme
	for _, t := range stored {
		if validate.Theme(t) {
			themes = append(themes, t)
		}
	}
	if len(stored) == 0 {
		themes = s.fallbackThemes(ctx)
	}
	sort.Slice(themes, func(i, j int) bool {
		return themes[i].Slug() < themes[j].Slug()
	})
	if themes == nil {
		themes = []model.Theme{}
	}
	return themes, nil
}

func (s *Service) fallbackThemes(ctx context.Context) []model.Theme {
	raw, ok, err := s.fallback.Themes(ctx)
	if err != nil {
		s.log.Error("fallback store read failed", logger.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	list := gjson.ParseBytes(raw)
	if !list.IsArray() {
		return nil
	}
	var themes []model.Theme
	for _, item := range list.Array() {
		var t model.Theme
		if err := secure.DecodeInto([]byte(item.Raw), &t); err != nil {
			continue
		}
		if validate.Theme(t) {
			themes = append(themes, t)
		}
	}
	return themes
}

// SaveUserThemes replaces the stored user themes with the valid subset of
// themes. Themes are keyed by slug; a later theme with the same slug wins.
func (s *Service) SaveUserThemes(ctx context.Context, themes []model.Theme) error {
	index := make(map[string]int, len(themes))
	var valid []model.Theme
	for _, t := range themes {
		if !validate.Theme(t) {
			s.log.Warn("invalid theme not saved", logger.String("name", t.Name))
			continue
		}
		if i, dup := index[t.Slug()]; dup {
			valid[i] = t
			continue
		}
		index[t.Slug()] = len(valid)
		valid = append(valid, t)
	}

	err := s.primary.Update(ctx, func(tx *storage.Tx) error {
		current, err := tx.Themes(ctx)
		if err != nil {
			return err
		}
		for id := range current {
			if _, keep := index[id]; !keep {
				if err := tx.DeleteTheme(ctx, id); err != nil {
					return err
				}
			}
		}
		for _, t := range valid {
			if err := tx.PutTheme(ctx, t.Slug(), t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save themes: %w", err)
	}
	if err := s.fallback.SaveThemes(ctx, valid); err != nil {
		s.log.Error("fallback mirror write failed", logger.Error(err))
	}
	return nil
}
