package core

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/nikbrunner/cortex/internal/logger"
	"github.com/nikbrunner/cortex/internal/model"
	"github.com/nikbrunner/cortex/internal/reconcile"
	"github.com/nikbrunner/cortex/internal/secure"
	"github.com/nikbrunner/cortex/internal/validate"
)

// LoadCategories returns the stored category tree. The primary store wins;
// when it is empty or unreadable the fallback mirror is used, and when both
// are empty the default category is returned.
func (s *Service) LoadCategories(ctx context.Context) (model.Categories, error) {
	categories, err := s.engine.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Error("primary store read failed", logger.Error(err))
	}
	if len(categories) > 0 {
		return categories, nil
	}

	categories = s.fallbackCategories(ctx)
	if len(categories) == 0 {
		return model.Categories{model.DefaultCategory()}, nil
	}
	s.log.Info("loaded categories from fallback", logger.Int("count", len(categories)))
	return categories, nil
}

func (s *Service) fallbackCategories(ctx context.Context) model.Categories {
	raw, ok, err := s.fallback.Categories(ctx)
	if err != nil {
		s.log.Error("fallback store read failed", logger.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	list := gjson.ParseBytes(raw)
	if !list.IsArray() {
		s.log.Warn("fallback categories are not a list")
		return nil
	}

	var out model.Categories
	for _, item := range list.Array() {
		if report := validate.CategoryJSON(item); !report.IsValid {
			s.log.Warn("invalid category removed", logger.Strings("errors", report.Errors))
			continue
		}
		var c model.Category
		if err := secure.DecodeInto([]byte(item.Raw), &c); err != nil {
			s.log.Warn("invalid category removed", logger.Error(err))
			continue
		}
		if report := validate.Category(c); !report.IsValid {
			s.log.Warn("invalid category removed", logger.Strings("errors", report.Errors))
			continue
		}
		out = append(out, c)
	}
	return out
}

// SaveCategories persists the category tree. Categories that fail
// validation are not saved; bookmarks that fail validation are dropped
// from their category. Both are logged.
func (s *Service) SaveCategories(ctx context.Context, categories model.Categories) (reconcile.Report, error) {
	valid := make(model.Categories, 0, len(categories))
	for _, c := range categories {
		res := validate.SanitizeCategory(c)
		if !res.Report.IsValid {
			s.log.Warn("invalid category not saved",
				logger.Int64("id", c.ID),
				logger.Strings("errors", res.Report.Errors))
			continue
		}
		for _, d := range res.Dropped {
			s.log.Warn("invalid bookmark not saved",
				logger.Int64("id", d.ID),
				logger.Int64("category_id", c.ID),
				logger.Strings("errors", d.Errors))
		}
		valid = append(valid, res.Category)
	}

	report, err := s.engine.Sync(ctx, valid)
	if err != nil {
		return report, fmt.Errorf("save categories: %w", err)
	}
	s.log.Debug("categories saved",
		logger.Int("categories", len(valid)),
		logger.Int("writes", report.Writes()))
	return report, nil
}

// AddBookmark adds a bookmark to the category named categoryName, creating
// the category when missing, and saves the tree.
func (s *Service) AddBookmark(ctx context.Context, categoryName, url, title string, tags []string) (model.Bookmark, error) {
	name := validate.SanitizeCategoryName(categoryName)
	if !name.IsValid {
		return model.Bookmark{}, fmt.Errorf("category: %s", name.Error)
	}
	b, report := validate.SanitizeBookmark(model.NewBookmark(model.NewBookmarkParams{
		Title: title,
		URL:   url,
		Tags:  tags,
	}))
	if !report.IsValid {
		return model.Bookmark{}, fmt.Errorf("bookmark: %s", report.Joined())
	}

	categories, err := s.LoadCategories(ctx)
	if err != nil {
		return model.Bookmark{}, err
	}
	target := categories.FindByName(name.Sanitized)
	if target == nil {
		var c model.Category
		categories, c = categories.AddCategory(name.Sanitized)
		target = &c
	}
	categories, b, err = categories.AddBookmark(target.ID, b)
	if err != nil {
		return model.Bookmark{}, err
	}
	if _, err := s.SaveCategories(ctx, categories); err != nil {
		return model.Bookmark{}, err
	}
	return b, nil
}

// Mutate loads the category tree, applies fn and saves the result.
func (s *Service) Mutate(ctx context.Context, fn func(model.Categories) (model.Categories, error)) (model.Categories, error) {
	categories, err := s.LoadCategories(ctx)
	if err != nil {
		return nil, err
	}
	next, err := fn(categories)
	if err != nil {
		return nil, err
	}
	if _, err := s.SaveCategories(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}
