package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/nikbrunner/cortex/internal/logger"
	"github.com/nikbrunner/cortex/internal/model"
)

// Tab is the active browser tab.
type Tab struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// TabSource reports the active browser tab.
type TabSource interface {
	ActiveTab(ctx context.Context) (Tab, error)
}

// CheckPendingBookmark takes the pending bookmark handoff if one is waiting
// and still fresh. The record is removed as soon as it is read, so it is
// delivered at most once; an expired record is removed and ignored.
func (s *Service) CheckPendingBookmark(ctx context.Context) (model.Bookmark, bool, error) {
	pending, ok, err := s.fallback.Pending(ctx)
	if err != nil {
		s.log.Warn("pending bookmark check failed", logger.Error(err))
		return model.Bookmark{}, false, nil
	}
	if !ok {
		return model.Bookmark{}, false, nil
	}

	if pending.Expired(s.now(), s.pendingTTL()) {
		if err := s.fallback.ClearPending(ctx); err != nil {
			s.log.Warn("pending bookmark clear failed", logger.Error(err))
		}
		s.log.Info("expired pending bookmark cleared", logger.String("id", pending.ID))
		return model.Bookmark{}, false, nil
	}
	if pending.URL == "" {
		return model.Bookmark{}, false, nil
	}

	if err := s.fallback.ClearPending(ctx); err != nil {
		return model.Bookmark{}, false, fmt.Errorf("clear pending bookmark: %w", err)
	}
	s.log.Info("pending bookmark found and cleared", logger.String("id", pending.ID))
	return model.Bookmark{Title: pending.Title, URL: pending.URL, Tags: []string{}}, true, nil
}

// SetPendingBookmark leaves a bookmark for the next CheckPendingBookmark.
func (s *Service) SetPendingBookmark(ctx context.Context, url, title string) (model.PendingBookmark, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return model.PendingBookmark{}, fmt.Errorf("pending bookmark: url is required")
	}
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	p := model.NewPendingBookmark(url, title, s.now())
	if err := s.fallback.SetPending(ctx, p); err != nil {
		return model.PendingBookmark{}, fmt.Errorf("set pending bookmark: %w", err)
	}
	return p, nil
}

// CurrentTab returns the active tab unless it has no URL or its URL starts
// with a blocked prefix.
func (s *Service) CurrentTab(ctx context.Context, src TabSource) (Tab, bool, error) {
	tab, err := src.ActiveTab(ctx)
	if err != nil {
		return Tab{}, false, fmt.Errorf("active tab: %w", err)
	}
	if tab.URL == "" || s.blocked(tab.URL) {
		return Tab{}, false, nil
	}
	return tab, true, nil
}

// CaptureTab stores the active tab as the pending bookmark.
func (s *Service) CaptureTab(ctx context.Context, src TabSource) (model.PendingBookmark, bool, error) {
	tab, ok, err := s.CurrentTab(ctx, src)
	if err != nil || !ok {
		return model.PendingBookmark{}, false, err
	}
	p, err := s.SetPendingBookmark(ctx, tab.URL, tab.Title)
	if err != nil {
		return model.PendingBookmark{}, false, err
	}
	return p, true, nil
}

func (s *Service) blocked(url string) bool {
	for _, prefix := range s.cfg.Browser.BlockedPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// TakePending moves a waiting pending bookmark into the quick add category.
func (s *Service) TakePending(ctx context.Context) (model.Bookmark, bool, error) {
	pending, ok, err := s.CheckPendingBookmark(ctx)
	if err != nil || !ok {
		return model.Bookmark{}, false, err
	}
	category := s.cfg.QuickAdd.Category
	if category == "" {
		category = "Read Later"
	}
	b, err := s.AddBookmark(ctx, category, pending.URL, pending.Title, nil)
	if err != nil {
		return model.Bookmark{}, false, err
	}
	return b, true, nil
}
