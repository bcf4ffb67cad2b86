// Package core is the cortex service: it owns the stores and the sync
// engine and exposes the load, save and transfer operations used by the
// CLI and the HTTP API.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikbrunner/cortex/internal/config"
	"github.com/nikbrunner/cortex/internal/logger"
	"github.com/nikbrunner/cortex/internal/reconcile"
	"github.com/nikbrunner/cortex/internal/storage"
)

const defaultPendingTTL = 10 * time.Second

// Options configures Open.
type Options struct {
	Config *config.Config
	Logger logger.Logger
	// KV replaces the fallback backend named in Config.
	KV storage.KV
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service is an open cortex data directory.
type Service struct {
	cfg      *config.Config
	log      logger.Logger
	now      func() time.Time
	primary  *storage.Primary
	fallback *storage.Fallback
	engine   *reconcile.Engine
	redis    *redis.Client
}

// Open opens the primary store, migrating it when needed, and connects the
// fallback backend.
func Open(ctx context.Context, opts Options) (*Service, error) {
	if opts.Config == nil {
		return nil, errors.New("core: config is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Service{cfg: opts.Config, log: log, now: now}

	kv := opts.KV
	if kv == nil {
		var err error
		if kv, err = s.openKV(ctx); err != nil {
			return nil, err
		}
	}

	primary, err := storage.Open(ctx, s.cfg.DBPath())
	if err != nil {
		s.closeRedis()
		return nil, fmt.Errorf("open primary store: %w", err)
	}
	s.primary = primary
	s.fallback = storage.NewFallback(kv)
	s.engine = reconcile.New(primary, s.fallback, log)

	log.Debug("service opened",
		logger.String("db", primary.Path()),
		logger.String("fallback", s.cfg.Fallback.Backend))
	return s, nil
}

func (s *Service) openKV(ctx context.Context) (storage.KV, error) {
	switch s.cfg.Fallback.Backend {
	case config.BackendRedis:
		client, err := storage.DialRedis(ctx, s.cfg.Redis.Addr, s.cfg.Redis.Password, s.cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		s.redis = client
		return storage.NewRedisKV(client, s.cfg.Redis.Prefix), nil
	case config.BackendNone:
		// The pending handoff still needs somewhere to live.
		return storage.NewMemoryKV(), nil
	default:
		return storage.NewFileKV(s.cfg.KVPath()), nil
	}
}

// Close releases the stores.
func (s *Service) Close() error {
	err := s.primary.Close()
	if rerr := s.closeRedis(); err == nil {
		err = rerr
	}
	return err
}

func (s *Service) closeRedis() error {
	if s.redis == nil {
		return nil
	}
	err := s.redis.Close()
	s.redis = nil
	return err
}

// Config returns the configuration the service was opened with.
func (s *Service) Config() *config.Config {
	return s.cfg
}

func (s *Service) pendingTTL() time.Duration {
	if s.cfg.Pending.TTL > 0 {
		return s.cfg.Pending.TTL
	}
	return defaultPendingTTL
}

// ClearAllData deletes every record from both stores.
func (s *Service) ClearAllData(ctx context.Context) error {
	if err := s.primary.Clear(ctx); err != nil {
		return fmt.Errorf("clear primary store: %w", err)
	}
	if err := s.fallback.Clear(ctx); err != nil {
		return fmt.Errorf("clear fallback store: %w", err)
	}
	s.log.Info("all data cleared")
	return nil
}
