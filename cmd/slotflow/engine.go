package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/slotflow"
	"github.com/aretw0/slotflow/internal/config"
	"github.com/aretw0/slotflow/pkg/adapters/file"
	"github.com/aretw0/slotflow/pkg/adapters/memory"
	"github.com/aretw0/slotflow/pkg/adapters/redis"
	"github.com/aretw0/slotflow/pkg/nlu"
	"github.com/aretw0/slotflow/pkg/observability"
	"github.com/aretw0/slotflow/pkg/persistence/middleware"
	"github.com/aretw0/slotflow/pkg/ports"
)

// app is an engine with the resources opened to build it.
type app struct {
	engine  *slotflow.Engine
	metrics *observability.Metrics
	closers []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// storage is the configured context store, its locker and what to close.
type storage struct {
	store   ports.ContextStore
	locker  ports.DistributedLocker
	closers []io.Closer
}

// openStorage builds the configured store and wraps it with the PII and
// encryption middlewares. Masking runs before sealing.
func openStorage(ctx context.Context, cfg config.Config) (*storage, error) {
	s := &storage{}
	var base ports.ContextStore
	switch cfg.Store {
	case config.StoreFile:
		base = file.NewStore(cfg.SessionDir)
	case config.StoreRedis:
		client, err := cfg.Redis.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		store := redis.NewFromClient(client, redis.WithPrefix(cfg.Redis.Prefix), redis.WithTTL(cfg.Redis.TTL))
		s.locker = redis.NewLocker(client, cfg.Redis.Prefix+"lock:")
		s.closers = append(s.closers, store)
		base = store
	default:
		base = memory.NewStore()
	}

	var mws []middleware.Middleware
	if len(cfg.PIIKeys) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.PIIKeys)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.EncryptionKey != "" {
		active, err := middleware.DecodeKey(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		encCfg := middleware.EncryptionConfig{ActiveKey: active}
		for i, k := range cfg.FallbackKeys {
			key, err := middleware.DecodeKey(k)
			if err != nil {
				return nil, fmt.Errorf("invalid fallback key %d: %w", i, err)
			}
			encCfg.FallbackKeys = append(encCfg.FallbackKeys, key)
		}
		mw, err := middleware.NewEncryptionMiddleware(encCfg)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}

	s.store = middleware.Wrap(base, mws...)
	return s, nil
}

// newApp initializes the engine with the configured graph source, store,
// classifier and hooks. Metrics are always collected; serve exposes them.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	a := &app{closers: st.closers}

	src, err := slotflow.OpenSource(cfg.Graph, cfg.Source, logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to open graph %s: %w", cfg.Graph, err)
	}

	classifier := nlu.New(nlu.WithMinScore(cfg.MinScore), nlu.WithLogger(logger))
	a.closers = append(a.closers, classifier)

	a.metrics = observability.NewMetrics(nil)
	opts := []slotflow.Option{
		slotflow.WithSource(src),
		slotflow.WithClassifier(classifier),
		slotflow.WithStore(st.store),
		slotflow.WithLockTTL(cfg.LockTTL),
		slotflow.WithLogger(logger),
		slotflow.WithLifecycleHooks(observability.Chain(observability.LogHooks(logger), a.metrics.Hooks())),
		slotflow.WithClassifierTimeout(cfg.ClassifierTimeout),
		slotflow.WithActionTimeout(cfg.ActionTimeout),
	}
	if st.locker != nil {
		opts = append(opts, slotflow.WithLocker(st.locker))
	}

	a.engine, err = slotflow.New(ctx, cfg.Graph, opts...)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("error initializing slotflow: %w", err)
	}
	return a, nil
}
