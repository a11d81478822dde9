package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"BeerAPI/internal/beer"
	"BeerAPI/internal/config"
	"BeerAPI/pkg/kit"
)

const (
	service      = "beer"
	startTimeout = 10 * time.Second
)

func main() {
	log := kit.NewLogger(service, config.GetEnv("LOG_LEVEL", "info"))
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		cancel()
		log.Fatal("open store failed", zap.String("store", string(cfg.Store)), zap.Error(err))
	}
	defer func() { _ = closer.Close() }()

	if err := seed(ctx, cfg, store); err != nil {
		cancel()
		log.Fatal("seed failed", zap.Error(err))
	}
	cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &beer.Server{
		Service: beer.NewService(store, log, beer.NewMetrics(reg, store)),
		Store:   store,
		Log:     log,
	}

	if cfg.RateLimitPerMin > 0 {
		s.Limiter = kit.NewIPRateLimiter(cfg.RateLimitPerMin, time.Minute)
		s.Limiter.TrustForwardedFor = cfg.TrustForwardedFor
		go sweep(s.Limiter)
	}

	h, err := beer.NewHandler(s, beer.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	})
	if err != nil {
		log.Fatal("init handler failed", zap.Error(err))
	}

	log.Info("beer service configured",
		zap.String("store", string(cfg.Store)),
		zap.Bool("seed", cfg.Seed),
		zap.Int("rate_limit_per_min", cfg.RateLimitPerMin),
	)

	if err := kit.RunHTTPServer(cfg.Addr(), h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config) (beer.Store, io.Closer, error) {
	switch cfg.Store {
	case config.StorePostgres:
		s, err := beer.OpenSQLStore(ctx, beer.Postgres, cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StoreMySQL:
		s, err := beer.OpenSQLStore(ctx, beer.MySQL, cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		s := beer.NewRedisStore(client, cfg.RedisKey)
		if err := s.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return s, client, nil
	default:
		return beer.NewMemStore(), io.NopCloser(nil), nil
	}
}

func seed(ctx context.Context, cfg config.Config, store beer.Store) error {
	if !cfg.Seed {
		return nil
	}

	existing, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	beers := beer.DefaultSeed()
	if cfg.SeedFile != "" {
		if beers, err = beer.LoadSeedFile(cfg.SeedFile); err != nil {
			return err
		}
	}
	return beer.Seed(ctx, store, beers)
}

func sweep(l *kit.IPRateLimiter) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for now := range t.C {
		l.Sweep(now)
	}
}
