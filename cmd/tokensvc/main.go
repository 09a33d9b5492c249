//
// # Licensing
//
// This file is part of the GAuth project and is licensed under the Apache License 2.0.
// It incorporates code and concepts from:
//   - OAuth 2.0 and OpenID Connect (Apache 2.0 License)
//   - Model Context Protocol (MIT License)
// See the LICENSE file in the project root for details.

// Command tokensvc wires the token service's collaborators together
// and demonstrates an issue/validate/refresh cycle. It is a
// composition root, not an HTTP server: transport is an external
// concern left to a caller embedding this module.
package main

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/gimelauth/tokensvc/internal/columnstore"
	"github.com/gimelauth/tokensvc/internal/columnstore/memcolumns"
	"github.com/gimelauth/tokensvc/internal/columnstore/rediscolumns"
	"github.com/gimelauth/tokensvc/internal/secretsalt"
	"github.com/gimelauth/tokensvc/pkg/tokenaudit"
	"github.com/gimelauth/tokensvc/pkg/tokencategory"
	"github.com/gimelauth/tokensvc/pkg/tokenconfig"
	"github.com/gimelauth/tokensvc/pkg/tokenmetrics"
	"github.com/gimelauth/tokensvc/pkg/tokenrecord"
	"github.com/gimelauth/tokensvc/pkg/tokenservice"
	"github.com/gimelauth/tokensvc/pkg/tokentracing"
)

func main() {
	logger := initLogger()

	v := tokenconfig.New()
	if err := v.ReadInConfig(); err != nil {
		logger.Warnf("could not read config file, using defaults and environment: %v", err)
	}
	cfg, err := tokenconfig.Load(v)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	salt, err := resolveSalt(logger, cfg)
	if err != nil {
		logger.Fatalf("resolve token secret salt: %v", err)
	}
	cfg.TokenSecretSalt = salt

	store, closeStore, err := newStore(logger, v)
	if err != nil {
		logger.Fatalf("build column store: %v", err)
	}
	defer closeStore()

	adapter := tokenrecord.NewAdapter(store, cfg.PersistenceExpires)

	metrics := tokenmetrics.New()
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Warnf("register metrics: %v", err)
	}

	audit := tokenaudit.NewRecorder(tokenaudit.NewMemorySink(), func(err error) {
		logger.Warnf("audit sink failure: %v", err)
	})

	tracer, err := tokentracing.NewProvider(tokentracing.Config{
		ServiceName:    "tokensvc",
		ServiceVersion: "dev",
		Environment:    os.Getenv("TOKENSVC_ENV"),
	})
	if err != nil {
		logger.Warnf("tracing disabled: %v", err)
		tracer = nil
	}

	opts := []tokenservice.Option{
		tokenservice.WithAudit(audit),
		tokenservice.WithMetrics(metrics),
	}
	if tracer != nil {
		opts = append(opts, tokenservice.WithTracer(tracer))
		defer tracer.Shutdown(context.Background())
	}

	svc := tokenservice.New(cfg, adapter, opts...)

	ctx := context.Background()
	demonstrate(ctx, logger, svc)
}

func initLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(os.Getenv("TOKENSVC_LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	return logger
}

// resolveSalt tries Vault first, falling back to the value tokenconfig
// already loaded from the config file or environment.
func resolveSalt(logger *logrus.Logger, cfg tokenconfig.Config) (string, error) {
	resolver, err := secretsalt.NewResolver(secretsalt.Config{
		Address:    os.Getenv("VAULT_ADDR"),
		Token:      os.Getenv("VAULT_TOKEN"),
		MountPath:  "secret",
		SecretPath: "tokensvc/salt",
		SecretKey:  "value",
	})
	if err != nil {
		logger.Warnf("vault resolver unavailable, using configured salt: %v", err)
		return cfg.TokenSecretSalt, nil
	}
	return resolver.Resolve(context.Background(), cfg.TokenSecretSalt)
}

// newStore picks memcolumns or rediscolumns based on whether a Redis
// address is configured, returning a no-op closer for memcolumns.
func newStore(logger *logrus.Logger, v interface{ GetString(string) string }) (columnstore.Store, func(), error) {
	addr := v.GetString("store.redis.address")
	if addr == "" {
		logger.Info("no store.redis.address configured, using the in-memory column store")
		return memcolumns.New(), func() {}, nil
	}

	store, err := rediscolumns.New(rediscolumns.Config{
		Address:   addr,
		KeyPrefix: "tokensvc:",
	})
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warnf("close redis column store: %v", cerr)
		}
	}, nil
}

// demonstrate runs one issue/validate/refresh cycle so the wiring
// above can be exercised without an external caller.
func demonstrate(ctx context.Context, logger *logrus.Logger, svc *tokenservice.Service) {
	opaque, err := svc.Issue(ctx, tokencategory.Access, "access", tokenrecord.Principal{}, map[string]any{})
	if err != nil {
		logger.Fatalf("issue: %v", err)
	}
	logger.Infof("issued token of length %d", len(opaque))

	info, err := svc.Validate(ctx, opaque)
	if err != nil {
		logger.Fatalf("validate: %v", err)
	}
	logger.Infof("validated token %s (accessed=%d)", info.UUID, info.Accessed)

	refreshed, err := svc.Refresh(ctx, opaque)
	if err != nil {
		logger.Fatalf("refresh: %v", err)
	}
	logger.Infof("refreshed token of length %d", len(refreshed))
}
