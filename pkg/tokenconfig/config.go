//
// # Licensing
//
// This file is part of the GAuth project and is licensed under the Apache License 2.0.
// It incorporates code and concepts from:
//   - OAuth 2.0 and OpenID Connect (Apache 2.0 License)
//   - Model Context Protocol (MIT License)
// See the LICENSE file in the project root for details.

// Package tokenconfig loads the token service's closed set of
// configuration keys via Viper, with the same defaults named in the
// design notes.
package tokenconfig

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/gimelauth/tokensvc/pkg/tokencategory"
)

// Config is the fully-resolved, immutable configuration a
// tokenservice.Service is built from.
type Config struct {
	// TokenSecretSalt is the shared secret mixed into every signature.
	// Load fills it from configuration (or its default) and rejects an
	// empty value; when a Vault address is configured,
	// internal/secretsalt resolves it and the caller overwrites this
	// field before building the service.
	TokenSecretSalt string

	// PersistenceExpires is the TTL applied to a token's backing record
	// in the column store (auth.token.persistence.expires).
	PersistenceExpires time.Duration

	// AccessExpires is the absolute lifetime of an Access token
	// (auth.token.access.expires). Defaults to the short age (24h).
	AccessExpires time.Duration

	// RefreshExpires is the absolute lifetime used for Refresh tokens
	// that carry an expiration under a future versioned category
	// (auth.token.refresh.expires). Defaults to the long age (7d).
	RefreshExpires time.Duration

	// EmailExpires is the absolute lifetime used for Email tokens that
	// carry an expiration under a future versioned category
	// (auth.token.email.expires). Defaults to the long age (7d).
	EmailExpires time.Duration

	// OfflineExpires is the absolute lifetime used for Offline tokens
	// that carry an expiration under a future versioned category
	// (auth.token.offline.expires). Defaults to the long age (7d).
	OfflineExpires time.Duration

	// RefreshReusesID controls whether a refresh keeps the identifier
	// of the token it replaces (auth.token_refresh_reuses_id).
	RefreshReusesID bool

	// ExpiresFromLastUse controls whether an expiring category's
	// absolute expiration is measured from its record's last-accessed
	// time instead of its creation time (auth.token_expires_from_last_use).
	ExpiresFromLastUse bool
}

// MaxAge returns the configured maximum age for c. Only Access carries
// an expiration in the closed registry today; the other three fields
// exist so a future versioned category can carry one without a
// tokenconfig change (see the signer's V2 note).
func (c Config) MaxAge(category tokencategory.Category) time.Duration {
	switch category {
	case tokencategory.Access:
		return c.AccessExpires
	case tokencategory.Refresh:
		return c.RefreshExpires
	case tokencategory.Email:
		return c.EmailExpires
	case tokencategory.Offline:
		return c.OfflineExpires
	default:
		return c.AccessExpires
	}
}

const (
	keyTokenSecretSalt    = "auth.token_secret_salt"
	keyPersistenceExpires = "auth.token.persistence.expires"
	keyAccessExpires      = "auth.token.access.expires"
	keyRefreshExpires     = "auth.token.refresh.expires"
	keyEmailExpires       = "auth.token.email.expires"
	keyOfflineExpires     = "auth.token.offline.expires"
	keyRefreshReusesID    = "auth.token_refresh_reuses_id"
	keyExpiresFromLastUse = "auth.token_expires_from_last_use"

	defaultSalt               = "super secret token value"
	shortAge                  = 24 * time.Hour
	longAge                   = 7 * 24 * time.Hour
	defaultRefreshReusesID    = true
	defaultExpiresFromLastUse = false
)

// New builds a *viper.Viper pre-loaded with the token service's
// defaults, mirroring the teacher's initConfig: defaults set first,
// then an optional config file, then environment variables, each
// layer overriding the last.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(keyTokenSecretSalt, defaultSalt)
	v.SetDefault(keyPersistenceExpires, longAge)
	v.SetDefault(keyAccessExpires, shortAge)
	v.SetDefault(keyRefreshExpires, longAge)
	v.SetDefault(keyEmailExpires, longAge)
	v.SetDefault(keyOfflineExpires, longAge)
	v.SetDefault(keyRefreshReusesID, defaultRefreshReusesID)
	v.SetDefault(keyExpiresFromLastUse, defaultExpiresFromLastUse)

	v.SetConfigName("tokensvc")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	return v
}

// Load reads the closed key set off an already-populated *viper.Viper
// (as returned by New, or a caller's own instance) into a Config. A
// non-positive value in any *.expires key falls back to its default,
// per the spec's documented behavior for misconfiguration.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		TokenSecretSalt:    v.GetString(keyTokenSecretSalt),
		PersistenceExpires: positiveOrDefault(v.GetDuration(keyPersistenceExpires), longAge),
		AccessExpires:      positiveOrDefault(v.GetDuration(keyAccessExpires), shortAge),
		RefreshExpires:     positiveOrDefault(v.GetDuration(keyRefreshExpires), longAge),
		EmailExpires:       positiveOrDefault(v.GetDuration(keyEmailExpires), longAge),
		OfflineExpires:     positiveOrDefault(v.GetDuration(keyOfflineExpires), longAge),
		RefreshReusesID:    v.GetBool(keyRefreshReusesID),
		ExpiresFromLastUse: v.GetBool(keyExpiresFromLastUse),
	}

	if cfg.TokenSecretSalt == "" {
		return Config{}, fmt.Errorf("tokenconfig: %s must not be empty", keyTokenSecretSalt)
	}

	return cfg, nil
}

func positiveOrDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
