//
// # Licensing
//
// This file is part of the GAuth project and is licensed under the Apache License 2.0.
// It incorporates code and concepts from:
//   - OAuth 2.0 and OpenID Connect (Apache 2.0 License)
//   - Model Context Protocol (MIT License)
// See the LICENSE file in the project root for details.

// Package secretsalt resolves the shared secret mixed into every token
// signature (auth.token_secret_salt), preferring HashiCorp Vault's KV
// v2 engine when a Vault address is configured and falling back to a
// plaintext value from the rest of the configuration otherwise.
package secretsalt

import (
	"context"
	"fmt"

	vaultapi "github.com/hashicorp/vault/api"
)

// Resolver resolves the token secret salt, optionally from Vault.
type Resolver struct {
	vault      *vaultapi.Client
	mountPath  string
	secretPath string
	secretKey  string
}

// Config names the Vault KV v2 mount, secret path, and the key within
// the secret's data holding the salt value.
type Config struct {
	// Address is the Vault server address, e.g. "https://vault:8200".
	// An empty Address means Vault is not configured; NewResolver
	// returns a Resolver whose Resolve always falls through to the
	// static value passed to it.
	Address string

	// Token is the Vault auth token used for the KV read.
	Token string

	// MountPath is the KV v2 mount, e.g. "secret".
	MountPath string

	// SecretPath is the path within the mount holding the salt, e.g.
	// "tokensvc/salt".
	SecretPath string

	// SecretKey is the field within the secret's data map holding the
	// salt string, e.g. "value".
	SecretKey string
}

// NewResolver builds a Resolver. When cfg.Address is empty it returns a
// Resolver with no Vault client, so Resolve always uses its static
// fallback.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.Address == "" {
		return &Resolver{}, nil
	}

	vaultCfg := vaultapi.DefaultConfig()
	vaultCfg.Address = cfg.Address
	client, err := vaultapi.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("secretsalt: new vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Resolver{
		vault:      client,
		mountPath:  cfg.MountPath,
		secretPath: cfg.SecretPath,
		secretKey:  cfg.SecretKey,
	}, nil
}

// Resolve returns the salt from Vault when a client is configured,
// otherwise it returns fallback (the value already loaded via
// tokenconfig) unchanged.
func (r *Resolver) Resolve(ctx context.Context, fallback string) (string, error) {
	if r == nil || r.vault == nil {
		return fallback, nil
	}

	secret, err := r.vault.KVv2(r.mountPath).Get(ctx, r.secretPath)
	if err != nil {
		return "", fmt.Errorf("secretsalt: read vault secret: %w", err)
	}

	value, ok := secret.Data[r.secretKey].(string)
	if !ok {
		return "", fmt.Errorf("secretsalt: vault secret missing string field %q", r.secretKey)
	}
	return value, nil
}
