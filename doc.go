//
// # Licensing
//
// This file is part of the GAuth project and is licensed under the Apache License 2.0.
// It incorporates code and concepts from:
//   - OAuth 2.0 and OpenID Connect (Apache 2.0 License)
//   - Model Context Protocol (MIT License)
// See the LICENSE file in the project root for details.

/*
Package tokensvc issues and verifies opaque, self-describing bearer
tokens backed by a wide-column record store, with no dependency on a
central session table for validation.

# Core components

  - pkg/tokensign and pkg/tokencodec implement the signed wire format:
    a category prefix, a UUID, an optional expiration, and a keyed
    digest, all base64url-encoded.
  - pkg/tokenrecord adapts a token's persistent record (created,
    accessed, inactive gap, optional principal, opaque state) onto
    internal/columnstore, which abstracts a wide-column store with
    per-column TTLs (internal/columnstore/memcolumns for tests and a
    single process, internal/columnstore/rediscolumns for production).
  - pkg/tokenservice composes the above into Issue, Validate, Refresh,
    and MaxTokenAge, with optional audit (pkg/tokenaudit), metrics
    (pkg/tokenmetrics), and tracing (pkg/tokentracing) collaborators.
  - pkg/tokenconfig loads the service's configuration via Viper;
    internal/secretsalt resolves the signing salt from Vault when
    configured, falling back to the loaded configuration otherwise.
  - pkg/tokenerrors gives callers a closed, typed error taxonomy
    (BadToken, ExpiredToken, InvalidToken, StoreError) usable with
    errors.Is.

cmd/tokensvc wires all of the above into a runnable composition root.
*/
package tokensvc
