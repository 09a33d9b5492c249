//
// # Licensing
//
// This file is part of the GAuth project and is licensed under the Apache License 2.0.
// It incorporates code and concepts from:
//   - OAuth 2.0 and OpenID Connect (Apache 2.0 License)
//   - Model Context Protocol (MIT License)
// See the LICENSE file in the project root for details.

// Package tokenservice orchestrates issuance, validation, and refresh
// of opaque bearer tokens: it owns the configuration and glues the
// category registry, codec, signer, and record store adapter together.
package tokenservice

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/google/uuid"

	"github.com/gimelauth/tokensvc/pkg/tokenaudit"
	"github.com/gimelauth/tokensvc/pkg/tokencategory"
	"github.com/gimelauth/tokensvc/pkg/tokencodec"
	"github.com/gimelauth/tokensvc/pkg/tokenconfig"
	"github.com/gimelauth/tokensvc/pkg/tokenerrors"
	"github.com/gimelauth/tokensvc/pkg/tokenmetrics"
	"github.com/gimelauth/tokensvc/pkg/tokenrecord"
	"github.com/gimelauth/tokensvc/pkg/tokensign"
	"github.com/gimelauth/tokensvc/pkg/tokentracing"
	"go.opentelemetry.io/otel/trace"
)

// Clock abstracts the wall clock so tests can supply a fixed time
// instead of time.Now.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Service is the token service's public API. Build one with New; it
// holds no mutable state beyond its immutable configuration, so it
// requires no internal lock.
type Service struct {
	config  tokenconfig.Config
	adapter *tokenrecord.Adapter
	audit   *tokenaudit.Recorder
	metrics *tokenmetrics.Collector
	tracer  *tokentracing.Provider
	clock   Clock
}

// Option configures optional collaborators on a Service.
type Option func(*Service)

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(clock Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithAudit attaches an audit recorder; every Issue/Validate/Refresh
// call records one event regardless of outcome. A Refresh whose token
// decodes also records the event of the Validate it performs.
func WithAudit(recorder *tokenaudit.Recorder) Option {
	return func(s *Service) { s.audit = recorder }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(collector *tokenmetrics.Collector) Option {
	return func(s *Service) { s.metrics = collector }
}

// WithTracer attaches an OpenTelemetry tracer; every column-store round
// trip gets its own span.
func WithTracer(provider *tokentracing.Provider) Option {
	return func(s *Service) { s.tracer = provider }
}

// New builds a Service from config and the record store adapter.
func New(config tokenconfig.Config, adapter *tokenrecord.Adapter, opts ...Option) *Service {
	s := &Service{config: config, adapter: adapter, clock: systemClock{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() int64 {
	return s.clock.Now().UnixMilli()
}

// newID allocates a version-1 (time-ordered) identifier whose timestamp
// is taken from s.clock; its clock-sequence and node bytes are random.
func (s *Service) newID() (uuid.UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, err
	}
	// 100-ns intervals since 1582-10-15, the version-1 UUID epoch.
	ts := uint64(s.clock.Now().UnixNano()/100) + 122192928000000000
	binary.BigEndian.PutUint32(id[0:4], uint32(ts))
	binary.BigEndian.PutUint16(id[4:6], uint16(ts>>32))
	binary.BigEndian.PutUint16(id[6:8], 0x1000|uint16(ts>>48)&0x0fff)
	return id, nil
}

// Issue allocates a time-ordered identifier, writes its backing
// record, and returns the opaque wire-format token.
func (s *Service) Issue(ctx context.Context, category tokencategory.Category, tokenType string, principal tokenrecord.Principal, state map[string]any) (string, error) {
	id, err := s.newID()
	if err != nil {
		return "", tokenerrors.Wrap(tokenerrors.StoreError, "allocate token identifier", err)
	}

	if tokenType == "" {
		tokenType = "access"
	}
	created := tokenrecord.TimestampFromUUID(id)

	info := tokenrecord.TokenInfo{
		UUID:      id,
		Type:      tokenType,
		Created:   created,
		Accessed:  created,
		Inactive:  0,
		Principal: principal,
		State:     state,
	}

	if err := s.timeStoreCall(ctx, "Put", func(ctx context.Context) error { return s.adapter.Put(ctx, info) }); err != nil {
		s.recordAudit(ctx, tokenaudit.ActionIssue, category, id, err)
		return "", err
	}

	expires := s.expiresFor(category, created)
	opaque := tokencodec.Encode(category, id, s.config.TokenSecretSalt, expires)

	s.recordAudit(ctx, tokenaudit.ActionIssue, category, id, nil)
	return opaque, nil
}

// Validate decodes and authenticates opaque, then reads and touches
// its backing record.
func (s *Service) Validate(ctx context.Context, opaque string) (tokenrecord.TokenInfo, error) {
	decoded, err := tokencodec.Decode(opaque, s.config.TokenSecretSalt)
	if err != nil {
		s.recordAuditUnknown(ctx, tokenaudit.ActionValidate, err)
		return tokenrecord.TokenInfo{}, tokenerrors.Wrap(tokenerrors.BadToken, "decode token", err)
	}

	var info tokenrecord.TokenInfo
	if err := s.timeStoreCall(ctx, "Get", func(ctx context.Context) error {
		var getErr error
		info, getErr = s.adapter.Get(ctx, decoded.ID)
		return getErr
	}); err != nil {
		s.recordAudit(ctx, tokenaudit.ActionValidate, decoded.Category, decoded.ID, err)
		return tokenrecord.TokenInfo{}, err
	}

	if expErr := s.checkExpiration(decoded, info); expErr != nil {
		s.recordAudit(ctx, tokenaudit.ActionValidate, decoded.Category, decoded.ID, expErr)
		return tokenrecord.TokenInfo{}, expErr
	}

	now := s.now()
	inactive, err := s.touch(ctx, decoded.ID, now, info.Accessed, info.Inactive)
	if err != nil {
		s.recordAudit(ctx, tokenaudit.ActionValidate, decoded.Category, decoded.ID, err)
		return tokenrecord.TokenInfo{}, err
	}
	info.Accessed = now
	info.Inactive = inactive

	s.recordAudit(ctx, tokenaudit.ActionValidate, decoded.Category, decoded.ID, nil)
	return info, nil
}

func (s *Service) touch(ctx context.Context, id uuid.UUID, now, previousAccessed, previousInactive int64) (int64, error) {
	var inactive int64
	err := s.timeStoreCall(ctx, "Touch", func(ctx context.Context) error {
		var touchErr error
		inactive, touchErr = s.adapter.Touch(ctx, id, now, previousAccessed, previousInactive)
		return touchErr
	})
	return inactive, err
}

// Refresh validates opaque, then rewrites its full record with fresh
// timestamps (resetting every column's TTL) and returns a new opaque
// string. When config.RefreshReusesID is false, a fresh identifier
// replaces the record instead; the old record is left to expire
// passively per its existing TTL.
func (s *Service) Refresh(ctx context.Context, opaque string) (string, error) {
	decoded, err := tokencodec.Decode(opaque, s.config.TokenSecretSalt)
	if err != nil {
		s.recordAuditUnknown(ctx, tokenaudit.ActionRefresh, err)
		return "", tokenerrors.Wrap(tokenerrors.BadToken, "decode token", err)
	}

	info, err := s.Validate(ctx, opaque)
	if err != nil {
		s.recordAudit(ctx, tokenaudit.ActionRefresh, decoded.Category, decoded.ID, err)
		return "", err
	}

	id := decoded.ID
	if !s.config.RefreshReusesID {
		newID, idErr := s.newID()
		if idErr != nil {
			err := tokenerrors.Wrap(tokenerrors.StoreError, "allocate refreshed identifier", idErr)
			s.recordAudit(ctx, tokenaudit.ActionRefresh, decoded.Category, decoded.ID, err)
			return "", err
		}
		id = newID
		info.Created = tokenrecord.TimestampFromUUID(id)
	}

	now := s.now()
	info.UUID = id
	info.Accessed = now

	if err := s.timeStoreCall(ctx, "Put", func(ctx context.Context) error { return s.adapter.Put(ctx, info) }); err != nil {
		s.recordAudit(ctx, tokenaudit.ActionRefresh, decoded.Category, decoded.ID, err)
		return "", err
	}

	expires := s.expiresFor(decoded.Category, info.Created)
	opaqueOut := tokencodec.Encode(decoded.Category, id, s.config.TokenSecretSalt, expires)

	s.recordAudit(ctx, tokenaudit.ActionRefresh, decoded.Category, id, nil)
	return opaqueOut, nil
}

// MaxTokenAge returns, in milliseconds, the embedded expiration minus
// the creation time encoded in the identifier for a category that
// carries an expiration, and tokensign.NoExpiration (math.MaxInt64)
// otherwise. It does not require the backing record to still exist.
func (s *Service) MaxTokenAge(opaque string) (int64, error) {
	decoded, err := tokencodec.Decode(opaque, s.config.TokenSecretSalt)
	if err != nil {
		return 0, tokenerrors.Wrap(tokenerrors.BadToken, "decode token", err)
	}
	if !decoded.Category.CarriesExpiration() {
		return int64(tokensign.NoExpiration), nil
	}
	return decoded.Expires - tokenrecord.TimestampFromUUID(decoded.ID), nil
}

// expiresFor computes the absolute expiration embedded in a newly
// issued or refreshed token, or tokensign.NoExpiration for a category
// that carries none.
func (s *Service) expiresFor(category tokencategory.Category, created int64) int64 {
	if !category.CarriesExpiration() {
		return tokensign.NoExpiration
	}
	return created + int64(s.config.MaxAge(category)/time.Millisecond)
}

// checkExpiration honors ExpiresFromLastUse: when set, the reference
// point for an expiring category's absolute expiration is the
// record's last-accessed time rather than its creation time.
func (s *Service) checkExpiration(decoded tokencodec.Decoded, info tokenrecord.TokenInfo) error {
	if !decoded.Category.CarriesExpiration() {
		return nil
	}

	expires := decoded.Expires
	if s.config.ExpiresFromLastUse {
		expires = info.Accessed + int64(s.config.MaxAge(decoded.Category)/time.Millisecond)
	}

	if err := tokencodec.CheckExpiration(tokencodec.Decoded{Category: decoded.Category, ID: decoded.ID, Expires: expires}, s.now()); err != nil {
		return tokenerrors.Wrap(tokenerrors.ExpiredToken, "token expired", err)
	}
	return nil
}

// timeStoreCall wraps a column-store round trip with an optional trace
// span and an optional latency measurement.
func (s *Service) timeStoreCall(ctx context.Context, method string, call func(ctx context.Context) error) error {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.StartStoreSpan(ctx, method)
		defer span.End()
	}
	if s.metrics == nil {
		return call(ctx)
	}
	timer := s.metrics.NewTimer(method)
	defer timer.Stop()
	return call(ctx)
}

func (s *Service) recordAudit(ctx context.Context, action tokenaudit.Action, category tokencategory.Category, id uuid.UUID, err error) {
	result := tokenaudit.ResultSuccess
	if err != nil {
		result = tokenaudit.ResultFailure
	}
	s.audit.Record(ctx, action, result, id, category.String(), err)

	if s.metrics != nil {
		s.metrics.RecordOperation(string(action), category.String(), string(result))
	}
}

// recordAuditUnknown records a failed audit event for a token that
// could not even be decoded far enough to know its identifier or
// category.
func (s *Service) recordAuditUnknown(ctx context.Context, action tokenaudit.Action, err error) {
	s.audit.Record(ctx, action, tokenaudit.ResultFailure, uuid.Nil, "unknown", err)
	if s.metrics != nil {
		s.metrics.RecordOperation(string(action), "unknown", string(tokenaudit.ResultFailure))
	}
}
