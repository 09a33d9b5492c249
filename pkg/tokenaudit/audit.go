//
// # Licensing
//
// This file is part of the GAuth project and is licensed under the Apache License 2.0.
// It incorporates code and concepts from:
//   - OAuth 2.0 and OpenID Connect (Apache 2.0 License)
//   - Model Context Protocol (MIT License)
// See the LICENSE file in the project root for details.

// Package tokenaudit records one event per issue/validate/refresh call
// made against the token service. It is a pure side-channel: a sink
// failure is never surfaced as a token operation error, only logged.
package tokenaudit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names the token operation an Event records.
type Action string

const (
	ActionIssue    Action = "issue"
	ActionValidate Action = "validate"
	ActionRefresh  Action = "refresh"
)

// Result names the outcome of the recorded operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Event is a single audit record.
type Event struct {
	ID        string
	Action    Action
	Result    Result
	TokenID   uuid.UUID
	Category  string
	Timestamp time.Time
	Error     string
}

// Sink persists Events. Implementations must not block the caller for
// long; Recorder logs and drops any error a Sink returns.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// Recorder wraps a Sink with the error-swallowing contract
// pkg/tokenservice relies on: every call to Record here always
// returns, regardless of whether the underlying sink succeeded.
type Recorder struct {
	sink   Sink
	onFail func(error)
}

// NewRecorder builds a Recorder. onFail is called (never panics the
// caller) whenever the sink returns an error; pass nil to ignore sink
// failures entirely.
func NewRecorder(sink Sink, onFail func(error)) *Recorder {
	return &Recorder{sink: sink, onFail: onFail}
}

// Record builds and stores an Event, swallowing any sink error.
func (r *Recorder) Record(ctx context.Context, action Action, result Result, tokenID uuid.UUID, category string, recordErr error) {
	if r == nil || r.sink == nil {
		return
	}

	event := Event{
		ID:        uuid.NewString(),
		Action:    action,
		Result:    result,
		TokenID:   tokenID,
		Category:  category,
		Timestamp: time.Now(),
	}
	if recordErr != nil {
		event.Error = recordErr.Error()
	}

	if err := r.sink.Record(ctx, event); err != nil && r.onFail != nil {
		r.onFail(err)
	}
}
