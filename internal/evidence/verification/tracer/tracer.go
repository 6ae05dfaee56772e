// Package tracer is a small tracing seam for the verification flow. The
// service depends on Tracer; production wires the OpenTelemetry adapter and
// tests use Noop.
package tracer

import (
	"context"
	"time"
)

// Span is one traced operation. End must be called exactly once.
type Span interface {
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer starts spans. Implementations are safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to a span.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: int64(value)}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanVerify          = "verification.verify"
	SpanRegister        = "greenid.register"
	SpanSetFields       = "greenid.set_fields"
	SpanPollResult      = "greenid.poll_result"
	SpanIssueCredential = "verification.issue_credentials"
)

// Attribute keys.
const (
	AttrVerificationID = "verification.id"
	AttrSourceID       = "greenid.source_id"
	AttrCheckState     = "greenid.check_state"
	AttrStatus         = "verification.status"
	AttrTestMode       = "verification.test_mode"
	AttrCacheHit       = "cache.hit"
)
