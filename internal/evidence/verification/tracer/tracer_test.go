package tracer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNoop(t *testing.T) {
	ctx := context.Background()
	got, span := NewNoop().Start(ctx, SpanVerify, String(AttrStatus, "verified"))
	assert.Equal(t, ctx, got)
	require.NotNil(t, span)

	span.SetAttributes(Bool(AttrCacheHit, false))
	span.AddEvent("audit.emitted")
	span.End(errors.New("boom"))
}

func TestOTel(t *testing.T) {
	tr := NewOTel(noop.NewTracerProvider().Tracer("test"))
	_, span := tr.Start(context.Background(), SpanRegister, Int("attempt", 1))
	require.NotNil(t, span)
	span.SetAttributes(String(AttrVerificationID, "v-1"))
	span.End(errors.New("vendor fault"))

	assert.NotNil(t, NewOTel(nil).tracer)
}

func TestConvert(t *testing.T) {
	got := convert([]Attribute{
		String("s", "v"),
		Bool("b", true),
		Int("i", 7),
		Duration("d", 1500*time.Millisecond),
		{Key: "skipped", Value: struct{}{}},
	})
	assert.Equal(t, []attribute.KeyValue{
		attribute.String("s", "v"),
		attribute.Bool("b", true),
		attribute.Int64("i", 7),
		attribute.Int64("d", 1500),
	}, got)
	assert.Nil(t, convert(nil))
}
