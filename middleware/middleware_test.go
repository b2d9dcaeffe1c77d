package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	mrd "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/UniQw/uniqm-go"
	"github.com/UniQw/uniqm-go/internal/hctx"
	mw "github.com/UniQw/uniqm-go/middleware"
)

func setupTestTracer() (*tracetest.SpanRecorder, trace.Tracer) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp.Tracer("test")
}

func jobCtx() context.Context {
	return hctx.WithState(context.Background(), hctx.New("mail:42", "mail", "send"))
}

func ok(context.Context, []byte) (any, error) { return "done", nil }

func fail(context.Context, []byte) (any, error) { return nil, errors.New("smtp down") }

func TestTracing_SpanAttributes(t *testing.T) {
	sr, tracer := setupTestTracer()
	h := mw.TracingWithTracer(tracer)(ok)

	v, err := h(jobCtx(), []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "done", v)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "uniqm.job.execute", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "mail:42", attrs["uniqm.job.id"].AsString())
	assert.Equal(t, "mail", attrs["uniqm.queue"].AsString())
	assert.Equal(t, "send", attrs["uniqm.action"].AsString())
	assert.Equal(t, int64(7), attrs["uniqm.payload.bytes"].AsInt64())
}

func TestTracing_ErrorStatus(t *testing.T) {
	sr, tracer := setupTestTracer()
	_, err := mw.TracingWithTracer(tracer)(fail)(jobCtx(), nil)
	require.EqualError(t, err, "smtp down")

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "smtp down", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1, "error recorded as event")
}

func TestTracing_GlobalNoop(t *testing.T) {
	v, err := mw.Tracing()(ok)(jobCtx(), nil)
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	_, err := mw.Logging(logger)(ok)(jobCtx(), nil)
	require.NoError(t, err)
	_, err = mw.Logging(logger)(fail)(jobCtx(), nil)
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="job started" job_id=mail:42 queue=mail action=send`)
	assert.Contains(t, out, `msg="job completed" job_id=mail:42`)
	assert.Contains(t, out, `msg="job failed" job_id=mail:42`)
	assert.Contains(t, out, `error="smtp down"`)
}

func TestRecover(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := mw.Recover(logger)(func(context.Context, []byte) (any, error) { panic("boom") })

	v, err := h(jobCtx(), nil)
	require.EqualError(t, err, "panic in action send: boom")
	assert.Nil(t, v)
	assert.Contains(t, buf.String(), "job callback panicked")
}

func TestMiddleware_WithManager(t *testing.T) {
	s := mrd.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sr, tracer := setupTestTracer()
	mux := uniqm.NewMux()
	mux.Use(mw.Recover(slog.New(slog.DiscardHandler)), mw.TracingWithTracer(tracer))
	mux.Handle("send", ok)
	mux.Handle("explode", func(context.Context, []byte) (any, error) { panic("bad") })

	m := uniqm.NewManager(rdb, uniqm.Config{MinJitter: -1, MaxJitter: -1, Logger: uniqm.NewSlogLogger(slog.New(slog.DiscardHandler))}, mux)
	ctx := context.Background()
	okID, err := m.Submit(ctx, "mail", "send", nil)
	require.NoError(t, err)
	badID, err := m.Submit(ctx, "mail", "explode", nil)
	require.NoError(t, err)

	m.RunOnce(ctx)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "uniqm.job.execute", spans[0].Name())

	st, err := m.GetStatus(ctx, okID)
	require.NoError(t, err)
	assert.Equal(t, uniqm.StateFinished, st.State)
	st, err = m.GetStatus(ctx, badID)
	require.NoError(t, err)
	assert.Equal(t, uniqm.StateFailed, st.State)
	assert.Equal(t, "panic in action explode: bad", st.Error)
}
