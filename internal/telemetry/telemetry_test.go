package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans installs an in-memory provider for the duration of the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	install(tp, DefaultServiceName)
	t.Cleanup(func() {
		install(nil, "")
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "sftpbox", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)

	filled := Config{Enabled: true}.withDefaults()
	assert.Equal(t, DefaultServiceName, filled.ServiceName)
	assert.Equal(t, DefaultEndpoint, filled.Endpoint)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		desc := Config{SampleRate: tt.rate}.sampler().Description()
		assert.Contains(t, desc, "ParentBased{root:"+tt.want)
	}
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))

	assert.False(t, IsEnabled())
	assert.Equal(t, noopTracer, Tracer())
}

func TestSpansWithoutInit(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.operation")
	require.NotNil(t, span)
	defer span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.Empty(t, TraceID(ctx))
	assert.Empty(t, SpanID(ctx))

	require.NotPanics(t, func() {
		RecordError(ctx, nil)
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSpansAreRecorded(t *testing.T) {
	rec := recordSpans(t)
	assert.True(t, IsEnabled())

	ctx, session := StartSessionSpan(context.Background(), "conn-1", 0, "alice")
	reqCtx, req := StartSFTPSpan(ctx, "READ", 42, FSOffset(0))

	assert.Equal(t, TraceID(ctx), TraceID(reqCtx), "requests join the session trace")
	assert.NotEqual(t, SpanID(ctx), SpanID(reqCtx))
	assert.Len(t, TraceID(ctx), 32)
	assert.Len(t, SpanID(ctx), 16)

	RecordError(reqCtx, errors.New("no such file"))
	req.End()
	session.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "sftp.READ", spans[0].Name())
	assert.Equal(t, "Error", spans[0].Status().Code.String())
	assert.Equal(t, "no such file", spans[0].Status().Description)
	assert.Equal(t, SpanSFTPSession, spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestInitProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(ProfilingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown())
	assert.False(t, IsProfilingEnabled())
}

func TestParseProfileTypes(t *testing.T) {
	types, err := parseProfileTypes(DefaultProfileTypes)
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU, pyroscope.ProfileInuseSpace, pyroscope.ProfileAllocSpace,
	}, types)

	_, err = parseProfileTypes([]string{"cpu", "heap"})
	assert.ErrorContains(t, err, `"heap"`)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ClientIP", func(t *testing.T) {
		attr := ClientIP("192.168.1.100")
		assert.Equal(t, AttrClientIP, string(attr.Key))
		assert.Equal(t, "192.168.1.100", attr.Value.AsString())
	})

	t.Run("ClientAddr", func(t *testing.T) {
		attr := ClientAddr("192.168.1.100:12345")
		assert.Equal(t, AttrClientAddr, string(attr.Key))
		assert.Equal(t, "192.168.1.100:12345", attr.Value.AsString())
	})

	t.Run("Channel", func(t *testing.T) {
		attr := Channel(7)
		assert.Equal(t, AttrSSHChannel, string(attr.Key))
		assert.Equal(t, int64(7), attr.Value.AsInt64())
	})

	t.Run("RequestID", func(t *testing.T) {
		attr := RequestID(0x12345678)
		assert.Equal(t, AttrSFTPRequestID, string(attr.Key))
		assert.Equal(t, int64(0x12345678), attr.Value.AsInt64())
	})

	t.Run("Packet", func(t *testing.T) {
		attr := Packet("READDIR")
		assert.Equal(t, AttrSFTPPacket, string(attr.Key))
		assert.Equal(t, "READDIR", attr.Value.AsString())
	})

	t.Run("SFTPStatus", func(t *testing.T) {
		attr := SFTPStatus("EOF")
		assert.Equal(t, AttrSFTPStatus, string(attr.Key))
		assert.Equal(t, "EOF", attr.Value.AsString())
	})

	t.Run("FSHandle", func(t *testing.T) {
		attr := FSHandle("5f0c2a9e-3b1d-4a0f-8f5e-0d9c1b2a3e4f")
		assert.Equal(t, AttrHandle, string(attr.Key))
	})

	t.Run("FSOffset", func(t *testing.T) {
		attr := FSOffset(1024)
		assert.Equal(t, AttrOffset, string(attr.Key))
		assert.Equal(t, int64(1024), attr.Value.AsInt64())
	})

	t.Run("FSCount", func(t *testing.T) {
		attr := FSCount(32768)
		assert.Equal(t, AttrCount, string(attr.Key))
		assert.Equal(t, int64(32768), attr.Value.AsInt64())
	})

	t.Run("Username", func(t *testing.T) {
		attr := Username("alice")
		assert.Equal(t, AttrUsername, string(attr.Key))
		assert.Equal(t, "alice", attr.Value.AsString())
	})

	t.Run("AuthMethod", func(t *testing.T) {
		attr := AuthMethod("publickey")
		assert.Equal(t, AttrAuth, string(attr.Key))
		assert.Equal(t, "publickey", attr.Value.AsString())
	})
}

func TestStartSFTPSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartSFTPSpan(ctx, "READ", 42)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartSFTPSpan(ctx, "WRITE", 43, FSOffset(0), FSCount(4096))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartSessionSpan(t *testing.T) {
	newCtx, span := StartSessionSpan(context.Background(), "conn-1", 0, "alice")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}
