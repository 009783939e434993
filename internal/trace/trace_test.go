package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestIDWidths(t *testing.T) {
	tc := New()
	if len(tc.TraceID) != 32 {
		t.Errorf("len(TraceID) = %d, want 32", len(tc.TraceID))
	}
	if len(tc.SpanID) != 16 {
		t.Errorf("len(SpanID) = %d, want 16", len(tc.SpanID))
	}
	if tc.ParentSpanID != "" {
		t.Error("root span should have no parent")
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := New().TraceID
		if seen[id] {
			t.Fatal("duplicate trace ID")
		}
		seen[id] = true
	}
}

func TestChild(t *testing.T) {
	parent := New()
	child := parent.Child()

	if child.TraceID != parent.TraceID {
		t.Error("child should keep the trace ID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Errorf("ParentSpanID = %q, want %q", child.ParentSpanID, parent.SpanID)
	}
	if (Context{}).Child().TraceID == "" {
		t.Error("child of empty context should start a trace")
	}
}

func TestContinue(t *testing.T) {
	tc := Continue("abc", "caller")
	if tc.TraceID != "abc" || tc.ParentSpanID != "caller" {
		t.Errorf("Continue = %+v", tc)
	}
	if len(Continue("", "caller").TraceID) != 32 {
		t.Error("missing trace ID should start a new trace")
	}
}

func TestEnsure(t *testing.T) {
	ctx, tc := Ensure(context.Background())
	_, again := Ensure(ctx)
	if again.TraceID != tc.TraceID {
		t.Error("Ensure should reuse the existing trace")
	}
}

func TestSpan(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "frame")
	_, child := StartSpan(ctx, "recognize")

	if child.Ctx.TraceID != parent.Ctx.TraceID {
		t.Error("nested span should share the trace")
	}
	if child.Ctx.ParentSpanID != parent.Ctx.SpanID {
		t.Error("nested span should be parented")
	}

	if child.Duration() != 0 {
		t.Error("open span should have zero duration")
	}
	child.SetAttr("observations", 3)
	time.Sleep(time.Millisecond)
	child.End()
	d := child.Duration()
	if d <= 0 {
		t.Errorf("Duration() = %v, want > 0", d)
	}
	child.End()
	if child.Duration() != d {
		t.Error("second End should not move the end time")
	}
}

func TestMiddleware(t *testing.T) {
	var got Context
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(TraceIDKey, "trace-1")
	req.Header.Set(SpanIDKey, "span-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got.TraceID != "trace-1" || got.ParentSpanID != "span-1" {
		t.Errorf("context = %+v", got)
	}
	if rec.Header().Get(TraceIDKey) != "trace-1" {
		t.Errorf("response header = %q", rec.Header().Get(TraceIDKey))
	}
}

func TestFromMessage(t *testing.T) {
	tc, ok := FromMessage([]byte(`{"type":"click","trace_id":"t1"}`))
	if !ok || tc.TraceID != "t1" {
		t.Errorf("FromMessage = %+v, %v", tc, ok)
	}
	if _, ok := FromMessage([]byte(`{"type":"click"}`)); ok {
		t.Error("message without trace_id should report false")
	}
	if _, ok := FromMessage([]byte(`not json`)); ok {
		t.Error("invalid json should report false")
	}
}

func TestClientInterceptorInjects(t *testing.T) {
	tc := New()
	ctx := WithContext(context.Background(), tc)

	var md metadata.MD
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ = metadata.FromOutgoingContext(ctx)
		return nil
	}
	if err := UnaryClientInterceptor()(ctx, "/m", nil, nil, nil, invoker); err != nil {
		t.Fatal(err)
	}
	if first(md.Get(TraceIDKey)) != tc.TraceID {
		t.Errorf("trace id = %v, want %s", md.Get(TraceIDKey), tc.TraceID)
	}
}

func TestServerInterceptorContinues(t *testing.T) {
	md := metadata.Pairs(TraceIDKey, "remote", SpanIDKey, "caller")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	var got Context
	handler := func(ctx context.Context, req any) (any, error) {
		got, _ = FromContext(ctx)
		return nil, nil
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/svc/Method"}
	if _, err := UnaryServerInterceptor()(ctx, nil, info, handler); err != nil {
		t.Fatal(err)
	}
	if got.TraceID != "remote" {
		t.Errorf("TraceID = %q, want remote", got.TraceID)
	}
}

func TestLoggerWithoutTrace(t *testing.T) {
	if Logger(context.Background()) == nil {
		t.Error("Logger should fall back to the default")
	}
}
