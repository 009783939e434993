package trace

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Span times one operation (a frame, a click, an RPC).
type Span struct {
	Name  string
	Ctx   Context
	Start time.Time

	mu    sync.Mutex
	end   time.Time
	attrs []slog.Attr
}

// StartSpan opens a child span of whatever trace ctx carries.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent, _ := FromContext(ctx)
	tc := parent.Child()
	return WithContext(ctx, tc), &Span{Name: name, Ctx: tc, Start: time.Now()}
}

// SetAttr records an attribute reported when the span ends.
func (s *Span) SetAttr(key string, val any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, val))
	s.mu.Unlock()
}

// End closes the span and logs it at debug level. Only the first call counts.
func (s *Span) End() {
	s.mu.Lock()
	if !s.end.IsZero() {
		s.mu.Unlock()
		return
	}
	s.end = time.Now()
	s.mu.Unlock()

	slog.Debug("span", "span", s)
}

// Duration is zero until End is called.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.end.IsZero() {
		return 0
	}
	return s.end.Sub(s.Start)
}

// LogValue implements slog.LogValuer.
func (s *Span) LogValue() slog.Value {
	s.mu.Lock()
	attrs := make([]slog.Attr, 0, len(s.attrs)+5)
	attrs = append(attrs,
		slog.String("name", s.Name),
		slog.String("trace_id", s.Ctx.TraceID),
		slog.String("span_id", s.Ctx.SpanID),
	)
	if s.Ctx.ParentSpanID != "" {
		attrs = append(attrs, slog.String("parent_span_id", s.Ctx.ParentSpanID))
	}
	if !s.end.IsZero() {
		attrs = append(attrs, slog.Duration("duration", s.end.Sub(s.Start)))
	}
	attrs = append(attrs, s.attrs...)
	s.mu.Unlock()
	return slog.GroupValue(attrs...)
}
