package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// SlogHandler: slog.Handler를 래핑하여 trace_id/span_id를 자동으로 로그에 추가합니다.
type SlogHandler struct {
	inner slog.Handler
}

// NewSlogHandler: OTel 상관관계가 추가된 slog.Handler를 생성합니다.
func NewSlogHandler(inner slog.Handler) *SlogHandler {
	return &SlogHandler{inner: inner}
}

// Enabled: 로그 레벨 활성화 여부를 확인합니다.
func (h *SlogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle: 로그 레코드에 trace_id/span_id를 추가하고 내부 핸들러로 전달합니다.
func (h *SlogHandler) Handle(ctx context.Context, record slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		record.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return h.inner.Handle(ctx, record)
}

// WithAttrs: 속성을 추가한 새로운 Handler를 반환합니다.
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SlogHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup: 그룹을 추가한 새로운 Handler를 반환합니다.
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	return &SlogHandler{inner: h.inner.WithGroup(name)}
}
