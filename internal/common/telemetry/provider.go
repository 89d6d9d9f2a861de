// Package telemetry: OpenTelemetry 트레이싱 초기화와 로그 상관관계 유틸리티.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	commonconfig "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/config"
)

// Provider: OpenTelemetry TracerProvider 수명을 관리합니다.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
}

// NewProvider: TracerProvider를 초기화하고 글로벌로 설정합니다.
// cfg.Enabled가 false면 no-op Provider를 반환합니다.
func NewProvider(ctx context.Context, cfg commonconfig.TelemetryConfig) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	)

	var exporterOpts []otlptracegrpc.Option
	exporterOpts = append(exporterOpts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
	if cfg.InsecureConn {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	// ParentBased: 부모 Span의 샘플링 결정을 따르고, Root Span만 비율 샘플링한다.
	var rootSampler sdktrace.Sampler
	switch {
	case cfg.SampleRatio >= 1.0:
		rootSampler = sdktrace.AlwaysSample()
	case cfg.SampleRatio <= 0:
		rootSampler = sdktrace.NeverSample()
	default:
		rootSampler = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(rootSampler)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return &Provider{tracerProvider: tp}, nil
}

// Shutdown: 버퍼에 남은 Span을 flush하고 TracerProvider를 정리합니다.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider == nil {
		return nil
	}
	return p.tracerProvider.Shutdown(ctx)
}

// IsEnabled: 트레이싱이 활성화되었는지 확인합니다.
func (p *Provider) IsEnabled() bool {
	return p.tracerProvider != nil
}
