// Package mq: Valkey Streams 기반 메시지 큐 인프라. Consumer Group 으로 읽고
// XADD 로 응답을 발행한다.
package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/valkeyx"
)

// StreamConsumerConfig: 스트림 소비자 설정.
type StreamConsumerConfig struct {
	Stream string
	Group  string
	Name   string

	BatchSize   int64
	Block       time.Duration
	Concurrency int

	// GroupStartFrom: 그룹 생성 시 시작 위치. 비어 있으면 "$" (새 메시지부터).
	GroupStartFrom string

	// Backoff: 연결 장애 재시도 대기
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// XMessage: 스트림에서 읽은 메시지 한 건.
type XMessage struct {
	ID     string
	Values map[string]string
}

// StreamConsumer: Consumer Group 으로 스트림을 소비한다.
type StreamConsumer struct {
	client valkey.Client
	logger *slog.Logger
	cfg    StreamConsumerConfig
}

// NewStreamConsumer: 소비자를 만든다.
func NewStreamConsumer(client valkey.Client, logger *slog.Logger, cfg StreamConsumerConfig) *StreamConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamConsumer{client: client, logger: logger, cfg: cfg}
}

// Run: 소비 루프를 실행한다. ctx 취소 전까지 블로킹한다.
// 처리 성공/실패와 무관하게 메시지는 ACK 된다. 명령 메시지는 재시도해 봐야
// 사용자에게 중복 응답만 만들기 때문이다.
func (c *StreamConsumer) Run(ctx context.Context, handler func(ctx context.Context, msg XMessage) error) error {
	cfg, err := c.normalizedConfig()
	if err != nil {
		return err
	}
	if err := c.ensureGroup(ctx, cfg); err != nil {
		return err
	}

	sem := make(chan struct{}, cfg.Concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	backoff := cfg.BackoffInitial
	for {
		if ctx.Err() != nil {
			return nil
		}

		messages, err := c.readBatch(ctx, cfg)
		if err != nil {
			if valkeyx.IsNil(err) || (errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil) {
				backoff = cfg.BackoffInitial
				continue
			}
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			if isNoGroupErr(err) {
				c.logger.Info("consumer_group_missing_recreating", "stream", cfg.Stream, "group", cfg.Group)
				if recreateErr := c.ensureGroup(ctx, cfg); recreateErr == nil {
					backoff = cfg.BackoffInitial
					continue
				}
			}

			c.logger.Warn("xreadgroup_failed", "err", err, "stream", cfg.Stream, "backoff", backoff)
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff *= 2
			if backoff > cfg.BackoffMax {
				backoff = cfg.BackoffMax
			}
			continue
		}
		backoff = cfg.BackoffInitial

		for _, msg := range messages {
			if ctx.Err() != nil {
				return nil
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
			wg.Add(1)
			go func(m XMessage) {
				defer wg.Done()
				defer func() { <-sem }()
				c.handleMessage(ctx, cfg, m, handler)
			}(msg)
		}
	}
}

func (c *StreamConsumer) handleMessage(
	ctx context.Context,
	cfg StreamConsumerConfig,
	msg XMessage,
	handler func(ctx context.Context, msg XMessage) error,
) {
	tracer := otel.Tracer("cultivation-bot-go/valkey-consumer")
	spanCtx, span := tracer.Start(ctx, "Valkey.ProcessMessage",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "valkey"),
			attribute.String("messaging.destination", cfg.Stream),
			attribute.String("messaging.message_id", msg.ID),
			attribute.String("messaging.consumer_group", cfg.Group),
		),
	)
	defer span.End()

	if err := handler(spanCtx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.ErrorContext(spanCtx, "message_handler_failed", "err", err, "stream", cfg.Stream, "id", msg.ID)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	ackCmd := c.client.B().Xack().Key(cfg.Stream).Group(cfg.Group).Id(msg.ID).Build()
	if err := c.client.Do(spanCtx, ackCmd).Error(); err != nil && ctx.Err() == nil {
		c.logger.WarnContext(spanCtx, "xack_failed", "err", err, "stream", cfg.Stream, "id", msg.ID)
	}
}

func (c *StreamConsumer) readBatch(ctx context.Context, cfg StreamConsumerConfig) ([]XMessage, error) {
	cmd := c.client.B().Xreadgroup().
		Group(cfg.Group, cfg.Name).
		Count(cfg.BatchSize).
		Block(cfg.Block.Milliseconds()).
		Streams().Key(cfg.Stream).Id(">").
		Build()

	result, err := c.client.Do(ctx, cmd).AsXRead()
	if err != nil {
		return nil, fmt.Errorf("xreadgroup failed: %w", err)
	}

	var messages []XMessage
	for stream, entries := range result {
		if stream != cfg.Stream {
			continue
		}
		for _, entry := range entries {
			messages = append(messages, XMessage{ID: entry.ID, Values: entry.FieldValues})
		}
	}
	return messages, nil
}

func (c *StreamConsumer) ensureGroup(ctx context.Context, cfg StreamConsumerConfig) error {
	cmd := c.client.B().XgroupCreate().Key(cfg.Stream).Group(cfg.Group).Id(cfg.GroupStartFrom).Mkstream().Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil && !valkeyx.IsBusyGroup(err) {
		return fmt.Errorf("xgroup create failed stream=%s group=%s: %w", cfg.Stream, cfg.Group, err)
	}
	consumerCmd := c.client.B().XgroupCreateconsumer().Key(cfg.Stream).Group(cfg.Group).Consumer(cfg.Name).Build()
	_ = c.client.Do(ctx, consumerCmd).Error()
	return nil
}

func (c *StreamConsumer) normalizedConfig() (StreamConsumerConfig, error) {
	cfg := c.cfg
	cfg.Stream = strings.TrimSpace(cfg.Stream)
	cfg.Group = strings.TrimSpace(cfg.Group)
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Stream == "" || cfg.Group == "" || cfg.Name == "" {
		return StreamConsumerConfig{}, errors.New("stream/group/name must be set")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if strings.TrimSpace(cfg.GroupStartFrom) == "" {
		cfg.GroupStartFrom = "$"
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	return cfg, nil
}

func isNoGroupErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "NOGROUP") || strings.Contains(strings.ToLower(msg), "no such key")
}

// sleepWithContext: 취소 가능한 대기. 정상 완료면 true.
func sleepWithContext(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
