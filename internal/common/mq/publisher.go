package mq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/valkey-io/valkey-go"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/mqmsg"
)

// StreamPublisherConfig: 응답 스트림 발행 설정.
type StreamPublisherConfig struct {
	Stream string
	MaxLen int64 // 0 이면 MAXLEN 제한 없음
}

// StreamPublisher: XADD 로 메시지를 발행한다.
type StreamPublisher struct {
	client valkey.Client
	logger *slog.Logger
	cfg    StreamPublisherConfig
}

// NewStreamPublisher: 발행자를 만든다.
func NewStreamPublisher(client valkey.Client, logger *slog.Logger, cfg StreamPublisherConfig) *StreamPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamPublisher{client: client, logger: logger, cfg: cfg}
}

// Publish: 필드-값 맵을 XADD 한다. (MAXLEN ~ 근사 트리밍 포함)
func (p *StreamPublisher) Publish(ctx context.Context, values map[string]any) (string, error) {
	fieldValues := make([]string, 0, len(values)*2)
	for k, v := range values {
		fieldValues = append(fieldValues, k, fmt.Sprint(v))
	}
	if len(fieldValues) < 2 {
		return "", fmt.Errorf("no values to publish")
	}

	var args []string
	if p.cfg.MaxLen > 0 {
		args = append(args, "MAXLEN", "~", fmt.Sprintf("%d", p.cfg.MaxLen))
	}
	args = append(args, "*")
	args = append(args, fieldValues...)

	cmd := p.client.B().Arbitrary("XADD").Keys(p.cfg.Stream).Args(args...).Build()
	id, err := p.client.Do(ctx, cmd).ToString()
	if err != nil {
		return "", fmt.Errorf("xadd failed stream=%s: %w", p.cfg.Stream, err)
	}

	p.logger.Debug("message_published", "stream", p.cfg.Stream, "id", id)
	return id, nil
}

// ReplyPublisher: 아웃바운드 메시지를 응답 스트림에 발행한다.
type ReplyPublisher struct {
	publisher *StreamPublisher
}

// NewReplyPublisher: 응답 발행자를 만든다.
func NewReplyPublisher(publisher *StreamPublisher) *ReplyPublisher {
	return &ReplyPublisher{publisher: publisher}
}

// Publish: 응답 한 건을 발행한다.
func (p *ReplyPublisher) Publish(ctx context.Context, message mqmsg.OutboundMessage) error {
	if _, err := p.publisher.Publish(ctx, message.ToStreamValues()); err != nil {
		return fmt.Errorf("publish reply message failed: %w", err)
	}
	return nil
}
