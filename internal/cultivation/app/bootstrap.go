package app

import (
	"context"
	"log/slog"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/bootstrap"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/telemetry"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/config"
)

// Initialize: 수선 봇 의존성을 초기화하고 ServerApp을 반환합니다.
// 마이그레이션 실패는 치명적이므로 여기서 기동을 중단한다.
func Initialize(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*bootstrap.ServerApp, func(), error) {
	cleanupTelemetry, err := newCultivationTelemetry(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Telemetry.Enabled {
		// 트레이스 컨텍스트가 있는 로그에 trace_id/span_id 를 붙인다.
		logger = slog.New(telemetry.NewSlogHandler(logger.Handler()))
	}

	tables, err := newCultivationTables(cfg)
	if err != nil {
		cleanupTelemetry()
		return nil, nil, err
	}

	repo, cleanupRepo, err := newCultivationRepository(ctx, cfg, logger)
	if err != nil {
		cleanupTelemetry()
		return nil, nil, err
	}

	if err := runCultivationMigrations(ctx, repo, logger); err != nil {
		cleanupRepo()
		cleanupTelemetry()
		return nil, nil, err
	}

	lockClient, cleanupLockValkey, err := newCultivationLockValkey(ctx, cfg, logger)
	if err != nil {
		cleanupRepo()
		cleanupTelemetry()
		return nil, nil, err
	}

	mqClient, cleanupMQValkey, err := newCultivationMQValkey(ctx, cfg, logger)
	if err != nil {
		cleanupLockValkey()
		cleanupRepo()
		cleanupTelemetry()
		return nil, nil, err
	}

	svc := newCultivationService(cfg, repo, tables, logger)
	commandHandler := newCultivationCommandHandler(cfg, svc, lockClient, mqClient, logger)
	streamConsumer := newCultivationStreamConsumer(cfg, mqClient, logger)

	httpServer := newCultivationHTTPServer(cfg, repo, logger)

	serverApp := newCultivationServerApp(cfg, logger, httpServer, streamConsumer, commandHandler, svc)

	cleanup := func() {
		cleanupMQValkey()
		cleanupLockValkey()
		cleanupRepo()
		cleanupTelemetry()
	}

	return serverApp, cleanup, nil
}
