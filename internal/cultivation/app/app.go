// Package app: 수선 봇의 의존성 조립. 설정 → 게임 데이터 → 저장소 → 마이그레이션 →
// Valkey 클라이언트 → 서비스 → MQ/HTTP 표면 순서로 엮는다.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/valkey-io/valkey-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/bootstrap"
	commonconfig "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/config"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/httpserver"
	commonmq "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/mq"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/processinglock"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/telemetry"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/valkeyx"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/config"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/gamedata"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/httpapi"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/migration"
	cultmq "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/mq"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/service"
)

const (
	processingLockKeyPrefix = "cultivation:processing:"
	replyStreamMaxLen       = 1000
	giftSweepInterval       = time.Minute
)

func newCultivationTelemetry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (func(), error) {
	provider, err := telemetry.NewProvider(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry failed: %w", err)
	}
	if provider.IsEnabled() {
		logger.Info("telemetry_enabled", "endpoint", cfg.Telemetry.Endpoint, "service", cfg.Telemetry.ServiceName)
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry_shutdown_failed", "err", err)
		}
	}
	return cleanup, nil
}

func newCultivationTables(cfg *config.Config) (*gamedata.Tables, error) {
	if cfg.Game.DataDir != "" {
		tables, err := gamedata.LoadFromDir(cfg.Game.DataDir)
		if err != nil {
			return nil, fmt.Errorf("load game data from %s failed: %w", cfg.Game.DataDir, err)
		}
		return tables, nil
	}
	tables, err := gamedata.Load()
	if err != nil {
		return nil, fmt.Errorf("load embedded game data failed: %w", err)
	}
	return tables, nil
}

func newCultivationRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repository.Repository, func(), error) {
	repo, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open repository failed: %w", err)
	}
	cleanup := func() {
		if err := repo.Close(); err != nil {
			logger.Warn("repository_close_failed", "err", err)
		}
	}
	return repo, cleanup, nil
}

func runCultivationMigrations(ctx context.Context, repo *repository.Repository, logger *slog.Logger) error {
	if err := migration.NewRunner(repo, logger).Run(ctx); err != nil {
		return fmt.Errorf("run migrations failed: %w", err)
	}
	return nil
}

func newValkeyClient(ctx context.Context, addr, password string, db int, dialTimeout time.Duration, logger *slog.Logger, purpose string) (valkey.Client, func(), error) {
	client, err := valkeyx.NewClient(valkeyx.Config{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  dialTimeout,
		DisableCache: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s valkey client failed: %w", purpose, err)
	}
	if err := valkeyx.Ping(ctx, client); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping %s valkey failed: %w", purpose, err)
	}
	logger.Info("valkey_connected", "purpose", purpose, "addr", addr)
	return client, client.Close, nil
}

func newCultivationLockValkey(ctx context.Context, cfg *config.Config, logger *slog.Logger) (valkey.Client, func(), error) {
	addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	return newValkeyClient(ctx, addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.DialTimeout, logger, "lock")
}

func newCultivationMQValkey(ctx context.Context, cfg *config.Config, logger *slog.Logger) (valkey.Client, func(), error) {
	addr := fmt.Sprintf("%s:%d", cfg.MQ.Host, cfg.MQ.Port)
	return newValkeyClient(ctx, addr, cfg.MQ.Password, cfg.MQ.DB, cfg.MQ.DialTimeout, logger, "mq")
}

func newCultivationService(cfg *config.Config, repo *repository.Repository, tables *gamedata.Tables, logger *slog.Logger) *service.Service {
	return service.New(repo, tables, cfg.Game, logger)
}

func newCultivationCommandHandler(
	cfg *config.Config,
	svc *service.Service,
	lockClient valkey.Client,
	mqClient valkey.Client,
	logger *slog.Logger,
) *cultmq.CommandHandler {
	locks := processinglock.New(lockClient, logger, func(chatID string) string {
		return processingLockKeyPrefix + chatID
	}, cfg.ProcessingLockTTL)

	replies := commonmq.NewReplyPublisher(commonmq.NewStreamPublisher(mqClient, logger, commonmq.StreamPublisherConfig{
		Stream: cfg.MQ.ReplyStreamKey,
		MaxLen: replyStreamMaxLen,
	}))

	parser := cultmq.NewCommandParser(cfg.Commands.Prefix)
	return cultmq.NewCommandHandler(parser, svc, replies, locks, cfg.Access, logger)
}

func newCultivationStreamConsumer(cfg *config.Config, mqClient valkey.Client, logger *slog.Logger) *commonmq.StreamConsumer {
	return commonmq.NewStreamConsumer(mqClient, logger, commonmq.StreamConsumerConfig{
		Stream:      cfg.MQ.StreamKey,
		Group:       cfg.MQ.ConsumerGroup,
		Name:        cfg.MQ.ConsumerName,
		BatchSize:   cfg.MQ.BatchSize,
		Block:       cfg.MQ.BlockTimeout,
		Concurrency: cfg.MQ.Concurrency,
	})
}

func newCultivationHTTPServer(cfg *config.Config, repo *repository.Repository, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	httpapi.Register(mux, httpapi.Deps{
		Repo:   repo,
		APIKey: cfg.APIKey,
		Logger: logger,
	})

	var handler http.Handler = mux
	if cfg.Telemetry.Enabled {
		handler = otelhttp.NewHandler(mux, "cultivation.http")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	return httpserver.NewServer(addr, handler, httpserver.ServerOptions{
		UseH2C:            true,
		ReadHeaderTimeout: cfg.Tuning.ReadHeaderTimeout,
		IdleTimeout:       cfg.Tuning.IdleTimeout,
		MaxHeaderBytes:    cfg.Tuning.MaxHeaderBytes,
	})
}

// runGiftSweeper: 만료된 선물 제안을 주기적으로 정리한다.
func runGiftSweeper(ctx context.Context, svc *service.Service, logger *slog.Logger) error {
	ticker := time.NewTicker(giftSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := svc.Gifts().Sweep(); removed > 0 {
				logger.Debug("gift_offers_swept", "removed", removed)
			}
		}
	}
}

func newCultivationServerApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	streamConsumer *commonmq.StreamConsumer,
	commandHandler *cultmq.CommandHandler,
	svc *service.Service,
) *bootstrap.ServerApp {
	return bootstrap.NewServerApp(
		"cultivation",
		logger,
		server,
		cfg.ShutdownTimeout,
		bootstrap.BackgroundTask{
			Name:        "mq_consumer",
			ErrorLogKey: "mq_consumer_failed",
			Run: func(ctx context.Context) error {
				return streamConsumer.Run(ctx, commandHandler.HandleStreamMessage)
			},
		},
		bootstrap.BackgroundTask{
			Name:        "gift_sweeper",
			ErrorLogKey: "gift_sweeper_failed",
			Run: func(ctx context.Context) error {
				return runGiftSweeper(ctx, svc, logger)
			},
		},
	)
}

// LogConfig: 엔트리포인트에서 파일 로깅 설정을 꺼낼 때 쓴다.
func LogConfig(cfg *config.Config) commonconfig.LogConfig {
	return cfg.Log
}
