package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/httpserver"
)

// BackgroundTask: 서버와 함께 실행되는 백그라운드 작업 (MQ 소비 루프 등)
type BackgroundTask struct {
	Name        string
	ErrorLogKey string
	Run         func(ctx context.Context) error
}

// ServerApp: HTTP 서버 + 백그라운드 작업들의 실행 단위
type ServerApp struct {
	Bot             string
	Logger          *slog.Logger
	Server          *http.Server
	ShutdownTimeout time.Duration
	BackgroundTasks []BackgroundTask
}

// NewServerApp: ServerApp 인스턴스를 생성한다.
func NewServerApp(
	bot string,
	logger *slog.Logger,
	server *http.Server,
	shutdownTimeout time.Duration,
	backgroundTasks ...BackgroundTask,
) *ServerApp {
	return &ServerApp{
		Bot:             bot,
		Logger:          logger,
		Server:          server,
		ShutdownTimeout: shutdownTimeout,
		BackgroundTasks: backgroundTasks,
	}
}

// Run: SIGINT/SIGTERM 을 수신할 때까지 HTTP 서버와 백그라운드 작업을 실행한다.
// 어느 한쪽이 에러로 종료되면 전체가 함께 종료된다.
func (a *ServerApp) Run(ctx context.Context) error {
	if a == nil {
		return nil
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(signalCtx)

	for _, task := range a.BackgroundTasks {
		t := task
		if t.Run == nil {
			continue
		}

		g.Go(func() error {
			if err := t.Run(gctx); err != nil {
				logKey := t.ErrorLogKey
				if logKey == "" {
					logKey = "background_task_failed"
				}
				a.Logger.Error(logKey, "task", t.Name, "err", err)
				return fmt.Errorf("%s failed: %w", t.Name, err)
			}
			return nil
		})
	}

	a.Logger.Info("server_start", "bot", a.Bot, "addr", a.Server.Addr)
	g.Go(func() error {
		if err := httpserver.Serve(gctx, a.Server, a.ShutdownTimeout); err != nil {
			return fmt.Errorf("http server serve failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run app failed: %w", err)
	}
	return nil
}
