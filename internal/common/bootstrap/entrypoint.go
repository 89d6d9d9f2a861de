package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	commonconfig "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/config"
)

// Entrypoint: 봇 프로세스의 공통 기동 절차.
// .env 로드 → 설정 로드 → 파일 로깅 전환 → 의존성 초기화 → ServerApp 실행 순서로 진행한다.
type Entrypoint[C any] struct {
	// LogFileName: 파일 로깅 활성화 시 사용할 로그 파일 이름
	LogFileName string
	// LoadConfig: 환경 변수에서 서비스 설정을 읽는다
	LoadConfig func() (*C, error)
	// LogConfig: 설정에서 로깅 설정을 꺼낸다 (nil 이면 stdout 로깅만 유지)
	LogConfig func(*C) commonconfig.LogConfig
	// Initialize: 의존성을 엮어 ServerApp과 정리 함수를 돌려준다
	Initialize func(context.Context, *C, *slog.Logger) (*ServerApp, func(), error)
}

// Run: 기동 절차를 수행하고 앱이 종료될 때까지 블록한다.
// 파일 로깅으로 전환됐으면 전환된 로거를 반환하므로, 호출자는 치명 오류를
// 반환된 로거로 기록해야 로그 파일에도 남는다.
func (e Entrypoint[C]) Run(ctx context.Context, logger *slog.Logger) (*slog.Logger, error) {
	if err := commonconfig.LoadDotenvIfPresent(); err != nil {
		return logger, fmt.Errorf("load dotenv failed: %w", err)
	}

	cfg, err := e.LoadConfig()
	if err != nil {
		return logger, fmt.Errorf("load config failed: %w", err)
	}

	if e.LogConfig != nil {
		logCfg := e.LogConfig(cfg)
		if strings.TrimSpace(logCfg.Dir) != "" {
			fileLogger, logErr := EnableFileLogging(logCfg, e.LogFileName)
			if logErr != nil {
				return logger, fmt.Errorf("enable file logging failed: %w", logErr)
			}
			if fileLogger != nil {
				logger = fileLogger
			}
		}
	}

	serverApp, cleanup, err := e.Initialize(ctx, cfg, logger)
	if err != nil {
		return logger, fmt.Errorf("initialize app failed: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := serverApp.Run(ctx); err != nil {
		return logger, fmt.Errorf("run app failed: %w", err)
	}
	return logger, nil
}
