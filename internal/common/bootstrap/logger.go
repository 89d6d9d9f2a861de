package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	commonconfig "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/config"
)

// NewLogger: 기본 slog 로거를 생성합니다. (stdout, tint 핸들러 사용)
func NewLogger() *slog.Logger {
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.RFC3339,
		AddSource:  true,
	}))
}

// EnableFileLogging: 파일 로깅을 활성화하고, 파일과 stdout에 동시에 출력하는 로거를 반환합니다.
// cfg.Dir 이 비어있으면 nil 로거를 반환하고 stdout 로깅만 유지한다.
func EnableFileLogging(cfg commonconfig.LogConfig, fileName string) (*slog.Logger, error) {
	logDir := strings.TrimSpace(cfg.Dir)
	if logDir == "" {
		return nil, nil
	}
	if cfg.MaxSizeMB <= 0 || cfg.MaxBackups <= 0 || cfg.MaxAgeDays <= 0 {
		return nil, fmt.Errorf("invalid log config: size=%d backups=%d age_days=%d", cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir failed: %w", err)
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, fileName),
		MaxSize:    cfg.MaxSizeMB,  // megabytes
		MaxBackups: cfg.MaxBackups, // files
		MaxAge:     cfg.MaxAgeDays, // days
		Compress:   cfg.Compress,
	}

	w := io.MultiWriter(os.Stdout, logFile)
	handler := tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.RFC3339,
		AddSource:  true,
		NoColor:    true,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
	logger.Info("file_logging_enabled", slog.String("path", logFile.Filename))
	return logger, nil
}
