package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/bootstrap"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/app"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/config"
)

func main() {
	logger := bootstrap.NewLogger()
	slog.SetDefault(logger)

	entry := bootstrap.Entrypoint[config.Config]{
		LogFileName: "cultivation.log",
		LoadConfig:  config.Load,
		LogConfig:   app.LogConfig,
		Initialize:  app.Initialize,
	}
	finalLogger, err := entry.Run(context.Background(), logger)
	if err != nil {
		logger = finalLogger
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}
