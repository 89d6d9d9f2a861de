// Package config: 수선 봇 서비스 설정. 환경 변수에서 로드한다.
package config

import (
	"fmt"
	"time"

	commonconfig "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/config"
)

// DatabaseConfig: 게임 데이터베이스 연결 설정.
// Driver 가 sqlite 면 Path 를 파일 경로로, postgres 면 DSN 을 사용한다.
type DatabaseConfig struct {
	Driver string // "sqlite" | "postgres"
	Path   string // sqlite 파일 경로
	DSN    string // postgres 접속 문자열
}

// GameConfig: 게임 규칙 수치.
type GameConfig struct {
	// 돌파 실패 시 사망 확률 추첨 구간 [DeathProbMin, DeathProbMax]
	DeathProbMin float64
	DeathProbMax float64

	// 폐관 수련: 분당 수련치 획득량과 최소 지속 시간
	RetreatExpPerMinute int64
	RetreatMinDuration  time.Duration

	// 출석 보상
	CheckInSpiritStones int64
	CheckInExp          int64

	// 전각 목록 갱신 주기와 전각별 진열 수
	PavilionRefreshInterval time.Duration
	PavilionSlotCount       int

	// 선물 제안 유효 시간
	GiftTTL time.Duration

	// 외부 게임 데이터 디렉터리 (비어 있으면 내장 자산 사용)
	DataDir string
}

// Config: 수선 봇 전체 설정.
type Config struct {
	Server    commonconfig.ServerConfig
	Tuning    commonconfig.ServerTuningConfig
	Commands  commonconfig.CommandsConfig
	Redis     commonconfig.RedisConfig
	MQ        commonconfig.ValkeyMQConfig
	Access    commonconfig.AccessConfig
	Log       commonconfig.LogConfig
	Telemetry commonconfig.TelemetryConfig

	Database DatabaseConfig
	Game     GameConfig

	// APIKey: 관리용 HTTP 엔드포인트 인증 키. 비어 있으면 관리 API 를 비활성화한다.
	APIKey string
	// ProcessingLockTTL: 채팅방 단위 처리 락의 만료 시간.
	ProcessingLockTTL time.Duration
	// ShutdownTimeout: 종료 시 드레인 대기 시간.
	ShutdownTimeout time.Duration
}

// Load: 환경 변수에서 설정을 읽어 들인다. 파싱 실패나 필수 값 누락 시 에러를 반환한다.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.Server.Host = commonconfig.StringFromEnv("CULTIVATION_HOST", "0.0.0.0")
	if cfg.Server.Port, err = commonconfig.IntFromEnv("CULTIVATION_PORT", 8084); err != nil {
		return nil, err
	}
	cfg.APIKey = commonconfig.StringFromEnv("CULTIVATION_API_KEY", "")

	if cfg.Tuning.ReadHeaderTimeout, err = commonconfig.DurationSecondsFromEnv("CULTIVATION_READ_HEADER_TIMEOUT_SEC", 10); err != nil {
		return nil, err
	}
	if cfg.Tuning.IdleTimeout, err = commonconfig.DurationSecondsFromEnv("CULTIVATION_IDLE_TIMEOUT_SEC", 120); err != nil {
		return nil, err
	}
	if cfg.Tuning.MaxHeaderBytes, err = commonconfig.IntFromEnv("CULTIVATION_MAX_HEADER_BYTES", 1<<20); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = commonconfig.DurationSecondsFromEnv("CULTIVATION_SHUTDOWN_TIMEOUT_SEC", 15); err != nil {
		return nil, err
	}

	cfg.Commands.Prefix = commonconfig.StringFromEnv("CULTIVATION_COMMAND_PREFIX", "/수선")

	cfg.Redis.Host = commonconfig.StringFromEnv("VALKEY_HOST", "localhost")
	if cfg.Redis.Port, err = commonconfig.IntFromEnv("VALKEY_PORT", 6379); err != nil {
		return nil, err
	}
	cfg.Redis.Password = commonconfig.StringFromEnv("VALKEY_PASSWORD", "")
	if cfg.Redis.DB, err = commonconfig.IntFromEnv("CULTIVATION_VALKEY_DB", 0); err != nil {
		return nil, err
	}
	if cfg.Redis.DialTimeout, err = commonconfig.DurationSecondsFromEnv("VALKEY_DIAL_TIMEOUT_SEC", 5); err != nil {
		return nil, err
	}
	if cfg.ProcessingLockTTL, err = commonconfig.DurationSecondsFromEnv("CULTIVATION_LOCK_TTL_SEC", 30); err != nil {
		return nil, err
	}

	cfg.MQ.Host = commonconfig.StringFromEnv("CULTIVATION_MQ_HOST", cfg.Redis.Host)
	if cfg.MQ.Port, err = commonconfig.IntFromEnv("CULTIVATION_MQ_PORT", cfg.Redis.Port); err != nil {
		return nil, err
	}
	cfg.MQ.Password = commonconfig.StringFromEnv("CULTIVATION_MQ_PASSWORD", cfg.Redis.Password)
	if cfg.MQ.DB, err = commonconfig.IntFromEnv("CULTIVATION_MQ_DB", 0); err != nil {
		return nil, err
	}
	if cfg.MQ.Timeout, err = commonconfig.DurationSecondsFromEnv("CULTIVATION_MQ_TIMEOUT_SEC", 10); err != nil {
		return nil, err
	}
	if cfg.MQ.DialTimeout, err = commonconfig.DurationSecondsFromEnv("CULTIVATION_MQ_DIAL_TIMEOUT_SEC", 5); err != nil {
		return nil, err
	}
	cfg.MQ.ConsumerGroup = commonconfig.StringFromEnv("CULTIVATION_CONSUMER_GROUP", "cultivation-bot")
	cfg.MQ.ConsumerName = commonconfig.StringFromEnv("CULTIVATION_CONSUMER_NAME", "cultivation-bot-1")
	cfg.MQ.StreamKey = commonconfig.StringFromEnv("CULTIVATION_STREAM_KEY", "kakao:cultivation:commands")
	cfg.MQ.ReplyStreamKey = commonconfig.StringFromEnv("CULTIVATION_REPLY_STREAM_KEY", "kakao:cultivation:replies")
	if cfg.MQ.BatchSize, err = commonconfig.Int64FromEnv("CULTIVATION_MQ_BATCH_SIZE", 16); err != nil {
		return nil, err
	}
	if cfg.MQ.BlockTimeout, err = commonconfig.DurationSecondsFromEnv("CULTIVATION_MQ_BLOCK_TIMEOUT_SEC", 5); err != nil {
		return nil, err
	}
	if cfg.MQ.Concurrency, err = commonconfig.IntFromEnv("CULTIVATION_MQ_CONCURRENCY", 8); err != nil {
		return nil, err
	}

	cfg.Access.AllowedChatIDs = commonconfig.StringSliceFromEnv("CULTIVATION_ALLOWED_CHAT_IDS")
	cfg.Access.BlockedUserIDs = commonconfig.StringSliceFromEnv("CULTIVATION_BLOCKED_USER_IDS")

	cfg.Log.Dir = commonconfig.StringFromEnv("CULTIVATION_LOG_DIR", "logs")
	if cfg.Log.MaxSizeMB, err = commonconfig.IntFromEnv("CULTIVATION_LOG_MAX_SIZE_MB", 50); err != nil {
		return nil, err
	}
	if cfg.Log.MaxBackups, err = commonconfig.IntFromEnv("CULTIVATION_LOG_MAX_BACKUPS", 5); err != nil {
		return nil, err
	}
	if cfg.Log.MaxAgeDays, err = commonconfig.IntFromEnv("CULTIVATION_LOG_MAX_AGE_DAYS", 14); err != nil {
		return nil, err
	}
	if cfg.Log.Compress, err = commonconfig.BoolFromEnv("CULTIVATION_LOG_COMPRESS", true); err != nil {
		return nil, err
	}

	if cfg.Telemetry.Enabled, err = commonconfig.BoolFromEnv("OTEL_ENABLED", false); err != nil {
		return nil, err
	}
	cfg.Telemetry.Endpoint = commonconfig.StringFromEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	cfg.Telemetry.ServiceName = commonconfig.StringFromEnv("OTEL_SERVICE_NAME", "cultivation-bot")
	if cfg.Telemetry.SampleRatio, err = commonconfig.Float64FromEnv("OTEL_SAMPLE_RATIO", 1.0); err != nil {
		return nil, err
	}
	if cfg.Telemetry.InsecureConn, err = commonconfig.BoolFromEnv("OTEL_INSECURE", true); err != nil {
		return nil, err
	}

	cfg.Database.Driver = commonconfig.StringFromEnv("CULTIVATION_DB_DRIVER", "sqlite")
	cfg.Database.Path = commonconfig.StringFromEnv("CULTIVATION_DB_PATH", "data/cultivation.db")
	cfg.Database.DSN = commonconfig.StringFromEnv("CULTIVATION_DB_DSN", "")

	if cfg.Game.DeathProbMin, err = commonconfig.Float64FromEnv("CULTIVATION_DEATH_PROB_MIN", 0.01); err != nil {
		return nil, err
	}
	if cfg.Game.DeathProbMax, err = commonconfig.Float64FromEnv("CULTIVATION_DEATH_PROB_MAX", 0.10); err != nil {
		return nil, err
	}
	if cfg.Game.RetreatExpPerMinute, err = commonconfig.Int64FromEnv("CULTIVATION_RETREAT_EXP_PER_MIN", 2); err != nil {
		return nil, err
	}
	if cfg.Game.RetreatMinDuration, err = commonconfig.DurationSecondsFromEnv("CULTIVATION_RETREAT_MIN_SEC", 60); err != nil {
		return nil, err
	}
	if cfg.Game.CheckInSpiritStones, err = commonconfig.Int64FromEnv("CULTIVATION_CHECKIN_STONES", 50); err != nil {
		return nil, err
	}
	if cfg.Game.CheckInExp, err = commonconfig.Int64FromEnv("CULTIVATION_CHECKIN_EXP", 10); err != nil {
		return nil, err
	}
	if cfg.Game.PavilionRefreshInterval, err = commonconfig.DurationHoursFromEnv("CULTIVATION_PAVILION_REFRESH_HOURS", 6); err != nil {
		return nil, err
	}
	if cfg.Game.PavilionSlotCount, err = commonconfig.IntFromEnv("CULTIVATION_PAVILION_SLOTS", 5); err != nil {
		return nil, err
	}
	if cfg.Game.GiftTTL, err = commonconfig.DurationSecondsFromEnv("CULTIVATION_GIFT_TTL_SEC", 300); err != nil {
		return nil, err
	}
	cfg.Game.DataDir = commonconfig.StringFromEnv("CULTIVATION_DATA_DIR", "")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("CULTIVATION_DB_PATH is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("CULTIVATION_DB_DSN is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	g := c.Game
	if g.DeathProbMin < 0 || g.DeathProbMax > 1 || g.DeathProbMin > g.DeathProbMax {
		return fmt.Errorf("death probability range invalid: [%f, %f]", g.DeathProbMin, g.DeathProbMax)
	}
	if g.PavilionSlotCount <= 0 {
		return fmt.Errorf("pavilion slot count must be positive: %d", g.PavilionSlotCount)
	}
	if g.PavilionRefreshInterval <= 0 {
		return fmt.Errorf("pavilion refresh interval must be positive: %s", g.PavilionRefreshInterval)
	}
	if c.MQ.StreamKey == "" || c.MQ.ConsumerGroup == "" {
		return fmt.Errorf("mq stream key and consumer group are required")
	}
	return nil
}
