// Package valkeyx: valkey-go 클라이언트 생성/점검 유틸리티.
package valkeyx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Config: Valkey 클라이언트 연결에 필요한 설정 정보를 담고 있다.
type Config struct {
	Addr     string
	Password string
	DB       int

	DialTimeout time.Duration

	// DisableCache: 클라이언트 사이드 캐싱(Client Side Caching) 비활성화 여부.
	// MQ 용도나 miniredis 테스트 환경에서는 true로 설정한다.
	DisableCache bool
}

// NewClient: 주어진 설정을 바탕으로 Valkey 클라이언트 인스턴스를 생성한다.
func NewClient(cfg Config) (valkey.Client, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("valkey addr is empty")
	}

	opts := valkey.ClientOption{
		InitAddress:  []string{addr},
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: cfg.DisableCache,
	}
	if cfg.DialTimeout > 0 {
		opts.Dialer.Timeout = cfg.DialTimeout
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("create valkey client failed: %w", err)
	}
	return client, nil
}

// Ping: Valkey 서버와의 연결 상태를 점검한다.
func Ping(ctx context.Context, client valkey.Client) error {
	if client == nil {
		return errors.New("valkey client is nil")
	}
	cmd := client.B().Ping().Build()
	if err := client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey ping failed: %w", err)
	}
	return nil
}

// IsBusyGroup: XGROUP CREATE 가 이미 존재하는 그룹으로 실패했는지 확인한다.
func IsBusyGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

// IsNil: 발생한 에러가 Valkey nil(키가 없음) 에러인지 확인한다.
// 에러 래핑을 고려하여 언래핑 후 검사를 수행한다.
func IsNil(err error) bool {
	for unwrapped := err; unwrapped != nil; unwrapped = errors.Unwrap(unwrapped) {
		if valkey.IsValkeyNil(unwrapped) {
			return true
		}
	}
	return false
}
