// Package service: 게임 명령의 유스케이스 계층. 저장소 트랜잭션과 도메인 로직을
// 엮고, 사용자에게 보여줄 한국어 응답 문자열을 만든다.
package service

import (
	"log/slog"
	"time"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/breakthrough"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/config"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/gamedata"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/gift"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/shop"
)

// 출석일 계산 기준 시간대
var kst = time.FixedZone("KST", 9*60*60)

// Service: 수선 게임 서비스.
type Service struct {
	repo     *repository.Repository
	tables   *gamedata.Tables
	game     config.GameConfig
	resolver *breakthrough.Resolver
	shop     *shop.Coordinator
	gifts    *gift.Store
	logger   *slog.Logger

	now func() time.Time
}

// New: 의존성을 엮어 서비스를 만든다.
func New(
	repo *repository.Repository,
	tables *gamedata.Tables,
	game config.GameConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		tables:   tables,
		game:     game,
		resolver: breakthrough.NewResolver(tables, game),
		shop:     shop.NewCoordinator(tables, game),
		gifts:    gift.NewStore(game.GiftTTL),
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock: 시계를 교체한 서비스를 반환한다. 테스트 전용.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.gifts.WithClock(now)
	return s
}

// WithResolver: 돌파 판정기를 교체한다. 테스트 전용.
func (s *Service) WithResolver(r *breakthrough.Resolver) *Service {
	s.resolver = r
	return s
}

// WithShop: 상점 코디네이터를 교체한다. 테스트 전용.
func (s *Service) WithShop(c *shop.Coordinator) *Service {
	s.shop = c
	return s
}

// Gifts: 선물 저장소를 반환한다. 주기 정리 작업에서 쓴다.
func (s *Service) Gifts() *gift.Store { return s.gifts }

// dayOf: 출석일 문자열 (KST 기준).
func dayOf(t time.Time) string {
	return t.In(kst).Format("2006-01-02")
}
