package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
)

// 입문 시 지급하는 영석
const startingSpiritStones = 100

// BeginJourney: 새 수련자를 등록한다. (입문)
func (s *Service) BeginJourney(ctx context.Context, userID, nickname string) (string, error) {
	first, err := s.tables.Realms.At(0)
	if err != nil {
		return "", err
	}

	player := &repository.Player{
		UserID:          userID,
		Nickname:        nickname,
		RealmIndex:      0,
		SpiritStones:    startingSpiritStones,
		Spirit:          first.BaseSpirit,
		MaxSpirit:       first.BaseSpirit,
		MagicAttack:     first.BaseMagicAttack,
		PhysicalAttack:  first.BasePhysicalAttack,
		MagicDefense:    first.BaseMagicDefense,
		PhysicalDefense: first.BasePhysicalDefense,
		MentalPower:     first.BaseMentalPower,
	}

	err = s.repo.ExclusiveTx(ctx, func(tx *repository.Tx) error {
		return tx.CreatePlayer(player)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("player_joined", "user_id", userID, "nickname", nickname)
	return fmt.Sprintf(
		"%s 님이 수선의 길에 입문했습니다!\n경지: %s\n영석 %d개를 지급했습니다.\n\"/수선 내정보\" 로 상태를 확인하세요.",
		nickname, first.Name, startingSpiritStones,
	), nil
}

// PlayerInfo: 현재 상태를 보여준다. (내정보)
// 폐관 중이면 지금까지 쌓인 예상 수련치를 함께 보여주되, 실제 적립은 출관 때 한다.
func (s *Service) PlayerInfo(ctx context.Context, userID string) (string, error) {
	player, err := s.repo.GetPlayer(ctx, userID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s 도우(道友)]\n", player.Nickname)
	fmt.Fprintf(&b, "경지: %s\n", s.tables.Realms.NameOf(player.RealmIndex))
	fmt.Fprintf(&b, "수련치: %d\n", player.Experience)
	fmt.Fprintf(&b, "영석: %d\n", player.SpiritStones)
	fmt.Fprintf(&b, "영기: %d/%d\n", player.Spirit, player.MaxSpirit)
	fmt.Fprintf(&b, "공격(법/물) %d/%d · 방어(법/물) %d/%d · 정신력 %d",
		player.MagicAttack, player.PhysicalAttack,
		player.MagicDefense, player.PhysicalDefense, player.MentalPower)

	if player.RetreatStartedAt != nil {
		pending := s.retreatExp(*player.RetreatStartedAt, s.now())
		fmt.Fprintf(&b, "\n\n폐관 수련 중입니다. (예상 수련치 +%d)", pending)
	}

	bag, err := player.PillBag()
	if err != nil {
		return "", err
	}
	if len(bag) > 0 {
		b.WriteString("\n\n[단약 주머니]")
		for name, qty := range bag {
			fmt.Fprintf(&b, "\n- %s x%d", name, qty)
		}
	}
	return b.String(), nil
}

// retreatExp: 폐관 수련으로 쌓인 수련치. 최소 지속 시간을 못 채우면 0이다.
func (s *Service) retreatExp(startedAt, now time.Time) int64 {
	elapsed := now.Sub(startedAt)
	if elapsed < s.game.RetreatMinDuration {
		return 0
	}
	return int64(elapsed.Minutes()) * s.game.RetreatExpPerMinute
}

// StartRetreat: 폐관 수련을 시작한다. (폐관)
func (s *Service) StartRetreat(ctx context.Context, userID string) (string, error) {
	now := s.now()
	err := s.repo.ExclusiveTx(ctx, func(tx *repository.Tx) error {
		player, err := tx.GetPlayerForUpdate(userID)
		if err != nil {
			return err
		}
		if player.RetreatStartedAt != nil {
			return &gameerrors.IneligibleError{Reason: "이미 폐관 수련 중입니다."}
		}
		player.RetreatStartedAt = &now
		return tx.SavePlayer(player)
	})
	if err != nil {
		return "", err
	}
	return "동부의 문을 닫고 폐관 수련에 들어갑니다.\n\"/수선 출관\" 으로 수련을 마칠 수 있습니다.", nil
}

// EndRetreat: 폐관 수련을 마치고 수련치를 적립한다. (출관)
func (s *Service) EndRetreat(ctx context.Context, userID string) (string, error) {
	now := s.now()
	var gained int64
	var elapsed time.Duration

	err := s.repo.ExclusiveTx(ctx, func(tx *repository.Tx) error {
		player, err := tx.GetPlayerForUpdate(userID)
		if err != nil {
			return err
		}
		if player.RetreatStartedAt == nil {
			return &gameerrors.IneligibleError{Reason: "폐관 수련 중이 아닙니다."}
		}
		elapsed = now.Sub(*player.RetreatStartedAt)
		gained = s.retreatExp(*player.RetreatStartedAt, now)
		player.RetreatStartedAt = nil
		player.Experience += gained
		return tx.SavePlayer(player)
	})
	if err != nil {
		return "", err
	}

	if gained == 0 {
		return "출관했습니다. 수련 시간이 너무 짧아 얻은 것이 없습니다.", nil
	}
	return fmt.Sprintf("출관했습니다. %s 간의 수련으로 수련치 %d 을(를) 얻었습니다.",
		elapsed.Round(time.Minute), gained), nil
}

// CheckIn: 하루 한 번 출석 보상을 받는다. (출석, KST 자정 기준)
func (s *Service) CheckIn(ctx context.Context, userID string) (string, error) {
	today := dayOf(s.now())

	err := s.repo.ExclusiveTx(ctx, func(tx *repository.Tx) error {
		player, err := tx.GetPlayerForUpdate(userID)
		if err != nil {
			return err
		}
		if player.LastCheckInDay == today {
			return &gameerrors.IneligibleError{Reason: "오늘은 이미 출석했습니다. 내일 다시 오세요."}
		}
		player.LastCheckInDay = today
		player.SpiritStones += s.game.CheckInSpiritStones
		player.Experience += s.game.CheckInExp
		return tx.SavePlayer(player)
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("출석 완료! 영석 %d개와 수련치 %d 을(를) 받았습니다.",
		s.game.CheckInSpiritStones, s.game.CheckInExp), nil
}
