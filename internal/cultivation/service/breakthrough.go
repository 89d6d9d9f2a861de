package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/breakthrough"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
)

// Breakthrough: 경지 돌파를 시도한다. (돌파 [단약이름])
//
// 판정과 영속화가 한 배타 트랜잭션 안에서 끝난다. 사망 판정이면 플레이어 행을
// 지우고, 그 외에는 바뀐 상태를 저장한다.
func (s *Service) Breakthrough(ctx context.Context, userID, pillName string) (string, error) {
	now := s.now()
	var outcome *breakthrough.Outcome
	var nickname string

	err := s.repo.ExclusiveTx(ctx, func(tx *repository.Tx) error {
		player, err := tx.GetPlayerForUpdate(userID)
		if err != nil {
			return err
		}
		nickname = player.Nickname

		if err := pruneExpiredEffects(player, now); err != nil {
			return err
		}

		outcome, err = s.resolver.Resolve(player, pillName, now)
		if err != nil {
			return err
		}
		if outcome.Died {
			return tx.DeletePlayer(userID)
		}
		return tx.SavePlayer(player)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("breakthrough_resolved",
		"user_id", userID,
		"success", outcome.Success,
		"died", outcome.Died,
		"rate", outcome.Rate,
	)
	return s.breakthroughMessage(nickname, outcome), nil
}

// pruneExpiredEffects: 만료된 활성 효과를 걸러낸다. 살아남은 효과만 다시 기록한다.
func pruneExpiredEffects(player *repository.Player, now time.Time) error {
	effects, err := player.ActiveEffects()
	if err != nil {
		return err
	}
	if len(effects) == 0 {
		return nil
	}
	alive := effects[:0]
	for _, e := range effects {
		if e.ExpiresAt.After(now) {
			alive = append(alive, e)
		}
	}
	if len(alive) == len(effects) {
		return nil
	}
	return player.SetActiveEffects(alive)
}

func (s *Service) breakthroughMessage(nickname string, outcome *breakthrough.Outcome) string {
	var b strings.Builder

	if outcome.Success {
		fmt.Fprintf(&b, "천지가 진동합니다! %s 님이 돌파에 성공했습니다!\n", nickname)
		fmt.Fprintf(&b, "경지: %s → %s\n", s.tables.Realms.NameOf(outcome.FromRealm), s.tables.Realms.NameOf(outcome.ToRealm))
		fmt.Fprintf(&b, "법공 +%d · 물공 +%d · 법방 +%d · 물방 +%d · 정신력 +%d · 영기 상한 +%d",
			outcome.MagicAttackGain, outcome.PhysicalAttackGain,
			outcome.MagicDefenseGain, outcome.PhysicalDefenseGain,
			outcome.MentalGain, outcome.MaxSpiritGain)
		if outcome.PillUsed != "" {
			fmt.Fprintf(&b, "\n(%s 1개 소모)", outcome.PillUsed)
		}
		return b.String()
	}

	if outcome.Died {
		fmt.Fprintf(&b, "심마가 덮쳤습니다... %s 님이 주화입마로 산화했습니다.\n", nickname)
		b.WriteString("모든 수행이 흩어졌습니다. \"/수선 입문\" 으로 다시 시작할 수 있습니다.")
		return b.String()
	}

	fmt.Fprintf(&b, "%s 님의 돌파가 실패했습니다.\n", nickname)
	fmt.Fprintf(&b, "반동으로 수련치 %d 을(를) 잃었습니다.", outcome.ExpPenalty)
	if outcome.PillUsed != "" {
		fmt.Fprintf(&b, "\n(%s 1개 소모)", outcome.PillUsed)
	}
	return b.String()
}

// BreakthroughInfo: 돌파 조건과 성공률을 미리 보여준다. (돌파정보 [단약이름])
func (s *Service) BreakthroughInfo(ctx context.Context, userID, pillName string) (string, error) {
	player, err := s.repo.GetPlayer(ctx, userID)
	if err != nil {
		return "", err
	}

	preview, err := s.resolver.Preview(player, pillName, s.now())
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[돌파 정보]\n")
	fmt.Fprintf(&b, "목표 경지: %s\n", preview.TargetName)
	fmt.Fprintf(&b, "필요 수련치: %d (보유 %d)\n", preview.ExpNeeded, preview.ExpHave)
	fmt.Fprintf(&b, "기본 성공률: %.0f%%\n", preview.BaseRate*100)
	// 기본 성공률이 단약 상한을 넘는 경지에서는 가산치가 음수로 나온다.
	if preview.PillBonus != 0 {
		fmt.Fprintf(&b, "단약 가산: %+.0f%%\n", preview.PillBonus*100)
	}
	if preview.EffectBonus > 0 {
		fmt.Fprintf(&b, "효과 가산: +%.0f%%\n", preview.EffectBonus*100)
	}
	fmt.Fprintf(&b, "최종 성공률: %.0f%%", preview.FinalRate*100)
	if preview.ExpHave < preview.ExpNeeded {
		b.WriteString("\n\n수련치가 부족해 아직 돌파할 수 없습니다.")
	}
	return b.String(), nil
}
