// Package breakthrough: 경지 돌파 판정. 성공 추첨과 실패 시 사망 추첨의
// 2단 추첨 모델을 구현한다. 영속화는 호출자(서비스 계층)가 담당한다.
package breakthrough

import (
	"math/rand/v2"
	"time"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/config"
	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/gamedata"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
)

// 실패 시 잃는 수련치 비율 (버림)
const failureExpPenaltyRatio = 0.10

// Outcome: 돌파 시도 하나의 판정 결과.
type Outcome struct {
	Success bool
	Died    bool

	FromRealm int
	ToRealm   int // 성공 시에만 FromRealm+1

	Rate      float64 // 적용된 최종 성공률
	DeathRate float64 // 실패 시 추첨된 사망 확률 (성공 시 0)

	ExpPenalty int64  // 실패 시 잃은 수련치
	PillUsed   string // 소모한 파경단 이름 (없으면 빈 문자열)

	// 성공 시 경지 기준치 상승분
	MagicAttackGain     int64
	PhysicalAttackGain  int64
	MagicDefenseGain    int64
	PhysicalDefenseGain int64
	MentalGain          int64
	MaxSpiritGain       int64
}

// RatePreview: 돌파정보 명령용 성공률 미리보기.
type RatePreview struct {
	FromRealm   int
	ToRealm     int
	TargetName  string
	BaseRate    float64
	PillBonus   float64
	EffectBonus float64
	FinalRate   float64
	ExpNeeded   int64
	ExpHave     int64
}

// Resolver: 돌파 판정기. randFloat 를 주입해 결정적으로 테스트한다.
type Resolver struct {
	realms       gamedata.RealmTable
	pills        map[string]gamedata.Pill
	deathProbMin float64
	deathProbMax float64

	randFloat func() float64
}

// NewResolver: 게임 테이블과 규칙 수치로 판정기를 만든다.
func NewResolver(tables *gamedata.Tables, game config.GameConfig) *Resolver {
	return &Resolver{
		realms:       tables.Realms,
		pills:        tables.Pills,
		deathProbMin: game.DeathProbMin,
		deathProbMax: game.DeathProbMax,
		randFloat:    rand.Float64,
	}
}

// WithRand: 난수원을 교체한 판정기를 반환한다. 테스트 전용.
func (r *Resolver) WithRand(fn func() float64) *Resolver {
	clone := *r
	clone.randFloat = fn
	return &clone
}

// checkEligibility: 돌파 가능 여부를 확인하고 목표 경지를 반환한다.
func (r *Resolver) checkEligibility(player *repository.Player) (gamedata.Realm, error) {
	if player.RetreatStartedAt != nil {
		return gamedata.Realm{}, &gameerrors.IneligibleError{
			Reason: "폐관 수련 중에는 돌파할 수 없습니다. 먼저 출관하세요.",
		}
	}
	if player.RealmIndex >= r.realms.MaxIndex() {
		return gamedata.Realm{}, &gameerrors.IneligibleError{
			Reason: "이미 최고 경지에 도달했습니다. 더 오를 곳이 없습니다.",
		}
	}
	target, err := r.realms.At(player.RealmIndex + 1)
	if err != nil {
		return gamedata.Realm{}, err
	}
	if player.Experience < target.ExpNeeded {
		return gamedata.Realm{}, &gameerrors.InsufficientResourceError{
			Resource: "수련치",
			Need:     target.ExpNeeded,
			Have:     player.Experience,
		}
	}
	return target, nil
}

// pillBonus: 파경단 적용으로 생기는 성공률 변화량. 적용 후 성공률은
// min(기본 성공률 + 가산치, 단약 상한) 이므로, 기본 성공률이 상한을 넘는
// 하위 경지에서는 변화량이 음수가 된다. (그래도 소모는 된다)
func pillBonus(pill gamedata.Pill, baseRate float64) float64 {
	if pill.Subtype != gamedata.PillSubtypeBreakthrough {
		return 0
	}
	boosted := baseRate + pill.BreakthroughBonus
	if boosted > pill.MaxSuccessRate {
		boosted = pill.MaxSuccessRate
	}
	return boosted - baseRate
}

// effectBonus: 만료되지 않은 활성 효과의 돌파 가산치 합.
func effectBonus(effects []repository.ActiveEffect, now time.Time) float64 {
	var total float64
	for _, e := range effects {
		if e.ExpiresAt.After(now) {
			total += e.BreakthroughBonus
		}
	}
	return total
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}

// Preview: 돌파 성공률과 조건을 추첨 없이 계산한다. 자격 미달이어도 에러 대신
// 현재 수치를 그대로 보여주되, 최고 경지는 IneligibleError 를 반환한다.
func (r *Resolver) Preview(player *repository.Player, pillName string, now time.Time) (*RatePreview, error) {
	if player.RealmIndex >= r.realms.MaxIndex() {
		return nil, &gameerrors.IneligibleError{Reason: "이미 최고 경지에 도달했습니다."}
	}
	target, err := r.realms.At(player.RealmIndex + 1)
	if err != nil {
		return nil, err
	}

	preview := &RatePreview{
		FromRealm:  player.RealmIndex,
		ToRealm:    player.RealmIndex + 1,
		TargetName: target.Name,
		BaseRate:   target.SuccessRate,
		ExpNeeded:  target.ExpNeeded,
		ExpHave:    player.Experience,
	}

	if pillName != "" {
		pill, ok := r.pills[pillName]
		if !ok {
			return nil, &gameerrors.NotFoundError{Kind: "pill", Name: pillName}
		}
		preview.PillBonus = pillBonus(pill, target.SuccessRate)
	}

	effects, err := player.ActiveEffects()
	if err != nil {
		return nil, err
	}
	preview.EffectBonus = effectBonus(effects, now)
	preview.FinalRate = clampRate(preview.BaseRate + preview.PillBonus + preview.EffectBonus)
	return preview, nil
}

// Resolve: 돌파를 판정하고 결과를 플레이어 상태에 반영한다.
//
// 성공: 경지 +1, 경지 기준치 상승분만큼 능력치 가산(장비 보너스 보존), 영기 충전.
// 실패: 수련치 10% 상실 후 [DeathProbMin, DeathProbMax]에서 추첨한 확률로 사망 판정.
// 사망(Died)이면 호출자가 플레이어 행을 삭제해야 한다.
//
// pillName 이 비어 있지 않으면 단약 주머니에서 1개를 소모한다. 없으면 에러.
func (r *Resolver) Resolve(player *repository.Player, pillName string, now time.Time) (*Outcome, error) {
	target, err := r.checkEligibility(player)
	if err != nil {
		return nil, err
	}
	current, err := r.realms.At(player.RealmIndex)
	if err != nil {
		return nil, err
	}

	rate := target.SuccessRate

	if pillName != "" {
		pill, ok := r.pills[pillName]
		if !ok {
			return nil, &gameerrors.NotFoundError{Kind: "pill", Name: pillName}
		}
		if pill.Subtype != gamedata.PillSubtypeBreakthrough {
			return nil, &gameerrors.IneligibleError{
				Reason: pillName + " 은(는) 돌파에 쓸 수 있는 단약이 아닙니다.",
			}
		}
		bag, err := player.PillBag()
		if err != nil {
			return nil, err
		}
		if bag[pillName] <= 0 {
			return nil, &gameerrors.InsufficientResourceError{Resource: pillName, Need: 1, Have: 0}
		}
		bag[pillName]--
		if bag[pillName] == 0 {
			delete(bag, pillName)
		}
		if err := player.SetPillBag(bag); err != nil {
			return nil, err
		}
		rate += pillBonus(pill, target.SuccessRate)
	}

	effects, err := player.ActiveEffects()
	if err != nil {
		return nil, err
	}
	rate = clampRate(rate + effectBonus(effects, now))

	outcome := &Outcome{
		FromRealm: player.RealmIndex,
		Rate:      rate,
		PillUsed:  pillName,
	}

	if r.randFloat() < rate {
		outcome.Success = true
		outcome.ToRealm = player.RealmIndex + 1

		// 경지 기준치 차이만 가산한다. 장비/단약으로 얻은 수치는 그대로 남는다.
		outcome.MagicAttackGain = gainOf(current.BaseMagicAttack, target.BaseMagicAttack)
		outcome.PhysicalAttackGain = gainOf(current.BasePhysicalAttack, target.BasePhysicalAttack)
		outcome.MagicDefenseGain = gainOf(current.BaseMagicDefense, target.BaseMagicDefense)
		outcome.PhysicalDefenseGain = gainOf(current.BasePhysicalDefense, target.BasePhysicalDefense)
		outcome.MentalGain = gainOf(current.BaseMentalPower, target.BaseMentalPower)
		outcome.MaxSpiritGain = gainOf(current.BaseSpirit, target.BaseSpirit)

		player.RealmIndex = outcome.ToRealm
		player.MagicAttack += outcome.MagicAttackGain
		player.PhysicalAttack += outcome.PhysicalAttackGain
		player.MagicDefense += outcome.MagicDefenseGain
		player.PhysicalDefense += outcome.PhysicalDefenseGain
		player.MentalPower += outcome.MentalGain
		player.MaxSpirit += outcome.MaxSpiritGain
		player.Spirit = player.MaxSpirit
		return outcome, nil
	}

	outcome.ExpPenalty = int64(float64(player.Experience) * failureExpPenaltyRatio)
	player.Experience -= outcome.ExpPenalty

	outcome.DeathRate = r.deathProbMin + r.randFloat()*(r.deathProbMax-r.deathProbMin)
	if r.randFloat() < outcome.DeathRate {
		outcome.Died = true
	}
	return outcome, nil
}

// gainOf: 경지 기준치 상승분. 테이블이 역전되어 있어도 음수 가산은 하지 않는다.
func gainOf(oldBase, newBase int64) int64 {
	if newBase <= oldBase {
		return 0
	}
	return newBase - oldBase
}
