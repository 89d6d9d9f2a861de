package breakthrough

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/config"
	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/gamedata"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
)

func testTables() *gamedata.Tables {
	return &gamedata.Tables{
		Realms: gamedata.RealmTable{
			{Name: "연기기", ExpNeeded: 0, SuccessRate: 1.0, BaseMagicAttack: 8, BasePhysicalAttack: 10, BaseMagicDefense: 8, BasePhysicalDefense: 10, BaseSpirit: 100, BaseMentalPower: 10},
			{Name: "축기기", ExpNeeded: 100, SuccessRate: 0.5, BaseMagicAttack: 20, BasePhysicalAttack: 25, BaseMagicDefense: 18, BasePhysicalDefense: 22, BaseSpirit: 300, BaseMentalPower: 25},
			{Name: "결단기", ExpNeeded: 500, SuccessRate: 0.2, BaseMagicAttack: 48, BasePhysicalAttack: 60, BaseMagicDefense: 44, BasePhysicalDefense: 55, BaseSpirit: 900, BaseMentalPower: 60},
		},
		Pills: map[string]gamedata.Pill{
			"하품 파경단": {
				Name:              "하품 파경단",
				Subtype:           gamedata.PillSubtypeBreakthrough,
				BreakthroughBonus: 0.2,
				MaxSuccessRate:    0.6,
			},
			"취령단": {Name: "취령단", Subtype: gamedata.PillSubtypeExp},
		},
	}
}

func testGameConfig() config.GameConfig {
	return config.GameConfig{DeathProbMin: 0.01, DeathProbMax: 0.10}
}

// seqRand: 고정 수열을 차례로 돌려주는 난수원. 수열이 끝나면 마지막 값을 반복한다.
func seqRand(values ...float64) func() float64 {
	i := 0
	return func() float64 {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}
}

func newTestPlayer() *repository.Player {
	return &repository.Player{
		UserID:          "user1",
		RealmIndex:      0,
		Experience:      200,
		Spirit:          50,
		MaxSpirit:       100,
		MagicAttack:     8,
		PhysicalAttack:  17, // 기준 10 + 장비 7
		MagicDefense:    8,
		PhysicalDefense: 10,
		MentalPower:     10,
	}
}

func TestResolve_MaxTierIneligible(t *testing.T) {
	r := NewResolver(testTables(), testGameConfig())
	player := newTestPlayer()
	player.RealmIndex = 2

	_, err := r.Resolve(player, "", time.Now())
	var ineligible *gameerrors.IneligibleError
	if !errors.As(err, &ineligible) {
		t.Fatalf("expected IneligibleError, got: %v", err)
	}
}

func TestResolve_RetreatIneligible(t *testing.T) {
	r := NewResolver(testTables(), testGameConfig())
	player := newTestPlayer()
	startedAt := time.Now()
	player.RetreatStartedAt = &startedAt

	_, err := r.Resolve(player, "", time.Now())
	var ineligible *gameerrors.IneligibleError
	if !errors.As(err, &ineligible) {
		t.Fatalf("expected IneligibleError, got: %v", err)
	}
}

func TestResolve_InsufficientExp(t *testing.T) {
	r := NewResolver(testTables(), testGameConfig())
	player := newTestPlayer()
	player.Experience = 99

	_, err := r.Resolve(player, "", time.Now())
	var insufficient *gameerrors.InsufficientResourceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientResourceError, got: %v", err)
	}
	if insufficient.Shortfall() != 1 {
		t.Fatalf("expected shortfall 1, got %d", insufficient.Shortfall())
	}
}

func TestResolve_SuccessAppliesRealmGains(t *testing.T) {
	r := NewResolver(testTables(), testGameConfig()).WithRand(seqRand(0.0))
	player := newTestPlayer()

	outcome, err := r.Resolve(player, "", time.Now())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !outcome.Success || outcome.Died {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if player.RealmIndex != 1 {
		t.Fatalf("expected realm 1, got %d", player.RealmIndex)
	}
	// 기준치 상승분만 가산: 물공 10→25 는 +15, 장비 보너스 7은 보존된다.
	if player.PhysicalAttack != 32 {
		t.Fatalf("expected physical attack 32, got %d", player.PhysicalAttack)
	}
	if player.MagicAttack != 20 { // 8 + (20-8)
		t.Fatalf("expected magic attack 20, got %d", player.MagicAttack)
	}
	if player.MagicDefense != 18 || player.PhysicalDefense != 22 {
		t.Fatalf("expected defenses 18/22, got %d/%d", player.MagicDefense, player.PhysicalDefense)
	}
	if player.MaxSpirit != 300 {
		t.Fatalf("expected max spirit 300, got %d", player.MaxSpirit)
	}
	if player.Spirit != player.MaxSpirit {
		t.Fatalf("expected spirit refilled, got %d/%d", player.Spirit, player.MaxSpirit)
	}
	// 성공은 수련치를 깎지 않는다. 경지 문턱은 누적치 기준이다.
	if player.Experience != 200 {
		t.Fatalf("expected experience untouched, got %d", player.Experience)
	}
}

func TestResolve_FailureTakesExpPenalty(t *testing.T) {
	// 성공 추첨 실패(0.99) → 사망 확률 추첨(0.5 → 0.055) → 생존(0.99)
	r := NewResolver(testTables(), testGameConfig()).WithRand(seqRand(0.99, 0.5, 0.99))
	player := newTestPlayer()
	player.Experience = 205

	outcome, err := r.Resolve(player, "", time.Now())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if outcome.Success || outcome.Died {
		t.Fatalf("expected survived failure, got %+v", outcome)
	}
	if outcome.ExpPenalty != 20 { // 205 * 0.1 버림
		t.Fatalf("expected penalty 20, got %d", outcome.ExpPenalty)
	}
	if player.Experience != 185 {
		t.Fatalf("expected experience 185, got %d", player.Experience)
	}
	if outcome.DeathRate < 0.01 || outcome.DeathRate > 0.10 {
		t.Fatalf("death rate out of configured range: %f", outcome.DeathRate)
	}
	if player.RealmIndex != 0 {
		t.Fatalf("realm must not change on failure")
	}
}

func TestResolve_FailureDeath(t *testing.T) {
	// 성공 추첨 실패 → 사망 확률 최소치 추첨 → 사망 추첨 성공(0.0)
	r := NewResolver(testTables(), testGameConfig()).WithRand(seqRand(0.99, 0.0, 0.0))
	player := newTestPlayer()

	outcome, err := r.Resolve(player, "", time.Now())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !outcome.Died {
		t.Fatalf("expected death, got %+v", outcome)
	}
	if math.Abs(outcome.DeathRate-0.01) > 1e-9 {
		t.Fatalf("expected minimum death rate, got %f", outcome.DeathRate)
	}
}

func TestResolve_PillConsumedAndCapped(t *testing.T) {
	r := NewResolver(testTables(), testGameConfig()).WithRand(seqRand(0.0))
	player := newTestPlayer()
	if err := player.SetPillBag(map[string]int64{"하품 파경단": 1}); err != nil {
		t.Fatalf("set pill bag failed: %v", err)
	}

	outcome, err := r.Resolve(player, "하품 파경단", time.Now())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	// 기본 0.5 + 가산 0.2 = 0.7 이지만 단약 상한 0.6 에서 잘린다.
	if math.Abs(outcome.Rate-0.6) > 1e-9 {
		t.Fatalf("expected capped rate 0.6, got %f", outcome.Rate)
	}

	bag, err := player.PillBag()
	if err != nil {
		t.Fatalf("pill bag failed: %v", err)
	}
	if _, left := bag["하품 파경단"]; left {
		t.Fatalf("expected pill consumed, got %v", bag)
	}
}

func TestResolve_PillCapLowersRateAboveCap(t *testing.T) {
	// 기본 성공률 0.95 가 단약 상한 0.6 을 넘는 경지에서는 최종 성공률이
	// min(0.95 + 0.2, 0.6) = 0.6 으로 오히려 내려간다.
	tables := testTables()
	realms := append(gamedata.RealmTable{}, tables.Realms...)
	realms[1].SuccessRate = 0.95
	tables.Realms = realms

	r := NewResolver(tables, testGameConfig()).WithRand(seqRand(0.0))
	player := newTestPlayer()
	if err := player.SetPillBag(map[string]int64{"하품 파경단": 1}); err != nil {
		t.Fatalf("set pill bag failed: %v", err)
	}

	outcome, err := r.Resolve(player, "하품 파경단", time.Now())
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if math.Abs(outcome.Rate-0.6) > 1e-9 {
		t.Fatalf("expected rate lowered to cap 0.6, got %f", outcome.Rate)
	}

	preview, err := r.Preview(newTestPlayer(), "하품 파경단", time.Now())
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if math.Abs(preview.FinalRate-0.6) > 1e-9 {
		t.Fatalf("expected preview rate 0.6, got %f", preview.FinalRate)
	}
}

func TestResolve_PillMissing(t *testing.T) {
	r := NewResolver(testTables(), testGameConfig())
	player := newTestPlayer()

	_, err := r.Resolve(player, "하품 파경단", time.Now())
	var insufficient *gameerrors.InsufficientResourceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientResourceError, got: %v", err)
	}
}

func TestResolve_NonBreakthroughPillRejected(t *testing.T) {
	r := NewResolver(testTables(), testGameConfig())
	player := newTestPlayer()
	if err := player.SetPillBag(map[string]int64{"취령단": 3}); err != nil {
		t.Fatalf("set pill bag failed: %v", err)
	}

	_, err := r.Resolve(player, "취령단", time.Now())
	var ineligible *gameerrors.IneligibleError
	if !errors.As(err, &ineligible) {
		t.Fatalf("expected IneligibleError, got: %v", err)
	}
}

func TestResolve_ActiveEffectBonusAndExpiry(t *testing.T) {
	now := time.Now()
	r := NewResolver(testTables(), testGameConfig()).WithRand(seqRand(0.0))
	player := newTestPlayer()
	err := player.SetActiveEffects([]repository.ActiveEffect{
		{Name: "파경영액", BreakthroughBonus: 0.08, ExpiresAt: now.Add(time.Hour)},
		{Name: "만료된 효과", BreakthroughBonus: 0.5, ExpiresAt: now.Add(-time.Hour)},
	})
	if err != nil {
		t.Fatalf("set effects failed: %v", err)
	}

	outcome, err := r.Resolve(player, "", now)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if math.Abs(outcome.Rate-0.58) > 1e-9 {
		t.Fatalf("expected rate 0.58 (0.5 + 0.08, expired ignored), got %f", outcome.Rate)
	}
}

func TestPreview_MatchesResolveRate(t *testing.T) {
	r := NewResolver(testTables(), testGameConfig())
	player := newTestPlayer()

	preview, err := r.Preview(player, "", time.Now())
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if preview.TargetName != "축기기" || math.Abs(preview.FinalRate-0.5) > 1e-9 {
		t.Fatalf("unexpected preview: %+v", preview)
	}
	if preview.ExpNeeded != 100 || preview.ExpHave != 200 {
		t.Fatalf("unexpected exp preview: %+v", preview)
	}
}

func TestClampRate_Bounds(t *testing.T) {
	if clampRate(1.7) != 1 {
		t.Fatalf("expected clamp to 1")
	}
	if clampRate(-0.2) != 0 {
		t.Fatalf("expected clamp to 0")
	}
}

func TestResolve_SuccessRateDistribution(t *testing.T) {
	if testing.Short() {
		t.Skip("distribution test")
	}

	r := NewResolver(testTables(), testGameConfig())
	const trials = 50000
	successes, failures, deaths := 0, 0, 0
	for range trials {
		player := newTestPlayer()
		outcome, err := r.Resolve(player, "", time.Now())
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if outcome.Success {
			successes++
			continue
		}
		failures++
		if outcome.DeathRate < 0.01 || outcome.DeathRate > 0.10 {
			t.Fatalf("death rate out of range: %f", outcome.DeathRate)
		}
		if outcome.Died {
			deaths++
		}
	}

	got := float64(successes) / trials
	if math.Abs(got-0.5) > 0.02 {
		t.Fatalf("success fraction %f too far from 0.5", got)
	}

	// 실패분 중 실제 사망 비율은 사망 확률 구간 [0.01, 0.1] 안에 있어야 한다.
	// (평균 0.055, 표본 ~25000 이면 구간을 벗어날 일이 없다)
	deathFraction := float64(deaths) / float64(failures)
	if deathFraction < 0.01 || deathFraction > 0.10 {
		t.Fatalf("death fraction %f outside configured range [0.01, 0.10]", deathFraction)
	}
}
