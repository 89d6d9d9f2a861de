package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/breakthrough"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/config"
	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/gamedata"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
)

func testGameConfig() config.GameConfig {
	return config.GameConfig{
		DeathProbMin:            0.01,
		DeathProbMax:            0.10,
		RetreatExpPerMinute:     2,
		RetreatMinDuration:      time.Minute,
		CheckInSpiritStones:     50,
		CheckInExp:              10,
		PavilionRefreshInterval: 6 * time.Hour,
		PavilionSlotCount:       5,
		GiftTTL:                 5 * time.Minute,
	}
}

func newTestService(t *testing.T) (*Service, *time.Time) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&repository.Player{}, &repository.ShopStock{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	tables, err := gamedata.Load()
	if err != nil {
		t.Fatalf("load game data failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewWithDB(db, repository.DialectSQLite, logger)

	current := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	svc := New(repo, tables, testGameConfig(), logger).
		WithClock(func() time.Time { return current })
	return svc, &current
}

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

func mustJoin(t *testing.T, svc *Service, userID, nickname string) {
	t.Helper()
	if _, err := svc.BeginJourney(context.Background(), userID, nickname); err != nil {
		t.Fatalf("begin journey failed: %v", err)
	}
}

func TestBeginJourney(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	msg, err := svc.BeginJourney(ctx, "user1", "운산")
	if err != nil {
		t.Fatalf("begin journey failed: %v", err)
	}
	if !strings.Contains(msg, "운산") || !strings.Contains(msg, "연기기") {
		t.Fatalf("unexpected message: %s", msg)
	}

	_, err = svc.BeginJourney(ctx, "user1", "운산")
	var exists *gameerrors.PlayerExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("expected PlayerExistsError, got: %v", err)
	}
}

func TestPlayerInfo_UnknownPlayer(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.PlayerInfo(context.Background(), "ghost")
	var notFound *gameerrors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got: %v", err)
	}
}

func TestRetreatCycle(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	mustJoin(t, svc, "user1", "운산")

	if _, err := svc.StartRetreat(ctx, "user1"); err != nil {
		t.Fatalf("start retreat failed: %v", err)
	}

	// 폐관 중 중복 폐관은 거부
	_, err := svc.StartRetreat(ctx, "user1")
	var ineligible *gameerrors.IneligibleError
	if !errors.As(err, &ineligible) {
		t.Fatalf("expected IneligibleError, got: %v", err)
	}

	*clock = clock.Add(30 * time.Minute)

	msg, err := svc.EndRetreat(ctx, "user1")
	if err != nil {
		t.Fatalf("end retreat failed: %v", err)
	}
	if !strings.Contains(msg, "60") { // 30분 * 분당 2
		t.Fatalf("expected 60 exp in message: %s", msg)
	}

	player, err := svc.repo.GetPlayer(ctx, "user1")
	if err != nil {
		t.Fatalf("load player failed: %v", err)
	}
	if player.Experience != 60 || player.RetreatStartedAt != nil {
		t.Fatalf("unexpected player state: exp=%d retreat=%v", player.Experience, player.RetreatStartedAt)
	}
}

func TestEndRetreat_TooShort(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	mustJoin(t, svc, "user1", "운산")

	if _, err := svc.StartRetreat(ctx, "user1"); err != nil {
		t.Fatalf("start retreat failed: %v", err)
	}
	*clock = clock.Add(30 * time.Second)

	msg, err := svc.EndRetreat(ctx, "user1")
	if err != nil {
		t.Fatalf("end retreat failed: %v", err)
	}
	if !strings.Contains(msg, "짧아") {
		t.Fatalf("expected too-short notice: %s", msg)
	}
}

func TestCheckIn_OncePerDay(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	mustJoin(t, svc, "user1", "운산")

	if _, err := svc.CheckIn(ctx, "user1"); err != nil {
		t.Fatalf("check in failed: %v", err)
	}

	_, err := svc.CheckIn(ctx, "user1")
	var ineligible *gameerrors.IneligibleError
	if !errors.As(err, &ineligible) {
		t.Fatalf("expected IneligibleError on same day, got: %v", err)
	}

	*clock = clock.Add(24 * time.Hour)
	if _, err := svc.CheckIn(ctx, "user1"); err != nil {
		t.Fatalf("next-day check in failed: %v", err)
	}

	player, err := svc.repo.GetPlayer(ctx, "user1")
	if err != nil {
		t.Fatalf("load player failed: %v", err)
	}
	if player.SpiritStones != 100+50+50 {
		t.Fatalf("expected 200 stones, got %d", player.SpiritStones)
	}
}

// seedPavilionListing: 전각 진열을 직접 심는다. LastRefreshAt 을 현재로 두어
// 조회 중 재추첨이 끼어들지 않게 한다.
func seedPavilionListing(t *testing.T, svc *Service, now time.Time, listings []repository.Listing) {
	t.Helper()
	err := svc.repo.ExclusiveTx(context.Background(), func(tx *repository.Tx) error {
		stock := &repository.ShopStock{PavilionID: repository.PavilionPill, LastRefreshAt: now}
		if err := stock.SetListings(listings); err != nil {
			return err
		}
		return tx.SaveStock(stock)
	})
	if err != nil {
		t.Fatalf("seed pavilion failed: %v", err)
	}
}

func TestRetreatBlocksTradeAndEquipment(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	mustJoin(t, svc, "user1", "운산")
	mustJoin(t, svc, "user2", "청련")
	seedRingItem(t, svc, "user1", "청강검", 1)
	seedRingItem(t, svc, "user1", "영초 한 단", 3)
	seedPavilionListing(t, svc, *clock, []repository.Listing{{ItemName: "축기단", Price: 100, Stock: 5}})

	if _, err := svc.StartRetreat(ctx, "user1"); err != nil {
		t.Fatalf("start retreat failed: %v", err)
	}

	// 폐관 중에는 읽기와 출관만 허용된다. 교역/장비 조작은 전부 거부.
	attempts := map[string]func() error{
		"purchase": func() error {
			_, err := svc.Purchase(ctx, "user1", "단약각", "축기단")
			return err
		},
		"equip": func() error {
			_, err := svc.Equip(ctx, "user1", "청강검")
			return err
		},
		"unequip": func() error {
			_, err := svc.Unequip(ctx, "user1", "무기")
			return err
		},
		"offer_gift": func() error {
			_, err := svc.OfferGift(ctx, "user1", "user2", "영초 한 단")
			return err
		},
	}
	for name, attempt := range attempts {
		err := attempt()
		var ineligible *gameerrors.IneligibleError
		if !errors.As(err, &ineligible) {
			t.Errorf("%s during retreat: expected IneligibleError, got: %v", name, err)
		}
	}

	// 조회는 계속 가능하다.
	if _, err := svc.PlayerInfo(ctx, "user1"); err != nil {
		t.Fatalf("player info during retreat failed: %v", err)
	}

	player, err := svc.repo.GetPlayer(ctx, "user1")
	if err != nil {
		t.Fatalf("load player failed: %v", err)
	}
	if player.SpiritStones != 100 || player.Weapon != "" {
		t.Fatalf("retreat-blocked commands must not mutate: stones=%d weapon=%q", player.SpiritStones, player.Weapon)
	}
}

func TestRetreatBlocksGiftAccept(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustJoin(t, svc, "sender", "갑")
	mustJoin(t, svc, "recipient", "을")
	seedRingItem(t, svc, "sender", "영초 한 단", 3)

	if _, err := svc.OfferGift(ctx, "sender", "recipient", "영초 한 단"); err != nil {
		t.Fatalf("offer failed: %v", err)
	}
	if _, err := svc.StartRetreat(ctx, "recipient"); err != nil {
		t.Fatalf("start retreat failed: %v", err)
	}

	_, err := svc.AcceptGift(ctx, "recipient")
	var ineligible *gameerrors.IneligibleError
	if !errors.As(err, &ineligible) {
		t.Fatalf("expected IneligibleError, got: %v", err)
	}

	sender, err := svc.repo.GetPlayer(ctx, "sender")
	if err != nil {
		t.Fatalf("load sender failed: %v", err)
	}
	ring, _ := sender.StorageRing()
	if ring["영초 한 단"] != 3 {
		t.Fatalf("blocked transfer must not debit sender, got %v", ring)
	}
}

func TestBreakthrough_SuccessPersists(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustJoin(t, svc, "user1", "운산")

	// 수련치를 돌파 가능선까지 끌어올린다.
	err := svc.repo.ExclusiveTx(ctx, func(tx *repository.Tx) error {
		player, err := tx.GetPlayerForUpdate("user1")
		if err != nil {
			return err
		}
		player.Experience = 100
		return tx.SavePlayer(player)
	})
	if err != nil {
		t.Fatalf("seed exp failed: %v", err)
	}

	tables, _ := gamedata.Load()
	svc.WithResolver(breakthrough.NewResolver(tables, testGameConfig()).WithRand(seqRand(0.0)))

	msg, err := svc.Breakthrough(ctx, "user1", "")
	if err != nil {
		t.Fatalf("breakthrough failed: %v", err)
	}
	if !strings.Contains(msg, "성공") {
		t.Fatalf("expected success message: %s", msg)
	}

	player, err := svc.repo.GetPlayer(ctx, "user1")
	if err != nil {
		t.Fatalf("load player failed: %v", err)
	}
	if player.RealmIndex != 1 {
		t.Fatalf("expected realm 1 persisted, got %d", player.RealmIndex)
	}
}

func TestBreakthrough_DeathDeletesPlayer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustJoin(t, svc, "user1", "운산")

	err := svc.repo.ExclusiveTx(ctx, func(tx *repository.Tx) error {
		player, err := tx.GetPlayerForUpdate("user1")
		if err != nil {
			return err
		}
		player.Experience = 100
		return tx.SavePlayer(player)
	})
	if err != nil {
		t.Fatalf("seed exp failed: %v", err)
	}

	tables, _ := gamedata.Load()
	// 성공 실패 → 사망 확률 추첨 → 사망
	svc.WithResolver(breakthrough.NewResolver(tables, testGameConfig()).WithRand(seqRand(0.99, 0.5, 0.0)))

	msg, err := svc.Breakthrough(ctx, "user1", "")
	if err != nil {
		t.Fatalf("breakthrough failed: %v", err)
	}
	if !strings.Contains(msg, "산화") {
		t.Fatalf("expected death message: %s", msg)
	}

	_, err = svc.repo.GetPlayer(ctx, "user1")
	var notFound *gameerrors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected player row deleted, got: %v", err)
	}
}

func seedRingItem(t *testing.T, svc *Service, userID, itemName string, qty int64) {
	t.Helper()
	err := svc.repo.ExclusiveTx(context.Background(), func(tx *repository.Tx) error {
		player, err := tx.GetPlayerForUpdate(userID)
		if err != nil {
			return err
		}
		ring, err := player.StorageRing()
		if err != nil {
			return err
		}
		ring[itemName] += qty
		if err := player.SetStorageRing(ring); err != nil {
			return err
		}
		return tx.SavePlayer(player)
	})
	if err != nil {
		t.Fatalf("seed ring failed: %v", err)
	}
}

func TestEquipAndUnequip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustJoin(t, svc, "user1", "운산")
	seedRingItem(t, svc, "user1", "청강검", 1)

	before, err := svc.repo.GetPlayer(ctx, "user1")
	if err != nil {
		t.Fatalf("load player failed: %v", err)
	}

	if _, err := svc.Equip(ctx, "user1", "청강검"); err != nil {
		t.Fatalf("equip failed: %v", err)
	}

	player, err := svc.repo.GetPlayer(ctx, "user1")
	if err != nil {
		t.Fatalf("load player failed: %v", err)
	}
	if player.Weapon != "청강검" {
		t.Fatalf("expected weapon equipped, got %q", player.Weapon)
	}
	if player.PhysicalAttack != before.PhysicalAttack+15 {
		t.Fatalf("expected physical attack +15, got %d → %d", before.PhysicalAttack, player.PhysicalAttack)
	}

	if _, err := svc.Unequip(ctx, "user1", "무기"); err != nil {
		t.Fatalf("unequip failed: %v", err)
	}
	player, err = svc.repo.GetPlayer(ctx, "user1")
	if err != nil {
		t.Fatalf("load player failed: %v", err)
	}
	if player.Weapon != "" || player.PhysicalAttack != before.PhysicalAttack {
		t.Fatalf("expected bonuses reverted, got weapon=%q attack=%d", player.Weapon, player.PhysicalAttack)
	}
	ring, err := player.StorageRing()
	if err != nil {
		t.Fatalf("ring failed: %v", err)
	}
	if ring["청강검"] != 1 {
		t.Fatalf("expected item back in ring, got %v", ring)
	}
}

func TestEquip_NotOwned(t *testing.T) {
	svc, _ := newTestService(t)
	mustJoin(t, svc, "user1", "운산")

	_, err := svc.Equip(context.Background(), "user1", "청강검")
	var insufficient *gameerrors.InsufficientResourceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientResourceError, got: %v", err)
	}
}

func TestGiftFlow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustJoin(t, svc, "sender", "갑")
	mustJoin(t, svc, "recipient", "을")
	seedRingItem(t, svc, "sender", "영초 한 단", 5)

	if _, err := svc.OfferGift(ctx, "sender", "recipient", "영초 한 단 3"); err != nil {
		t.Fatalf("offer failed: %v", err)
	}

	msg, err := svc.AcceptGift(ctx, "recipient")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if !strings.Contains(msg, "영초 한 단") {
		t.Fatalf("unexpected message: %s", msg)
	}

	sender, err := svc.repo.GetPlayer(ctx, "sender")
	if err != nil {
		t.Fatalf("load sender failed: %v", err)
	}
	senderRing, _ := sender.StorageRing()
	if senderRing["영초 한 단"] != 2 {
		t.Fatalf("expected 2 left on sender, got %v", senderRing)
	}

	recipient, err := svc.repo.GetPlayer(ctx, "recipient")
	if err != nil {
		t.Fatalf("load recipient failed: %v", err)
	}
	recipientRing, _ := recipient.StorageRing()
	if recipientRing["영초 한 단"] != 3 {
		t.Fatalf("expected 3 delivered, got %v", recipientRing)
	}
}

func TestGift_SenderSpentItemsBeforeAccept(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustJoin(t, svc, "sender", "갑")
	mustJoin(t, svc, "recipient", "을")
	seedRingItem(t, svc, "sender", "영초 한 단", 3)

	if _, err := svc.OfferGift(ctx, "sender", "recipient", "영초 한 단 3"); err != nil {
		t.Fatalf("offer failed: %v", err)
	}

	// 보낸 쪽이 제안 뒤 아이템을 비운다.
	err := svc.repo.ExclusiveTx(ctx, func(tx *repository.Tx) error {
		player, err := tx.GetPlayerForUpdate("sender")
		if err != nil {
			return err
		}
		if err := player.SetStorageRing(map[string]int64{}); err != nil {
			return err
		}
		return tx.SavePlayer(player)
	})
	if err != nil {
		t.Fatalf("drain sender failed: %v", err)
	}

	_, err = svc.AcceptGift(ctx, "recipient")
	var insufficient *gameerrors.InsufficientResourceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientResourceError, got: %v", err)
	}

	// 규칙 위반으로 실패한 제안은 소멸한다.
	if _, err := svc.AcceptGift(ctx, "recipient"); err == nil {
		t.Fatalf("offer must be consumed")
	}
}

func TestGift_SelfGiftRejected(t *testing.T) {
	svc, _ := newTestService(t)
	mustJoin(t, svc, "user1", "운산")

	_, err := svc.OfferGift(context.Background(), "user1", "user1", "영초 한 단")
	var ineligible *gameerrors.IneligibleError
	if !errors.As(err, &ineligible) {
		t.Fatalf("expected IneligibleError, got: %v", err)
	}
}
