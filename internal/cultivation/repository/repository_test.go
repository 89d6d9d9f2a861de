package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
)

func newTestRepository(t *testing.T) *Repository {
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

	if err := db.AutoMigrate(&Player{}, &ShopStock{}, &SchemaInfo{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWithDB(db, DialectSQLite, logger)
}

func TestTx_CreateAndGetPlayer(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	player := &Player{
		UserID:       "user1",
		Nickname:     "운산",
		RealmIndex:   0,
		SpiritStones: 100,
		Spirit:       100,
		MaxSpirit:    100,
	}
	if err := player.SetPillBag(map[string]int64{"하품 파경단": 2}); err != nil {
		t.Fatalf("set pill bag failed: %v", err)
	}

	err := repo.ExclusiveTx(ctx, func(tx *Tx) error {
		return tx.CreatePlayer(player)
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	loaded, err := repo.GetPlayer(ctx, "user1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if loaded.Nickname != "운산" || loaded.SpiritStones != 100 {
		t.Fatalf("unexpected player: %+v", loaded)
	}
	bag, err := loaded.PillBag()
	if err != nil {
		t.Fatalf("pill bag failed: %v", err)
	}
	if bag["하품 파경단"] != 2 {
		t.Fatalf("unexpected pill bag: %v", bag)
	}
}

func TestTx_CreatePlayer_Duplicate(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	create := func() error {
		return repo.ExclusiveTx(ctx, func(tx *Tx) error {
			return tx.CreatePlayer(&Player{UserID: "user1"})
		})
	}
	if err := create(); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	err := create()
	var exists *gameerrors.PlayerExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("expected PlayerExistsError, got: %v", err)
	}
}

func TestTx_GetPlayerForUpdate_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.ExclusiveTx(context.Background(), func(tx *Tx) error {
		_, err := tx.GetPlayerForUpdate("ghost")
		return err
	})
	var notFound *gameerrors.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got: %v", err)
	}
}

func TestExclusiveTx_RollbackOnError(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := repo.ExclusiveTx(ctx, func(tx *Tx) error {
		if err := tx.CreatePlayer(&Player{UserID: "user1"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got: %v", err)
	}

	if _, err := repo.GetPlayer(ctx, "user1"); err == nil {
		t.Fatalf("expected player to be rolled back")
	}
}

func TestTx_DeletePlayer(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	err := repo.ExclusiveTx(ctx, func(tx *Tx) error {
		return tx.CreatePlayer(&Player{UserID: "user1"})
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err = repo.ExclusiveTx(ctx, func(tx *Tx) error {
		return tx.DeletePlayer("user1")
	})
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := repo.GetPlayer(ctx, "user1"); err == nil {
		t.Fatalf("expected player gone")
	}
}

func TestTx_StockRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	stock := &ShopStock{PavilionID: PavilionPill, LastRefreshAt: time.Now()}
	if err := stock.SetListings([]Listing{{ItemName: "축기단", Price: 120, Stock: 6}}); err != nil {
		t.Fatalf("set listings failed: %v", err)
	}
	err := repo.ExclusiveTx(ctx, func(tx *Tx) error {
		return tx.SaveStock(stock)
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	err = repo.ExclusiveTx(ctx, func(tx *Tx) error {
		loaded, err := tx.GetStockForUpdate(PavilionPill)
		if err != nil {
			return err
		}
		listings, err := loaded.Listings()
		if err != nil {
			return err
		}
		if len(listings) != 1 || listings[0].Stock != 6 {
			t.Fatalf("unexpected listings: %v", listings)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
}

func TestSchemaVersion_NoTable(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	repo := NewWithDB(db, DialectSQLite, slog.New(slog.NewTextHandler(io.Discard, nil)))

	version, err := repo.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("schema version failed: %v", err)
	}
	if version != 0 {
		t.Fatalf("expected version 0 on fresh database, got %d", version)
	}
}

func TestPlayer_JSONAccessors_EmptyColumns(t *testing.T) {
	p := &Player{UserID: "user1"}

	bag, err := p.PillBag()
	if err != nil || len(bag) != 0 {
		t.Fatalf("expected empty bag, got %v (%v)", bag, err)
	}
	ring, err := p.StorageRing()
	if err != nil || len(ring) != 0 {
		t.Fatalf("expected empty ring, got %v (%v)", ring, err)
	}
	techniques, err := p.Techniques()
	if err != nil || techniques != nil {
		t.Fatalf("expected nil techniques, got %v (%v)", techniques, err)
	}
	effects, err := p.ActiveEffects()
	if err != nil || effects != nil {
		t.Fatalf("expected nil effects, got %v (%v)", effects, err)
	}
}
