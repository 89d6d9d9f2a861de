package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/config"
	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
)

const (
	// DialectSQLite 는 지원하는 데이터베이스 방언 식별자다.
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"

	openRetryCount    = 5
	openRetryInterval = 2 * time.Second
)

// Repository: 게임 데이터베이스 접근 진입점.
type Repository struct {
	db      *gorm.DB
	dialect string
	logger  *slog.Logger
}

// Open: 설정에 따라 데이터베이스를 열고 연결을 검증한다. 일시 장애에 대비해 재시도한다.
//
// sqlite 경로는 _txlock=immediate 로 연다. 모든 쓰기 트랜잭션이 시작 시점부터
// 예약 락을 쥐므로, 같은 행을 읽고-갱신하는 두 구매가 교차할 수 없다.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		db  *gorm.DB
		err error
	)
	for attempt := 1; attempt <= openRetryCount; attempt++ {
		db, err = open(cfg)
		if err == nil {
			break
		}
		logger.Warn("db_open_retry", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(openRetryInterval):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open database failed after %d attempts: %w", openRetryCount, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB failed: %w", err)
	}
	if cfg.Driver == DialectSQLite {
		// 단일 파일 DB: 커넥션 하나로 직렬화해 SQLITE_BUSY 경합을 원천 차단한다.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database failed: %w", err)
	}

	return &Repository{db: db, dialect: cfg.Driver, logger: logger}, nil
}

func open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
	switch cfg.Driver {
	case DialectSQLite:
		dsn := cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
		return gorm.Open(sqlite.Open(dsn), gormCfg)
	case DialectPostgres:
		return gorm.Open(postgres.Open(cfg.DSN), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// NewWithDB: 이미 열린 GORM 핸들로 Repository 를 만든다. 테스트 전용.
func NewWithDB(db *gorm.DB, dialect string, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, dialect: dialect, logger: logger}
}

// DB: 내부 GORM 핸들을 반환한다. 마이그레이션 러너가 사용한다.
func (r *Repository) DB() *gorm.DB { return r.db }

// Dialect: 데이터베이스 방언 식별자를 반환한다.
func (r *Repository) Dialect() string { return r.dialect }

// Close: 내부 커넥션 풀을 닫는다.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Tx: 배타 트랜잭션 안에서만 쓸 수 있는 핸들. 읽기는 방언에 맞는 행 잠금을 동반한다.
type Tx struct {
	db      *gorm.DB
	dialect string
}

// ExclusiveTx: 배타 작업 단위를 연다. fn 이 에러를 반환하면 전체가 롤백된다.
//
// sqlite 에서는 DSN 의 _txlock=immediate 가 트랜잭션 자체를 배타로 만들고,
// postgres 에서는 Tx 의 행 조회가 SELECT ... FOR UPDATE 로 수행된다.
func (r *Repository) ExclusiveTx(ctx context.Context, fn func(tx *Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&Tx{db: db, dialect: r.dialect})
	})
}

// locked: 방언에 맞는 행 잠금 절을 적용한다.
func (t *Tx) locked() *gorm.DB {
	if t.dialect == DialectPostgres {
		return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return t.db
}

// GetPlayerForUpdate: 플레이어 행을 잠그고 읽는다. 없으면 NotFoundError.
func (t *Tx) GetPlayerForUpdate(userID string) (*Player, error) {
	var player Player
	err := t.locked().Where("user_id = ?", userID).First(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &gameerrors.NotFoundError{Kind: "player", Name: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("load player %s failed: %w", userID, err)
	}
	return &player, nil
}

// CreatePlayer: 새 플레이어 행을 삽입한다. 이미 존재하면 PlayerExistsError.
func (t *Tx) CreatePlayer(player *Player) error {
	var count int64
	if err := t.locked().Model(&Player{}).Where("user_id = ?", player.UserID).Count(&count).Error; err != nil {
		return fmt.Errorf("check player %s exists failed: %w", player.UserID, err)
	}
	if count > 0 {
		return &gameerrors.PlayerExistsError{UserID: player.UserID}
	}
	if err := t.db.Create(player).Error; err != nil {
		return fmt.Errorf("create player %s failed: %w", player.UserID, err)
	}
	return nil
}

// SavePlayer: 플레이어 행 전체를 갱신한다.
func (t *Tx) SavePlayer(player *Player) error {
	if err := t.db.Save(player).Error; err != nil {
		return fmt.Errorf("save player %s failed: %w", player.UserID, err)
	}
	return nil
}

// DeletePlayer: 플레이어 행을 삭제한다. (돌파 실패 사망)
func (t *Tx) DeletePlayer(userID string) error {
	if err := t.db.Where("user_id = ?", userID).Delete(&Player{}).Error; err != nil {
		return fmt.Errorf("delete player %s failed: %w", userID, err)
	}
	return nil
}

// GetStockForUpdate: 전각 재고 행을 잠그고 읽는다. 없으면 NotFoundError.
func (t *Tx) GetStockForUpdate(pavilionID string) (*ShopStock, error) {
	var stock ShopStock
	err := t.locked().Where("pavilion_id = ?", pavilionID).First(&stock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &gameerrors.NotFoundError{Kind: "pavilion", Name: pavilionID}
	}
	if err != nil {
		return nil, fmt.Errorf("load pavilion %s failed: %w", pavilionID, err)
	}
	return &stock, nil
}

// SaveStock: 전각 재고 행을 갱신한다.
func (t *Tx) SaveStock(stock *ShopStock) error {
	if err := t.db.Save(stock).Error; err != nil {
		return fmt.Errorf("save pavilion %s failed: %w", stock.PavilionID, err)
	}
	return nil
}

// GetPlayer: 잠금 없는 단건 조회. 안내/조회 명령 전용.
func (r *Repository) GetPlayer(ctx context.Context, userID string) (*Player, error) {
	var player Player
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &gameerrors.NotFoundError{Kind: "player", Name: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("load player %s failed: %w", userID, err)
	}
	return &player, nil
}

// GetStock: 잠금 없는 전각 조회.
func (r *Repository) GetStock(ctx context.Context, pavilionID string) (*ShopStock, error) {
	var stock ShopStock
	err := r.db.WithContext(ctx).Where("pavilion_id = ?", pavilionID).First(&stock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &gameerrors.NotFoundError{Kind: "pavilion", Name: pavilionID}
	}
	if err != nil {
		return nil, fmt.Errorf("load pavilion %s failed: %w", pavilionID, err)
	}
	return &stock, nil
}

// CountPlayers: 전체 플레이어 수를 반환한다. 관리 API 전용.
func (r *Repository) CountPlayers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Player{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count players failed: %w", err)
	}
	return count, nil
}

// SchemaVersion: 현재 스키마 버전을 반환한다. db_info 테이블이 없으면 0이다.
func (r *Repository) SchemaVersion(ctx context.Context) (int, error) {
	if !r.db.WithContext(ctx).Migrator().HasTable(&SchemaInfo{}) {
		return 0, nil
	}
	var info SchemaInfo
	err := r.db.WithContext(ctx).First(&info, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load schema version failed: %w", err)
	}
	return info.Version, nil
}
