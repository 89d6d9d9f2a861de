// Package migration: 스키마 버전 관리. 시작 시 현재 버전에서 최신 버전까지
// 등록된 단계를 오름차순으로 적용하며, 어느 단계든 실패하면 시작을 중단시킨다.
package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
)

// LatestVersion: 이 빌드가 요구하는 스키마 버전.
const LatestVersion = 10

// Step: 마이그레이션 한 단계. Apply 는 자체 트랜잭션 안에서 실행된다.
type Step struct {
	Version int
	Name    string
	Apply   func(tx *gorm.DB) error
}

// Runner: 마이그레이션 실행기.
type Runner struct {
	repo   *repository.Repository
	logger *slog.Logger
	steps  map[int]Step
}

// NewRunner: 기본 단계 레지스트리로 실행기를 만든다.
func NewRunner(repo *repository.Repository, logger *slog.Logger) *Runner {
	return NewRunnerWithSteps(repo, logger, DefaultSteps())
}

// NewRunnerWithSteps: 단계 레지스트리를 주입한다. 경계 동작 테스트 전용.
func NewRunnerWithSteps(repo *repository.Repository, logger *slog.Logger, steps map[int]Step) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{repo: repo, logger: logger, steps: steps}
}

// latest: 레지스트리의 최고 버전을 반환한다.
func (r *Runner) latest() int {
	max := 1
	for v := range r.steps {
		if v > max {
			max = v
		}
	}
	return max
}

// Run: 스키마를 최신 버전으로 끌어올린다.
//
// db_info 테이블이 없으면 신규 설치로 간주하여 전체 스키마를 생성하고 최신 버전을
// 기록한다. 그 외에는 기록된 버전 다음 단계부터 하나씩, 단계마다 독립 트랜잭션으로
// 적용한다. 버전 갱신은 단계와 같은 트랜잭션에서 이루어지므로, 실패한 단계는
// 버전을 올리지 못한 채 전체가 롤백된다.
func (r *Runner) Run(ctx context.Context) error {
	db := r.repo.DB().WithContext(ctx)

	if !db.Migrator().HasTable(&repository.SchemaInfo{}) {
		return r.freshInstall(db)
	}

	current, err := r.repo.SchemaVersion(ctx)
	if err != nil {
		return &gameerrors.MigrationError{Version: current, Err: err}
	}
	target := r.latest()
	if current >= target {
		r.logger.Info("schema_up_to_date", "version", current)
		return nil
	}

	r.logger.Info("schema_upgrade_start", "from", current, "to", target)
	for version := current + 1; version <= target; version++ {
		step, ok := r.steps[version]
		if !ok {
			return &gameerrors.MigrationError{
				Version: version,
				Err:     fmt.Errorf("no step registered for version %d", version),
			}
		}

		started := time.Now()
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := step.Apply(tx); err != nil {
				return err
			}
			return tx.Model(&repository.SchemaInfo{}).Where("id = ?", 1).Update("version", version).Error
		})
		if err != nil {
			r.logger.Error("schema_step_failed", "version", version, "name", step.Name, "error", err)
			return &gameerrors.MigrationError{Version: version, Err: err}
		}
		r.logger.Info("schema_step_applied",
			"version", version, "name", step.Name, "took_ms", time.Since(started).Milliseconds())
	}
	return nil
}

// freshInstall: 신규 설치. 전체 모델을 생성하고 전각 행을 시드한 뒤 최신 버전을 기록한다.
func (r *Runner) freshInstall(db *gorm.DB) error {
	target := r.latest()
	r.logger.Info("schema_fresh_install", "version", target)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Migrator().AutoMigrate(
			&repository.Player{},
			&repository.ShopStock{},
			&repository.SchemaInfo{},
		); err != nil {
			return fmt.Errorf("create tables failed: %w", err)
		}
		if err := seedPavilions(tx); err != nil {
			return err
		}
		return tx.Create(&repository.SchemaInfo{ID: 1, Version: target}).Error
	})
	if err != nil {
		return &gameerrors.MigrationError{Version: target, Err: err}
	}
	return nil
}

// seedPavilions: 세 전각 행을 빈 진열 상태로 만든다. LastRefreshAt 을 0으로 두어
// 첫 조회 시 즉시 갱신되게 한다.
func seedPavilions(tx *gorm.DB) error {
	for _, id := range repository.AllPavilionIDs() {
		var count int64
		if err := tx.Model(&repository.ShopStock{}).Where("pavilion_id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("check pavilion %s failed: %w", id, err)
		}
		if count > 0 {
			continue
		}
		stock := &repository.ShopStock{PavilionID: id, ListingsJSON: "[]"}
		if err := tx.Create(stock).Error; err != nil {
			return fmt.Errorf("seed pavilion %s failed: %w", id, err)
		}
	}
	return nil
}
