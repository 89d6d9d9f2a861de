package migration

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
)

// DefaultSteps: 운영 스키마의 단계 레지스트리. v1 은 초기 스키마 자체이므로 단계가 없다.
func DefaultSteps() map[int]Step {
	steps := []Step{
		{Version: 2, Name: "add_spirit_stones", Apply: stepAddSpiritStones},
		{Version: 3, Name: "add_pill_bag", Apply: stepAddPillBag},
		{Version: 4, Name: "add_storage_ring", Apply: stepAddStorageRing},
		{Version: 5, Name: "create_shop_stocks", Apply: stepCreateShopStocks},
		{Version: 6, Name: "add_equipment_slots", Apply: stepAddEquipmentSlots},
		{Version: 7, Name: "add_techniques", Apply: stepAddTechniques},
		{Version: 8, Name: "add_retreat_and_check_in", Apply: stepAddRetreatAndCheckIn},
		{Version: 9, Name: "add_active_effects_and_rename_pills", Apply: stepAddActiveEffects},
		{Version: 10, Name: "rebuild_players_table", Apply: stepRebuildPlayers},
	}
	registry := make(map[int]Step, len(steps))
	for _, s := range steps {
		registry[s.Version] = s
	}
	return registry
}

// addColumnIfMissing: 컬럼이 없을 때만 추가한다. 재시작으로 같은 단계가 다시 시도돼도 안전하다.
func addColumnIfMissing(tx *gorm.DB, table, column, ddl string) error {
	if tx.Migrator().HasColumn(table, column) {
		return nil
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, ddl)
	if err := tx.Exec(stmt).Error; err != nil {
		return fmt.Errorf("add column %s.%s failed: %w", table, column, err)
	}
	return nil
}

func stepAddSpiritStones(tx *gorm.DB) error {
	return addColumnIfMissing(tx, "players", "spirit_stones", "bigint NOT NULL DEFAULT 100")
}

func stepAddPillBag(tx *gorm.DB) error {
	return addColumnIfMissing(tx, "players", "pill_bag", "text NOT NULL DEFAULT '{}'")
}

func stepAddStorageRing(tx *gorm.DB) error {
	return addColumnIfMissing(tx, "players", "storage_ring", "text NOT NULL DEFAULT '{}'")
}

func stepCreateShopStocks(tx *gorm.DB) error {
	if !tx.Migrator().HasTable(&repository.ShopStock{}) {
		if err := tx.Migrator().CreateTable(&repository.ShopStock{}); err != nil {
			return fmt.Errorf("create shop_stocks failed: %w", err)
		}
	}
	return seedPavilions(tx)
}

func stepAddEquipmentSlots(tx *gorm.DB) error {
	for _, column := range []string{"weapon", "armor", "main_technique"} {
		if err := addColumnIfMissing(tx, "players", column, "text NOT NULL DEFAULT ''"); err != nil {
			return err
		}
	}
	return nil
}

func stepAddTechniques(tx *gorm.DB) error {
	return addColumnIfMissing(tx, "players", "techniques", "text NOT NULL DEFAULT '[]'")
}

func stepAddRetreatAndCheckIn(tx *gorm.DB) error {
	if err := addColumnIfMissing(tx, "players", "retreat_started_at", "datetime"); err != nil {
		return err
	}
	return addColumnIfMissing(tx, "players", "last_check_in_day", "text NOT NULL DEFAULT ''")
}

// legacyPillRenames: v9 에서 정규화된 구형 단약 이름.
var legacyPillRenames = map[string]string{
	"파경단":   "하품 파경단",
	"대파경단":  "중품 파경단",
	"극품파경단": "상품 파경단",
}

// stepAddActiveEffects: 활성 효과 컬럼을 추가하고, 단약 주머니의 구형 이름을 새 이름으로 바꾼다.
func stepAddActiveEffects(tx *gorm.DB) error {
	if err := addColumnIfMissing(tx, "players", "active_effects", "text NOT NULL DEFAULT '[]'"); err != nil {
		return err
	}

	type row struct {
		UserID  string
		PillBag string
	}
	var rows []row
	if err := tx.Table("players").Select("user_id", "pill_bag").Scan(&rows).Error; err != nil {
		return fmt.Errorf("scan pill bags failed: %w", err)
	}
	for _, r := range rows {
		if r.PillBag == "" || r.PillBag == "{}" {
			continue
		}
		bag := map[string]int64{}
		if err := json.Unmarshal([]byte(r.PillBag), &bag); err != nil {
			return fmt.Errorf("decode pill bag of %s failed: %w", r.UserID, err)
		}
		changed := false
		for oldName, newName := range legacyPillRenames {
			if qty, ok := bag[oldName]; ok {
				bag[newName] += qty
				delete(bag, oldName)
				changed = true
			}
		}
		if !changed {
			continue
		}
		data, err := json.Marshal(bag)
		if err != nil {
			return fmt.Errorf("encode pill bag of %s failed: %w", r.UserID, err)
		}
		if err := tx.Table("players").Where("user_id = ?", r.UserID).
			Update("pill_bag", string(data)).Error; err != nil {
			return fmt.Errorf("rewrite pill bag of %s failed: %w", r.UserID, err)
		}
	}
	return nil
}

// playerColumns: v10 재구축 후 players 테이블이 가져야 하는 컬럼 집합.
var playerColumns = []string{
	"user_id", "nickname",
	"realm_index", "experience", "spirit_stones",
	"spirit", "max_spirit",
	"magic_attack", "physical_attack", "magic_defense", "physical_defense",
	"mental_power",
	"weapon", "armor", "main_technique",
	"techniques", "pill_bag", "storage_ring", "active_effects",
	"retreat_started_at", "last_check_in_day",
	"created_at", "updated_at",
}

// legacyStatSplits: 구형 단일 공/방 컬럼 → 법술/물리 분리 컬럼. 재구축 전에
// 기존 값을 양쪽에 복사해 승계하고, 구형 컬럼은 재구축이 떨궈 낸다.
var legacyStatSplits = []struct {
	legacy string
	split  []string
}{
	{legacy: "attack", split: []string{"magic_attack", "physical_attack"}},
	{legacy: "defense", split: []string{"magic_defense", "physical_defense"}},
}

// stepRebuildPlayers: players 테이블을 현행 모델 스키마로 재구축한다.
// 구형 설치본에 남은 폐기 컬럼(level, gold 등)을 떨궈 내기 위한 섀도 테이블 방식이다.
// 기존 테이블과 새 모델의 교집합 컬럼만 복사하므로, 중간 버전 어디서 출발해도 안전하다.
func stepRebuildPlayers(tx *gorm.DB) error {
	existing, err := playerColumnSet(tx)
	if err != nil {
		return err
	}

	for _, s := range legacyStatSplits {
		if !existing[s.legacy] {
			continue
		}
		for _, column := range s.split {
			if existing[column] {
				continue
			}
			if err := addColumnIfMissing(tx, "players", column, "bigint NOT NULL DEFAULT 0"); err != nil {
				return err
			}
			stmt := fmt.Sprintf("UPDATE players SET %s = %s", column, s.legacy)
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("seed %s from %s failed: %w", column, s.legacy, err)
			}
			existing[column] = true
		}
	}

	var shared []string
	for _, column := range playerColumns {
		if existing[column] {
			shared = append(shared, column)
		}
	}
	if len(shared) == 0 {
		return fmt.Errorf("players table shares no columns with the current model")
	}

	if err := tx.Exec("ALTER TABLE players RENAME TO players_legacy").Error; err != nil {
		return fmt.Errorf("rename players failed: %w", err)
	}
	if err := tx.Migrator().CreateTable(&repository.Player{}); err != nil {
		return fmt.Errorf("create rebuilt players failed: %w", err)
	}

	columnList := strings.Join(shared, ", ")
	copyStmt := fmt.Sprintf("INSERT INTO players (%s) SELECT %s FROM players_legacy", columnList, columnList)
	if err := tx.Exec(copyStmt).Error; err != nil {
		return fmt.Errorf("copy players rows failed: %w", err)
	}
	if err := tx.Exec("DROP TABLE players_legacy").Error; err != nil {
		return fmt.Errorf("drop legacy players failed: %w", err)
	}
	return nil
}

// playerColumnSet: players 테이블의 현재 컬럼 이름 집합.
func playerColumnSet(tx *gorm.DB) (map[string]bool, error) {
	columnTypes, err := tx.Migrator().ColumnTypes("players")
	if err != nil {
		return nil, fmt.Errorf("inspect players columns failed: %w", err)
	}
	existing := make(map[string]bool, len(columnTypes))
	for _, ct := range columnTypes {
		existing[ct.Name()] = true
	}
	return existing, nil
}
