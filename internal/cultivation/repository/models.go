// Package repository: GORM 기반 영속 계층. 플레이어/상점 재고/스키마 버전을 관리하며,
// 쓰기 경로는 전부 배타 트랜잭션(ExclusiveTx)을 통해서만 열린다.
package repository

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Player: 수련자 한 명의 전체 상태. user_id 가 기본 키다.
// 컬렉션 필드(단약 주머니, 저장 반지, 공법 목록, 활성 효과)는 JSON TEXT 컬럼으로 저장한다.
type Player struct {
	UserID   string `gorm:"primaryKey;column:user_id"`
	Nickname string `gorm:"column:nickname"`

	RealmIndex   int   `gorm:"column:realm_index"`
	Experience   int64 `gorm:"column:experience"`
	SpiritStones int64 `gorm:"column:spirit_stones"`

	Spirit          int64 `gorm:"column:spirit"`
	MaxSpirit       int64 `gorm:"column:max_spirit"`
	MagicAttack     int64 `gorm:"column:magic_attack"`
	PhysicalAttack  int64 `gorm:"column:physical_attack"`
	MagicDefense    int64 `gorm:"column:magic_defense"`
	PhysicalDefense int64 `gorm:"column:physical_defense"`
	MentalPower     int64 `gorm:"column:mental_power"`

	// 장착 중인 장비 (이름, 빈 문자열 = 미장착)
	Weapon        string `gorm:"column:weapon"`
	Armor         string `gorm:"column:armor"`
	MainTechnique string `gorm:"column:main_technique"`

	TechniquesJSON    string `gorm:"column:techniques;type:text"`
	PillBagJSON       string `gorm:"column:pill_bag;type:text"`
	StorageRingJSON   string `gorm:"column:storage_ring;type:text"`
	ActiveEffectsJSON string `gorm:"column:active_effects;type:text"`

	// 폐관 수련 시작 시각. nil 이면 폐관 중이 아니다.
	RetreatStartedAt *time.Time `gorm:"column:retreat_started_at"`
	// 마지막 출석일 ("2006-01-02", KST 기준)
	LastCheckInDay string `gorm:"column:last_check_in_day"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName: GORM 테이블 이름 오버라이드.
func (Player) TableName() string { return "players" }

// ActiveEffect: 비전 단약으로 부여된 한시 효과.
type ActiveEffect struct {
	Name              string    `json:"name"`
	BreakthroughBonus float64   `json:"breakthrough_bonus"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// PillBag: 단약 주머니를 역직렬화한다. 빈 컬럼은 빈 맵으로 취급한다.
func (p *Player) PillBag() (map[string]int64, error) {
	bag := map[string]int64{}
	if p.PillBagJSON == "" {
		return bag, nil
	}
	if err := json.Unmarshal([]byte(p.PillBagJSON), &bag); err != nil {
		return nil, fmt.Errorf("decode pill bag of %s failed: %w", p.UserID, err)
	}
	return bag, nil
}

// SetPillBag: 단약 주머니를 직렬화해 컬럼에 기록한다.
func (p *Player) SetPillBag(bag map[string]int64) error {
	data, err := json.Marshal(bag)
	if err != nil {
		return fmt.Errorf("encode pill bag of %s failed: %w", p.UserID, err)
	}
	p.PillBagJSON = string(data)
	return nil
}

// StorageRing: 저장 반지(재료/미장착 장비 보관함)를 역직렬화한다.
func (p *Player) StorageRing() (map[string]int64, error) {
	ring := map[string]int64{}
	if p.StorageRingJSON == "" {
		return ring, nil
	}
	if err := json.Unmarshal([]byte(p.StorageRingJSON), &ring); err != nil {
		return nil, fmt.Errorf("decode storage ring of %s failed: %w", p.UserID, err)
	}
	return ring, nil
}

// SetStorageRing: 저장 반지를 직렬화해 컬럼에 기록한다.
func (p *Player) SetStorageRing(ring map[string]int64) error {
	data, err := json.Marshal(ring)
	if err != nil {
		return fmt.Errorf("encode storage ring of %s failed: %w", p.UserID, err)
	}
	p.StorageRingJSON = string(data)
	return nil
}

// Techniques: 습득한 공법 목록을 역직렬화한다.
func (p *Player) Techniques() ([]string, error) {
	if p.TechniquesJSON == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(p.TechniquesJSON), &list); err != nil {
		return nil, fmt.Errorf("decode techniques of %s failed: %w", p.UserID, err)
	}
	return list, nil
}

// SetTechniques: 공법 목록을 직렬화해 컬럼에 기록한다.
func (p *Player) SetTechniques(list []string) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode techniques of %s failed: %w", p.UserID, err)
	}
	p.TechniquesJSON = string(data)
	return nil
}

// ActiveEffects: 활성 효과 목록을 역직렬화한다.
func (p *Player) ActiveEffects() ([]ActiveEffect, error) {
	if p.ActiveEffectsJSON == "" {
		return nil, nil
	}
	var list []ActiveEffect
	if err := json.Unmarshal([]byte(p.ActiveEffectsJSON), &list); err != nil {
		return nil, fmt.Errorf("decode active effects of %s failed: %w", p.UserID, err)
	}
	return list, nil
}

// SetActiveEffects: 활성 효과 목록을 직렬화해 컬럼에 기록한다.
func (p *Player) SetActiveEffects(list []ActiveEffect) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode active effects of %s failed: %w", p.UserID, err)
	}
	p.ActiveEffectsJSON = string(data)
	return nil
}

// Listing: 전각 진열대의 한 칸.
type Listing struct {
	ItemName string `json:"item_name"`
	Price    int64  `json:"price"`
	Stock    int64  `json:"stock"`
}

// PavilionID 상수. 명령어의 전각 이름과 일치한다.
const (
	PavilionPill   = "단약각"
	PavilionWeapon = "무기각"
	PavilionMisc   = "만보각"
)

// AllPavilionIDs: 전각 ID 목록을 진열 순서대로 반환한다.
func AllPavilionIDs() []string {
	return []string{PavilionPill, PavilionWeapon, PavilionMisc}
}

// ShopStock: 전각 하나의 현재 진열 상태.
type ShopStock struct {
	PavilionID    string    `gorm:"primaryKey;column:pavilion_id"`
	LastRefreshAt time.Time `gorm:"column:last_refresh_at"`
	ListingsJSON  string    `gorm:"column:listings;type:text"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

// TableName: GORM 테이블 이름 오버라이드.
func (ShopStock) TableName() string { return "shop_stocks" }

// Listings: 진열 목록을 역직렬화한다.
func (s *ShopStock) Listings() ([]Listing, error) {
	if s.ListingsJSON == "" {
		return nil, nil
	}
	var list []Listing
	if err := json.Unmarshal([]byte(s.ListingsJSON), &list); err != nil {
		return nil, fmt.Errorf("decode listings of %s failed: %w", s.PavilionID, err)
	}
	return list, nil
}

// SetListings: 진열 목록을 직렬화해 컬럼에 기록한다.
func (s *ShopStock) SetListings(list []Listing) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode listings of %s failed: %w", s.PavilionID, err)
	}
	s.ListingsJSON = string(data)
	return nil
}

// SchemaInfo: 스키마 버전 단일 행 테이블. ID 는 항상 1이다.
type SchemaInfo struct {
	ID      int `gorm:"primaryKey;column:id"`
	Version int `gorm:"column:version"`
}

// TableName: GORM 테이블 이름 오버라이드.
func (SchemaInfo) TableName() string { return "db_info" }
