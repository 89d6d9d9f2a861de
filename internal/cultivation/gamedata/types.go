// Package gamedata: 읽기 전용 게임 데이터 테이블(경지, 단약, 아이템 카탈로그).
// YAML 자산에서 로드되며, 로드 이후에는 어떤 컴포넌트도 이 테이블을 변경하지 않는다.
package gamedata

import "fmt"

// Realm: 경지(境界) 정의. 다음 경지로의 돌파 조건과 해당 경지의 기준 속성을 담는다.
// 공격/방어는 법술(법공·법방)과 물리(물공·물방)가 따로 오른다.
type Realm struct {
	Name                string  `yaml:"name"`
	ExpNeeded           int64   `yaml:"exp_needed"`   // 이 경지로 돌파하는 데 필요한 수련치
	SuccessRate         float64 `yaml:"success_rate"` // 이 경지로의 기본 돌파 성공률
	BaseMagicAttack     int64   `yaml:"base_magic_attack"`
	BasePhysicalAttack  int64   `yaml:"base_physical_attack"`
	BaseMagicDefense    int64   `yaml:"base_magic_defense"`
	BasePhysicalDefense int64   `yaml:"base_physical_defense"`
	BaseSpirit          int64   `yaml:"base_spirit"` // 경지 기준 영기 상한
	BaseMentalPower     int64   `yaml:"base_mental_power"`
}

// RealmTable: 오름차순으로 정렬된 경지 목록. 인덱스 0이 최하위 경지다.
type RealmTable []Realm

// MaxIndex: 최고 경지의 인덱스를 반환한다.
func (t RealmTable) MaxIndex() int { return len(t) - 1 }

// At: 인덱스 범위를 검사하며 경지를 반환한다.
func (t RealmTable) At(index int) (Realm, error) {
	if index < 0 || index >= len(t) {
		return Realm{}, fmt.Errorf("realm index out of range: %d (max=%d)", index, t.MaxIndex())
	}
	return t[index], nil
}

// NameOf: 인덱스의 경지 이름을 반환한다. 범위를 벗어나면 "?" 를 반환한다.
func (t RealmTable) NameOf(index int) string {
	if index < 0 || index >= len(t) {
		return "?"
	}
	return t[index].Name
}

// PillSubtype: 단약 하위 분류
type PillSubtype string

// PillSubtypeBreakthrough 는 단약 하위 분류 상수 목록이다.
const (
	PillSubtypeBreakthrough PillSubtype = "breakthrough" // 파경단: 돌파 성공률 가산
	PillSubtypeExp          PillSubtype = "exp"          // 수련치 회복/증가
	PillSubtypeUtility      PillSubtype = "utility"      // 기타 보조
)

// Pill: 단약 정의. 파경단은 BreakthroughBonus 와 MaxSuccessRate 상한을 가진다.
type Pill struct {
	Name              string      `yaml:"name"`
	Subtype           PillSubtype `yaml:"subtype"`
	BreakthroughBonus float64     `yaml:"breakthrough_bonus"`
	MaxSuccessRate    float64     `yaml:"max_success_rate"`
	Price             int64       `yaml:"price"`
	Description       string      `yaml:"description"`
}

// ItemKind: 아이템 분류. 배달 경로(DeliveryClass)를 결정한다.
type ItemKind string

// ItemKindWeapon 은 아이템 분류 상수 목록이다.
const (
	ItemKindWeapon        ItemKind = "weapon"
	ItemKindArmor         ItemKind = "armor"
	ItemKindMainTechnique ItemKind = "main_technique"
	ItemKindTechnique     ItemKind = "technique"
	ItemKindMaterial      ItemKind = "material"
	ItemKindPill          ItemKind = "pill"
	ItemKindLegacyPill    ItemKind = "legacy_pill"
)

// DeliveryClass: 구매 시 인벤토리로 전달되는 방식의 분류.
type DeliveryClass int

// DeliverEquipment 는 배달 경로 상수 목록이다.
const (
	DeliverUnknown      DeliveryClass = iota
	DeliverEquipment                  // 저장 반지(장비함)에 적재, 1회 1개 제한
	DeliverConsumable                 // 단약 주머니에 수량 누적
	DeliverMaterial                   // 저장 반지에 수량 누적
	DeliverLegacyEffect               // 구매 즉시 효과 적용, 인벤토리 전달 없음
)

// Delivery: 아이템 분류를 배달 경로로 변환한다. 구매 코디네이터는 이 값 하나로 분기한다.
func (k ItemKind) Delivery() DeliveryClass {
	switch k {
	case ItemKindWeapon, ItemKindArmor, ItemKindMainTechnique, ItemKindTechnique:
		return DeliverEquipment
	case ItemKindPill:
		return DeliverConsumable
	case ItemKindMaterial:
		return DeliverMaterial
	case ItemKindLegacyPill:
		return DeliverLegacyEffect
	default:
		return DeliverUnknown
	}
}

// KoreanName: 사용자 안내 메시지용 분류 이름.
func (k ItemKind) KoreanName() string {
	switch k {
	case ItemKindWeapon:
		return "무기"
	case ItemKindArmor:
		return "방어구"
	case ItemKindMainTechnique:
		return "심법"
	case ItemKindTechnique:
		return "공법"
	case ItemKindMaterial:
		return "재료"
	case ItemKindPill:
		return "단약"
	case ItemKindLegacyPill:
		return "비전 단약"
	default:
		return "물품"
	}
}

// EffectBundle: 비전 단약(legacy_pill)의 즉시 효과 묶음.
type EffectBundle struct {
	AddSpirit          int64   `yaml:"add_spirit"`           // 영기 회복/감소 (상한/0 클램프)
	AddMaxSpirit       int64   `yaml:"add_max_spirit"`       // 영기 상한 증가
	AddExperience      int64   `yaml:"add_experience"`       // 수련치 증가
	AddSpiritStones    int64   `yaml:"add_spirit_stones"`    // 영석 증감
	AddMagicAttack     int64   `yaml:"add_magic_attack"`     // 법술 공격 증가
	AddPhysicalAttack  int64   `yaml:"add_physical_attack"`  // 물리 공격 증가
	AddMagicDefense    int64   `yaml:"add_magic_defense"`    // 법술 방어 증가
	AddPhysicalDefense int64   `yaml:"add_physical_defense"` // 물리 방어 증가
	AddMentalPower     int64   `yaml:"add_mental_power"`     // 정신력 증가
	BreakthroughBonus  float64 `yaml:"breakthrough_bonus"`   // 한시적 돌파 성공률 가산
	BuffDurationSec    int64   `yaml:"buff_duration_sec"`    // 가산 효과 지속 시간 (초)
}

// Item: 상점/장비 아이템 정의.
type Item struct {
	Name        string   `yaml:"name"`
	Kind        ItemKind `yaml:"kind"`
	Price       int64    `yaml:"price"`
	Stock       int64    `yaml:"stock"` // 전각 목록에 오를 때의 기본 재고
	Description string   `yaml:"description"`

	// 장비 착용 시 적용되는 보너스
	MagicAttackBonus     int64 `yaml:"magic_attack_bonus"`
	PhysicalAttackBonus  int64 `yaml:"physical_attack_bonus"`
	MagicDefenseBonus    int64 `yaml:"magic_defense_bonus"`
	PhysicalDefenseBonus int64 `yaml:"physical_defense_bonus"`
	MentalBonus          int64 `yaml:"mental_bonus"`
	MaxSpiritBonus       int64 `yaml:"max_spirit_bonus"`

	// 비전 단약 전용 즉시 효과
	Effect *EffectBundle `yaml:"effect,omitempty"`
}
