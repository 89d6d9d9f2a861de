package gamedata

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed assets/*.yaml
var defaultAssets embed.FS

// Tables: 로드된 전체 게임 데이터. 로드 이후 불변으로 취급한다.
type Tables struct {
	Realms RealmTable
	Pills  map[string]Pill
	Items  map[string]Item
}

type realmsFile struct {
	Realms []Realm `yaml:"realms"`
}

type pillsFile struct {
	Pills []Pill `yaml:"pills"`
}

type itemsFile struct {
	Items []Item `yaml:"items"`
}

// Load: 내장 기본 자산에서 게임 데이터를 로드한다.
func Load() (*Tables, error) {
	return loadFS(defaultAssets, "assets")
}

// LoadFromDir: 외부 디렉터리의 YAML 자산으로 내장 기본값을 대체한다.
// 운영 중 수치 조정 시 재빌드 없이 교체할 수 있게 한다.
func LoadFromDir(dir string) (*Tables, error) {
	return loadFS(os.DirFS(dir), ".")
}

func loadFS(fsys fs.FS, root string) (*Tables, error) {
	var rf realmsFile
	if err := readYAML(fsys, path.Join(root, "realms.yaml"), &rf); err != nil {
		return nil, err
	}
	var pf pillsFile
	if err := readYAML(fsys, path.Join(root, "pills.yaml"), &pf); err != nil {
		return nil, err
	}
	var itf itemsFile
	if err := readYAML(fsys, path.Join(root, "items.yaml"), &itf); err != nil {
		return nil, err
	}

	tables := &Tables{
		Realms: RealmTable(rf.Realms),
		Pills:  make(map[string]Pill, len(pf.Pills)),
		Items:  make(map[string]Item, len(itf.Items)),
	}
	for _, p := range pf.Pills {
		if _, dup := tables.Pills[p.Name]; dup {
			return nil, fmt.Errorf("duplicate pill name: %s", p.Name)
		}
		tables.Pills[p.Name] = p
	}
	for _, it := range itf.Items {
		if _, dup := tables.Items[it.Name]; dup {
			return nil, fmt.Errorf("duplicate item name: %s", it.Name)
		}
		tables.Items[it.Name] = it
	}

	if err := tables.validate(); err != nil {
		return nil, err
	}
	return tables, nil
}

func readYAML(fsys fs.FS, path string, out any) error {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("read game data %s failed: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse game data %s failed: %w", path, err)
	}
	return nil
}

func (t *Tables) validate() error {
	if len(t.Realms) < 2 {
		return fmt.Errorf("realm table too short: %d entries", len(t.Realms))
	}
	for i, r := range t.Realms {
		if r.Name == "" {
			return fmt.Errorf("realm %d has empty name", i)
		}
		if r.SuccessRate < 0 || r.SuccessRate > 1 {
			return fmt.Errorf("realm %s success_rate out of range: %f", r.Name, r.SuccessRate)
		}
		if i > 0 && r.ExpNeeded <= t.Realms[i-1].ExpNeeded {
			return fmt.Errorf("realm exp_needed not strictly increasing at %s", r.Name)
		}
	}
	for name, p := range t.Pills {
		if p.Subtype == PillSubtypeBreakthrough {
			if p.BreakthroughBonus <= 0 {
				return fmt.Errorf("breakthrough pill %s has no bonus", name)
			}
			if p.MaxSuccessRate <= 0 || p.MaxSuccessRate > 1 {
				return fmt.Errorf("breakthrough pill %s max_success_rate out of range: %f", name, p.MaxSuccessRate)
			}
		}
	}
	for name, it := range t.Items {
		if it.Kind.Delivery() == DeliverUnknown {
			return fmt.Errorf("item %s has unknown kind: %s", name, it.Kind)
		}
		if it.Price < 0 {
			return fmt.Errorf("item %s has negative price", name)
		}
		if it.Kind == ItemKindLegacyPill && it.Effect == nil {
			return fmt.Errorf("legacy pill %s has no effect bundle", name)
		}
		if it.Kind != ItemKindLegacyPill && it.Effect != nil {
			return fmt.Errorf("item %s carries an effect bundle but is not a legacy pill", name)
		}
	}
	return nil
}

// ItemsOfKinds: 주어진 분류에 속하는 아이템을 이름 순서와 무관하게 반환한다.
// 전각 목록 갱신 시 추출 풀로 쓰인다.
func (t *Tables) ItemsOfKinds(kinds ...ItemKind) []Item {
	want := make(map[ItemKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []Item
	for _, it := range t.Items {
		if want[it.Kind] {
			out = append(out, it)
		}
	}
	return out
}

// BonusTotal: 장비 이름 목록의 보너스 합계. 알 수 없는 이름은 무시한다.
type BonusTotal struct {
	MagicAttack     int64
	PhysicalAttack  int64
	MagicDefense    int64
	PhysicalDefense int64
	Mental          int64
	MaxSpirit       int64
}

// EquipmentBonus: 장비 이름 목록의 보너스 합계를 계산한다.
func (t *Tables) EquipmentBonus(names ...string) BonusTotal {
	var total BonusTotal
	for _, name := range names {
		it, ok := t.Items[name]
		if !ok {
			continue
		}
		total.MagicAttack += it.MagicAttackBonus
		total.PhysicalAttack += it.PhysicalAttackBonus
		total.MagicDefense += it.MagicDefenseBonus
		total.PhysicalDefense += it.PhysicalDefenseBonus
		total.Mental += it.MentalBonus
		total.MaxSpirit += it.MaxSpiritBonus
	}
	return total
}
