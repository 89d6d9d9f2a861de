package gamedata

import "testing"

func TestLoad_EmbeddedAssets(t *testing.T) {
	tables, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if got := len(tables.Realms); got < 2 {
		t.Fatalf("expected at least 2 realms, got %d", got)
	}
	if tables.Realms[0].ExpNeeded != 0 {
		t.Fatalf("first realm must require 0 exp, got %d", tables.Realms[0].ExpNeeded)
	}
	for i := 1; i < len(tables.Realms); i++ {
		if tables.Realms[i].ExpNeeded <= tables.Realms[i-1].ExpNeeded {
			t.Fatalf("realm exp not increasing at index %d", i)
		}
	}

	if len(tables.Pills) == 0 {
		t.Fatalf("expected pills")
	}
	if len(tables.Items) == 0 {
		t.Fatalf("expected items")
	}
	for name, it := range tables.Items {
		if it.Kind.Delivery() == DeliverUnknown {
			t.Fatalf("item %s has unknown delivery class", name)
		}
	}
}

func TestItemKind_Delivery(t *testing.T) {
	cases := []struct {
		kind ItemKind
		want DeliveryClass
	}{
		{ItemKindWeapon, DeliverEquipment},
		{ItemKindArmor, DeliverEquipment},
		{ItemKindMainTechnique, DeliverEquipment},
		{ItemKindTechnique, DeliverEquipment},
		{ItemKindPill, DeliverConsumable},
		{ItemKindMaterial, DeliverMaterial},
		{ItemKindLegacyPill, DeliverLegacyEffect},
		{ItemKind("junk"), DeliverUnknown},
	}
	for _, tc := range cases {
		if got := tc.kind.Delivery(); got != tc.want {
			t.Errorf("kind %q: delivery=%v want=%v", tc.kind, got, tc.want)
		}
	}
}

func TestTables_ItemsOfKinds(t *testing.T) {
	tables, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	weapons := tables.ItemsOfKinds(ItemKindWeapon, ItemKindArmor, ItemKindMainTechnique, ItemKindTechnique)
	if len(weapons) == 0 {
		t.Fatalf("expected equipment pool to be non-empty")
	}
	for _, it := range weapons {
		if it.Kind.Delivery() != DeliverEquipment {
			t.Errorf("item %s leaked into equipment pool with kind %s", it.Name, it.Kind)
		}
	}
}

func TestTables_EquipmentBonus(t *testing.T) {
	tables := &Tables{
		Items: map[string]Item{
			"검": {Name: "검", Kind: ItemKindWeapon, PhysicalAttackBonus: 10, MentalBonus: 2},
			"갑": {Name: "갑", Kind: ItemKindArmor, PhysicalDefenseBonus: 7, MagicDefenseBonus: 3, MaxSpiritBonus: 100},
		},
	}
	total := tables.EquipmentBonus("검", "갑", "없는장비")
	want := BonusTotal{PhysicalAttack: 10, PhysicalDefense: 7, MagicDefense: 3, Mental: 2, MaxSpirit: 100}
	if total != want {
		t.Fatalf("unexpected bonus: got=%+v want=%+v", total, want)
	}
}

func TestRealmTable_At(t *testing.T) {
	table := RealmTable{{Name: "연기기"}, {Name: "축기기"}}
	if _, err := table.At(2); err == nil {
		t.Fatalf("expected out-of-range error")
	}
	r, err := table.At(1)
	if err != nil {
		t.Fatalf("at failed: %v", err)
	}
	if r.Name != "축기기" {
		t.Fatalf("unexpected realm: %s", r.Name)
	}
	if table.NameOf(5) != "?" {
		t.Fatalf("expected placeholder name for out-of-range index")
	}
}
