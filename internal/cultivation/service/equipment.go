package service

import (
	"context"
	"fmt"
	"strings"

	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/gamedata"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
)

// slotOf: 장비 분류가 차지하는 슬롯을 가리키는 포인터를 반환한다.
func slotOf(player *repository.Player, kind gamedata.ItemKind) (*string, string) {
	switch kind {
	case gamedata.ItemKindWeapon:
		return &player.Weapon, "무기"
	case gamedata.ItemKindArmor:
		return &player.Armor, "방어구"
	case gamedata.ItemKindMainTechnique:
		return &player.MainTechnique, "심법"
	default:
		return nil, ""
	}
}

// applyItemBonus: 장비 보너스를 가감한다. sign 은 +1(장착) 또는 -1(해제).
func applyItemBonus(player *repository.Player, item gamedata.Item, sign int64) {
	player.MagicAttack += sign * item.MagicAttackBonus
	player.PhysicalAttack += sign * item.PhysicalAttackBonus
	player.MagicDefense += sign * item.MagicDefenseBonus
	player.PhysicalDefense += sign * item.PhysicalDefenseBonus
	player.MentalPower += sign * item.MentalBonus
	player.MaxSpirit += sign * item.MaxSpiritBonus
	if player.Spirit > player.MaxSpirit {
		player.Spirit = player.MaxSpirit
	}
}

// Equip: 저장 반지의 장비를 착용한다. (장착 <아이템>)
// 공법(technique)은 슬롯 없이 습득 목록에 들어가고, 같은 공법은 중복 습득할 수 없다.
func (s *Service) Equip(ctx context.Context, userID, itemName string) (string, error) {
	item, ok := s.tables.Items[itemName]
	if !ok {
		return "", &gameerrors.NotFoundError{Kind: "item", Name: itemName}
	}
	if item.Kind.Delivery() != gamedata.DeliverEquipment {
		return "", &gameerrors.IneligibleError{Reason: itemName + " 은(는) 착용할 수 있는 장비가 아닙니다."}
	}

	var replaced string
	err := s.repo.ExclusiveTx(ctx, func(tx *repository.Tx) error {
		player, err := tx.GetPlayerForUpdate(userID)
		if err != nil {
			return err
		}
		if player.RetreatStartedAt != nil {
			return &gameerrors.IneligibleError{Reason: "폐관 수련 중에는 장비를 조작할 수 없습니다. 먼저 출관하세요."}
		}

		ring, err := player.StorageRing()
		if err != nil {
			return err
		}
		if ring[itemName] <= 0 {
			return &gameerrors.InsufficientResourceError{Resource: itemName, Need: 1, Have: 0}
		}

		if item.Kind == gamedata.ItemKindTechnique {
			techniques, err := player.Techniques()
			if err != nil {
				return err
			}
			for _, learned := range techniques {
				if learned == itemName {
					return &gameerrors.IneligibleError{Reason: "이미 익힌 공법입니다."}
				}
			}
			if err := player.SetTechniques(append(techniques, itemName)); err != nil {
				return err
			}
		} else {
			slot, _ := slotOf(player, item.Kind)
			if *slot == itemName {
				return &gameerrors.IneligibleError{Reason: "이미 착용 중인 장비입니다."}
			}
			if *slot != "" {
				replaced = *slot
				if old, ok := s.tables.Items[replaced]; ok {
					applyItemBonus(player, old, -1)
				}
				ring[replaced]++
			}
			*slot = itemName
		}

		ring[itemName]--
		if ring[itemName] == 0 {
			delete(ring, itemName)
		}
		if err := player.SetStorageRing(ring); err != nil {
			return err
		}

		applyItemBonus(player, item, +1)
		return tx.SavePlayer(player)
	})
	if err != nil {
		return "", err
	}

	if item.Kind == gamedata.ItemKindTechnique {
		return fmt.Sprintf("%s 을(를) 익혔습니다!", itemName), nil
	}
	if replaced != "" {
		return fmt.Sprintf("%s 을(를) 착용했습니다. (%s 은(는) 저장 반지로)", itemName, replaced), nil
	}
	return fmt.Sprintf("%s 을(를) 착용했습니다.", itemName), nil
}

// Unequip: 착용 중인 장비를 벗어 저장 반지에 넣는다. (해제 <무기|방어구|심법>)
func (s *Service) Unequip(ctx context.Context, userID, slotName string) (string, error) {
	var kind gamedata.ItemKind
	switch slotName {
	case "무기":
		kind = gamedata.ItemKindWeapon
	case "방어구":
		kind = gamedata.ItemKindArmor
	case "심법":
		kind = gamedata.ItemKindMainTechnique
	default:
		return "", &gameerrors.NotFoundError{Kind: "slot", Name: slotName}
	}

	var removed string
	err := s.repo.ExclusiveTx(ctx, func(tx *repository.Tx) error {
		player, err := tx.GetPlayerForUpdate(userID)
		if err != nil {
			return err
		}
		if player.RetreatStartedAt != nil {
			return &gameerrors.IneligibleError{Reason: "폐관 수련 중에는 장비를 조작할 수 없습니다. 먼저 출관하세요."}
		}

		slot, korean := slotOf(player, kind)
		if *slot == "" {
			return &gameerrors.IneligibleError{Reason: "착용 중인 " + korean + "이(가) 없습니다."}
		}
		removed = *slot
		*slot = ""

		if item, ok := s.tables.Items[removed]; ok {
			applyItemBonus(player, item, -1)
		}

		ring, err := player.StorageRing()
		if err != nil {
			return err
		}
		ring[removed]++
		if err := player.SetStorageRing(ring); err != nil {
			return err
		}
		return tx.SavePlayer(player)
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s 을(를) 벗어 저장 반지에 넣었습니다.", removed), nil
}

// EquipmentInfo: 착용 장비와 저장 반지 내용을 보여준다. (내장비)
func (s *Service) EquipmentInfo(ctx context.Context, userID string) (string, error) {
	player, err := s.repo.GetPlayer(ctx, userID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("[착용 장비]\n")
	fmt.Fprintf(&b, "무기: %s\n", orNone(player.Weapon))
	fmt.Fprintf(&b, "방어구: %s\n", orNone(player.Armor))
	fmt.Fprintf(&b, "심법: %s", orNone(player.MainTechnique))

	techniques, err := player.Techniques()
	if err != nil {
		return "", err
	}
	if len(techniques) > 0 {
		b.WriteString("\n공법: " + strings.Join(techniques, ", "))
	}

	ring, err := player.StorageRing()
	if err != nil {
		return "", err
	}
	if len(ring) > 0 {
		b.WriteString("\n\n[저장 반지]")
		for name, qty := range ring {
			fmt.Fprintf(&b, "\n- %s x%d", name, qty)
		}
	}
	return b.String(), nil
}

func orNone(name string) string {
	if name == "" {
		return "(없음)"
	}
	return name
}
