package shop

import (
	"math/rand/v2"
	"time"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/config"
	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/gamedata"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
)

// Coordinator: 전각 구매/조회 코디네이터. 모든 상태 변경은 호출자가 연
// 배타 트랜잭션(repository.Tx) 안에서 수행된다.
type Coordinator struct {
	tables          *gamedata.Tables
	slots           int
	refreshInterval time.Duration

	randIntN func(n int) int
}

// NewCoordinator: 게임 테이블과 규칙 수치로 코디네이터를 만든다.
func NewCoordinator(tables *gamedata.Tables, game config.GameConfig) *Coordinator {
	return &Coordinator{
		tables:          tables,
		slots:           game.PavilionSlotCount,
		refreshInterval: game.PavilionRefreshInterval,
		randIntN:        rand.IntN,
	}
}

// WithRand: 추첨용 난수원을 교체한 코디네이터를 반환한다. 테스트 전용.
func (c *Coordinator) WithRand(fn func(n int) int) *Coordinator {
	clone := *c
	clone.randIntN = fn
	return &clone
}

// PurchaseResult: 구매 한 건의 결과.
type PurchaseResult struct {
	ItemName  string
	Quantity  int64
	UnitPrice int64
	TotalCost int64

	Delivery        gamedata.DeliveryClass
	RemainingStones int64
	RemainingStock  int64

	// 비전 단약이 즉시 적용한 효과 (그 외에는 nil)
	EffectApplied *gamedata.EffectBundle
}

// Listings: 전각 진열을 반환한다. 갱신 주기를 넘겼으면 먼저 새로 추첨해 저장한다.
func (c *Coordinator) Listings(tx *repository.Tx, pavilionID string, now time.Time) ([]repository.Listing, error) {
	stock, err := tx.GetStockForUpdate(pavilionID)
	if err != nil {
		return nil, err
	}
	refreshed, err := c.refreshLocked(stock, now)
	if err != nil {
		return nil, err
	}
	if refreshed {
		if err := tx.SaveStock(stock); err != nil {
			return nil, err
		}
	}
	return stock.Listings()
}

// Purchase: 아이템 구매 한 건을 원자적으로 처리한다.
//
// 같은 트랜잭션 안에서 진열 갱신 → 재고 확인 → 재고 차감 → 대금 차감 → 배달이
// 이어지므로, 동시 구매 N 건 중 재고만큼만 성공하고 초과분은 재고 부족으로 실패한다.
// rawArg 는 "아이템이름 [수량]" 형식이다.
func (c *Coordinator) Purchase(tx *repository.Tx, userID, pavilionID, rawArg string, now time.Time) (*PurchaseResult, error) {
	itemName, quantity, err := ParseQuantity(rawArg)
	if err != nil {
		return nil, err
	}

	item, ok := c.tables.Items[itemName]
	if !ok {
		return nil, &gameerrors.NotFoundError{Kind: "item", Name: itemName}
	}
	delivery := item.Kind.Delivery()
	if delivery == gamedata.DeliverEquipment && quantity != 1 {
		return nil, &gameerrors.IneligibleError{
			Reason: item.Kind.KoreanName() + "은(는) 한 번에 하나씩만 구매할 수 있습니다.",
		}
	}

	stock, err := tx.GetStockForUpdate(pavilionID)
	if err != nil {
		return nil, err
	}
	if _, err := c.refreshLocked(stock, now); err != nil {
		return nil, err
	}
	listings, err := stock.Listings()
	if err != nil {
		return nil, err
	}

	slot := -1
	for i := range listings {
		if listings[i].ItemName == itemName {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, &gameerrors.NotFoundError{Kind: "item", Name: itemName}
	}
	listing := &listings[slot]

	if listing.Stock < quantity {
		return nil, &gameerrors.InsufficientResourceError{
			Resource: "재고", Need: quantity, Have: listing.Stock,
		}
	}

	player, err := tx.GetPlayerForUpdate(userID)
	if err != nil {
		return nil, err
	}
	if player.RetreatStartedAt != nil {
		return nil, &gameerrors.IneligibleError{
			Reason: "폐관 수련 중에는 물건을 살 수 없습니다. 먼저 출관하세요.",
		}
	}

	totalCost := listing.Price * quantity
	if player.SpiritStones < totalCost {
		return nil, &gameerrors.InsufficientResourceError{
			Resource: "영석", Need: totalCost, Have: player.SpiritStones,
		}
	}

	// 재고부터 차감하고 저장한다. 이후 단계가 실패하면 전체가 롤백된다.
	listing.Stock -= quantity
	if listing.Stock < 0 {
		return nil, &gameerrors.DataCorruptionError{
			Invariant: "pavilion stock must stay non-negative",
			Detail:    itemName,
		}
	}
	if err := stock.SetListings(listings); err != nil {
		return nil, err
	}
	if err := tx.SaveStock(stock); err != nil {
		return nil, err
	}

	player.SpiritStones -= totalCost
	if player.SpiritStones < 0 {
		return nil, &gameerrors.DataCorruptionError{
			Invariant: "spirit stones must stay non-negative",
			Detail:    player.UserID,
		}
	}

	result := &PurchaseResult{
		ItemName:       itemName,
		Quantity:       quantity,
		UnitPrice:      listing.Price,
		TotalCost:      totalCost,
		Delivery:       delivery,
		RemainingStock: listing.Stock,
	}

	if err := c.deliver(player, item, quantity, now, result); err != nil {
		return nil, err
	}
	result.RemainingStones = player.SpiritStones

	if err := tx.SavePlayer(player); err != nil {
		return nil, err
	}
	return result, nil
}

// deliver: 분류별 배달. 배달 경로 분기는 여기 한 곳뿐이다.
func (c *Coordinator) deliver(player *repository.Player, item gamedata.Item, quantity int64, now time.Time, result *PurchaseResult) error {
	switch item.Kind.Delivery() {
	case gamedata.DeliverEquipment, gamedata.DeliverMaterial:
		ring, err := player.StorageRing()
		if err != nil {
			return err
		}
		ring[item.Name] += quantity
		return player.SetStorageRing(ring)

	case gamedata.DeliverConsumable:
		bag, err := player.PillBag()
		if err != nil {
			return err
		}
		bag[item.Name] += quantity
		return player.SetPillBag(bag)

	case gamedata.DeliverLegacyEffect:
		for i := int64(0); i < quantity; i++ {
			if err := applyEffect(player, item, now); err != nil {
				return err
			}
		}
		result.EffectApplied = item.Effect
		return nil

	default:
		return &gameerrors.DataCorruptionError{
			Invariant: "item kind must map to a delivery class",
			Detail:    string(item.Kind),
		}
	}
}

// applyEffect: 비전 단약 효과를 즉시 적용한다. 영기는 [0, MaxSpirit] 로 잘린다.
func applyEffect(player *repository.Player, item gamedata.Item, now time.Time) error {
	effect := item.Effect
	if effect == nil {
		return &gameerrors.DataCorruptionError{
			Invariant: "legacy pill must carry an effect bundle",
			Detail:    item.Name,
		}
	}

	player.MaxSpirit += effect.AddMaxSpirit
	player.Spirit += effect.AddSpirit
	if player.Spirit > player.MaxSpirit {
		player.Spirit = player.MaxSpirit
	}
	if player.Spirit < 0 {
		player.Spirit = 0
	}
	player.Experience += effect.AddExperience
	player.SpiritStones += effect.AddSpiritStones
	player.MagicAttack += effect.AddMagicAttack
	player.PhysicalAttack += effect.AddPhysicalAttack
	player.MagicDefense += effect.AddMagicDefense
	player.PhysicalDefense += effect.AddPhysicalDefense
	player.MentalPower += effect.AddMentalPower

	if effect.BreakthroughBonus > 0 && effect.BuffDurationSec > 0 {
		effects, err := player.ActiveEffects()
		if err != nil {
			return err
		}
		effects = append(effects, repository.ActiveEffect{
			Name:              item.Name,
			BreakthroughBonus: effect.BreakthroughBonus,
			ExpiresAt:         now.Add(time.Duration(effect.BuffDurationSec) * time.Second),
		})
		if err := player.SetActiveEffects(effects); err != nil {
			return err
		}
	}
	return nil
}
