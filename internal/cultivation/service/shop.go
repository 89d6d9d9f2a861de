package service

import (
	"context"
	"fmt"
	"strings"

	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/gamedata"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
)

// validPavilion: 전각 이름을 검증한다.
func validPavilion(name string) (string, error) {
	for _, id := range repository.AllPavilionIDs() {
		if id == name {
			return id, nil
		}
	}
	return "", &gameerrors.NotFoundError{Kind: "pavilion", Name: name}
}

// ShopListings: 전각 진열을 보여준다. (단약각/무기각/만보각)
// 갱신 주기가 지났으면 조회 시점에 재추첨된다.
func (s *Service) ShopListings(ctx context.Context, pavilionName string) (string, error) {
	pavilionID, err := validPavilion(pavilionName)
	if err != nil {
		return "", err
	}

	now := s.now()
	var listings []repository.Listing
	err = s.repo.ExclusiveTx(ctx, func(tx *repository.Tx) error {
		var err error
		listings, err = s.shop.Listings(tx, pavilionID, now)
		return err
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n", pavilionID)
	if len(listings) == 0 {
		b.WriteString("지금은 진열된 물품이 없습니다.")
		return b.String(), nil
	}
	for _, l := range listings {
		status := fmt.Sprintf("재고 %d", l.Stock)
		if l.Stock == 0 {
			status = "품절"
		}
		fmt.Fprintf(&b, "- %s · 영석 %d · %s\n", l.ItemName, l.Price, status)
		if item, ok := s.tables.Items[l.ItemName]; ok && item.Description != "" {
			fmt.Fprintf(&b, "  %s\n", item.Description)
		}
	}
	b.WriteString("\n\"/수선 구매 <전각> <아이템> [수량]\" 으로 구매할 수 있습니다.")
	return b.String(), nil
}

// Purchase: 전각에서 아이템을 구매한다. (구매 <전각> <아이템> [수량])
func (s *Service) Purchase(ctx context.Context, userID, pavilionName, rawArg string) (string, error) {
	pavilionID, err := validPavilion(pavilionName)
	if err != nil {
		return "", err
	}

	now := s.now()
	var result *purchaseView
	err = s.repo.ExclusiveTx(ctx, func(tx *repository.Tx) error {
		r, err := s.shop.Purchase(tx, userID, pavilionID, rawArg, now)
		if err != nil {
			return err
		}
		result = &purchaseView{r.ItemName, r.Quantity, r.TotalCost, r.RemainingStones, r.Delivery}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("item_purchased",
		"user_id", userID,
		"pavilion", pavilionID,
		"item", result.itemName,
		"quantity", result.quantity,
		"cost", result.totalCost,
	)

	var b strings.Builder
	fmt.Fprintf(&b, "%s x%d 을(를) 영석 %d 에 구매했습니다. (잔여 영석 %d)",
		result.itemName, result.quantity, result.totalCost, result.remainingStones)
	switch result.delivery {
	case gamedata.DeliverEquipment:
		b.WriteString("\n저장 반지에 넣어 두었습니다. \"/수선 장착\" 으로 착용하세요.")
	case gamedata.DeliverConsumable:
		b.WriteString("\n단약 주머니에 넣어 두었습니다.")
	case gamedata.DeliverMaterial:
		b.WriteString("\n저장 반지에 넣어 두었습니다.")
	case gamedata.DeliverLegacyEffect:
		b.WriteString("\n단약의 기운이 즉시 온몸으로 퍼졌습니다!")
	}
	return b.String(), nil
}

type purchaseView struct {
	itemName        string
	quantity        int64
	totalCost       int64
	remainingStones int64
	delivery        gamedata.DeliveryClass
}
