package service

import (
	"context"
	"fmt"
	"time"

	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/gamedata"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/gift"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/shop"
)

// inventoryOf: 아이템 분류에 맞는 인벤토리를 읽고 저장하는 접근자를 반환한다.
func inventoryOf(player *repository.Player, kind gamedata.ItemKind) (
	load func() (map[string]int64, error),
	save func(map[string]int64) error,
) {
	if kind.Delivery() == gamedata.DeliverConsumable {
		return player.PillBag, player.SetPillBag
	}
	return player.StorageRing, player.SetStorageRing
}

// OfferGift: 다른 수련자에게 아이템 선물을 제안한다. (선물 <상대> <아이템> [수량])
// 제안 시점에는 차감하지 않고 보유 여부만 확인한다. 실제 이전은 수락 때 일어난다.
func (s *Service) OfferGift(ctx context.Context, fromUserID, toUserID, rawArg string) (string, error) {
	if fromUserID == toUserID {
		return "", &gameerrors.IneligibleError{Reason: "자기 자신에게는 선물할 수 없습니다."}
	}

	itemName, quantity, err := shop.ParseQuantity(rawArg)
	if err != nil {
		return "", err
	}
	item, ok := s.tables.Items[itemName]
	if !ok {
		return "", &gameerrors.NotFoundError{Kind: "item", Name: itemName}
	}
	if item.Kind.Delivery() == gamedata.DeliverLegacyEffect {
		return "", &gameerrors.IneligibleError{Reason: "즉시 복용하는 단약은 선물할 수 없습니다."}
	}

	sender, err := s.repo.GetPlayer(ctx, fromUserID)
	if err != nil {
		return "", err
	}
	if sender.RetreatStartedAt != nil {
		return "", &gameerrors.IneligibleError{Reason: "폐관 수련 중에는 선물할 수 없습니다. 먼저 출관하세요."}
	}
	// 받는 쪽도 입문자여야 한다.
	if _, err := s.repo.GetPlayer(ctx, toUserID); err != nil {
		return "", err
	}

	load, _ := inventoryOf(sender, item.Kind)
	owned, err := load()
	if err != nil {
		return "", err
	}
	if owned[itemName] < quantity {
		return "", &gameerrors.InsufficientResourceError{
			Resource: itemName, Need: quantity, Have: owned[itemName],
		}
	}

	offer, err := s.gifts.Propose(gift.Offer{
		FromUserID:   fromUserID,
		FromNickname: sender.Nickname,
		ToUserID:     toUserID,
		ItemName:     itemName,
		Quantity:     quantity,
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("gift_offered",
		"from", fromUserID, "to", toUserID, "item", itemName, "quantity", quantity)
	return fmt.Sprintf(
		"%s 님에게 %s x%d 선물을 제안했습니다.\n상대가 %s 안에 \"/수선 수락\" 하면 전달됩니다.",
		toUserID, itemName, quantity, offer.ExpiresAt.Sub(s.now()).Round(time.Second),
	), nil
}

// AcceptGift: 대기 중인 선물을 수락한다. (수락)
//
// 제안은 큐에서 먼저 꺼내고, 이전은 배타 트랜잭션으로 수행한다. 보낸 쪽이 그사이
// 아이템을 써 버렸으면 이전은 실패하고 제안은 소멸한다. 인프라 오류라면 제안을
// 되돌려 놓아 다시 수락할 수 있게 한다.
func (s *Service) AcceptGift(ctx context.Context, toUserID string) (string, error) {
	offer, err := s.gifts.Take(toUserID)
	if err != nil {
		return "", err
	}

	item, ok := s.tables.Items[offer.ItemName]
	if !ok {
		return "", &gameerrors.NotFoundError{Kind: "item", Name: offer.ItemName}
	}

	err = s.repo.ExclusiveTx(ctx, func(tx *repository.Tx) error {
		sender, err := tx.GetPlayerForUpdate(offer.FromUserID)
		if err != nil {
			return err
		}
		recipient, err := tx.GetPlayerForUpdate(toUserID)
		if err != nil {
			return err
		}
		// 폐관 중인 행은 이전의 어느 쪽으로도 쓸 수 없다.
		if sender.RetreatStartedAt != nil {
			return &gameerrors.IneligibleError{Reason: "보낸 도우가 폐관 수련에 들어가 선물을 전달할 수 없습니다."}
		}
		if recipient.RetreatStartedAt != nil {
			return &gameerrors.IneligibleError{Reason: "폐관 수련 중에는 선물을 받을 수 없습니다. 먼저 출관하세요."}
		}

		loadFrom, saveFrom := inventoryOf(sender, item.Kind)
		fromInv, err := loadFrom()
		if err != nil {
			return err
		}
		if fromInv[offer.ItemName] < offer.Quantity {
			return &gameerrors.InsufficientResourceError{
				Resource: offer.ItemName, Need: offer.Quantity, Have: fromInv[offer.ItemName],
			}
		}
		fromInv[offer.ItemName] -= offer.Quantity
		if fromInv[offer.ItemName] == 0 {
			delete(fromInv, offer.ItemName)
		}
		if err := saveFrom(fromInv); err != nil {
			return err
		}

		loadTo, saveTo := inventoryOf(recipient, item.Kind)
		toInv, err := loadTo()
		if err != nil {
			return err
		}
		toInv[offer.ItemName] += offer.Quantity
		if err := saveTo(toInv); err != nil {
			return err
		}

		if err := tx.SavePlayer(sender); err != nil {
			return err
		}
		return tx.SavePlayer(recipient)
	})
	if err != nil {
		// 게임 규칙 위반(보낸 쪽 소진 등)은 제안 소멸, 인프라 오류는 복원
		if !gameerrors.IsExpectedUserBehavior(err) {
			s.gifts.Restore(offer)
		}
		return "", err
	}

	s.logger.Info("gift_accepted",
		"from", offer.FromUserID, "to", toUserID, "item", offer.ItemName, "quantity", offer.Quantity)
	return fmt.Sprintf("%s 님의 선물 %s x%d 을(를) 받았습니다!",
		offer.FromNickname, offer.ItemName, offer.Quantity), nil
}

// DeclineGift: 대기 중인 선물을 거절한다. (거절)
func (s *Service) DeclineGift(ctx context.Context, toUserID string) (string, error) {
	offer, err := s.gifts.Decline(toUserID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s 님의 선물 %s x%d 을(를) 거절했습니다.",
		offer.FromNickname, offer.ItemName, offer.Quantity), nil
}
