package shop

import (
	"fmt"
	"sort"
	"time"

	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/gamedata"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
)

// pavilionPool: 전각별 진열 후보 분류.
func pavilionPool(pavilionID string) []gamedata.ItemKind {
	switch pavilionID {
	case repository.PavilionPill:
		return []gamedata.ItemKind{gamedata.ItemKindPill, gamedata.ItemKindLegacyPill}
	case repository.PavilionWeapon:
		return []gamedata.ItemKind{
			gamedata.ItemKindWeapon, gamedata.ItemKindArmor,
			gamedata.ItemKindMainTechnique, gamedata.ItemKindTechnique,
		}
	case repository.PavilionMisc:
		return []gamedata.ItemKind{gamedata.ItemKindMaterial}
	default:
		return nil
	}
}

// refreshLocked: 진열이 갱신 주기를 넘겼으면 새로 추첨한다. 잠긴 재고 행을 제자리에서
// 수정만 하고, 저장은 호출자 몫이다. 갱신이 일어났는지 여부를 반환한다.
func (c *Coordinator) refreshLocked(stock *repository.ShopStock, now time.Time) (bool, error) {
	if now.Sub(stock.LastRefreshAt) < c.refreshInterval {
		return false, nil
	}

	pool := c.tables.ItemsOfKinds(pavilionPool(stock.PavilionID)...)
	if len(pool) == 0 {
		return false, fmt.Errorf("pavilion %s has no candidate items", stock.PavilionID)
	}
	// ItemsOfKinds 는 맵 순회 결과라 순서가 흔들린다. 추첨을 재현 가능하게 정렬부터 한다.
	sort.Slice(pool, func(i, j int) bool { return pool[i].Name < pool[j].Name })

	slots := c.slots
	if slots > len(pool) {
		slots = len(pool)
	}
	// 앞 slots 칸만 채우는 부분 Fisher-Yates
	for i := 0; i < slots; i++ {
		j := i + c.randIntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	listings := make([]repository.Listing, 0, slots)
	for _, item := range pool[:slots] {
		listings = append(listings, repository.Listing{
			ItemName: item.Name,
			Price:    item.Price,
			Stock:    item.Stock,
		})
	}
	if err := stock.SetListings(listings); err != nil {
		return false, err
	}
	stock.LastRefreshAt = now
	return true, nil
}
