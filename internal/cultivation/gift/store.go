// Package gift: 선물 제안 대기열. 제안은 프로세스 메모리에만 머무르며,
// 수락 시점에 실제 이전이 배타 트랜잭션으로 수행된다. 재시작하면 대기 중인
// 제안은 사라진다. 아이템은 보낸 쪽에서 아직 차감되지 않았으므로 유실은 없다.
package gift

import (
	"sync"
	"time"

	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
)

// Offer: 선물 제안 한 건.
type Offer struct {
	FromUserID   string
	FromNickname string
	ToUserID     string
	ItemName     string
	Quantity     int64
	ExpiresAt    time.Time
}

// Store: 수신자별 최대 1건의 제안을 보관한다.
type Store struct {
	mu     sync.Mutex
	ttl    time.Duration
	offers map[string]*Offer // key: 수신자 userID

	now func() time.Time
}

// NewStore: 제안 유효 시간으로 저장소를 만든다.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:    ttl,
		offers: make(map[string]*Offer),
		now:    time.Now,
	}
}

// WithClock: 시계를 교체한다. 테스트 전용.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Propose: 제안을 등록한다. 수신자에게 아직 유효한 제안이 있으면 거부한다.
func (s *Store) Propose(offer Offer) (*Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.offers[offer.ToUserID]; ok && existing.ExpiresAt.After(now) {
		return nil, &gameerrors.IneligibleError{
			Reason: "상대에게 이미 대기 중인 선물이 있습니다. 먼저 수락/거절을 기다려 주세요.",
		}
	}

	stored := offer
	stored.ExpiresAt = now.Add(s.ttl)
	s.offers[offer.ToUserID] = &stored
	return &stored, nil
}

// Peek: 수신자의 유효한 제안을 반환한다. 없거나 만료됐으면 false.
func (s *Store) Peek(toUserID string) (*Offer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, ok := s.offers[toUserID]
	if !ok || !offer.ExpiresAt.After(s.now()) {
		return nil, false
	}
	copied := *offer
	return &copied, true
}

// Take: 수신자의 제안을 꺼내 제거한다. 수락 처리의 진입점이다.
func (s *Store) Take(toUserID string) (*Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, ok := s.offers[toUserID]
	if !ok {
		return nil, &gameerrors.NotFoundError{Kind: "gift", Name: toUserID}
	}
	delete(s.offers, toUserID)
	if !offer.ExpiresAt.After(s.now()) {
		return nil, &gameerrors.IneligibleError{Reason: "선물 제안이 만료되었습니다."}
	}
	return offer, nil
}

// Restore: 수락 처리가 실패했을 때 제안을 되돌려 놓는다. 이미 새 제안이 있으면 버린다.
func (s *Store) Restore(offer *Offer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, occupied := s.offers[offer.ToUserID]; occupied {
		return
	}
	s.offers[offer.ToUserID] = offer
}

// Decline: 수신자의 제안을 거절로 제거하고 반환한다.
func (s *Store) Decline(toUserID string) (*Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, ok := s.offers[toUserID]
	if !ok || !offer.ExpiresAt.After(s.now()) {
		delete(s.offers, toUserID)
		return nil, &gameerrors.NotFoundError{Kind: "gift", Name: toUserID}
	}
	delete(s.offers, toUserID)
	return offer, nil
}

// Sweep: 만료된 제안을 정리하고 제거한 수를 반환한다. 주기 작업에서 부른다.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, offer := range s.offers {
		if !offer.ExpiresAt.After(now) {
			delete(s.offers, key)
			removed++
		}
	}
	return removed
}
