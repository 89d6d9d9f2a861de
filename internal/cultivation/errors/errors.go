// Package errors: 수선(修仙) 게임 도메인의 에러 분류를 정의한다.
//
// 비즈니스 규칙 위반(Ineligible*, InsufficientResource*, NotFound*)은 명령
// 핸들러 경계에서 안내 메시지로 변환되고, DataCorruptionError 는 로직 결함을
// 의미하므로 절대 삼켜지지 않는다. 마이그레이션 실패는 시작 단계에서 그대로
// 전파되어 프로세스를 중단시킨다.
package errors

import (
	"errors"
	"fmt"

	cerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/errors"
)

// IneligibleError: 비즈니스 규칙상 수행할 수 없는 요청. (돌파 조건 미달, 폐관 중 등)
// Reason 은 사용자에게 그대로 보여줄 수 있는 문장이어야 한다.
type IneligibleError struct {
	Reason string
}

func (e IneligibleError) Error() string { return e.Reason }

// InsufficientResourceError: 영석/재고 부족. 무엇이 얼마나 모자란지 함께 전달한다.
type InsufficientResourceError struct {
	Resource string // "영석", "재고", "수련치" 등
	Need     int64
	Have     int64
}

func (e InsufficientResourceError) Error() string {
	return fmt.Sprintf("insufficient %s: need=%d have=%d", e.Resource, e.Need, e.Have)
}

// Shortfall: 부족한 양을 반환한다.
func (e InsufficientResourceError) Shortfall() int64 {
	if e.Need <= e.Have {
		return 0
	}
	return e.Need - e.Have
}

// NotFoundError: 알 수 없는 플레이어/아이템/전각.
type NotFoundError struct {
	Kind string // "player", "item", "pavilion", "pill"
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// PlayerExistsError: 이미 입문한 사용자가 다시 입문을 시도한 경우.
type PlayerExistsError struct {
	UserID string
}

func (e PlayerExistsError) Error() string { return fmt.Sprintf("player exists: %s", e.UserID) }

// DataCorruptionError: 불변식 위반. (감소 후 음수 재고, 음수 영석 등)
// 로직 결함의 신호이므로 운영 데이터에서 조용히 보정하지 않고 크게 실패한다.
type DataCorruptionError struct {
	Invariant string
	Detail    string
}

func (e DataCorruptionError) Error() string {
	return fmt.Sprintf("data corruption: %s (%s)", e.Invariant, e.Detail)
}

// MigrationError: 스키마 마이그레이션 실패. 시작 단계에서 치명적이다.
type MigrationError struct {
	Version int
	Err     error
}

func (e MigrationError) Error() string {
	return fmt.Sprintf("schema migration to v%d failed: %v", e.Version, e.Err)
}

func (e MigrationError) Unwrap() error { return e.Err }

// IsExpectedUserBehavior: 사용자의 정상적인 패턴 내 실수(규칙 위반/부족/오타)인지 확인한다.
// 공통 인프라 타입 검사도 함께 수행한다.
func IsExpectedUserBehavior(err error) bool {
	if err == nil {
		return false
	}
	var (
		ineligible   *IneligibleError
		insufficient *InsufficientResourceError
		notFound     *NotFoundError
		exists       *PlayerExistsError
	)
	if errors.As(err, &ineligible) ||
		errors.As(err, &insufficient) ||
		errors.As(err, &notFound) ||
		errors.As(err, &exists) {
		return true
	}
	return cerrors.IsExpectedUserBehavior(err)
}
