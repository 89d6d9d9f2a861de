// Package errors: 봇 인프라스트럭처 계층에서 공용으로 사용되는 에러 타입들을 정의한다.
// 게임 도메인 에러는 internal/cultivation/errors 에서 확장한다.
package errors

import (
	"errors"
	"fmt"
)

// DatabaseError: 영속 저장소(SQLite/PostgreSQL) 작업 도중 발생한 에러
type DatabaseError struct {
	Operation string
	Err       error
}

func (e DatabaseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("db error operation=%s", e.Operation)
	}
	return fmt.Sprintf("db error operation=%s: %v", e.Operation, e.Err)
}

func (e DatabaseError) Unwrap() error { return e.Err }

// RedisError: Valkey(Redis) 작업을 수행하는 도중 발생한 에러
type RedisError struct {
	Operation string
	Err       error
}

func (e RedisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("redis error operation=%s", e.Operation)
	}
	return fmt.Sprintf("redis error operation=%s: %v", e.Operation, e.Err)
}

func (e RedisError) Unwrap() error { return e.Err }

// LockError: 채팅방 처리 락 획득 실패 시 발생하는 에러
type LockError struct {
	ChatID      string
	Description string
}

func (e LockError) Error() string {
	msg := e.Description
	if msg == "" {
		msg = "failed to acquire lock"
	}
	if e.ChatID != "" {
		msg = fmt.Sprintf("%s chat=%s", msg, e.ChatID)
	}
	return msg
}

// AccessDeniedError: 허용되지 않은 채팅방/사용자의 접근 시 발생하는 에러
type AccessDeniedError struct {
	Reason string
}

func (e AccessDeniedError) Error() string {
	if e.Reason == "" {
		return "access denied"
	}
	return fmt.Sprintf("access denied: %s", e.Reason)
}

// MalformedInputError: 명령어 인자 형식이 올바르지 않을 때 발생하는 에러
type MalformedInputError struct {
	Message string
}

func (e MalformedInputError) Error() string { return e.Message }

// IsExpectedUserBehavior: 에러가 사용자의 정상적인(예상된) 패턴 내의 실수인지 확인한다.
// 로그 레벨을 낮추고 친절한 안내 메시지로 변환하는 용도. 도메인 에러 타입은
// cultivation/errors 쪽에서 같은 이름의 함수로 확장한다.
func IsExpectedUserBehavior(err error) bool {
	if err == nil {
		return false
	}
	var malformed *MalformedInputError
	return errors.As(err, &malformed)
}
