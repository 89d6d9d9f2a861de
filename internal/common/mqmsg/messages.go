// Package mqmsg: 카카오 브리지와 주고받는 스트림 메시지의 와이어 형식.
// 인바운드 필드 키(room/text/sender/userId/threadId)는 브리지 쪽 계약이므로 바꾸지 않는다.
package mqmsg

import (
	"errors"
	"strings"
)

// ErrMissingChatID 는 인바운드 메시지 파싱 에러 목록이다.
var (
	ErrMissingChatID  = errors.New("missing chat id")
	ErrMissingContent = errors.New("missing content")
	ErrMissingUserID  = errors.New("missing user id")
)

// InboundMessage: 채팅방에서 들어온 메시지 한 건.
type InboundMessage struct {
	ChatID   string
	UserID   string
	Content  string
	Sender   *string // 표시 이름 (닉네임)
	ThreadID *string
}

// SenderName: 표시 이름을 반환한다. 없으면 userID 를 대신 쓴다.
func (m InboundMessage) SenderName() string {
	if m.Sender != nil && *m.Sender != "" {
		return *m.Sender
	}
	return m.UserID
}

// OutboundType: 응답 메시지 분류.
type OutboundType string

// OutboundFinal 는 응답 분류 상수 목록이다.
const (
	OutboundFinal OutboundType = "final"
	OutboundError OutboundType = "error"
)

// OutboundMessage: 채팅방으로 내보낼 응답 한 건.
type OutboundMessage struct {
	ChatID   string
	Text     string
	ThreadID *string
	Type     OutboundType
}

// NewFinal: 정상 응답 메시지를 만든다.
func NewFinal(chatID, text string, threadID *string) OutboundMessage {
	return OutboundMessage{ChatID: chatID, Text: text, ThreadID: threadID, Type: OutboundFinal}
}

// NewError: 에러 안내 메시지를 만든다.
func NewError(chatID, text string, threadID *string) OutboundMessage {
	return OutboundMessage{ChatID: chatID, Text: text, ThreadID: threadID, Type: OutboundError}
}

// ToStreamValues: XADD 필드-값 맵으로 변환한다.
func (m OutboundMessage) ToStreamValues() map[string]any {
	values := map[string]any{
		"chatId": m.ChatID,
		"text":   m.Text,
		"type":   string(m.Type),
	}
	if m.ThreadID != nil && strings.TrimSpace(*m.ThreadID) != "" {
		values["threadId"] = strings.TrimSpace(*m.ThreadID)
	}
	return values
}

// ParseInboundMessage: 스트림 필드 맵에서 인바운드 메시지를 만든다.
func ParseInboundMessage(fields map[string]string) (InboundMessage, error) {
	chatID := strings.TrimSpace(fields["room"])
	if chatID == "" {
		return InboundMessage{}, ErrMissingChatID
	}
	content := strings.TrimSpace(fields["text"])
	if content == "" {
		return InboundMessage{}, ErrMissingContent
	}
	userID := strings.TrimSpace(fields["userId"])
	if userID == "" {
		return InboundMessage{}, ErrMissingUserID
	}

	msg := InboundMessage{ChatID: chatID, UserID: userID, Content: content}
	if sender := strings.TrimSpace(fields["sender"]); sender != "" {
		msg.Sender = &sender
	}
	if threadID := strings.TrimSpace(fields["threadId"]); threadID != "" {
		msg.ThreadID = &threadID
	}
	return msg, nil
}
