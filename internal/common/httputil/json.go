// Package httputil: goccy/go-json 기반의 HTTP 응답 헬퍼.
package httputil

import (
	"fmt"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
)

const (
	// ContentTypeJSON: JSON 응답을 위한 Content-Type 헤더 값
	ContentTypeJSON = "application/json"
	// HeaderAPIKey: 관리 API 키 인증 헤더 이름
	HeaderAPIKey = "X-API-Key"
)

// WriteJSON: 데이터를 JSON으로 인코딩하여 HTTP 응답으로 전송한다.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json failed: %w", err)
	}
	return nil
}

// ErrorResponse: 표준 에러 응답 구조체
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteErrorJSON: 에러 코드와 메시지를 포함한 표준 에러 응답을 전송한다.
func WriteErrorJSON(w http.ResponseWriter, status int, code string, message string) error {
	return WriteJSON(w, status, ErrorResponse{
		Error:   strings.TrimSpace(code),
		Message: strings.TrimSpace(message),
	})
}
