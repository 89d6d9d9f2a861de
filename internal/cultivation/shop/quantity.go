// Package shop: 전각(상점) 로직. 진열 갱신과 원자적 구매를 담당한다.
package shop

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	cerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/errors"
)

// 한 번에 구매할 수 있는 최대 수량
const maxQuantityPerPurchase = 99

// 마지막 토큰이 수량인지 판별한다. "3", "x3", "X3", "×3" 형태를 허용한다.
var quantityTokenPattern = regexp.MustCompile(`^[xX×]?([0-9]+)$`)

// ParseQuantity: 구매 인자에서 아이템 이름과 수량을 분리한다.
//
// "청강검" → ("청강검", 1), "하품 파경단 3" → ("하품 파경단", 3), "축기단 x2" → ("축기단", 2).
// 전각 문자 숫자("３")도 폭 정규화를 거쳐 수량으로 인식한다. 아이템 이름에 공백이
// 있을 수 있으므로 마지막 토큰만 수량 후보로 본다.
func ParseQuantity(raw string) (string, int64, error) {
	normalized := strings.TrimSpace(width.Narrow.String(raw))
	if normalized == "" {
		return "", 0, &cerrors.MalformedInputError{Message: "구매할 아이템 이름이 없습니다."}
	}

	fields := strings.Fields(normalized)
	if len(fields) == 1 {
		return fields[0], 1, nil
	}

	last := fields[len(fields)-1]
	m := quantityTokenPattern.FindStringSubmatch(last)
	if m == nil {
		return strings.Join(fields, " "), 1, nil
	}

	qty, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || qty <= 0 {
		return "", 0, &cerrors.MalformedInputError{Message: "수량은 1 이상의 숫자여야 합니다."}
	}
	if qty > maxQuantityPerPurchase {
		return "", 0, &cerrors.MalformedInputError{Message: "한 번에 99개까지만 구매할 수 있습니다."}
	}

	name := strings.Join(fields[:len(fields)-1], " ")
	if name == "" {
		return "", 0, &cerrors.MalformedInputError{Message: "구매할 아이템 이름이 없습니다."}
	}
	return name, qty, nil
}
