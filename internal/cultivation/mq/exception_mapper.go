package mq

import (
	"errors"
	"fmt"

	cerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/errors"
	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
)

// MapErrorMessage: 발생한 에러를 사용자에게 보여줄 안내 문장으로 바꾼다.
// 내부 오류는 상세를 숨기고 일반 안내만 내보낸다.
func MapErrorMessage(err error) string {
	var (
		ineligible   *gameerrors.IneligibleError
		insufficient *gameerrors.InsufficientResourceError
		notFound     *gameerrors.NotFoundError
		exists       *gameerrors.PlayerExistsError
		malformed    *cerrors.MalformedInputError
		lockErr      cerrors.LockError
		accessDenied cerrors.AccessDeniedError
	)

	switch {
	case errors.As(err, &ineligible):
		return ineligible.Reason

	case errors.As(err, &insufficient):
		return fmt.Sprintf("%s이(가) 부족합니다. (필요 %d, 보유 %d)",
			insufficient.Resource, insufficient.Need, insufficient.Have)

	case errors.As(err, &notFound):
		switch notFound.Kind {
		case "player":
			return "아직 입문하지 않았습니다. \"/수선 입문\" 으로 시작하세요."
		case "item":
			return fmt.Sprintf("%s 은(는) 찾을 수 없는 물품입니다.", notFound.Name)
		case "pill":
			return fmt.Sprintf("%s 이라는 단약은 없습니다.", notFound.Name)
		case "pavilion":
			return fmt.Sprintf("%s 이라는 전각은 없습니다. (단약각/무기각/만보각)", notFound.Name)
		case "gift":
			return "대기 중인 선물이 없습니다."
		case "slot":
			return "해제할 수 있는 부위는 무기/방어구/심법 입니다."
		default:
			return "찾을 수 없습니다."
		}

	case errors.As(err, &exists):
		return "이미 입문한 수련자입니다."

	case errors.As(err, &malformed):
		return malformed.Message

	case errors.As(err, &lockErr):
		return "이전 명령을 처리하는 중입니다. 잠시 후 다시 시도해 주세요."

	case errors.As(err, &accessDenied):
		return "이 채팅방에서는 사용할 수 없는 명령입니다."

	default:
		return "일시적인 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
	}
}
