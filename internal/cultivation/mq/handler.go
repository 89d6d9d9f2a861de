package mq

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	commonconfig "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/config"
	commonmq "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/mq"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/mqmsg"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/processinglock"
	gameerrors "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/errors"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/service"
)

const helpText = `[수선(修仙) 봇]
/수선 입문 [닉네임] - 수선의 길에 입문
/수선 내정보 - 내 상태 확인
/수선 폐관 · 출관 - 폐관 수련 시작/종료
/수선 출석 - 하루 한 번 출석 보상
/수선 돌파 [단약] - 경지 돌파 시도
/수선 돌파정보 [단약] - 돌파 성공률 확인
/수선 단약각 · 무기각 · 만보각 - 전각 구경
/수선 구매 <전각> <아이템> [수량] - 구매
/수선 장착 <아이템> · 해제 <부위> · 내장비
/수선 선물 <상대> <아이템> [수량] · 수락 · 거절`

// CommandHandler: 인바운드 메시지를 명령으로 처리하고 응답을 발행한다.
type CommandHandler struct {
	parser  *CommandParser
	svc     *service.Service
	replies *commonmq.ReplyPublisher
	locks   *processinglock.Service
	access  commonconfig.AccessConfig
	logger  *slog.Logger
}

// NewCommandHandler: 핸들러를 만든다.
func NewCommandHandler(
	parser *CommandParser,
	svc *service.Service,
	replies *commonmq.ReplyPublisher,
	locks *processinglock.Service,
	access commonconfig.AccessConfig,
	logger *slog.Logger,
) *CommandHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandHandler{
		parser:  parser,
		svc:     svc,
		replies: replies,
		locks:   locks,
		access:  access,
		logger:  logger,
	}
}

// HandleStreamMessage: 스트림 메시지 한 건을 처리한다. 파싱 불가 메시지는 버린다.
func (h *CommandHandler) HandleStreamMessage(ctx context.Context, msg commonmq.XMessage) error {
	inbound, err := mqmsg.ParseInboundMessage(msg.Values)
	if err != nil {
		h.logger.Warn("message_parsing_failed", "id", msg.ID, "err", err)
		return nil
	}
	h.HandleMessage(ctx, inbound)
	return nil
}

// allowed: 화이트리스트/차단 목록 검사. 허용 목록이 비어 있으면 모든 방을 허용한다.
func (h *CommandHandler) allowed(inbound mqmsg.InboundMessage) bool {
	if slices.Contains(h.access.BlockedUserIDs, inbound.UserID) {
		return false
	}
	if len(h.access.AllowedChatIDs) == 0 {
		return true
	}
	return slices.Contains(h.access.AllowedChatIDs, inbound.ChatID)
}

// HandleMessage: 명령 한 건을 처리한다. 명령이 아닌 메시지는 무시한다.
func (h *CommandHandler) HandleMessage(ctx context.Context, inbound mqmsg.InboundMessage) {
	cmd := h.parser.Parse(inbound.Content)
	if cmd == nil {
		return
	}
	if !h.allowed(inbound) {
		h.logger.Debug("command_ignored_access", "chat_id", inbound.ChatID, "user_id", inbound.UserID)
		return
	}

	if err := h.locks.Start(ctx, inbound.ChatID); err != nil {
		if errors.Is(err, processinglock.ErrAlreadyProcessing) {
			h.reply(ctx, inbound, "이전 명령을 처리하는 중입니다. 잠시 후 다시 시도해 주세요.", true)
			return
		}
		h.logger.Error("processing_lock_failed", "chat_id", inbound.ChatID, "err", err)
		return
	}
	defer func() {
		if err := h.locks.Finish(context.WithoutCancel(ctx), inbound.ChatID); err != nil {
			h.logger.Warn("processing_unlock_failed", "chat_id", inbound.ChatID, "err", err)
		}
	}()

	text, err := h.dispatch(ctx, cmd, inbound)
	if err != nil {
		if gameerrors.IsExpectedUserBehavior(err) {
			h.logger.Debug("command_rejected", "chat_id", inbound.ChatID, "user_id", inbound.UserID, "err", err)
		} else {
			h.logger.Error("command_failed", "chat_id", inbound.ChatID, "user_id", inbound.UserID, "err", err)
		}
		h.reply(ctx, inbound, MapErrorMessage(err), true)
		return
	}
	if text != "" {
		h.reply(ctx, inbound, text, false)
	}
}

func (h *CommandHandler) dispatch(ctx context.Context, cmd *Command, inbound mqmsg.InboundMessage) (string, error) {
	userID := inbound.UserID

	switch cmd.Kind {
	case CommandHelp:
		return helpText, nil
	case CommandJoin:
		nickname := cmd.Arg
		if nickname == "" {
			nickname = inbound.SenderName()
		}
		return h.svc.BeginJourney(ctx, userID, nickname)
	case CommandInfo:
		return h.svc.PlayerInfo(ctx, userID)
	case CommandRetreat:
		return h.svc.StartRetreat(ctx, userID)
	case CommandEndRetreat:
		return h.svc.EndRetreat(ctx, userID)
	case CommandCheckIn:
		return h.svc.CheckIn(ctx, userID)
	case CommandBreakthrough:
		return h.svc.Breakthrough(ctx, userID, cmd.Arg)
	case CommandBreakthroughInfo:
		return h.svc.BreakthroughInfo(ctx, userID, cmd.Arg)
	case CommandShop:
		return h.svc.ShopListings(ctx, cmd.Pavilion)
	case CommandBuy:
		return h.svc.Purchase(ctx, userID, cmd.Pavilion, cmd.Arg)
	case CommandEquip:
		return h.svc.Equip(ctx, userID, cmd.Arg)
	case CommandUnequip:
		return h.svc.Unequip(ctx, userID, cmd.Arg)
	case CommandEquipment:
		return h.svc.EquipmentInfo(ctx, userID)
	case CommandGift:
		return h.svc.OfferGift(ctx, userID, strings.TrimPrefix(cmd.TargetUserID, "@"), cmd.Arg)
	case CommandAccept:
		return h.svc.AcceptGift(ctx, userID)
	case CommandDecline:
		return h.svc.DeclineGift(ctx, userID)
	default:
		return "알 수 없는 명령입니다. \"/수선 도움\" 을 확인하세요.", nil
	}
}

func (h *CommandHandler) reply(ctx context.Context, inbound mqmsg.InboundMessage, text string, isError bool) {
	var out mqmsg.OutboundMessage
	if isError {
		out = mqmsg.NewError(inbound.ChatID, text, inbound.ThreadID)
	} else {
		out = mqmsg.NewFinal(inbound.ChatID, text, inbound.ThreadID)
	}
	if err := h.replies.Publish(ctx, out); err != nil {
		h.logger.Error("reply_publish_failed", "chat_id", inbound.ChatID, "err", err)
	}
}
