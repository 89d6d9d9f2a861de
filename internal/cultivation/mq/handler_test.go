package mq

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/valkey-io/valkey-go"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	commonconfig "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/config"
	commonmq "github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/mq"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/mqmsg"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/common/processinglock"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/config"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/gamedata"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/repository"
	"github.com/park285/llm-kakao-bots/cultivation-bot-go/internal/cultivation/service"
)

const testReplyStream = "cultivation:responses"

type handlerFixture struct {
	handler *CommandHandler
	locks   *processinglock.Service
	client  valkey.Client
}

func newTestHandler(t *testing.T, access commonconfig.AccessConfig) *handlerFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:       []string{mr.Addr()},
		DisableCache:      true,
		ForceSingleClient: true,
	})
	if err != nil {
		t.Fatalf("valkey client create failed: %v", err)
	}
	t.Cleanup(client.Close)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&repository.Player{}, &repository.ShopStock{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	tables, err := gamedata.Load()
	if err != nil {
		t.Fatalf("load game data failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewWithDB(db, repository.DialectSQLite, logger)
	svc := service.New(repo, tables, config.GameConfig{
		DeathProbMin:            0.01,
		DeathProbMax:            0.10,
		RetreatExpPerMinute:     2,
		RetreatMinDuration:      time.Minute,
		CheckInSpiritStones:     50,
		CheckInExp:              10,
		PavilionRefreshInterval: 6 * time.Hour,
		PavilionSlotCount:       5,
		GiftTTL:                 5 * time.Minute,
	}, logger)

	locks := processinglock.New(client, logger, func(chatID string) string {
		return "cultivation:processing:" + chatID
	}, 10*time.Second)
	replies := commonmq.NewReplyPublisher(commonmq.NewStreamPublisher(client, logger,
		commonmq.StreamPublisherConfig{Stream: testReplyStream}))

	return &handlerFixture{
		handler: NewCommandHandler(NewCommandParser("/수선"), svc, replies, locks, access, logger),
		locks:   locks,
		client:  client,
	}
}

func (f *handlerFixture) replies(t *testing.T) []valkey.XRangeEntry {
	t.Helper()
	cmd := f.client.B().Xrange().Key(testReplyStream).Start("-").End("+").Build()
	entries, err := f.client.Do(context.Background(), cmd).AsXRange()
	if err != nil {
		t.Fatalf("xrange failed: %v", err)
	}
	return entries
}

func inbound(chatID, userID, text string) mqmsg.InboundMessage {
	return mqmsg.InboundMessage{ChatID: chatID, UserID: userID, Content: text}
}

func TestHandler_JoinRoundTrip(t *testing.T) {
	f := newTestHandler(t, commonconfig.AccessConfig{})
	ctx := context.Background()

	f.handler.HandleMessage(ctx, inbound("room1", "user1", "/수선 입문 운산"))

	entries := f.replies(t)
	if len(entries) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(entries))
	}
	fields := entries[0].FieldValues
	if fields["chatId"] != "room1" || fields["type"] != "final" {
		t.Fatalf("unexpected reply fields: %+v", fields)
	}
	if !strings.Contains(fields["text"], "운산") {
		t.Fatalf("unexpected reply text: %s", fields["text"])
	}
}

func TestHandler_IgnoresNonCommands(t *testing.T) {
	f := newTestHandler(t, commonconfig.AccessConfig{})
	ctx := context.Background()

	f.handler.HandleMessage(ctx, inbound("room1", "user1", "안녕하세요"))
	f.handler.HandleMessage(ctx, inbound("room1", "user1", "/스프 시작"))

	if entries := f.replies(t); len(entries) != 0 {
		t.Fatalf("expected no replies, got %d", len(entries))
	}
}

func TestHandler_UserErrorBecomesErrorReply(t *testing.T) {
	f := newTestHandler(t, commonconfig.AccessConfig{})
	ctx := context.Background()

	// 입문 전 내정보 조회
	f.handler.HandleMessage(ctx, inbound("room1", "ghost", "/수선 내정보"))

	entries := f.replies(t)
	if len(entries) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(entries))
	}
	fields := entries[0].FieldValues
	if fields["type"] != "error" {
		t.Fatalf("expected error reply, got %+v", fields)
	}
	if !strings.Contains(fields["text"], "입문") {
		t.Fatalf("unexpected reply text: %s", fields["text"])
	}
}

func TestHandler_AccessControl(t *testing.T) {
	f := newTestHandler(t, commonconfig.AccessConfig{
		AllowedChatIDs: []string{"allowed"},
		BlockedUserIDs: []string{"banned"},
	})
	ctx := context.Background()

	f.handler.HandleMessage(ctx, inbound("other", "user1", "/수선 내정보"))
	f.handler.HandleMessage(ctx, inbound("allowed", "banned", "/수선 내정보"))
	if entries := f.replies(t); len(entries) != 0 {
		t.Fatalf("expected no replies for denied senders, got %d", len(entries))
	}

	f.handler.HandleMessage(ctx, inbound("allowed", "user1", "/수선 입문 운산"))
	if entries := f.replies(t); len(entries) != 1 {
		t.Fatalf("expected 1 reply for allowed chat, got %d", len(entries))
	}
}

func TestHandler_BusyChatGetsLockNotice(t *testing.T) {
	f := newTestHandler(t, commonconfig.AccessConfig{})
	ctx := context.Background()

	if err := f.locks.Start(ctx, "room1"); err != nil {
		t.Fatalf("pre-acquire lock failed: %v", err)
	}

	f.handler.HandleMessage(ctx, inbound("room1", "user1", "/수선 내정보"))

	entries := f.replies(t)
	if len(entries) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(entries))
	}
	fields := entries[0].FieldValues
	if fields["type"] != "error" || !strings.Contains(fields["text"], "처리하는 중") {
		t.Fatalf("unexpected reply: %+v", fields)
	}

	// 락은 기존 소유자 것이므로 그대로 남아 있어야 한다.
	busy, err := f.locks.IsProcessing(ctx, "room1")
	if err != nil {
		t.Fatalf("is processing failed: %v", err)
	}
	if !busy {
		t.Fatalf("lock should still be held")
	}
}

func TestHandler_StreamMessageParsing(t *testing.T) {
	f := newTestHandler(t, commonconfig.AccessConfig{})
	ctx := context.Background()

	// 필수 필드가 없는 메시지는 버린다.
	if err := f.handler.HandleStreamMessage(ctx, commonmq.XMessage{
		ID:     "1-0",
		Values: map[string]string{"room": "room1"},
	}); err != nil {
		t.Fatalf("handle stream message failed: %v", err)
	}
	if entries := f.replies(t); len(entries) != 0 {
		t.Fatalf("expected no replies, got %d", len(entries))
	}

	if err := f.handler.HandleStreamMessage(ctx, commonmq.XMessage{
		ID: "1-1",
		Values: map[string]string{
			"room": "room1", "text": "/수선 입문", "sender": "운산", "userId": "user1",
		},
	}); err != nil {
		t.Fatalf("handle stream message failed: %v", err)
	}
	entries := f.replies(t)
	if len(entries) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(entries))
	}
	// 닉네임 생략 시 보낸 사람 표시 이름을 쓴다.
	if !strings.Contains(entries[0].FieldValues["text"], "운산") {
		t.Fatalf("unexpected reply text: %s", entries[0].FieldValues["text"])
	}
}
