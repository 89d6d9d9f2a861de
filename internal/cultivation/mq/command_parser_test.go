package mq

import "testing"

func TestCommandParser_Parse(t *testing.T) {
	parser := NewCommandParser("/수선")

	cases := []struct {
		text string
		want Command
	}{
		{"/수선", Command{Kind: CommandHelp}},
		{"/수선 도움", Command{Kind: CommandHelp}},
		{"/수선 입문", Command{Kind: CommandJoin}},
		{"/수선 입문 운산", Command{Kind: CommandJoin, Arg: "운산"}},
		{"/수선 내정보", Command{Kind: CommandInfo}},
		{"/수선 폐관", Command{Kind: CommandRetreat}},
		{"/수선 출관", Command{Kind: CommandEndRetreat}},
		{"/수선 출석", Command{Kind: CommandCheckIn}},
		{"/수선 돌파", Command{Kind: CommandBreakthrough}},
		{"/수선 돌파 하품 파경단", Command{Kind: CommandBreakthrough, Arg: "하품 파경단"}},
		{"/수선 돌파정보", Command{Kind: CommandBreakthroughInfo}},
		{"/수선 돌파정보 하품 파경단", Command{Kind: CommandBreakthroughInfo, Arg: "하품 파경단"}},
		{"/수선 단약각", Command{Kind: CommandShop, Pavilion: "단약각"}},
		{"/수선 무기각", Command{Kind: CommandShop, Pavilion: "무기각"}},
		{"/수선 구매 단약각 축기단 3", Command{Kind: CommandBuy, Pavilion: "단약각", Arg: "축기단 3"}},
		{"/수선 구매 만보각 영초 한 단 10", Command{Kind: CommandBuy, Pavilion: "만보각", Arg: "영초 한 단 10"}},
		{"/수선 장착 청강검", Command{Kind: CommandEquip, Arg: "청강검"}},
		{"/수선 해제 무기", Command{Kind: CommandUnequip, Arg: "무기"}},
		{"/수선 내장비", Command{Kind: CommandEquipment}},
		{"/수선 선물 user42 축기단 2", Command{Kind: CommandGift, TargetUserID: "user42", Arg: "축기단 2"}},
		{"/수선 수락", Command{Kind: CommandAccept}},
		{"/수선 거절", Command{Kind: CommandDecline}},
		{"/수선 없는명령어", Command{Kind: CommandUnknown}},
	}

	for _, tc := range cases {
		got := parser.Parse(tc.text)
		if got == nil {
			t.Errorf("%q: expected command, got nil", tc.text)
			continue
		}
		if got.Kind != tc.want.Kind || got.Arg != tc.want.Arg ||
			got.Pavilion != tc.want.Pavilion || got.TargetUserID != tc.want.TargetUserID {
			t.Errorf("%q: got %+v, want %+v", tc.text, *got, tc.want)
		}
	}
}

func TestCommandParser_IgnoresOtherMessages(t *testing.T) {
	parser := NewCommandParser("/수선")

	for _, text := range []string{"", "안녕하세요", "/스프 시작", "수선 내정보"} {
		if got := parser.Parse(text); got != nil {
			t.Errorf("%q: expected nil, got %+v", text, *got)
		}
	}
}

func TestCommandParser_DefaultPrefix(t *testing.T) {
	parser := NewCommandParser("  ")
	if got := parser.Parse("/수선 내정보"); got == nil || got.Kind != CommandInfo {
		t.Fatalf("expected default prefix to apply, got %+v", got)
	}
}
