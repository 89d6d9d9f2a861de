// Package mq: 수선 봇의 명령 수신/응답 계층. 인바운드 스트림 메시지를 명령으로
// 해석하고, 서비스 결과를 응답 스트림으로 발행한다.
package mq

// CommandKind: 해석된 명령 종류.
type CommandKind int

// CommandUnknown 는 명령 종류 상수 목록이다.
const (
	CommandUnknown CommandKind = iota
	CommandHelp
	CommandJoin             // 입문 [닉네임]
	CommandInfo             // 내정보
	CommandRetreat          // 폐관
	CommandEndRetreat       // 출관
	CommandCheckIn          // 출석
	CommandBreakthrough     // 돌파 [단약이름]
	CommandBreakthroughInfo // 돌파정보 [단약이름]
	CommandShop             // 단약각 | 무기각 | 만보각
	CommandBuy              // 구매 <전각> <아이템> [수량]
	CommandEquip            // 장착 <아이템>
	CommandUnequip          // 해제 <무기|방어구|심법>
	CommandEquipment        // 내장비
	CommandGift             // 선물 <상대> <아이템> [수량]
	CommandAccept           // 수락
	CommandDecline          // 거절
)

// Command: 해석된 명령 한 건.
type Command struct {
	Kind CommandKind

	// Arg: 자유 인자. 닉네임, 단약 이름, "아이템 [수량]" 등 명령마다 의미가 다르다.
	Arg string
	// Pavilion: 전각 이름 (CommandShop, CommandBuy)
	Pavilion string
	// TargetUserID: 선물 대상 (CommandGift)
	TargetUserID string
}
