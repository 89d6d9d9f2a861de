package mq

import (
	"regexp"
	"strings"
)

// CommandParser: 접두사 기반 명령 해석기.
type CommandParser struct {
	prefix string

	helpRe       *regexp.Regexp
	joinRe       *regexp.Regexp
	infoRe       *regexp.Regexp
	retreatRe    *regexp.Regexp
	endRetreatRe *regexp.Regexp
	checkInRe    *regexp.Regexp
	btInfoRe     *regexp.Regexp
	btRe         *regexp.Regexp
	shopRe       *regexp.Regexp
	buyRe        *regexp.Regexp
	equipRe      *regexp.Regexp
	unequipRe    *regexp.Regexp
	equipmentRe  *regexp.Regexp
	giftRe       *regexp.Regexp
	acceptRe     *regexp.Regexp
	declineRe    *regexp.Regexp
}

// NewCommandParser: 접두사로 해석기를 만든다. 비어 있으면 "/수선" 을 쓴다.
func NewCommandParser(prefix string) *CommandParser {
	p := strings.TrimSpace(prefix)
	if p == "" {
		p = "/수선"
	}
	escaped := regexp.QuoteMeta(p)
	parser := &CommandParser{prefix: p}

	parser.helpRe = regexp.MustCompile("^" + escaped + `\s*(?:도움|help)?$`)
	parser.joinRe = regexp.MustCompile("^" + escaped + `\s*입문(?:\s+(\S+))?$`)
	parser.infoRe = regexp.MustCompile("^" + escaped + `\s*내정보$`)
	parser.retreatRe = regexp.MustCompile("^" + escaped + `\s*폐관$`)
	parser.endRetreatRe = regexp.MustCompile("^" + escaped + `\s*출관$`)
	parser.checkInRe = regexp.MustCompile("^" + escaped + `\s*출석$`)
	// 돌파정보가 돌파보다 먼저 검사되어야 한다.
	parser.btInfoRe = regexp.MustCompile("^" + escaped + `\s*돌파정보(?:\s+(.+))?$`)
	parser.btRe = regexp.MustCompile("^" + escaped + `\s*돌파(?:\s+(.+))?$`)
	parser.shopRe = regexp.MustCompile("^" + escaped + `\s*(단약각|무기각|만보각)$`)
	parser.buyRe = regexp.MustCompile("^" + escaped + `\s*구매\s+(단약각|무기각|만보각)\s+(.+)$`)
	parser.equipRe = regexp.MustCompile("^" + escaped + `\s*장착\s+(.+)$`)
	parser.unequipRe = regexp.MustCompile("^" + escaped + `\s*해제\s+(\S+)$`)
	parser.equipmentRe = regexp.MustCompile("^" + escaped + `\s*내장비$`)
	parser.giftRe = regexp.MustCompile("^" + escaped + `\s*선물\s+(\S+)\s+(.+)$`)
	parser.acceptRe = regexp.MustCompile("^" + escaped + `\s*수락$`)
	parser.declineRe = regexp.MustCompile("^" + escaped + `\s*거절$`)

	return parser
}

// Parse: 메시지를 명령으로 해석한다. 접두사가 없으면 nil 을 반환한다.
func (p *CommandParser) Parse(message string) *Command {
	text := strings.TrimSpace(message)
	if text == "" || !strings.HasPrefix(text, p.prefix) {
		return nil
	}

	if p.helpRe.MatchString(text) {
		return &Command{Kind: CommandHelp}
	}
	if m := p.joinRe.FindStringSubmatch(text); len(m) > 0 {
		return &Command{Kind: CommandJoin, Arg: strings.TrimSpace(m[1])}
	}
	if p.infoRe.MatchString(text) {
		return &Command{Kind: CommandInfo}
	}
	if p.retreatRe.MatchString(text) {
		return &Command{Kind: CommandRetreat}
	}
	if p.endRetreatRe.MatchString(text) {
		return &Command{Kind: CommandEndRetreat}
	}
	if p.checkInRe.MatchString(text) {
		return &Command{Kind: CommandCheckIn}
	}
	if m := p.btInfoRe.FindStringSubmatch(text); len(m) > 0 {
		return &Command{Kind: CommandBreakthroughInfo, Arg: strings.TrimSpace(m[1])}
	}
	if m := p.btRe.FindStringSubmatch(text); len(m) > 0 {
		return &Command{Kind: CommandBreakthrough, Arg: strings.TrimSpace(m[1])}
	}
	if m := p.shopRe.FindStringSubmatch(text); len(m) > 0 {
		return &Command{Kind: CommandShop, Pavilion: m[1]}
	}
	if m := p.buyRe.FindStringSubmatch(text); len(m) > 0 {
		return &Command{Kind: CommandBuy, Pavilion: m[1], Arg: strings.TrimSpace(m[2])}
	}
	if m := p.equipRe.FindStringSubmatch(text); len(m) > 0 {
		return &Command{Kind: CommandEquip, Arg: strings.TrimSpace(m[1])}
	}
	if m := p.unequipRe.FindStringSubmatch(text); len(m) > 0 {
		return &Command{Kind: CommandUnequip, Arg: m[1]}
	}
	if p.equipmentRe.MatchString(text) {
		return &Command{Kind: CommandEquipment}
	}
	if m := p.giftRe.FindStringSubmatch(text); len(m) > 0 {
		return &Command{Kind: CommandGift, TargetUserID: m[1], Arg: strings.TrimSpace(m[2])}
	}
	if p.acceptRe.MatchString(text) {
		return &Command{Kind: CommandAccept}
	}
	if p.declineRe.MatchString(text) {
		return &Command{Kind: CommandDecline}
	}

	return &Command{Kind: CommandUnknown}
}
