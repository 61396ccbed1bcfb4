package timer

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceCode = iota + 1
	periodCode
	timeCode
	repeatCode
	slashCode
	numberCode
	isoUnitCode
	legacyUnitCode
	segmentCode
)

var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	periodToken     = parsly.NewToken(periodCode, "P", matcher.NewByte('P'))
	timeToken       = parsly.NewToken(timeCode, "T", matcher.NewByte('T'))
	repeatToken     = parsly.NewToken(repeatCode, "R", matcher.NewByte('R'))
	slashToken      = parsly.NewToken(slashCode, "/", matcher.NewByte('/'))
	numberToken     = parsly.NewToken(numberCode, "Number", &numberMatcher{})
	isoUnitToken    = parsly.NewToken(isoUnitCode, "ISOUnit", &setMatcher{set: "YMWDHS"})
	legacyUnitToken = parsly.NewToken(legacyUnitCode, "Unit", &legacyUnitMatcher{})
	segmentToken    = parsly.NewToken(segmentCode, "Segment", &segmentMatcher{})
)

// numberMatcher matches digits with an optional fraction
type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	matched := 0
	for i := pos; i < size && isDigit(input[i]); i++ {
		matched++
	}
	if matched == 0 {
		return 0
	}
	if pos+matched+1 < size && (input[pos+matched] == '.' || input[pos+matched] == ',') && isDigit(input[pos+matched+1]) {
		matched++
		for i := pos + matched; i < size && isDigit(input[i]); i++ {
			matched++
		}
	}
	return matched
}

// setMatcher matches one byte from set
type setMatcher struct {
	set string
}

func (m *setMatcher) Match(cursor *parsly.Cursor) int {
	if cursor.Pos >= cursor.InputSize {
		return 0
	}
	value := cursor.Input[cursor.Pos]
	for i := 0; i < len(m.set); i++ {
		if m.set[i] == value {
			return 1
		}
	}
	return 0
}

// legacyUnitMatcher matches ms, d, h, m or s in either case
type legacyUnitMatcher struct{}

func (m *legacyUnitMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	if pos+1 < size && lower(input[pos]) == 'm' && lower(input[pos+1]) == 's' {
		return 2
	}
	switch lower(input[pos]) {
	case 'd', 'h', 'm', 's':
		return 1
	}
	return 0
}

// segmentMatcher matches everything up to the next slash
type segmentMatcher struct{}

func (m *segmentMatcher) Match(cursor *parsly.Cursor) int {
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize && cursor.Input[i] != '/'; i++ {
		matched++
	}
	return matched
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
