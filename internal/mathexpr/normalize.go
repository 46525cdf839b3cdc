package mathexpr

import (
	"regexp"
	"strings"
)

// numberWords is applied in order with plain substring replacement, so words
// that merely contain a number word ("none", "often") are rewritten as well.
var numberWords = []struct {
	word  string
	digit string
}{
	{"zero", "0"},
	{"one", "1"},
	{"two", "2"},
	{"three", "3"},
	{"four", "4"},
	{"five", "5"},
	{"six", "6"},
	{"seven", "7"},
	{"eight", "8"},
	{"nine", "9"},
	{"ten", "10"},
}

var operatorWords = []struct {
	phrase string
	symbol string
}{
	{"divided by", "/"},
	{"over", "/"},
	{"multiplied by", "*"},
	{"times", "*"},
	{"plus", "+"},
	{"minus", "-"},
	{"subtracted by", "-"},
}

var (
	squarePattern = regexp.MustCompile(`square of (\d+)`)
	cubePattern   = regexp.MustCompile(`cube of (\d+)`)
	powerPattern  = regexp.MustCompile(`(\d+)\s+to the power of\s+(\d+)`)
	nonExpression = regexp.MustCompile(`[^0-9+\-*/(). ]`)
)

// Normalize rewrites a spoken arithmetic phrase into a canonical expression
// made only of digits, operators, parentheses, dots and spaces. The result
// can be empty when nothing arithmetic survives.
func Normalize(query string) string {
	text := strings.ToLower(query)

	for _, nw := range numberWords {
		text = strings.ReplaceAll(text, nw.word, nw.digit)
	}

	text = squarePattern.ReplaceAllString(text, "(${1}**2)")
	text = cubePattern.ReplaceAllString(text, "(${1}**3)")
	text = powerPattern.ReplaceAllString(text, "(${1}**${2})")

	for _, op := range operatorWords {
		text = strings.ReplaceAll(text, op.phrase, op.symbol)
	}

	return nonExpression.ReplaceAllString(text, "")
}

// IsPureArithmetic reports whether s consists solely of expression characters.
func IsPureArithmetic(s string) bool {
	return pureArithmetic.MatchString(s)
}

var pureArithmetic = regexp.MustCompile(`^[0-9+\-*/(). ]+$`)
