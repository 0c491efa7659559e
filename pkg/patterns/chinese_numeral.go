package patterns

import "strings"

var cjkDigits = map[rune]int{
	'零': 0, '一': 1, '二': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
	'两': 2,
}

// ChineseNumeralToInt converts a Chinese numeral in the range 一 (1) to
// 九十九 (99) into its integer value. It understands three common forms:
// a bare digit ("九" -> 9), a tens form ("十" -> 10, "三十" -> 30), and a
// compound form ("九十九" -> 99, "二十三" -> 23). Returns false if s is not
// a recognized numeral in this range.
func ChineseNumeralToInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) == 0 {
		return 0, false
	}

	// Bare "十" means 10.
	if s == "十" {
		return 10, true
	}

	// "十X" means 10+X (e.g. 十九 -> 19).
	if runes[0] == '十' {
		if len(runes) == 1 {
			return 10, true
		}
		ones, ok := cjkDigits[runes[1]]
		if !ok {
			return 0, false
		}
		return 10 + ones, true
	}

	// "X十" or "X十Y": tens digit followed by optional 十 and optional ones.
	tens, ok := cjkDigits[runes[0]]
	if !ok {
		return 0, false
	}
	if len(runes) == 1 {
		return tens, true
	}
	if runes[1] != '十' {
		return 0, false
	}
	if len(runes) == 2 {
		return tens * 10, true
	}
	ones, ok := cjkDigits[runes[2]]
	if !ok {
		return 0, false
	}
	return tens*10 + ones, true
}
