package aggregate

import (
	"regexp"
	"strconv"
	"strings"
)

// ParseCountOrZero reads a thousands-separated integer such as "1,234".
//
// Parsing is lenient on purpose: the leading optional sign and digits are
// used and anything after them is ignored, so "12.7" reads as 12 and "12명"
// as 12. A cell with no leading digits counts as zero instead of failing the
// aggregation it belongs to.
func ParseCountOrZero(s string) int64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ParseFloat reads the leading decimal number of a cell, ignoring thousands
// separators and any trailing text, so "2.09명" reads as 2.09. It reports
// false when the cell does not start with a number.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	intEnd := scanDigits(s, end)
	mantEnd := intEnd
	if mantEnd < len(s) && s[mantEnd] == '.' {
		mantEnd = scanDigits(s, mantEnd+1)
	}
	if intEnd == end && mantEnd <= intEnd+1 {
		return 0, false
	}
	end = mantEnd
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '-' || s[exp] == '+') {
			exp++
		}
		if expEnd := scanDigits(s, exp); expEnd > exp {
			end = expEnd
		}
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func scanDigits(s string, i int) int {
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

var yearMonthPattern = regexp.MustCompile(`(\d{4})-(\d{2})`)

// YearMonth is a calendar month bucket.
type YearMonth struct {
	Year  int
	Month int
}

func (ym YearMonth) String() string {
	return strconv.Itoa(ym.Year) + "-" + twoDigits(ym.Month)
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// ExtractYearMonth finds the first "YYYY-MM" token in s.
// It reports false when there is none or the month is outside 1..12.
func ExtractYearMonth(s string) (YearMonth, bool) {
	m := yearMonthPattern.FindStringSubmatch(s)
	if m == nil {
		return YearMonth{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return YearMonth{}, false
	}
	return YearMonth{Year: year, Month: month}, true
}
