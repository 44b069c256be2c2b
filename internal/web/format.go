package web

import (
	"math"
	"strconv"
	"strings"
)

// formatRupees renders an amount with Indian digit grouping, e.g. ₹12,34,567.
// Paise are shown only when present.
func formatRupees(v float64) string {
	neg := v < 0
	v = math.Abs(v)
	whole := math.Floor(v)
	paise := int(math.Round((v - whole) * 100))
	if paise == 100 {
		whole++
		paise = 0
	}

	digits := strconv.FormatFloat(whole, 'f', 0, 64)
	var groups []string
	if len(digits) > 3 {
		head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		groups = append([]string{head}, groups...)
		groups = append(groups, tail)
	} else {
		groups = []string{digits}
	}

	out := "₹" + strings.Join(groups, ",")
	if paise > 0 {
		out += "." + leftPad2(paise)
	}
	if neg {
		out = "-" + out
	}
	return out
}

func leftPad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
