package models

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatMoney renders cents as "USD 1,234.56"
func FormatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	amount := fmt.Sprintf("%s%s.%02d", sign, b.String(), cents%100)
	if currency == "" {
		return amount
	}
	return strings.ToUpper(currency) + " " + amount
}
