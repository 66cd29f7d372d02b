package utils

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Title upper-cases the first letter of each word and lower-cases the rest
func Title(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// FormatRupees renders an amount with Indian digit grouping, e.g. "Rs. 1,25,000.00"
func FormatRupees(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign, amount = "-", amount.Neg()
	}
	fixed := amount.StringFixed(2)
	whole, fraction := fixed[:len(fixed)-3], fixed[len(fixed)-3:]

	// last three digits, then groups of two
	var groups []string
	if len(whole) > 3 {
		groups = append(groups, whole[len(whole)-3:])
		whole = whole[:len(whole)-3]
		for len(whole) > 2 {
			groups = append([]string{whole[len(whole)-2:]}, groups...)
			whole = whole[:len(whole)-2]
		}
	}
	groups = append([]string{whole}, groups...)
	return "Rs. " + sign + strings.Join(groups, ",") + fraction
}
