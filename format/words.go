package format

import (
	"fmt"
	"math"
	"strings"
)

var ones = []string{
	"", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
}

var teens = []string{
	"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen",
	"sixteen", "seventeen", "eighteen", "nineteen",
}

var tens = []string{
	"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety",
}

// NumberToWords converts a non-negative integer to English words.
// NumberToWords(0) = "zero".
func NumberToWords(n int64) string {
	if n == 0 {
		return "zero"
	}

	if n < 0 {
		return "minus " + NumberToWords(-n)
	}

	var parts []string

	groups := []struct {
		value int64
		name  string
	}{
		{1_000_000_000_000, "trillion"},
		{1_000_000_000, "billion"},
		{1_000_000, "million"},
		{1_000, "thousand"},
	}

	for _, g := range groups {
		if n >= g.value {
			parts = append(parts, belowThousand(n/g.value)+" "+g.name)
			n %= g.value
		}
	}

	if n > 0 {
		parts = append(parts, belowThousand(n))
	}

	return strings.Join(parts, " ")
}

func belowThousand(n int64) string {
	var parts []string

	if n >= 100 {
		parts = append(parts, ones[n/100]+" hundred")
		n %= 100
	}

	switch {
	case n >= 20:
		word := tens[n/10]
		if n%10 > 0 {
			word += "-" + ones[n%10]
		}
		parts = append(parts, word)
	case n >= 10:
		parts = append(parts, teens[n-10])
	case n > 0:
		parts = append(parts, ones[n])
	}

	return strings.Join(parts, " ")
}

// AmountInWords spells a currency amount for the "amount in words" line on a
// voucher. Whole amounts read "one million rupiah"; fractional amounts append
// the cents as "and NN/100".
func AmountInWords(amount float64) string {
	whole := int64(math.Floor(amount))
	cents := int64(math.Round((amount - math.Floor(amount)) * 100))

	if cents >= 100 {
		whole++
		cents = 0
	}

	words := NumberToWords(whole) + " rupiah"
	if cents > 0 {
		words += fmt.Sprintf(" and %02d/100", cents)
	}

	return words
}
