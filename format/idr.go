package format

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DateFormat is the wire format for all document dates.
const DateFormat = "2006-01-02"

// swapSeparators converts between the US and Indonesian separator conventions
// in a single pass, so "1,234.56" becomes "1.234,56" and back.
var swapSeparators = strings.NewReplacer(",", ".", ".", ",")

var ErrInvalidAmount = errors.New("invalid-amount")

// IDR renders an amount in the Indonesian convention: "." thousands separator,
// "," decimal separator, two decimal places. IDR(1234567.89) = "1.234.567,89".
func IDR(amount float64) string {
	return swapSeparators.Replace(humanize.FormatFloat("#,###.##", amount))
}

// Rupiah is IDR with the currency prefix used on vouchers and exports.
func Rupiah(amount float64) string {
	return "Rp " + IDR(amount)
}

// ParseIDR is the inverse of IDR. It accepts an optional "Rp" prefix and
// surrounding whitespace, e.g. "Rp 1.234.567,89".
func ParseIDR(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Rp")
	s = strings.TrimSpace(s)

	if s == "" {
		return 0, ErrInvalidAmount
	}

	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}

	return amount, nil
}

// NormalizeDate reduces any supported date representation to YYYY-MM-DD.
// Applying it to its own output is a no-op.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)

	for _, layout := range []string{DateFormat, time.RFC3339, "2006-01-02T15:04:05", "02/01/2006"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format(DateFormat), nil
		}
	}

	return "", errors.New("invalid-date(yyyy-mm-dd)")
}
