package auditreport

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var frPrinter = message.NewPrinter(language.French)

// Currency renders an amount with French digit grouping, no decimals and a
// trailing euro sign.
func Currency(v float64) string {
	return frPrinter.Sprintf("%d", int64(math.Round(v))) + " €"
}

// Number renders an integer with French digit grouping.
func Number(v int) string {
	return frPrinter.Sprintf("%d", v)
}

// Decimal prints v in its shortest form with a "." decimal point.
func Decimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Rate prints a percentage at its native precision, e.g. "12.5 %".
func Rate(v float64) string {
	return Decimal(v) + " %"
}

// SignedPoints prints a gap with an explicit "+" when non-negative.
func SignedPoints(v float64) string {
	if v >= 0 {
		return "+" + Decimal(v)
	}
	return Decimal(v)
}

var dateLayouts = []string{time.DateOnly, time.RFC3339, "2006-01-02T15:04:05", "02/01/2006"}

// Date converts an ISO date string to dd/mm/yyyy. Unparseable input is
// returned unchanged.
func Date(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FormatDate(t)
		}
	}
	return s
}

// FormatDate formats t as dd/mm/yyyy.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
