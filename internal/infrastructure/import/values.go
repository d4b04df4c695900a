package sheetimport

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Excel 1900 date system bounds: 1 is 1900-01-01, 2958465 is 9999-12-31.
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465

	// excelLeapBugSerial is the fictitious 1900-02-29
	excelLeapBugSerial = 60
)

// excelEpoch is day zero of the 1900 date system once the leap bug is accounted for
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts are the textual date forms seen in exports, tried in order
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"02-01-2006",
	"2/1/2006",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	time.RFC3339,
}

// currencyCutset are the symbols removed from money cells
const currencyCutset = "$€£¥₹"

// ParseMoneyAmount parses a decimal or currency string into a non-negative
// amount rounded to cents. "$1,234.56", "72.88" and "72,88" are accepted.
func ParseMoneyAmount(raw string) (decimal.Decimal, error) {
	s := trimSpaces(raw)
	if s == "" {
		return decimal.Zero, invalidAmount(raw, "amount is empty")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(currencyCutset, r) || isWhitespace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(strings.ToUpper(s), "USD")
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	s = normalizeSeparators(s)
	if s == "" {
		return decimal.Zero, invalidAmount(raw, "amount has no digits")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, invalidAmount(raw, "amount is not a number")
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		amount = decimal.NewFromFloat(f)
	}
	if negative && !amount.IsZero() {
		return decimal.Zero, invalidAmount(raw, "amount is negative")
	}
	return amount.Round(2), nil
}

// normalizeSeparators turns thousands and decimal separators into a plain
// decimal string. The last separator is the decimal one when both appear; a lone
// comma followed by one or two digits is a decimal comma.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 && len(s)-lastComma-1 > 0 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return s
}

// ParseExcelDate converts a 1900 date system serial into a UTC date. The time
// of day carried by the fraction is kept. Serial 60, the non-existent
// 1900-02-29, maps to 1900-03-01.
func ParseExcelDate(serial float64) (time.Time, error) {
	text := strconv.FormatFloat(serial, 'f', -1, 64)
	if math.IsNaN(serial) || serial < minExcelSerial || serial >= maxExcelSerial+1 {
		return time.Time{}, invalidDate(text, "date serial out of range")
	}

	days := math.Floor(serial)
	fraction := serial - days
	if days <= excelLeapBugSerial {
		// Up to the fictitious leap day the epoch is one day later.
		days++
	}
	t := excelEpoch.AddDate(0, 0, int(days))
	if fraction > 0 {
		t = t.Add(time.Duration(math.Round(fraction*86400)) * time.Second)
	}
	return t, nil
}

// ParseDateCell accepts a date serial or one of the textual layouts.
func ParseDateCell(raw string) (time.Time, error) {
	s := trimSpaces(raw)
	if s == "" {
		return time.Time{}, invalidDate(raw, "date is empty")
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return ParseExcelDate(serial)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalidDate(raw, "unrecognized date format")
}
