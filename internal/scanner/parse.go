package scanner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	amountRe   = regexp.MustCompile(`\d{1,3}(?:[,\s]\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?`)
	totalRe    = regexp.MustCompile(`(?i)\b(grand\s+total|total|amount\s+due|net\s+amount|balance\s+due)\b`)
	subtotalRe = regexp.MustCompile(`(?i)sub\s*-?\s*total`)
)

var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"Food", []string{"restaurant", "cafe", "coffee", "pizza", "burger", "food", "bakery", "grocery", "kitchen", "dine", "starbucks"}},
	{"Travel", []string{"fuel", "petrol", "diesel", "uber", "taxi", "airline", "flight", "train", "hotel", "parking", "toll"}},
	{"Utilities", []string{"electricity", "water", "gas bill", "internet", "broadband", "mobile", "recharge", "utility"}},
	{"Entertainment", []string{"cinema", "movie", "theatre", "concert", "ticket", "netflix", "games"}},
	{"Shopping", []string{"mart", "store", "mall", "fashion", "apparel", "electronics", "shop", "retail"}},
}

// ParseAmount converts a decimal amount such as "1,234.50" to minor units.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(",", "", " ", "").Replace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	whole, frac, _ := strings.Cut(s, ".")
	if !allDigits(whole) || (frac != "" && !allDigits(frac)) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return w*100 + f, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseText builds a ScanResult from raw OCR text. The amount comes from the
// last number on a "total" line, or the largest number in the text when no
// such line exists.
func ParseText(text string) (*ScanResult, error) {
	lines := strings.Split(text, "\n")

	var amount int64
	for _, line := range lines {
		if !totalRe.MatchString(line) || subtotalRe.MatchString(line) {
			continue
		}
		if v, ok := lastAmount(line); ok {
			amount = v
		}
	}
	if amount == 0 {
		for _, line := range lines {
			for _, m := range amountRe.FindAllString(line, -1) {
				if v, err := ParseAmount(m); err == nil && v > amount {
					amount = v
				}
			}
		}
	}
	if amount <= 0 {
		return nil, fmt.Errorf("no amount found")
	}

	return &ScanResult{
		Amount:   amount,
		Merchant: merchant(lines),
		Category: guessCategory(text),
	}, nil
}

func lastAmount(line string) (int64, bool) {
	matches := amountRe.FindAllString(line, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		if v, err := ParseAmount(matches[i]); err == nil && v > 0 {
			return v, true
		}
	}
	return 0, false
}

// merchant is the first line carrying at least three letters.
func merchant(lines []string) string {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		letters := 0
		for _, r := range line {
			if unicode.IsLetter(r) {
				letters++
			}
		}
		if letters >= 3 {
			return line
		}
	}
	return ""
}

func guessCategory(text string) string {
	low := strings.ToLower(text)
	for _, kw := range categoryKeywords {
		for _, w := range kw.words {
			if strings.Contains(low, w) {
				return kw.category
			}
		}
	}
	return "Other"
}

// stripFences removes a markdown code fence around a model reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
