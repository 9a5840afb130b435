// Package transform maps clients and projects between their three shapes:
// database rows, application objects and submitted form payloads.
package transform

import (
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

var printer = message.NewPrinter(language.English)

// ParseMoney parses a submitted amount such as "12,500.00" or "$99.5"
// into cents.
func ParseMoney(s string) (int64, error) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if !moneyPattern.MatchString(clean) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	whole, frac, _ := strings.Cut(clean, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)
	if units > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("invalid amount %q: too large", s)
	}
	return units*100 + cents, nil
}

// FormatMoney renders cents with thousands separators, e.g. "12,500.00".
func FormatMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + printer.Sprintf("%d", cents/100) + fmt.Sprintf(".%02d", cents%100)
}

// SplitTags parses "a, b,,c" into [a b c], dropping blanks and duplicates.
func SplitTags(s string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// joinTags is the stored form of tags.
func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// formTags is the submitted form of tags.
func formTags(tags []string) string {
	return strings.Join(tags, ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
