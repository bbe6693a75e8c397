package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	leadingNumber  = regexp.MustCompile(`^[+-]?\d{1,3}(?:[\s.,]\d{3})+(?:[.,]\d+)?|^[+-]?\d+(?:[.,]\d+)?`)
	dotThousands   = regexp.MustCompile(`^[+-]?\d{1,3}(?:\.\d{3})+(,\d+)?$`)
	commaThousands = regexp.MustCompile(`^[+-]?\d{1,3}(?:,\d{3})+(\.\d+)?$`)
)

// ParsePrice parses the numeric prefix of a raw price cell. Values
// like "1,299.00", "19.99 USD" or "19,99" all resolve; anything
// without a leading number fails.
func ParsePrice(raw string) (float64, bool) {
	token := leadingNumber.FindString(strings.TrimSpace(raw))
	if token == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(normalizeNumericToken(token), 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// ParseQuantity returns nil unless the cell parses to a positive
// integer. Fractional quantities are truncated.
func ParseQuantity(raw string) *int {
	token := leadingNumber.FindString(strings.TrimSpace(raw))
	if token == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(normalizeNumericToken(token), 64)
	if err != nil || parsed <= 0 {
		return nil
	}
	qty := int(parsed)
	if qty <= 0 {
		return nil
	}
	return &qty
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	if dotThousands.MatchString(compact) {
		compact = strings.ReplaceAll(compact, ".", "")
		return strings.ReplaceAll(compact, ",", ".")
	}
	if commaThousands.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}
