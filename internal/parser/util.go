package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meggarmind/residio-email-imports/internal/models"
)

// Date formats seen across Nigerian bank alerts and statements.
var alertDateLayouts = []string{
	"2-Jan-06 03:04 PM",
	"2-Jan-06 3:04 PM",
	"2-Jan-2006",
	"2-Jan-06",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02/01/06",
	"2006-01-02",
}

// statementDatePattern matches the DD-MMM-YY column used by First Bank
// statement rows, e.g. "04-JAN-26".
var statementDatePattern = regexp.MustCompile(`^(\d{2})-([A-Za-z]{3})-(\d{2})$`)

var (
	directionSuffixPattern = regexp.MustCompile(`(?i)\b(CR|DR)\.?\s*$`)
	currencyPattern        = regexp.MustCompile(`(?i)(NGN|\x{20A6})`)
)

// splitAmountDirection separates a raw amount cell like "15,000.00 CR"
// into its numeric part and the explicit direction marker, if any.
func splitAmountDirection(raw string) (numeric string, dir models.Direction, ok bool) {
	s := strings.TrimSpace(raw)
	m := directionSuffixPattern.FindStringSubmatch(s)
	if m == nil {
		return s, "", false
	}
	numeric = strings.TrimSpace(directionSuffixPattern.ReplaceAllString(s, ""))
	if strings.EqualFold(m[1], "CR") {
		return numeric, models.Credit, true
	}
	return numeric, models.Debit, true
}

// parseAmount converts "NGN 15,000.00" or "₦7,061,617.47" into an exact
// decimal. Thousands separators and currency markers are stripped;
// binary floating point is never involved.
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = currencyPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || s == "-" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable amount %q", raw)
	}
	if d.IsNegative() {
		// Sign is carried by the direction marker, never by the number.
		return decimal.Zero, fmt.Errorf("negative amount %q", raw)
	}
	return d, nil
}

// parseAlertDate tries the known alert date layouts in order.
func parseAlertDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range alertDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

// parseStatementDate parses the DD-MMM-YY statement column.
func parseStatementDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if !statementDatePattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("unparseable statement date %q", raw)
	}
	// time.Parse wants canonical month casing ("Jan", not "JAN").
	s = s[:3] + strings.ToUpper(s[3:4]) + strings.ToLower(s[4:6]) + s[6:]
	t, err := time.Parse("02-Jan-06", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable statement date %q", raw)
	}
	return t, nil
}

// saneDateWindow is how far a transaction date may sit from now before
// it is flagged as a likely misparse.
const saneDateWindow = 2 * 365 * 24 * time.Hour

// dateWarnings returns the soft warnings for a parsed date. A date
// outside the window is surfaced to review, never rejected.
func dateWarnings(t time.Time, now time.Time) []string {
	if t.Before(now.Add(-saneDateWindow)) || t.After(now.Add(saneDateWindow)) {
		return []string{models.WarnSuspiciousDate}
	}
	return nil
}

// Reference patterns shared by the alert parsers. The reference feeds
// duplicate detection downstream, so extraction is deliberately eager.
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ref(?:erence)?[:\s]+([A-Z0-9/\-]{4,})`),
	regexp.MustCompile(`(?i)\btrf[:/]\s*([A-Z0-9]{4,})`),
	regexp.MustCompile(`(?i)session\s*id[:\s]+([A-Z0-9]{6,})`),
}

func extractReference(text string) string {
	for _, p := range referencePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimRight(strings.TrimSpace(m[1]), ".")
		}
	}
	return ""
}

// maskedAccountPattern matches fragments like "****1234" or "202XXXX725".
var maskedAccountPattern = regexp.MustCompile(`[\dXx*]{3,}(\d{4})\b`)

// extractAccountLast4 pulls the trailing four digits out of a masked
// account fragment.
func extractAccountLast4(text string) string {
	if m := maskedAccountPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func containsAny(text string, needles []string) bool {
	lower := strings.ToLower(text)
	for _, needle := range needles {
		if strings.Contains(lower, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}

// cleanNarration collapses whitespace and strips characters that are
// noise for matching.
func cleanNarration(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '/', r == '-', r == '.', r == ':':
			return r
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
