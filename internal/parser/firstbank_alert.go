package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/meggarmind/residio-email-imports/internal/models"
)

// FirstBankAlertParser parses single-transaction alert emails from
// First Bank. Two body shapes exist in the wild:
//
// Structured, labeled fields on their own lines or as "Key: Value"
// pairs:
//
//	Date/Time
//	12-Jan-26 03:40 PM
//	Amount
//	15,000.00 CR
//	Narration
//	FIP:GTB/ANIH LANA/NIP Transfer to OLIVE PARK ESTA
//	Cleared Balance
//	NGN7,061,617.47 CR
//
// Sentence style:
//
//	"Your account ****1234 has been credited with NGN 50,000.00 by
//	 JOHN DOE on 01/01/2026. Ref: TRF/123456789."
type FirstBankAlertParser struct{}

func (p *FirstBankAlertParser) Name() string { return "firstbank-alert" }

var firstBankIndicators = []string{
	"first bank",
	"firstbank",
	"firstmobile",
	"fbn alert",
}

// Structured-template label keys, anchored at line start.
var (
	keyAmount    = regexp.MustCompile(`(?i)^\s*(?:amount|amt)\b[.:\s]*(.*)$`)
	keyDate      = regexp.MustCompile(`(?i)^\s*date(?:\s*/\s*time)?\b[.:\s]*(.*)$`)
	keyAccount   = regexp.MustCompile(`(?i)^\s*(?:account|acct)\s*(?:number|no)\b[.:\s]*(.*)$`)
	keyNarration = regexp.MustCompile(`(?i)^\s*(?:narration|description|remarks)\b[.:\s]*(.*)$`)
	keyBalance   = regexp.MustCompile(`(?i)^\s*(?:cleared|avail(?:able)?)\s*bal(?:ance)?\b[.:\s]*(.*)$`)
)

// Sentence-style patterns. The credited/debited verb is the explicit
// direction marker here, so these never guess.
var (
	fbCreditSentence = regexp.MustCompile(`(?i)account\s*\*{3,4}(\d{4})\s*(?:has been\s*)?credited\s*(?:with\s*)?(?:NGN|\x{20A6})?\s*([\d,]+\.\d{2})\s*(?:by|from)\s+(.+?)\s+on\s+([\d/\-A-Za-z]+)`)
	fbDebitSentence  = regexp.MustCompile(`(?i)account\s*\*{3,4}(\d{4})\s*(?:has been\s*)?debited\s*(?:with\s*)?(?:NGN|\x{20A6})?\s*([\d,]+\.\d{2})`)
	fbDebitFrom      = regexp.MustCompile(`(?i)(?:NGN|\x{20A6})?\s*([\d,]+\.\d{2})\s*debited\s*from\s*(?:your\s*)?(?:account\s*)?\*{3,4}(\d{4})`)
)

func (p *FirstBankAlertParser) TryParse(c models.ExtractionCandidate) Result {
	if c.Kind != models.KindAlertBody {
		return notMine()
	}
	text := c.Subject + "\n" + c.Text
	if !containsAny(text, firstBankIndicators) && !hasStructuredLabels(c.Text) {
		return notMine()
	}

	if tx, res, done := p.parseStructured(c); done {
		if res.Status == Failed {
			return res
		}
		return Result{Status: Parsed, Transactions: []models.Transaction{tx}}
	}
	return p.parseSentence(c)
}

// hasStructuredLabels detects the labeled-field template.
func hasStructuredLabels(body string) bool {
	labels := 0
	for _, line := range strings.Split(body, "\n") {
		switch {
		case keyAmount.MatchString(line),
			keyNarration.MatchString(line),
			keyBalance.MatchString(line),
			keyDate.MatchString(line):
			labels++
		}
	}
	return labels >= 3
}

// findLabeledValue returns the value for a label: same line after the
// label, or the following non-empty line.
func findLabeledValue(lines []string, key *regexp.Regexp) string {
	for i, line := range lines {
		m := key.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if v := strings.TrimSpace(m[1]); len(v) > 1 {
			return v
		}
		if i+1 < len(lines) {
			return strings.TrimSpace(lines[i+1])
		}
	}
	return ""
}

// parseStructured handles the labeled-field template. done is false
// when the body is not in this shape at all.
func (p *FirstBankAlertParser) parseStructured(c models.ExtractionCandidate) (models.Transaction, Result, bool) {
	var lines []string
	for _, l := range strings.Split(c.Text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	amountStr := findLabeledValue(lines, keyAmount)
	dateStr := findLabeledValue(lines, keyDate)
	if amountStr == "" || dateStr == "" {
		return models.Transaction{}, Result{}, false
	}

	numeric, dir, hasMarker := splitAmountDirection(amountStr)
	if !hasMarker {
		dir, hasMarker = directionFromSubject(c.Subject)
	}
	if !hasMarker {
		// A direction must never be guessed: no CR/DR suffix and no
		// explicit alert type in the subject is a hard parse failure.
		return models.Transaction{}, failed("ambiguous transaction direction: no CR/DR marker"), true
	}

	amount, err := parseAmount(numeric)
	if err != nil || amount.IsZero() {
		return models.Transaction{}, failed("unparseable amount: " + amountStr), true
	}
	date, err := parseAlertDate(dateStr)
	if err != nil {
		return models.Transaction{}, failed(err.Error()), true
	}

	tx := models.Transaction{
		SourceEmailID: c.EmailID,
		Bank:          p.Name(),
		Date:          date,
		Amount:        amount,
		Direction:     dir,
		Warnings:      dateWarnings(date, time.Now()),
	}

	if narration := findLabeledValue(lines, keyNarration); narration != "" {
		tx.Narration = cleanNarration(narration)
	}
	if balStr := findLabeledValue(lines, keyBalance); balStr != "" {
		balNumeric, _, _ := splitAmountDirection(balStr)
		if bal, err := parseAmount(balNumeric); err == nil {
			tx.Balance = &bal
		}
	}
	if acctStr := findLabeledValue(lines, keyAccount); acctStr != "" {
		tx.AccountLast4 = extractAccountLast4(acctStr)
	}
	tx.Reference = extractReference(tx.Narration)
	if tx.Reference == "" {
		tx.Reference = extractReference(c.Text)
	}
	return tx, Result{Status: Parsed}, true
}

// parseSentence handles the prose-style alert bodies.
func (p *FirstBankAlertParser) parseSentence(c models.ExtractionCandidate) Result {
	text := strings.Join(strings.Fields(c.Subject+" "+c.Text), " ")

	if m := fbCreditSentence.FindStringSubmatch(text); m != nil {
		return p.sentenceResult(c, m[2], models.Credit, m[3], m[4], m[1], text)
	}
	if m := fbDebitSentence.FindStringSubmatch(text); m != nil {
		return p.sentenceResult(c, m[2], models.Debit, "", "", m[1], text)
	}
	if m := fbDebitFrom.FindStringSubmatch(text); m != nil {
		return p.sentenceResult(c, m[1], models.Debit, "", "", m[2], text)
	}

	if containsAny(text, firstBankIndicators) {
		return failed("no transaction found in alert body")
	}
	return notMine()
}

func (p *FirstBankAlertParser) sentenceResult(c models.ExtractionCandidate, amountStr string, dir models.Direction, sender, dateStr, last4, fullText string) Result {
	amount, err := parseAmount(amountStr)
	if err != nil || amount.IsZero() {
		return failed("unparseable amount: " + amountStr)
	}

	tx := models.Transaction{
		SourceEmailID: c.EmailID,
		Bank:          p.Name(),
		Amount:        amount,
		Direction:     dir,
		AccountLast4:  last4,
		Reference:     extractReference(fullText),
	}
	if sender != "" {
		tx.Narration = cleanNarration(sender)
	}

	if dateStr != "" {
		if date, err := parseAlertDate(dateStr); err == nil {
			tx.Date = date
		}
	}
	if tx.Date.IsZero() {
		if date, ok := findDateInText(fullText); ok {
			tx.Date = date
		} else {
			return failed("no transaction date found in alert body")
		}
	}
	tx.Warnings = dateWarnings(tx.Date, time.Now())
	return Result{Status: Parsed, Transactions: []models.Transaction{tx}}
}

var inlineDatePattern = regexp.MustCompile(`(?i)\bon\s+(\d{1,2}[/\-][\dA-Za-z]{1,3}[/\-]\d{2,4})`)

func findDateInText(text string) (time.Time, bool) {
	if m := inlineDatePattern.FindStringSubmatch(text); m != nil {
		if t, err := parseAlertDate(m[1]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// directionFromSubject accepts an explicit alert type in the subject
// line as a direction marker.
func directionFromSubject(subject string) (models.Direction, bool) {
	s := strings.ToLower(subject)
	switch {
	case strings.Contains(s, "credit alert"):
		return models.Credit, true
	case strings.Contains(s, "debit alert"):
		return models.Debit, true
	}
	return "", false
}
