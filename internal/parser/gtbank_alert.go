package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/meggarmind/residio-email-imports/internal/models"
)

// GTBankAlertParser parses GTBank transaction notification emails.
// GTBank alerts are a single prose block with semicolon/comma separated
// labeled fields:
//
//	"Transaction Notification: Amount: NGN50,000.00 DR; Account
//	 Number: ***456*789; Description: TRANSFER TO ADEBAYO K;
//	 Value Date: 14/01/2026; Available Balance: NGN1,203,441.10"
//
// The direction marker is the CR/DR suffix on the amount, or the word
// Credit/Debit in parentheses right after it.
type GTBankAlertParser struct{}

func (p *GTBankAlertParser) Name() string { return "gtbank-alert" }

var gtBankIndicators = []string{
	"gtbank",
	"guaranty trust",
	"gtworld",
	"gens@gtbank",
}

var (
	gtAmountField  = regexp.MustCompile(`(?i)\bamount[:\s]+((?:NGN|\x{20A6})?\s*[\d,]+\.\d{2}\s*(?:CR|DR)?\s*(?:\((?:credit|debit)\))?)`)
	gtParenDir     = regexp.MustCompile(`(?i)\((credit|debit)\)`)
	gtAccountField = regexp.MustCompile(`(?i)\baccount\s*(?:number|no)?[:\s]+([\dXx*\-]+)`)
	gtDescField    = regexp.MustCompile(`(?i)\b(?:description|remarks|narration)[:\s]+([^;|]+)`)
	gtDateField    = regexp.MustCompile(`(?i)\b(?:value\s*)?date[:\s]+([\d/\-A-Za-z: ]+?)(?:[;|]|$)`)
	gtBalanceField = regexp.MustCompile(`(?i)\b(?:available|avail\.?|cleared)\s*balance[:\s]+((?:NGN|\x{20A6})?\s*[\d,]+\.\d{2})`)
)

func (p *GTBankAlertParser) TryParse(c models.ExtractionCandidate) Result {
	if c.Kind != models.KindAlertBody {
		return notMine()
	}
	text := c.Subject + "\n" + c.Text
	if !containsAny(text, gtBankIndicators) {
		return notMine()
	}

	flat := strings.Join(strings.Fields(c.Text), " ")

	m := gtAmountField.FindStringSubmatch(flat)
	if m == nil {
		return failed("no amount field in notification")
	}
	rawAmount := strings.TrimSpace(m[1])

	dir, hasMarker := gtDirection(rawAmount, c.Subject)
	if !hasMarker {
		return failed("ambiguous transaction direction: no CR/DR marker")
	}

	numeric := gtParenDir.ReplaceAllString(rawAmount, "")
	numeric, _, _ = splitAmountDirection(numeric)
	amount, err := parseAmount(numeric)
	if err != nil || amount.IsZero() {
		return failed("unparseable amount: " + rawAmount)
	}

	dm := gtDateField.FindStringSubmatch(flat)
	if dm == nil {
		return failed("no transaction date in notification")
	}
	date, err := parseAlertDate(strings.TrimSpace(dm[1]))
	if err != nil {
		return failed(err.Error())
	}

	tx := models.Transaction{
		SourceEmailID: c.EmailID,
		Bank:          p.Name(),
		Date:          date,
		Amount:        amount,
		Direction:     dir,
		Warnings:      dateWarnings(date, time.Now()),
	}
	if am := gtAccountField.FindStringSubmatch(flat); am != nil {
		tx.AccountLast4 = extractAccountLast4(am[1])
	}
	if descm := gtDescField.FindStringSubmatch(flat); descm != nil {
		tx.Narration = cleanNarration(descm[1])
	}
	if bm := gtBalanceField.FindStringSubmatch(flat); bm != nil {
		if bal, err := parseAmount(bm[1]); err == nil {
			tx.Balance = &bal
		}
	}
	tx.Reference = extractReference(flat)

	return Result{Status: Parsed, Transactions: []models.Transaction{tx}}
}

// gtDirection resolves the direction from the amount suffix, the
// parenthesised word, or an explicit alert type in the subject.
func gtDirection(rawAmount, subject string) (models.Direction, bool) {
	if m := gtParenDir.FindStringSubmatch(rawAmount); m != nil {
		if strings.EqualFold(m[1], "credit") {
			return models.Credit, true
		}
		return models.Debit, true
	}
	trimmed := gtParenDir.ReplaceAllString(rawAmount, "")
	if _, dir, ok := splitAmountDirection(strings.TrimSpace(trimmed)); ok {
		return dir, true
	}
	return directionFromSubject(subject)
}
