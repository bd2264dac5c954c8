package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meggarmind/residio-email-imports/internal/models"
)

// FirstBankStatementParser parses the text layer of First Bank PDF
// statements. Statement rows are columnar:
//
//	04-Jan-26  NIP/GTB/ANIH LANA/TRF  000013260104  15,000.00  7,061,617.47
//
// i.e. transaction date, narration/reference, amount, running balance.
// The statement has no CR/DR column; direction is derived from the
// running balance: a row whose balance equals the previous balance plus
// the amount is a credit, minus is a debit. Rows where neither holds
// (or where no prior balance is known) are counted as skipped rather
// than guessed.
type FirstBankStatementParser struct{}

func (p *FirstBankStatementParser) Name() string { return "firstbank-statement" }

var firstBankStatementIndicators = []string{
	"first bank",
	"firstbank",
	"statement of account",
}

var (
	statementRowPattern = regexp.MustCompile(`^(\d{2}-[A-Za-z]{3}-\d{2})\s+(.+?)\s+([\d,]+\.\d{2})\s+([\d,]+\.\d{2})\s*$`)
	rowStartPattern     = regexp.MustCompile(`^\d{2}-[A-Za-z]{3}-\d{2}\b`)
	openingBalPattern   = regexp.MustCompile(`(?i)^opening\s+balance\b[:\s]*(?:NGN|\x{20A6})?\s*([\d,]+\.\d{2})`)
	trailingAmountsPat  = regexp.MustCompile(`[\d,]+\.\d{2}\s*$`)
)

// Header and footer lines that carry no transactions.
var statementNoiseMarkers = []string{
	"trans date", "transaction date", "value date", "narration",
	"reference", "debit", "credit", "balance", "closing balance",
	"total", "page", "account name", "account number", "statement",
	"period", "branch", "first bank",
}

func isStatementNoise(line string) bool {
	return containsAny(line, statementNoiseMarkers)
}

func (p *FirstBankStatementParser) TryParse(c models.ExtractionCandidate) Result {
	if c.Kind != models.KindPDFAttachment {
		return notMine()
	}
	if !containsAny(c.Subject+"\n"+c.Text, firstBankStatementIndicators) {
		return notMine()
	}

	accountLast4 := extractAccountLast4(c.Text)
	now := time.Now()

	var (
		txs         []models.Transaction
		skipped     int
		prevBalance *decimal.Decimal
	)

	for _, raw := range strings.Split(c.Text, "\n") {
		line := normalizeStatementLine(raw)
		if line == "" {
			continue
		}

		if m := openingBalPattern.FindStringSubmatch(line); m != nil {
			if bal, err := parseAmount(m[1]); err == nil {
				prevBalance = &bal
			}
			continue
		}

		m := statementRowPattern.FindStringSubmatch(line)
		if m == nil {
			if rowStartPattern.MatchString(line) {
				// Looks like a transaction row but the columns are
				// broken: count it, keep going.
				skipped++
				continue
			}
			if isStatementNoise(line) {
				continue
			}
			// Narration continuation of the previous row.
			if len(txs) > 0 && !trailingAmountsPat.MatchString(line) {
				txs[len(txs)-1].Narration = strings.TrimSpace(txs[len(txs)-1].Narration + " " + cleanNarration(line))
			}
			continue
		}

		date, err := parseStatementDate(m[1])
		if err != nil {
			skipped++
			continue
		}
		amount, aerr := parseAmount(m[3])
		balance, berr := parseAmount(m[4])
		if aerr != nil || berr != nil || amount.IsZero() {
			skipped++
			continue
		}

		dir, ok := directionFromBalance(prevBalance, amount, balance)
		if !ok {
			// Ambiguous direction is never defaulted.
			skipped++
			prevBalance = &balance
			continue
		}
		prevBalance = &balance

		narration := cleanNarration(m[2])
		bal := balance
		txs = append(txs, models.Transaction{
			SourceEmailID: c.EmailID,
			Bank:          p.Name(),
			Date:          date,
			Amount:        amount,
			Direction:     dir,
			Narration:     narration,
			Balance:       &bal,
			Reference:     extractReference(narration),
			AccountLast4:  accountLast4,
			Warnings:      dateWarnings(date, now),
		})
	}

	if len(txs) == 0 && skipped == 0 {
		return failed("no transaction rows found in statement")
	}
	return Result{Status: Parsed, Transactions: txs, SkippedRows: skipped}
}

func normalizeStatementLine(line string) string {
	line = strings.ReplaceAll(line, " ", " ")
	line = strings.ReplaceAll(line, "​", "")
	return strings.TrimSpace(line)
}

// directionFromBalance resolves a row's direction from the running
// balance delta. Both checks failing means the row (or our notion of
// the previous balance) is unreliable, and the caller must not guess.
func directionFromBalance(prev *decimal.Decimal, amount, balance decimal.Decimal) (models.Direction, bool) {
	if prev == nil {
		return "", false
	}
	switch {
	case prev.Add(amount).Equal(balance):
		return models.Credit, true
	case prev.Sub(amount).Equal(balance):
		return models.Debit, true
	}
	return "", false
}
