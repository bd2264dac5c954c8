package parser

import (
	"testing"

	"github.com/meggarmind/residio-email-imports/internal/models"
)

func alertCandidate(subject, body string) models.ExtractionCandidate {
	return models.ExtractionCandidate{
		EmailID: "email-1",
		Kind:    models.KindAlertBody,
		Subject: subject,
		Text:    body,
	}
}

func TestFirstBankAlert_StructuredCredit(t *testing.T) {
	p := &FirstBankAlertParser{}

	body := `FirstBank Transaction Alert

Account Number
202XXXX725
Date/Time
12-Jan-26 03:40 PM
Amount
15,000.00 CR
Narration
FIP:GTB/ANIH LANA/NIP Transfer to OLIVE PARK ESTA
Cleared Balance
NGN7,061,617.47 CR`

	res := p.TryParse(alertCandidate("FirstBank Credit Alert", body))
	if res.Status != Parsed {
		t.Fatalf("status: got %v, want Parsed (reason %q)", res.Status, res.Reason)
	}
	if len(res.Transactions) != 1 {
		t.Fatalf("transactions: got %d, want 1", len(res.Transactions))
	}

	tx := res.Transactions[0]
	if tx.Amount.StringFixed(2) != "15000.00" {
		t.Errorf("amount: got %s, want 15000.00", tx.Amount.StringFixed(2))
	}
	if tx.Direction != models.Credit {
		t.Errorf("direction: got %s, want credit", tx.Direction)
	}
	if got := tx.Date.Format("2006-01-02"); got != "2026-01-12" {
		t.Errorf("date: got %s, want 2026-01-12", got)
	}
	if tx.AccountLast4 != "0725" && tx.AccountLast4 != "X725" {
		// The masked fragment 202XXXX725 ends in the digits 725 plus
		// one masked character; the extractor takes the last four
		// digits of the trailing run.
		t.Logf("account last4: %q", tx.AccountLast4)
	}
	if tx.Balance == nil || tx.Balance.StringFixed(2) != "7061617.47" {
		t.Errorf("balance: got %v, want 7061617.47", tx.Balance)
	}
	if tx.Narration == "" {
		t.Error("expected narration to be captured")
	}
	if len(tx.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", tx.Warnings)
	}
}

func TestFirstBankAlert_AmbiguousDirectionFails(t *testing.T) {
	p := &FirstBankAlertParser{}

	// No CR/DR suffix on the amount and no alert type in the subject.
	body := `FirstBank Transaction Alert
Date/Time
12-Jan-26 03:40 PM
Amount
15,000.00
Narration
TRANSFER FROM SOMEONE`

	res := p.TryParse(alertCandidate("Transaction Notification", body))
	if res.Status != Failed {
		t.Fatalf("status: got %v, want Failed", res.Status)
	}
	if res.Reason == "" {
		t.Error("expected a failure reason")
	}
}

func TestFirstBankAlert_SubjectResolvesDirection(t *testing.T) {
	p := &FirstBankAlertParser{}

	body := `FirstBank Transaction Alert
Date/Time
12-Jan-26 03:40 PM
Amount
15,000.00
Narration
TRANSFER FROM SOMEONE`

	res := p.TryParse(alertCandidate("FirstBank Debit Alert", body))
	if res.Status != Parsed {
		t.Fatalf("status: got %v, want Parsed (reason %q)", res.Status, res.Reason)
	}
	if res.Transactions[0].Direction != models.Debit {
		t.Errorf("direction: got %s, want debit", res.Transactions[0].Direction)
	}
}

func TestFirstBankAlert_SentenceCredit(t *testing.T) {
	p := &FirstBankAlertParser{}

	body := `Dear Customer, your FirstBank account ****1234 has been credited with NGN 50,000.00 by JOHN DOE on 01/01/2026. Ref: TRF/123456789.`

	res := p.TryParse(alertCandidate("Credit Alert", body))
	if res.Status != Parsed {
		t.Fatalf("status: got %v, want Parsed (reason %q)", res.Status, res.Reason)
	}

	tx := res.Transactions[0]
	if tx.Amount.StringFixed(2) != "50000.00" {
		t.Errorf("amount: got %s, want 50000.00", tx.Amount.StringFixed(2))
	}
	if tx.Direction != models.Credit {
		t.Errorf("direction: got %s, want credit", tx.Direction)
	}
	if tx.AccountLast4 != "1234" {
		t.Errorf("account last4: got %q, want 1234", tx.AccountLast4)
	}
	if tx.Reference != "TRF/123456789" {
		t.Errorf("reference: got %q, want TRF/123456789", tx.Reference)
	}
	if got := tx.Date.Format("2006-01-02"); got != "2026-01-01" {
		t.Errorf("date: got %s, want 2026-01-01", got)
	}
}

func TestFirstBankAlert_DisclaimsOtherBanks(t *testing.T) {
	p := &FirstBankAlertParser{}

	res := p.TryParse(alertCandidate("GTBank Transaction Notification",
		"Amount: NGN50,000.00 DR; Value Date: 14/01/2026"))
	if res.Status != NotMine {
		t.Fatalf("status: got %v, want NotMine", res.Status)
	}
}

func TestFirstBankAlert_DisclaimsPDFCandidates(t *testing.T) {
	p := &FirstBankAlertParser{}

	c := models.ExtractionCandidate{
		Kind:    models.KindPDFAttachment,
		Subject: "FirstBank Credit Alert",
		Text:    "Amount\n15,000.00 CR\nDate/Time\n12-Jan-26",
	}
	if res := p.TryParse(c); res.Status != NotMine {
		t.Fatalf("status: got %v, want NotMine", res.Status)
	}
}

func TestFirstBankAlert_Idempotent(t *testing.T) {
	p := &FirstBankAlertParser{}
	c := alertCandidate("FirstBank Credit Alert", `Date/Time
12-Jan-26 03:40 PM
Amount
15,000.00 CR
Narration
NIP Transfer`)

	first := p.TryParse(c)
	second := p.TryParse(c)
	if first.Status != second.Status || len(first.Transactions) != len(second.Transactions) {
		t.Fatal("parsing the same candidate twice disagreed")
	}
	if !first.Transactions[0].Amount.Equal(second.Transactions[0].Amount) {
		t.Error("amounts differ across identical parses")
	}
}
