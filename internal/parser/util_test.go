package parser

import (
	"testing"
	"time"

	"github.com/meggarmind/residio-email-imports/internal/models"
)

func TestSplitAmountDirection(t *testing.T) {
	tests := []struct {
		in      string
		numeric string
		dir     models.Direction
		ok      bool
	}{
		{"15,000.00 CR", "15,000.00", models.Credit, true},
		{"15,000.00 DR", "15,000.00", models.Debit, true},
		{"15,000.00 cr", "15,000.00", models.Credit, true},
		{"NGN7,061,617.47 CR", "NGN7,061,617.47", models.Credit, true},
		{"15,000.00", "15,000.00", "", false},
		{"CREDIT 15,000.00", "CREDIT 15,000.00", "", false},
	}

	for _, tt := range tests {
		numeric, dir, ok := splitAmountDirection(tt.in)
		if ok != tt.ok || dir != tt.dir || numeric != tt.numeric {
			t.Errorf("splitAmountDirection(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, numeric, dir, ok, tt.numeric, tt.dir, tt.ok)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"15,000.00", "15000.00", false},
		{"NGN 15,000.00", "15000.00", false},
		{"₦7,061,617.47", "7061617.47", false},
		{"0.01", "0.01", false},
		{"-500.00", "", true},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseAmount(%q): expected error, got %s", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAmount(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got.StringFixed(2) != tt.want {
			t.Errorf("parseAmount(%q) = %s, want %s", tt.in, got.StringFixed(2), tt.want)
		}
	}
}

func TestParseAmount_ExactDecimal(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3; amounts never pass through floats.
	a, _ := parseAmount("0.10")
	b, _ := parseAmount("0.20")
	c, _ := parseAmount("0.30")
	if !a.Add(b).Equal(c) {
		t.Errorf("0.10 + 0.20 = %s, want 0.30", a.Add(b))
	}
}

func TestParseStatementDate(t *testing.T) {
	for _, in := range []string{"04-Jan-26", "04-JAN-26", "04-jan-26"} {
		got, err := parseStatementDate(in)
		if err != nil {
			t.Errorf("parseStatementDate(%q): %v", in, err)
			continue
		}
		if got.Format("2006-01-02") != "2026-01-04" {
			t.Errorf("parseStatementDate(%q) = %s", in, got.Format("2006-01-02"))
		}
	}

	if _, err := parseStatementDate("2026-01-04"); err == nil {
		t.Error("expected error for non-statement layout")
	}
}

func TestDateWarnings(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	if w := dateWarnings(now.AddDate(0, -3, 0), now); len(w) != 0 {
		t.Errorf("recent date flagged: %v", w)
	}
	if w := dateWarnings(now.AddDate(-5, 0, 0), now); len(w) != 1 {
		t.Error("expected warning for a five-year-old date")
	}
	if w := dateWarnings(now.AddDate(5, 0, 0), now); len(w) != 1 {
		t.Error("expected warning for a far-future date")
	}
}

func TestExtractReference(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"NIP Transfer Ref: TRF/123456789.", "TRF/123456789"},
		{"Reference: ABCD1234", "ABCD1234"},
		{"Session ID: 000013260104", "000013260104"},
		{"narration without markers", ""},
	}
	for _, tt := range tests {
		if got := extractReference(tt.in); got != tt.want {
			t.Errorf("extractReference(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractAccountLast4(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"****1234", "1234"},
		{"Account 202XXXX4725", "4725"},
		{"***456*0789", "0789"},
		{"no digits", ""},
	}
	for _, tt := range tests {
		if got := extractAccountLast4(tt.in); got != tt.want {
			t.Errorf("extractAccountLast4(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanNarration(t *testing.T) {
	got := cleanNarration("FIP:GTB/ANIH  LANA/NIP\tTransfer to  OLIVE PARK ESTA")
	want := "FIP:GTB/ANIH LANA/NIP Transfer to OLIVE PARK ESTA"
	if got != want {
		t.Errorf("cleanNarration = %q, want %q", got, want)
	}
}
