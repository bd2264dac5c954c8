package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/meggarmind/residio-email-imports/internal/matcher"
)

// FileDirectory loads the resident snapshot from a TOML file. The file
// is re-read on every Snapshot call so a long-running server picks up
// directory changes between runs.
//
//	[[residents]]
//	id = "res-001"
//	first_name = "Lana"
//	last_name = "Anih"
//	code = "OPE-014"
//	house_id = "house-014"
//	account_last4 = ["7725"]
//	aliases = ["OLIVE PARK ESTA"]
//
//	[[invoices]]
//	resident_id = "res-001"
//	amount = "15000.00"
//	due_date = "2026-01-10"
type FileDirectory struct {
	path string
}

func NewFileDirectory(path string) *FileDirectory {
	return &FileDirectory{path: path}
}

type directoryFile struct {
	Residents []residentRow `toml:"residents"`
	Invoices  []invoiceRow  `toml:"invoices"`
}

type residentRow struct {
	ID           string   `toml:"id"`
	FirstName    string   `toml:"first_name"`
	LastName     string   `toml:"last_name"`
	Code         string   `toml:"code"`
	HouseID      string   `toml:"house_id"`
	AccountLast4 []string `toml:"account_last4"`
	Aliases      []string `toml:"aliases"`
}

type invoiceRow struct {
	ResidentID string `toml:"resident_id"`
	Amount     string `toml:"amount"`
	DueDate    string `toml:"due_date"`
}

func (d *FileDirectory) Snapshot(ctx context.Context) (*matcher.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("reading directory file %s: %w", d.path, err)
	}

	var file directoryFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing directory file %s: %w", d.path, err)
	}

	residents := make([]matcher.Resident, 0, len(file.Residents))
	for _, r := range file.Residents {
		if r.ID == "" {
			return nil, fmt.Errorf("directory file %s: resident without id", d.path)
		}
		residents = append(residents, matcher.Resident{
			ID:           r.ID,
			FirstName:    r.FirstName,
			LastName:     r.LastName,
			Code:         r.Code,
			HouseID:      r.HouseID,
			AccountLast4: r.AccountLast4,
			Aliases:      r.Aliases,
		})
	}

	invoices := make([]matcher.Invoice, 0, len(file.Invoices))
	for _, row := range file.Invoices {
		amount, err := decimal.NewFromString(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("directory file %s: invoice amount %q: %w", d.path, row.Amount, err)
		}
		due, err := time.Parse("2006-01-02", row.DueDate)
		if err != nil {
			return nil, fmt.Errorf("directory file %s: invoice due date %q: %w", d.path, row.DueDate, err)
		}
		invoices = append(invoices, matcher.Invoice{
			ResidentID: row.ResidentID,
			Amount:     amount,
			DueDate:    due,
		})
	}

	return matcher.NewDirectory(residents, invoices), nil
}
