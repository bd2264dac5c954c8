// Package writer exports run results for humans: the per-transaction
// outcome report and the review queue an administrator works through.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/meggarmind/residio-email-imports/internal/models"
)

// CSVWriter writes processing outcomes to CSV format.
type CSVWriter struct {
	// ReviewOnly restricts the output to transactions queued for
	// review, which is the list an administrator actually works.
	ReviewOnly bool
}

// WriteToFile writes outcomes to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, outcomes []models.ProcessingOutcome) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, outcomes)
}

// Write writes outcomes in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, outcomes []models.ProcessingOutcome) error {
	writer := csv.NewWriter(out)
	defer writer.Flush()

	header := []string{
		"Date", "Bank", "Direction", "Amount", "Narration", "Reference",
		"Resident", "House", "Confidence", "Tier", "Action", "Payment ID", "Error",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, o := range outcomes {
		if w.ReviewOnly && o.Action != models.ActionQueuedForReview {
			continue
		}

		residentID, houseID, confidence, tier := "", "", "", ""
		if o.Match != nil {
			residentID = o.Match.ResidentID
			houseID = o.Match.HouseID
			confidence = strconv.FormatFloat(o.Match.Confidence, 'f', 2, 64)
			tier = string(o.Match.Tier)
		}

		tx := o.Transaction
		date := ""
		if !tx.Date.IsZero() {
			date = tx.Date.Format("2006-01-02")
		}
		row := []string{
			date,
			tx.Bank,
			string(tx.Direction),
			tx.Amount.StringFixed(2),
			tx.Narration,
			tx.Reference,
			residentID,
			houseID,
			confidence,
			tier,
			string(o.Action),
			o.PaymentID,
			o.ErrorDetail,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return nil
}
