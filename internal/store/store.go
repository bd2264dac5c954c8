// Package store provides the pipeline's persistence edges: a payment
// store satisfying the duplicate-check and payment-creation contracts,
// and a file-backed resident directory provider. The payment store is
// in-memory; the surrounding application syncs it to its system of
// record outside this subsystem.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meggarmind/residio-email-imports/internal/engine"
	"github.com/meggarmind/residio-email-imports/internal/models"
)

// PaymentRecord is one recorded payment.
type PaymentRecord struct {
	ID         string
	ResidentID string
	Amount     decimal.Decimal
	Date       time.Time
	RefHash    string
	Narration  string
	CreatedAt  time.Time
}

// PaymentStore keeps created payments and answers duplicate checks
// against them. Safe for concurrent use.
type PaymentStore struct {
	mu       sync.RWMutex
	payments []PaymentRecord
}

func NewPaymentStore() *PaymentStore {
	return &PaymentStore{}
}

// Seed preloads existing payments, typically the recent payment
// history pulled from the system of record before a run.
func (s *PaymentStore) Seed(records []PaymentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, records...)
}

// Exists reports whether an equivalent payment is already recorded for
// the resident: same amount, and either the same reference hash or a
// date within the tolerance window.
func (s *PaymentStore) Exists(ctx context.Context, residentID string, amount decimal.Decimal, date string, refHash string, toleranceDays int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	txDate, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.payments {
		if p.ResidentID != residentID || !p.Amount.Equal(amount) {
			continue
		}
		if refHash != "" && p.RefHash == refHash {
			return true, nil
		}
		delta := txDate.Sub(p.Date)
		if delta < 0 {
			delta = -delta
		}
		if delta <= time.Duration(toleranceDays)*24*time.Hour {
			return true, nil
		}
	}
	return false, nil
}

// CreatePayment records a payment and returns its id.
func (s *PaymentStore) CreatePayment(ctx context.Context, tx models.Transaction, residentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := PaymentRecord{
		ID:         uuid.NewString(),
		ResidentID: residentID,
		Amount:     tx.Amount,
		Date:       tx.Date,
		RefHash:    engine.ReferenceHash(tx),
		Narration:  tx.Narration,
		CreatedAt:  time.Now(),
	}
	s.payments = append(s.payments, rec)
	return rec.ID, nil
}

// Payments returns a copy of the recorded payments.
func (s *PaymentStore) Payments() []PaymentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PaymentRecord, len(s.payments))
	copy(out, s.payments)
	return out
}
