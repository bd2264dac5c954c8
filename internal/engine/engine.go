// Package engine turns match results into terminal outcomes. It owns
// the ordering guarantees of the pipeline's write side: the duplicate
// gate always runs before any payment is created, debits are never
// auto-processed, and the duplicate-check-then-create sequence is
// serialized per resident so two workers cannot race the same payment
// into existence.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/meggarmind/residio-email-imports/internal/config"
	"github.com/meggarmind/residio-email-imports/internal/models"
)

// DuplicateChecker answers whether an equivalent payment already
// exists for a resident. Date comparison is widened by the configured
// tolerance in days.
type DuplicateChecker interface {
	Exists(ctx context.Context, residentID string, amount decimal.Decimal, date string, refHash string, toleranceDays int) (bool, error)
}

// PaymentCreator records a payment and returns its external id.
type PaymentCreator interface {
	CreatePayment(ctx context.Context, tx models.Transaction, residentID string) (string, error)
}

// Engine decides the terminal action for each matched transaction.
type Engine struct {
	cfg      config.Config
	dupes    DuplicateChecker
	payments PaymentCreator
	log      zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(cfg config.Config, dupes DuplicateChecker, payments PaymentCreator, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		dupes:    dupes,
		payments: payments,
		log:      log,
		locks:    make(map[string]*sync.Mutex),
	}
}

// residentLock returns the mutex serializing writes for one resident.
func (e *Engine) residentLock(residentID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[residentID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[residentID] = l
	}
	return l
}

// Decide computes the terminal outcome for one match result. A failure
// in the duplicate check or payment creation is confined to this
// transaction; the caller keeps processing the rest of the batch.
func (e *Engine) Decide(ctx context.Context, m models.MatchResult) models.ProcessingOutcome {
	tx := m.Transaction
	outcome := models.ProcessingOutcome{Transaction: tx, Match: &m}

	if m.Tier == models.TierNone || m.ResidentID == "" {
		outcome.Action = models.ActionQueuedForReview
		return outcome
	}

	lock := e.residentLock(m.ResidentID)
	lock.Lock()
	defer lock.Unlock()

	// The duplicate gate runs before anything else, even for
	// transactions that would only be queued for review.
	exists, err := e.dupes.Exists(ctx, m.ResidentID, tx.Amount, tx.Date.Format("2006-01-02"), ReferenceHash(tx), e.cfg.DuplicateToleranceDays)
	if err != nil {
		outcome.Action = models.ActionErrored
		outcome.ErrorDetail = fmt.Sprintf("duplicate check: %v", err)
		e.log.Error().Err(err).Str("resident", m.ResidentID).Msg("duplicate check failed")
		return outcome
	}
	if exists {
		outcome.Action = models.ActionSkippedDuplicate
		e.log.Info().
			Str("resident", m.ResidentID).
			Str("amount", tx.Amount.StringFixed(2)).
			Msg("skipping duplicate transaction")
		return outcome
	}

	if !e.shouldAutoProcess(m) {
		outcome.Action = models.ActionQueuedForReview
		return outcome
	}

	paymentID, err := e.payments.CreatePayment(ctx, tx, m.ResidentID)
	if err != nil {
		outcome.Action = models.ActionErrored
		outcome.ErrorDetail = fmt.Sprintf("creating payment: %v", err)
		e.log.Error().Err(err).Str("resident", m.ResidentID).Msg("payment creation failed")
		return outcome
	}

	outcome.Action = models.ActionAutoProcessed
	outcome.PaymentID = paymentID
	e.log.Info().
		Str("resident", m.ResidentID).
		Str("payment", paymentID).
		Str("amount", tx.Amount.StringFixed(2)).
		Msg("auto-processed payment")
	return outcome
}

// shouldAutoProcess gates payment creation. Only high-confidence
// credits with no warnings qualify, and only when auto-processing is
// enabled at all. Debits never qualify regardless of confidence.
func (e *Engine) shouldAutoProcess(m models.MatchResult) bool {
	if !e.cfg.AutoProcess {
		return false
	}
	if m.Transaction.Direction != models.Credit {
		return false
	}
	if m.Tier != models.TierHigh {
		return false
	}
	if len(m.Transaction.Warnings) > 0 {
		return false
	}
	return true
}

// ReferenceHash is the duplicate-detection key for a transaction: the
// bank reference when present, otherwise a hash of the normalized
// narration so the same transfer seen through an alert and a statement
// still collides.
func ReferenceHash(tx models.Transaction) string {
	if tx.Reference != "" {
		return tx.Reference
	}
	normalized := strings.Join(strings.Fields(strings.ToUpper(tx.Narration)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:8])
}
