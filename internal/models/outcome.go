package models

import "time"

// MatchTier buckets a confidence score into the levels that drive the
// auto-process / review decision.
type MatchTier string

const (
	TierHigh   MatchTier = "high"
	TierMedium MatchTier = "medium"
	TierLow    MatchTier = "low"
	TierNone   MatchTier = "none"
)

// SignalKind names one matching evidence source.
type SignalKind string

const (
	SignalMaskedAccount SignalKind = "masked_account"
	SignalAlias         SignalKind = "payment_alias"
	SignalName          SignalKind = "narration_name"
	SignalInvoice       SignalKind = "invoice_coincidence"
	SignalAmbiguity     SignalKind = "ambiguous_candidates"
)

// Evidence is one signal that contributed to a match.
type Evidence struct {
	Kind         SignalKind `json:"kind"`
	MatchedValue string     `json:"matched_value"`
	Weight       float64    `json:"weight"`
}

// MatchResult is a transaction plus its matching outcome. A result with
// no evidence has confidence 0 and tier none.
type MatchResult struct {
	Transaction Transaction
	ResidentID  string // empty when unmatched
	HouseID     string // empty when unknown
	Confidence  float64
	Tier        MatchTier
	Evidence    []Evidence
}

// Action is the terminal classification of one transaction for a run.
type Action string

const (
	ActionAutoProcessed    Action = "auto_processed"
	ActionQueuedForReview  Action = "queued_for_review"
	ActionSkippedDuplicate Action = "skipped_duplicate"
	ActionErrored          Action = "errored"
)

// ProcessingOutcome is the terminal record the decision engine emits
// per transaction. PaymentID is the external id of any created payment
// and is opaque to this subsystem.
type ProcessingOutcome struct {
	Transaction Transaction
	Match       *MatchResult // nil for transactions that never reached the matcher
	Action      Action
	PaymentID   string
	ErrorDetail string
}

// RunStatus reports how a whole pipeline run ended.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunSkipped   RunStatus = "skipped" // mailbox not connected, nothing attempted
)

// RunSummary is the sole contract the invoking scheduler depends on.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	Status    RunStatus `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`

	EmailsFetched         int `json:"emails_fetched"`
	EmailsSkipped         int `json:"emails_skipped"` // extraction failures
	TransactionsExtracted int `json:"transactions_extracted"`
	RowsSkipped           int `json:"rows_skipped"` // malformed statement rows
	Matched               int `json:"matched"`
	AutoProcessed         int `json:"auto_processed"`
	QueuedForReview       int `json:"queued_for_review"`
	SkippedDuplicates     int `json:"skipped_duplicates"`
	Errored               int `json:"errored"`

	// ErrorSamples holds a bounded sample of per-email and
	// per-transaction error details for the run report.
	ErrorSamples []string `json:"error_samples,omitempty"`
}
