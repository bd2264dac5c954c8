// Package pipeline orchestrates one import run: fetch emails, extract
// candidates, parse transactions, match residents, and decide outcomes.
// Emails are processed by a bounded worker pool; every per-email and
// per-transaction failure is recorded and isolated so one bad email
// never aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meggarmind/residio-email-imports/internal/config"
	"github.com/meggarmind/residio-email-imports/internal/engine"
	"github.com/meggarmind/residio-email-imports/internal/extractor"
	"github.com/meggarmind/residio-email-imports/internal/matcher"
	"github.com/meggarmind/residio-email-imports/internal/models"
	"github.com/meggarmind/residio-email-imports/internal/parser"
)

// maxErrorSamples bounds how many error details a run report carries.
const maxErrorSamples = 10

// Fetcher supplies the unread transaction emails for a run.
type Fetcher interface {
	// Connected reports whether the mailbox is reachable. A run against
	// a disconnected mailbox is skipped, not failed.
	Connected(ctx context.Context) bool
	FetchEmails(ctx context.Context, max int) ([]models.RawEmail, error)
}

// DirectoryProvider supplies the resident snapshot used for matching.
type DirectoryProvider interface {
	Snapshot(ctx context.Context) (*matcher.Directory, error)
}

// Pipeline wires the stages together for repeated runs.
type Pipeline struct {
	cfg       config.Config
	fetcher   Fetcher
	directory DirectoryProvider
	extract   *extractor.Extractor
	registry  *parser.Registry
	engine    *engine.Engine
	log       zerolog.Logger
}

func New(cfg config.Config, fetcher Fetcher, directory DirectoryProvider, dupes engine.DuplicateChecker, payments engine.PaymentCreator, log zerolog.Logger) *Pipeline {
	registry := parser.DefaultRegistry()
	if len(cfg.EnabledParsers) > 0 {
		registry = registry.Enabled(cfg.EnabledParsers)
	}
	return &Pipeline{
		cfg:       cfg,
		fetcher:   fetcher,
		directory: directory,
		extract:   extractor.New(cfg.PDF),
		registry:  registry,
		engine:    engine.New(cfg, dupes, payments, log),
		log:       log,
	}
}

// Result is everything one run produced: the scheduler-facing summary
// plus the per-transaction outcomes for reporting.
type Result struct {
	Summary  models.RunSummary
	Outcomes []models.ProcessingOutcome
}

// emailResult is the aggregate a worker produces for one email.
type emailResult struct {
	extractionFailure *models.ExtractionFailure
	rowsSkipped       int
	outcomes          []models.ProcessingOutcome
}

// Run executes one full import run. Cancelling the context stops new
// emails from being taken up; emails already being processed are
// finished and included in the summary.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	started := time.Now()
	summary := models.RunSummary{
		RunID:     uuid.NewString(),
		Status:    models.RunCompleted,
		StartedAt: started,
	}
	log := p.log.With().Str("run", summary.RunID).Logger()

	if !p.fetcher.Connected(ctx) {
		log.Warn().Msg("mailbox not connected, skipping run")
		summary.Status = models.RunSkipped
		summary.Duration = time.Since(started).String()
		return Result{Summary: summary}, nil
	}

	emails, err := p.fetcher.FetchEmails(ctx, p.cfg.MaxEmails)
	if err != nil {
		summary.Duration = time.Since(started).String()
		return Result{Summary: summary}, fmt.Errorf("fetching emails: %w", err)
	}
	summary.EmailsFetched = len(emails)
	log.Info().Int("emails", len(emails)).Msg("starting import run")

	dir, err := p.directory.Snapshot(ctx)
	if err != nil {
		summary.Duration = time.Since(started).String()
		return Result{Summary: summary}, fmt.Errorf("loading resident directory: %w", err)
	}

	results := p.fanOut(ctx, emails, dir)

	var outcomes []models.ProcessingOutcome
	for _, r := range results {
		if r.extractionFailure != nil {
			summary.EmailsSkipped++
			addSample(&summary, r.extractionFailure.Error())
			continue
		}
		summary.RowsSkipped += r.rowsSkipped
		for _, o := range r.outcomes {
			// A nil Match means the candidate failed to parse and never
			// reached the matcher.
			if o.Match != nil {
				summary.TransactionsExtracted++
				if o.Match.Tier != models.TierNone {
					summary.Matched++
				}
			}
			switch o.Action {
			case models.ActionAutoProcessed:
				summary.AutoProcessed++
			case models.ActionQueuedForReview:
				summary.QueuedForReview++
			case models.ActionSkippedDuplicate:
				summary.SkippedDuplicates++
			case models.ActionErrored:
				summary.Errored++
				addSample(&summary, o.ErrorDetail)
			}
			outcomes = append(outcomes, o)
		}
	}

	summary.Duration = time.Since(started).String()
	log.Info().
		Int("extracted", summary.TransactionsExtracted).
		Int("auto_processed", summary.AutoProcessed).
		Int("review", summary.QueuedForReview).
		Int("duplicates", summary.SkippedDuplicates).
		Int("errored", summary.Errored).
		Msg("import run finished")
	return Result{Summary: summary, Outcomes: outcomes}, nil
}

// fanOut processes emails with a bounded worker pool and returns one
// result per email that was taken up before cancellation.
func (p *Pipeline) fanOut(ctx context.Context, emails []models.RawEmail, dir *matcher.Directory) []emailResult {
	jobs := make(chan models.RawEmail)
	out := make(chan emailResult, len(emails))

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for email := range jobs {
				out <- p.processEmail(ctx, email, dir)
			}
		}()
	}

feed:
	for _, email := range emails {
		select {
		case jobs <- email:
		case <-ctx.Done():
			// Stop intake; in-flight emails still finish.
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(out)

	var results []emailResult
	for r := range out {
		results = append(results, r)
	}
	return results
}

// processEmail runs one email through extract, parse, match, decide.
func (p *Pipeline) processEmail(ctx context.Context, email models.RawEmail, dir *matcher.Directory) emailResult {
	var res emailResult

	candidates, fail := p.extract.Extract(email)
	if fail != nil {
		p.log.Warn().
			Str("email", email.ID).
			Str("code", string(fail.Code)).
			Msg("extraction failed")
		res.extractionFailure = fail
		return res
	}

	for _, cand := range candidates {
		parsed, parserName := p.registry.Parse(cand)
		switch parsed.Status {
		case parser.Failed:
			// The failure surfaces as a terminal outcome with no Match,
			// so the report shows it alongside processed transactions.
			res.outcomes = append(res.outcomes, models.ProcessingOutcome{
				Transaction: models.Transaction{SourceEmailID: email.ID},
				Action:      models.ActionErrored,
				ErrorDetail: fmt.Sprintf("email %s: %s", email.ID, parsed.Reason),
			})
			p.log.Warn().
				Str("email", email.ID).
				Str("reason", parsed.Reason).
				Msg("parse failed")
			continue
		case parser.Parsed:
			res.rowsSkipped += parsed.SkippedRows
			for _, tx := range parsed.Transactions {
				m := matcher.Match(tx, dir)
				res.outcomes = append(res.outcomes, p.engine.Decide(ctx, m))
			}
			p.log.Debug().
				Str("email", email.ID).
				Str("type", string(cand.EmailType)).
				Str("parser", parserName).
				Int("transactions", len(parsed.Transactions)).
				Msg("parsed email")
		}
	}
	return res
}

func addSample(s *models.RunSummary, msg string) {
	if msg != "" && len(s.ErrorSamples) < maxErrorSamples {
		s.ErrorSamples = append(s.ErrorSamples, msg)
	}
}
