package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meggarmind/residio-email-imports/internal/config"
	"github.com/meggarmind/residio-email-imports/internal/logger"
	"github.com/meggarmind/residio-email-imports/internal/matcher"
	"github.com/meggarmind/residio-email-imports/internal/models"
	"github.com/meggarmind/residio-email-imports/internal/store"
)

type fakeFetcher struct {
	connected bool
	emails    []models.RawEmail
}

func (f *fakeFetcher) Connected(ctx context.Context) bool { return f.connected }

func (f *fakeFetcher) FetchEmails(ctx context.Context, max int) ([]models.RawEmail, error) {
	if max > 0 && len(f.emails) > max {
		return f.emails[:max], nil
	}
	return f.emails, nil
}

type fakeDirectory struct {
	dir *matcher.Directory
}

func (d *fakeDirectory) Snapshot(ctx context.Context) (*matcher.Directory, error) {
	return d.dir, nil
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{dir: matcher.NewDirectory([]matcher.Resident{
		{
			ID:           "res-1",
			FirstName:    "Lana",
			LastName:     "Anih",
			HouseID:      "house-14",
			AccountLast4: []string{"4725"},
			Aliases:      []string{"OLIVE PARK ESTA"},
		},
	}, nil)}
}

func creditAlertEmail(id string) models.RawEmail {
	return models.RawEmail{
		ID:      id,
		Subject: "FirstBank Credit Alert",
		Body: `FirstBank Transaction Alert
Account Number
202XXXX4725
Date/Time
12-Jan-26 03:40 PM
Amount
15,000.00 CR
Narration
FIP:GTB/TRF to OLIVE PARK ESTA Ref: TRF/` + id + `
Cleared Balance
NGN7,061,617.47 CR`,
	}
}

func newTestPipeline(f Fetcher, d DirectoryProvider) (*Pipeline, *store.PaymentStore) {
	cfg := config.Default()
	payments := store.NewPaymentStore()
	return New(cfg, f, d, payments, payments, logger.Nop()), payments
}

func TestRun_SkippedWhenNotConnected(t *testing.T) {
	p, _ := newTestPipeline(&fakeFetcher{connected: false}, testDirectory())

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunSkipped, result.Summary.Status)
	assert.Zero(t, result.Summary.EmailsFetched)
	assert.NotEmpty(t, result.Summary.RunID)
}

func TestRun_EndToEndCreditAlert(t *testing.T) {
	f := &fakeFetcher{connected: true, emails: []models.RawEmail{creditAlertEmail("em-1")}}
	p, payments := newTestPipeline(f, testDirectory())

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	s := result.Summary
	assert.Equal(t, models.RunCompleted, s.Status)
	assert.Equal(t, 1, s.EmailsFetched)
	assert.Equal(t, 1, s.TransactionsExtracted)
	assert.Equal(t, 1, s.Matched)
	assert.Equal(t, 1, s.AutoProcessed, "alias plus matching amount should auto-process")
	assert.Zero(t, s.Errored)

	require.Len(t, result.Outcomes, 1)
	out := result.Outcomes[0]
	assert.Equal(t, models.ActionAutoProcessed, out.Action)
	assert.NotEmpty(t, out.PaymentID)
	assert.Equal(t, "res-1", out.Match.ResidentID)
	assert.Equal(t, "15000.00", out.Transaction.Amount.StringFixed(2))

	require.Len(t, payments.Payments(), 1)
}

func TestRun_DuplicateEmailIsSkippedSecondTime(t *testing.T) {
	f := &fakeFetcher{connected: true, emails: []models.RawEmail{
		creditAlertEmail("em-1"),
	}}
	p, _ := newTestPipeline(f, testDirectory())

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Summary.AutoProcessed)

	// The same email imported again must hit the duplicate gate.
	second, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Summary.AutoProcessed)
	assert.Equal(t, 1, second.Summary.SkippedDuplicates)
}

func TestRun_BadEmailIsIsolated(t *testing.T) {
	f := &fakeFetcher{connected: true, emails: []models.RawEmail{
		{ID: "em-empty", Subject: "Credit Alert", Body: "   "},
		creditAlertEmail("em-good"),
	}}
	p, _ := newTestPipeline(f, testDirectory())

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	s := result.Summary
	assert.Equal(t, 2, s.EmailsFetched)
	assert.Equal(t, 1, s.EmailsSkipped)
	assert.Equal(t, 1, s.AutoProcessed)
	assert.NotEmpty(t, s.ErrorSamples)
}

func TestRun_UnrecognizedFormatCountsAsError(t *testing.T) {
	f := &fakeFetcher{connected: true, emails: []models.RawEmail{
		{ID: "em-1", Subject: "Estate newsletter", Body: "nothing bank shaped in here"},
	}}
	p, _ := newTestPipeline(f, testDirectory())

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.Errored)
	assert.Zero(t, result.Summary.TransactionsExtracted)

	// The failure surfaces in the report as a terminal outcome that
	// never reached the matcher.
	require.Len(t, result.Outcomes, 1)
	o := result.Outcomes[0]
	assert.Equal(t, models.ActionErrored, o.Action)
	assert.Nil(t, o.Match)
	assert.Equal(t, "em-1", o.Transaction.SourceEmailID)
	assert.NotEmpty(t, o.ErrorDetail)
}

func TestRun_DebitIsNeverAutoProcessed(t *testing.T) {
	email := models.RawEmail{
		ID:      "em-debit",
		Subject: "FirstBank Debit Alert",
		Body: `FirstBank Transaction Alert
Date/Time
12-Jan-26 03:40 PM
Amount
15,000.00 DR
Narration
TRF to OLIVE PARK ESTA`,
	}
	f := &fakeFetcher{connected: true, emails: []models.RawEmail{email}}
	p, payments := newTestPipeline(f, testDirectory())

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Summary.AutoProcessed)
	assert.Equal(t, 1, result.Summary.QueuedForReview)
	assert.Empty(t, payments.Payments())
}

func TestRun_ManyEmailsUnderConcurrency(t *testing.T) {
	var emails []models.RawEmail
	for i := 0; i < 20; i++ {
		emails = append(emails, creditAlertEmail(fmt.Sprintf("em-%03d", i)))
	}
	f := &fakeFetcher{connected: true, emails: emails}
	p, payments := newTestPipeline(f, testDirectory())

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	s := result.Summary
	assert.Equal(t, 20, s.EmailsFetched)
	assert.Equal(t, 20, s.TransactionsExtracted)
	// All twenty share resident, amount and date, so exactly one may
	// create a payment; the rest are duplicates.
	assert.Equal(t, 1, s.AutoProcessed)
	assert.Equal(t, 19, s.SkippedDuplicates)
	require.Len(t, payments.Payments(), 1)
}
