// Package matcher maps parsed bank transactions to residents. It is a
// pure function of the transaction and a read-only directory snapshot;
// persistence and side effects live elsewhere.
//
// Evidence sources, strongest first: a registered masked-account
// fragment, a payment alias appearing in the narration, a fuzzy name
// match against the narration, and an outstanding invoice coinciding in
// amount and date. Signals combine with diminishing returns, so only a
// masked-account match can reach the high tier on its own.
package matcher

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/meggarmind/residio-email-imports/internal/models"
)

// Signal weights. Combined as 1 - Π(1-w): one signal alone never
// saturates, and adding evidence never lowers the score.
const (
	weightMaskedAccount = 0.85
	weightAlias         = 0.75
	weightNameMax       = 0.60
	weightInvoice       = 0.30
)

// tieEpsilon is the score distance inside which two residents count as
// tied for the top candidate.
const tieEpsilon = 0.05

// invoiceDateWindow is how far a transaction date may sit from an
// invoice due date for the amounts to count as a coincidence.
const invoiceDateWindow = 30 * 24 * time.Hour

// Resident is one active resident in the directory snapshot.
type Resident struct {
	ID           string
	FirstName    string
	LastName     string
	Code         string
	HouseID      string
	AccountLast4 []string // registered masked account fragments
	Aliases      []string // known payment narration aliases
}

// Invoice is one outstanding invoice, used as corroborating evidence.
type Invoice struct {
	ResidentID string
	Amount     decimal.Decimal
	DueDate    time.Time
}

// Directory is the read-only resident snapshot for one run, with
// lookup indexes built once up front.
type Directory struct {
	residents []Resident
	byAccount map[string][]*Resident
	invoices  map[string][]Invoice
}

// NewDirectory indexes the snapshot.
func NewDirectory(residents []Resident, invoices []Invoice) *Directory {
	d := &Directory{
		residents: residents,
		byAccount: make(map[string][]*Resident),
		invoices:  make(map[string][]Invoice),
	}
	for i := range d.residents {
		r := &d.residents[i]
		for _, acct := range r.AccountLast4 {
			d.byAccount[acct] = append(d.byAccount[acct], r)
		}
	}
	for _, inv := range invoices {
		d.invoices[inv.ResidentID] = append(d.invoices[inv.ResidentID], inv)
	}
	return d
}

// Residents exposes the snapshot, for reporting.
func (d *Directory) Residents() []Resident { return d.residents }

type candidate struct {
	resident *Resident
	evidence []models.Evidence
	score    float64
}

// Match computes the best-candidate resident for one transaction. It
// never fails: an unmatchable transaction yields tier none with no
// evidence.
func Match(tx models.Transaction, dir *Directory) models.MatchResult {
	byResident := make(map[string]*candidate)
	get := func(r *Resident) *candidate {
		c, ok := byResident[r.ID]
		if !ok {
			c = &candidate{resident: r}
			byResident[r.ID] = c
		}
		return c
	}

	// Masked account correspondence.
	if tx.AccountLast4 != "" {
		for _, r := range dir.byAccount[tx.AccountLast4] {
			c := get(r)
			c.evidence = append(c.evidence, models.Evidence{
				Kind:         models.SignalMaskedAccount,
				MatchedValue: tx.AccountLast4,
				Weight:       weightMaskedAccount,
			})
		}
	}

	narration := strings.ToUpper(tx.Narration)
	narrationTokens := tokenize(narration)

	for i := range dir.residents {
		r := &dir.residents[i]

		// Alias containment.
		for _, alias := range r.Aliases {
			a := strings.ToUpper(strings.TrimSpace(alias))
			if a != "" && strings.Contains(narration, a) {
				c := get(r)
				c.evidence = append(c.evidence, models.Evidence{
					Kind:         models.SignalAlias,
					MatchedValue: alias,
					Weight:       weightAlias,
				})
				break
			}
		}

		// Fuzzy name match.
		if sim, matched := nameSimilarity(narrationTokens, r); sim > 0 {
			c := get(r)
			c.evidence = append(c.evidence, models.Evidence{
				Kind:         models.SignalName,
				MatchedValue: matched,
				Weight:       weightNameMax * sim,
			})
		}
	}

	// Invoice coincidence corroborates an existing signal; it is never
	// sufficient on its own.
	for _, c := range byResident {
		if len(c.evidence) == 0 {
			continue
		}
		for _, inv := range dir.invoices[c.resident.ID] {
			if !inv.Amount.Equal(tx.Amount) {
				continue
			}
			delta := tx.Date.Sub(inv.DueDate)
			if delta < 0 {
				delta = -delta
			}
			if delta <= invoiceDateWindow {
				c.evidence = append(c.evidence, models.Evidence{
					Kind:         models.SignalInvoice,
					MatchedValue: inv.Amount.StringFixed(2),
					Weight:       weightInvoice,
				})
				break
			}
		}
	}

	candidates := make([]*candidate, 0, len(byResident))
	for _, c := range byResident {
		c.score = combine(c.evidence)
		if c.score > 0 {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return models.MatchResult{Transaction: tx, Tier: models.TierNone}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		// Stable order for equal scores; ties are handled explicitly
		// below, never broken by list position.
		return candidates[i].resident.ID < candidates[j].resident.ID
	})

	best := candidates[0]
	result := models.MatchResult{
		Transaction: tx,
		ResidentID:  best.resident.ID,
		HouseID:     best.resident.HouseID,
		Confidence:  best.score,
		Tier:        tierFor(best.score),
		Evidence:    best.evidence,
	}

	if len(candidates) > 1 && best.score-candidates[1].score <= tieEpsilon {
		runnerUp := candidates[1]
		result.Tier = demote(result.Tier)
		result.Evidence = append(result.Evidence, models.Evidence{
			Kind:         models.SignalAmbiguity,
			MatchedValue: best.resident.ID + "," + runnerUp.resident.ID,
		})
		if result.Tier == models.TierNone {
			result.ResidentID = ""
			result.HouseID = ""
		}
	}
	return result
}

// combine folds evidence weights with diminishing returns.
func combine(evidence []models.Evidence) float64 {
	miss := 1.0
	for _, e := range evidence {
		miss *= 1 - e.Weight
	}
	return 1 - miss
}

func tierFor(score float64) models.MatchTier {
	switch {
	case score >= 0.8:
		return models.TierHigh
	case score >= 0.5:
		return models.TierMedium
	case score > 0:
		return models.TierLow
	default:
		return models.TierNone
	}
}

func demote(t models.MatchTier) models.MatchTier {
	switch t {
	case models.TierHigh:
		return models.TierMedium
	case models.TierMedium:
		return models.TierLow
	default:
		return models.TierNone
	}
}

// tokenize splits a narration into name-comparable tokens. Bank
// narrations pack names between slashes and colons, so any
// non-alphanumeric rune is a separator.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// nameSimilarity scores how well a resident's name appears in the
// narration tokens. The surname must be present: a shared first name
// alone never matches. A full first name scores higher than an
// initial.
func nameSimilarity(narrationTokens []string, r *Resident) (float64, string) {
	last := strings.ToUpper(strings.TrimSpace(r.LastName))
	first := strings.ToUpper(strings.TrimSpace(r.FirstName))
	if last == "" {
		return 0, ""
	}

	lastFound := false
	firstComponent := 0.0
	for _, tok := range narrationTokens {
		if tok == last {
			lastFound = true
		}
		if first != "" {
			switch {
			case tok == first:
				firstComponent = 1.0
			case len(tok) == 1 && firstComponent < 0.7 && tok == first[:1]:
				firstComponent = 0.7
			}
		}
	}
	if !lastFound {
		return 0, ""
	}
	// Surname alone is weak evidence; a first name or initial lifts it.
	sim := 0.5 + 0.5*firstComponent
	return sim, strings.TrimSpace(r.FirstName + " " + r.LastName)
}
