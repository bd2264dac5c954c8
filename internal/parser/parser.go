// Package parser holds the bank-format parser family. Each bank or
// alert template gets one parser implementing a common contract; the
// registry tries them in a fixed order and the first one that claims a
// candidate wins. Every parser must check a bank-specific discriminator
// before extracting fields, so registration order only breaks genuine
// ambiguity.
package parser

import (
	"github.com/meggarmind/residio-email-imports/internal/models"
)

// Status is the outcome of one parser's attempt on a candidate.
type Status int

const (
	// NotMine means the candidate is not in this parser's format and
	// the registry should try the next parser.
	NotMine Status = iota
	// Parsed means the parser claimed the candidate and produced
	// transactions.
	Parsed
	// Failed means the parser claimed the candidate but could not
	// extract a valid transaction from it.
	Failed
)

// Result carries the transactions and row accounting of one attempt.
type Result struct {
	Status       Status
	Transactions []models.Transaction
	// SkippedRows counts statement rows that failed to parse a valid
	// date and amount. They are recorded, never fatal.
	SkippedRows int
	// Reason explains a Failed status.
	Reason string
}

func notMine() Result { return Result{Status: NotMine} }

func failed(reason string) Result { return Result{Status: Failed, Reason: reason} }

// Parser is one bank/template-specific parser.
type Parser interface {
	// Name identifies the parser in config and in Transaction.Bank.
	Name() string
	// TryParse inspects the candidate and either disclaims it
	// (NotMine), parses it, or reports a typed failure. It never
	// panics on malformed input.
	TryParse(c models.ExtractionCandidate) Result
}

// Registry is an ordered list of parsers.
type Registry struct {
	parsers []Parser
}

// DefaultRegistry returns all parsers in their default dispatch order.
// Alert parsers come before the statement parser: alert bodies are far
// more common and their discriminators are cheaper.
func DefaultRegistry() *Registry {
	return &Registry{parsers: []Parser{
		&FirstBankAlertParser{},
		&GTBankAlertParser{},
		&FirstBankStatementParser{},
	}}
}

// Enabled returns a registry restricted to the named parsers, keeping
// the default order. An empty list keeps everything.
func (r *Registry) Enabled(names []string) *Registry {
	if len(names) == 0 {
		return r
	}
	allowed := make(map[string]bool, len(names))
	for _, n := range names {
		allowed[n] = true
	}
	out := &Registry{}
	for _, p := range r.parsers {
		if allowed[p.Name()] {
			out.parsers = append(out.parsers, p)
		}
	}
	return out
}

// Parsers exposes the registered parsers in dispatch order.
func (r *Registry) Parsers() []Parser {
	return r.parsers
}

// Parse dispatches a candidate to the registered parsers. The first
// parser returning anything other than NotMine decides the result. If
// every parser disclaims the candidate, the result is a Failed status
// with an unrecognized-format reason.
func (r *Registry) Parse(c models.ExtractionCandidate) (Result, string) {
	for _, p := range r.parsers {
		res := p.TryParse(c)
		if res.Status != NotMine {
			return res, p.Name()
		}
	}
	return failed("no registered parser recognized the format"), ""
}
