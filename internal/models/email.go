package models

import "time"

// EmailType classifies a fetched email before extraction.
type EmailType string

const (
	EmailTransactionAlert    EmailType = "transaction_alert"
	EmailStatementAttachment EmailType = "statement_attachment"
	EmailUnknown             EmailType = "unknown"
)

// Attachment is one file attached to a fetched email.
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// IsPDF reports whether the attachment looks like a PDF statement.
func (a Attachment) IsPDF() bool {
	if a.MimeType == "application/pdf" {
		return true
	}
	n := len(a.Filename)
	return n > 4 && equalFold(a.Filename[n-4:], ".pdf")
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// RawEmail is one fetched message. It is created by the fetcher, consumed
// by the extractor, and never persisted by this subsystem.
type RawEmail struct {
	ID          string
	Subject     string
	From        string
	ReceivedAt  time.Time
	Body        string // plain text or HTML; may be empty
	Attachments []Attachment
}

// ExtractionKind says where a candidate's text came from.
type ExtractionKind string

const (
	KindAlertBody     ExtractionKind = "alert_body"
	KindPDFAttachment ExtractionKind = "pdf_attachment"
)

// ExtractionCandidate is the unit handed to the bank parsers: decoded
// plain text plus enough provenance for template detection.
type ExtractionCandidate struct {
	EmailID      string
	Kind         ExtractionKind
	EmailType    EmailType
	Text         string
	Subject      string
	PasswordUsed bool
}

// ExtractionFailureCode enumerates the per-email extraction failures.
type ExtractionFailureCode string

const (
	FailNoPlainText           ExtractionFailureCode = "no_plain_text_found"
	FailPDFPasswordRequired   ExtractionFailureCode = "pdf_password_required"
	FailPDFPasswordIncorrect  ExtractionFailureCode = "pdf_password_incorrect"
	FailPDFUnreadable         ExtractionFailureCode = "pdf_unreadable"
	FailUnsupportedAttachment ExtractionFailureCode = "unsupported_attachment_type"
)

// ExtractionFailure is returned instead of candidates when an email
// cannot be extracted. It never aborts the batch.
type ExtractionFailure struct {
	EmailID string
	Code    ExtractionFailureCode
	Detail  string
}

func (f *ExtractionFailure) Error() string {
	if f.Detail == "" {
		return string(f.Code)
	}
	return string(f.Code) + ": " + f.Detail
}
