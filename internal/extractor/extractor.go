// Package extractor turns raw emails into extraction candidates for
// the bank parsers: the plain text of an alert body, or the decoded
// text layer of a (possibly password-protected) PDF statement. It is a
// pure transform over the bytes it is given; failures come back as
// typed values, never panics.
package extractor

import (
	"regexp"
	"strings"

	"github.com/meggarmind/residio-email-imports/internal/config"
	"github.com/meggarmind/residio-email-imports/internal/models"
)

// Extractor classifies and decodes one email at a time. Safe for
// concurrent use; it holds no per-email state.
type Extractor struct {
	pdf config.PDFConfig
}

// New returns an extractor using the given PDF password configuration.
func New(pdfCfg config.PDFConfig) *Extractor {
	return &Extractor{pdf: pdfCfg}
}

// Extract produces the candidates for one email, or a typed failure.
// An email classified as a transaction alert contributes its body as a
// single alert candidate even when attachments ride along (banks attach
// logos and disclaimers to alert mails); everything else with PDF
// attachments contributes one candidate per PDF.
func (e *Extractor) Extract(email models.RawEmail) ([]models.ExtractionCandidate, *models.ExtractionFailure) {
	emailType := DetectEmailType(email.Subject, email.Body)
	pdfs := pdfAttachments(email.Attachments)
	body := StripHTML(email.Body)

	if len(pdfs) == 0 || (emailType == models.EmailTransactionAlert && body != "") {
		if body == "" {
			if len(email.Attachments) > 0 {
				return nil, &models.ExtractionFailure{
					EmailID: email.ID,
					Code:    models.FailUnsupportedAttachment,
					Detail:  "no PDF attachment and no text body",
				}
			}
			return nil, &models.ExtractionFailure{
				EmailID: email.ID,
				Code:    models.FailNoPlainText,
			}
		}
		return []models.ExtractionCandidate{{
			EmailID:   email.ID,
			Kind:      models.KindAlertBody,
			EmailType: emailType,
			Text:      body,
			Subject:   email.Subject,
		}}, nil
	}

	var candidates []models.ExtractionCandidate
	for _, att := range pdfs {
		cand, fail := e.extractPDF(email, att)
		if fail != nil {
			return nil, fail
		}
		cand.EmailType = emailType
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func pdfAttachments(atts []models.Attachment) []models.Attachment {
	var out []models.Attachment
	for _, a := range atts {
		if a.IsPDF() {
			out = append(out, a)
		}
	}
	return out
}

// DetectEmailType classifies an email by subject/body markers before
// extraction. Unknown emails still go through extraction: the parser
// registry is the final judge.
func DetectEmailType(subject, body string) models.EmailType {
	text := strings.ToLower(subject + " " + body)

	alertMarkers := []string{
		"credit alert", "debit alert", "transaction alert",
		"transaction notification", "has been credited", "has been debited",
		"credited with", "debited from",
	}
	for _, m := range alertMarkers {
		if strings.Contains(text, m) {
			return models.EmailTransactionAlert
		}
	}

	statementMarkers := []string{
		"e-statement", "estatement", "account statement",
		"monthly statement", "statement of account",
	}
	for _, m := range statementMarkers {
		if strings.Contains(text, m) {
			return models.EmailStatementAttachment
		}
	}
	return models.EmailUnknown
}

var (
	htmlBreakPattern = regexp.MustCompile(`(?i)<br\s*/?>`)
	htmlBlockPattern = regexp.MustCompile(`(?i)</?(?:p|div|tr|li|td|table|h[1-6])[^>]*>`)
	htmlTagPattern   = regexp.MustCompile(`<[^>]+>`)
	blankRunPattern  = regexp.MustCompile(`\n\s*\n`)
)

var htmlEntities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&#x27;", "'",
	"&#x2F;", "/",
	"&#8358;", "₦",
)

// StripHTML converts an HTML email body to plain text, preserving line
// structure so the labeled-field alert parsers still see one field per
// line.
func StripHTML(body string) string {
	if !strings.Contains(body, "<") {
		return strings.TrimSpace(body)
	}
	text := htmlBreakPattern.ReplaceAllString(body, "\n")
	text = htmlBlockPattern.ReplaceAllString(text, "\n")
	text = htmlTagPattern.ReplaceAllString(text, "")
	text = htmlEntities.Replace(text)
	text = blankRunPattern.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
