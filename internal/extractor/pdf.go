package extractor

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/meggarmind/residio-email-imports/internal/models"
)

// extractPDF decodes the text layer of one PDF attachment into a
// candidate. Encrypted statements are tried with the configured
// password, first through the PDF library and then through qpdf for
// encryption schemes the library does not speak.
func (e *Extractor) extractPDF(email models.RawEmail, att models.Attachment) (models.ExtractionCandidate, *models.ExtractionFailure) {
	fail := func(code models.ExtractionFailureCode, detail string) (models.ExtractionCandidate, *models.ExtractionFailure) {
		return models.ExtractionCandidate{}, &models.ExtractionFailure{EmailID: email.ID, Code: code, Detail: detail}
	}

	passwordUsed := false

	text, err := readPDFText(att.Data)
	if err != nil {
		if !isEncryptionError(err) {
			return fail(models.FailPDFUnreadable, err.Error())
		}

		password, ok := e.pdf.PasswordFor(filenameAccountLast4(att.Filename))
		if !ok {
			return fail(models.FailPDFPasswordRequired, att.Filename)
		}
		passwordUsed = true

		text, err = readPDFTextEncrypted(att.Data, password)
		if err != nil {
			// The library only speaks the common RC4 scheme; hand the
			// rest to qpdf before concluding the password is wrong.
			decrypted, qerr := decryptWithQPDF(att.Data, password)
			if qerr != nil {
				if isWrongPassword(qerr) || isEncryptionError(err) {
					return fail(models.FailPDFPasswordIncorrect, att.Filename)
				}
				return fail(models.FailPDFUnreadable, qerr.Error())
			}
			text, err = readPDFText(decrypted)
			if err != nil {
				return fail(models.FailPDFUnreadable, err.Error())
			}
		}
	}

	if !isReadableStatementText(text) {
		return fail(models.FailPDFUnreadable, att.Filename)
	}

	return models.ExtractionCandidate{
		EmailID:      email.ID,
		Kind:         models.KindPDFAttachment,
		Text:         text,
		Subject:      email.Subject,
		PasswordUsed: passwordUsed,
	}, nil
}

// readPDFText extracts the text layer of an unencrypted PDF.
// Overridable in tests.
var readPDFText = func(data []byte) (string, error) {
	reader, err := openPDF(data)
	if err != nil {
		return "", err
	}
	return extractPages(reader), nil
}

// readPDFTextEncrypted extracts the text layer of a password-protected
// PDF. Overridable in tests.
var readPDFTextEncrypted = func(data []byte, password string) (string, error) {
	reader, err := openPDFEncrypted(data, password)
	if err != nil {
		return "", err
	}
	return extractPages(reader), nil
}

// openPDF opens a PDF from bytes, converting library panics on
// malformed files into errors.
func openPDF(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf library crashed: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func openPDFEncrypted(data []byte, password string) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf library crashed: %v", rec)
		}
	}()
	attempted := false
	return pdf.NewReaderEncrypted(bytes.NewReader(data), int64(len(data)), func() string {
		if attempted {
			return "" // tell the library to give up, not loop
		}
		attempted = true
		return password
	})
}

func isEncryptionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "encrypt") || strings.Contains(msg, "password")
}

// extractPages walks every page, preferring row-ordered extraction and
// falling back to plain text when a page has no row structure.
func extractPages(r *pdf.Reader) string {
	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		if text := pageTextByRow(page); text != "" {
			pages = append(pages, text)
			continue
		}
		if text := pagePlainText(page); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n")
}

func pageTextByRow(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}
	var lines []string
	for _, row := range rows {
		var parts []string
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func pagePlainText(page pdf.Page) string {
	fonts := make(map[string]*pdf.Font)
	for _, name := range page.Fonts() {
		f := page.Font(name)
		fonts[name] = &f
	}
	text, err := page.GetPlainText(fonts)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// statementWords are words expected somewhere in any real bank
// statement; text containing none of them is treated as garbage from a
// font encoding the extractor could not decode.
var statementWords = []string{
	"balance", "account", "date", "statement", "narration",
	"credit", "debit", "amount", "transaction", "reference",
}

// isReadableStatementText guards against declaring success on decoded
// garbage: enough length, mostly printable ASCII, and at least one
// recognizable statement word.
func isReadableStatementText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 50 {
		return false
	}
	total, readable := 0, 0
	for _, r := range trimmed {
		total++
		if r < 128 && (unicode.IsPrint(r) || unicode.IsSpace(r)) {
			readable++
		}
	}
	if float64(readable)/float64(total) < 0.6 {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, w := range statementWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

var filenameDigitsPattern = regexp.MustCompile(`(\d{4,})`)

// filenameAccountLast4 guesses the account fragment from statement
// filenames like "Statement_2034567725_Jan.pdf", used to pick a
// per-account password before the PDF can be opened.
func filenameAccountLast4(name string) string {
	matches := filenameDigitsPattern.FindAllString(name, -1)
	if len(matches) == 0 {
		return ""
	}
	longest := matches[0]
	for _, m := range matches[1:] {
		if len(m) > len(longest) {
			longest = m
		}
	}
	return longest[len(longest)-4:]
}
