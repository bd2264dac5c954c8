// Package fetcher reads transaction emails for the pipeline. The
// maildir fetcher walks a directory of RFC 5322 .eml files, which is
// both the test fixture format and the handoff format used when the
// mailbox is synced by an external tool.
package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/meggarmind/residio-email-imports/internal/models"
)

// Maildir fetches emails from a flat directory of .eml files.
type Maildir struct {
	dir string
	log zerolog.Logger
}

func NewMaildir(dir string, log zerolog.Logger) *Maildir {
	return &Maildir{dir: dir, log: log}
}

// Connected reports whether the mail directory exists and is readable.
func (m *Maildir) Connected(ctx context.Context) bool {
	info, err := os.Stat(m.dir)
	return err == nil && info.IsDir()
}

// FetchEmails parses up to max .eml files, in filename order so runs
// are deterministic. A file that fails to parse is logged and skipped;
// it never aborts the fetch.
func (m *Maildir) FetchEmails(ctx context.Context, max int) ([]models.RawEmail, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("reading maildir %s: %w", m.dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".eml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var emails []models.RawEmail
	for _, name := range names {
		if max > 0 && len(emails) >= max {
			break
		}
		if err := ctx.Err(); err != nil {
			return emails, err
		}

		path := filepath.Join(m.dir, name)
		email, err := parseEMLFile(path)
		if err != nil {
			m.log.Warn().Str("file", name).Err(err).Msg("skipping unparseable email file")
			continue
		}
		if email.ID == "" {
			email.ID = name
		}
		emails = append(emails, email)
	}
	return emails, nil
}

func parseEMLFile(path string) (models.RawEmail, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.RawEmail{}, err
	}
	defer f.Close()
	return ParseEML(f)
}

// ParseEML decodes one RFC 5322 message into a RawEmail: decoded
// subject and sender, a text body (plain preferred over HTML), and any
// attachments with their transfer encoding undone.
func ParseEML(r io.Reader) (models.RawEmail, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return models.RawEmail{}, fmt.Errorf("reading message: %w", err)
	}

	dec := new(mime.WordDecoder)
	email := models.RawEmail{
		ID:      strings.Trim(msg.Header.Get("Message-Id"), "<>"),
		Subject: decodeHeader(dec, msg.Header.Get("Subject")),
		From:    decodeHeader(dec, msg.Header.Get("From")),
	}
	if date, err := msg.Header.Date(); err == nil {
		email.ReceivedAt = date
	}

	contentType := msg.Header.Get("Content-Type")
	encoding := msg.Header.Get("Content-Transfer-Encoding")
	if err := readPart(&email, contentType, encoding, msg.Body); err != nil {
		return email, err
	}
	return email, nil
}

func decodeHeader(dec *mime.WordDecoder, value string) string {
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// readPart consumes one MIME part, recursing through multiparts. Plain
// text wins over HTML for the body; anything with a filename or a PDF
// content type becomes an attachment.
func readPart(email *models.RawEmail, contentType, encoding string, body io.Reader) error {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Unlabeled single-part messages default to plain text.
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return fmt.Errorf("multipart message without boundary")
		}
		mr := multipart.NewReader(body, boundary)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading mime part: %w", err)
			}
			if name := part.FileName(); name != "" {
				data, err := io.ReadAll(decodeTransfer(part, part.Header.Get("Content-Transfer-Encoding")))
				if err != nil {
					return fmt.Errorf("reading attachment %s: %w", name, err)
				}
				partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
				email.Attachments = append(email.Attachments, models.Attachment{
					Filename: name,
					MimeType: partType,
					Data:     data,
				})
				continue
			}
			if err := readPart(email, part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part); err != nil {
				return err
			}
		}
	}

	data, err := io.ReadAll(decodeTransfer(body, encoding))
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}

	switch {
	case mediaType == "text/plain":
		// Plain text always wins, even when an HTML part came first.
		if strings.TrimSpace(string(data)) != "" {
			email.Body = string(data)
		}
	case mediaType == "text/html":
		if email.Body == "" {
			email.Body = string(data)
		}
	case mediaType == "application/pdf":
		email.Attachments = append(email.Attachments, models.Attachment{
			Filename: "statement.pdf",
			MimeType: mediaType,
			Data:     data,
		})
	}
	return nil
}

func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}
