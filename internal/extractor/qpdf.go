package extractor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// errWrongPassword marks a decryption failure caused by the supplied
// password rather than the tool or the file.
var errWrongPassword = errors.New("invalid PDF password")

func isWrongPassword(err error) bool {
	return errors.Is(err, errWrongPassword)
}

// decryptWithQPDF shells out to the qpdf tool to strip encryption from
// a statement PDF. qpdf handles the AES schemes the in-process library
// does not. Overridable in tests.
var decryptWithQPDF = func(data []byte, password string) ([]byte, error) {
	if _, err := exec.LookPath("qpdf"); err != nil {
		return nil, fmt.Errorf("qpdf not available: %w", err)
	}

	id := uuid.NewString()
	inPath := filepath.Join(os.TempDir(), "statement-"+id+".pdf")
	outPath := filepath.Join(os.TempDir(), "decrypted-"+id+".pdf")
	defer os.Remove(inPath)
	defer os.Remove(outPath)

	if err := os.WriteFile(inPath, data, 0600); err != nil {
		return nil, fmt.Errorf("writing temp pdf: %w", err)
	}

	cmd := exec.Command("qpdf", "--decrypt", "--password="+password, inPath, outPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		if strings.Contains(strings.ToLower(string(out)), "invalid password") {
			return nil, errWrongPassword
		}
		return nil, fmt.Errorf("qpdf failed: %v: %s", err, strings.TrimSpace(string(out)))
	}

	return os.ReadFile(outPath)
}
