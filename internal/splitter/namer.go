package splitter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// CandidateName picks the output file name for a sub-document. created is
// the number of files emitted before this one.
func CandidateName(identifier string, created int) string {
	if identifier != "" {
		return fmt.Sprintf("PO_%s.pdf", identifier)
	}
	return fmt.Sprintf("Document_%d.pdf", created+1)
}

// ResolvePath returns a path inside dir for name that does not exist yet.
// When name is taken it probes "<stem> (k)<ext>" for k = 1, 2, ... and
// returns the first free one. The filesystem is only read.
func ResolvePath(fs afero.Fs, dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	exists, err := afero.Exists(fs, candidate)
	if err != nil {
		return "", fmt.Errorf("failed to check %s: %w", candidate, err)
	}
	if !exists {
		return candidate, nil
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for k := 1; ; k++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, k, ext))
		exists, err = afero.Exists(fs, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
}
