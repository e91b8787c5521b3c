// Package pdf loads a source PDF once and serves the two things the
// splitter needs from it: per-page plain text and page-subset writes.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/spf13/afero"
)

// ErrNoPages is returned by Load for a file that parses but has no pages.
var ErrNoPages = errors.New("document has no pages")

// Document is a loaded, immutable source PDF.
type Document struct {
	data      []byte
	pageCount int
	text      *pdflib.Reader
	conf      *model.Configuration
}

// Load reads path from fs, validates it with pdfcpu and prepares the text
// reader. Both libraries must agree on the page count.
func Load(fs afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, ErrNoPages
	}

	conf := newConfiguration()
	pageCount, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to validate PDF: %w", err)
	}
	if pageCount == 0 {
		return nil, ErrNoPages
	}

	text, err := newTextReader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for text extraction: %w", err)
	}
	if n := text.NumPage(); n != pageCount {
		return nil, fmt.Errorf("page count mismatch: validator found %d pages, text reader found %d", pageCount, n)
	}

	return &Document{
		data:      data,
		pageCount: pageCount,
		text:      text,
		conf:      conf,
	}, nil
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.pageCount
}

// PageText extracts the plain text of the page at the 0-based index. A page
// without a text layer yields "".
func (d *Document) PageText(index int) (string, error) {
	if index < 0 || index >= d.pageCount {
		return "", fmt.Errorf("page index %d out of range (0-%d)", index, d.pageCount-1)
	}
	page := d.text.Page(index + 1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := plainText(page)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from page %d: %w", index+1, err)
	}
	return text, nil
}

// WritePages writes a new PDF containing the pages at the given 0-based
// indices to w. Indices must be ascending.
func (d *Document) WritePages(w io.Writer, indices []int) error {
	if len(indices) == 0 {
		return errors.New("no pages selected")
	}
	selected := make([]string, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= d.pageCount {
			return fmt.Errorf("page index %d out of range (0-%d)", idx, d.pageCount-1)
		}
		selected[i] = strconv.Itoa(idx + 1)
	}
	if err := api.Trim(bytes.NewReader(d.data), w, selected, d.conf); err != nil {
		return fmt.Errorf("failed to write pages %v: %w", selected, err)
	}
	return nil
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	// Plain xref tables keep the output readable by simpler parsers.
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

func plainText(page pdflib.Page) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("text extraction panic: %v", rec)
		}
	}()
	return page.GetPlainText(nil)
}

// newTextReader guards against the text library panicking on input that
// pdfcpu accepted.
func newTextReader(data []byte) (r *pdflib.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("text reader panic: %v", rec)
		}
	}()
	return pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
}
