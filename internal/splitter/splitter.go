// Package splitter cuts a multi-document PDF into one file per sub-document.
//
// A sub-document ends on the page whose first "Page X of Y" marker has
// X == Y. Each output is named after the first "Purchase Order No.:" found
// in its pages, or Document_<n>.pdf when there is none, and never replaces
// an existing file.
package splitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Lllllllleong/posplitter/internal/models"
	"github.com/Lllllllleong/posplitter/internal/pdf"
	"github.com/spf13/afero"
)

// ProgressFunc receives the fraction of pages scanned, in (0, 1].
type ProgressFunc func(fraction float64)

// Source is a loaded input document.
type Source interface {
	PageCount() int
	PageText(index int) (string, error)
	WritePages(w io.Writer, indices []int) error
}

// Loader opens the input file as a Source.
type Loader func(fs afero.Fs, path string) (Source, error)

// LoadPDF is the default Loader.
func LoadPDF(fs afero.Fs, path string) (Source, error) {
	doc, err := pdf.Load(fs, path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Splitter runs split jobs. It holds no per-run state and is safe for
// concurrent use as long as runs do not share an output directory.
type Splitter struct {
	fs   afero.Fs
	load Loader
	log  *slog.Logger
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithFs sets the filesystem used for input, naming and output.
func WithFs(fs afero.Fs) Option {
	return func(s *Splitter) { s.fs = fs }
}

// WithLoader replaces the PDF loader.
func WithLoader(l Loader) Option {
	return func(s *Splitter) { s.load = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Splitter) { s.log = l }
}

// New returns a Splitter working on the OS filesystem with the PDF loader.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		fs:   afero.NewOsFs(),
		load: LoadPDF,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split scans inputPath page by page and writes one PDF per sub-document
// into outputDir, creating the directory if needed. onProgress may be nil.
//
// The returned report is never nil. On failure it has Success == false,
// Message set to the user-facing text of the error, and lists the files
// written before the failure; those are left on disk. The error is always
// a *SplitError.
func (s *Splitter) Split(ctx context.Context, inputPath, outputDir string, onProgress ProgressFunc) (*models.SplitReport, error) {
	logCtx := s.log.With("inputPath", inputPath, "outputDir", outputDir)
	report := &models.SplitReport{}

	fail := func(err *SplitError) (*models.SplitReport, error) {
		report.Success = false
		report.Message = err.Message
		logCtx.Error("Split failed.", "kind", KindName(err), "error", err.Err, "filesCreated", report.Created)
		return report, err
	}

	if err := s.fs.MkdirAll(outputDir, 0o755); err != nil {
		return fail(writeError(outputDir, err))
	}

	src, err := s.load(s.fs, inputPath)
	if err != nil {
		return fail(inputError(inputPath, err))
	}
	total := src.PageCount()
	if total <= 0 {
		return fail(inputError(inputPath, pdf.ErrNoPages))
	}
	report.TotalPages = total
	logCtx.Info("Starting split.", "pageCount", total)

	var pending []models.Page
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return fail(unexpectedError(err))
		}

		text, err := src.PageText(i)
		if err != nil {
			return fail(unexpectedError(err))
		}
		pending = append(pending, models.Page{Index: i, Text: text})

		if onProgress != nil {
			onProgress(float64(i+1) / float64(total))
		}

		if !IsClosingPage(text) {
			continue
		}

		record, serr := s.emit(src, outputDir, pending, report.Created)
		if serr != nil {
			return fail(serr)
		}
		report.Created++
		report.Outputs = append(report.Outputs, *record)
		report.OutputPaths = append(report.OutputPaths, record.Path)
		logCtx.Info("Wrote sub-document.", "path", record.Path, "pageCount", len(record.Pages), "identifier", record.Identifier)
		pending = nil
	}

	if len(pending) > 0 {
		for _, p := range pending {
			report.DiscardedPages = append(report.DiscardedPages, p.Index)
		}
		logCtx.Warn("Discarding trailing pages without a closing marker.", "pages", report.DiscardedPages)
	}

	if report.Created == 0 {
		return fail(noMarkersError())
	}

	report.Success = true
	report.Message = fmt.Sprintf("Success! %d files were created.", report.Created)
	logCtx.Info("Split complete.", "filesCreated", report.Created)
	return report, nil
}

// emit names and writes one buffered sub-document.
func (s *Splitter) emit(src Source, outputDir string, pages []models.Page, created int) (*models.OutputRecord, *SplitError) {
	identifier, _ := FirstPurchaseOrder(pages)
	name := CandidateName(identifier, created)

	path, err := ResolvePath(s.fs, outputDir, name)
	if err != nil {
		return nil, writeError(filepath.Join(outputDir, name), err)
	}

	indices := make([]int, len(pages))
	for i, p := range pages {
		indices[i] = p.Index
	}
	if err := s.writeFile(src, path, indices); err != nil {
		return nil, writeError(path, err)
	}

	return &models.OutputRecord{
		Candidate:  name,
		Path:       path,
		Identifier: identifier,
		Pages:      indices,
	}, nil
}

// writeFile creates path exclusively and writes the pages into it. A file
// left incomplete by a failed write is removed.
func (s *Splitter) writeFile(src Source, path string, indices []int) error {
	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	writeErr := src.WritePages(f, indices)
	closeErr := f.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		if rmErr := s.fs.Remove(path); rmErr != nil {
			s.log.Error("Failed to remove incomplete output file.", "path", path, "error", rmErr)
		}
		return err
	}
	return nil
}
