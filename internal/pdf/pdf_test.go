package pdf

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/spf13/afero"

	"github.com/Lllllllleong/posplitter/internal/pdf/pdftest"
)

func writeFixture(t *testing.T, fs afero.Fs, name string, data []byte) string {
	t.Helper()
	path := filepath.Join("/in", name)
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := writeFixture(t, fs, "three.pdf", pdftest.Build("first page", "", "Page: 3 of 3"))

	doc, err := Load(fs, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.PageCount() != 3 {
		t.Fatalf("expected 3 pages, got %d", doc.PageCount())
	}

	text, err := doc.PageText(0)
	if err != nil {
		t.Fatalf("PageText(0): %v", err)
	}
	if !bytes.Contains([]byte(text), []byte("first page")) {
		t.Errorf("page 1 text %q does not contain %q", text, "first page")
	}

	text, err = doc.PageText(1)
	if err != nil {
		t.Fatalf("PageText(1): %v", err)
	}
	if len(bytes.TrimSpace([]byte(text))) != 0 {
		t.Errorf("expected empty text for blank page, got %q", text)
	}

	text, err = doc.PageText(2)
	if err != nil {
		t.Fatalf("PageText(2): %v", err)
	}
	if !bytes.Contains([]byte(text), []byte("Page: 3 of 3")) {
		t.Errorf("page 3 text %q does not contain marker", text)
	}
}

func TestLoad_InvalidInput(t *testing.T) {
	fs := afero.NewMemMapFs()
	tests := []struct {
		name string
		data []byte
	}{
		{"empty file", []byte{}},
		{"not a pdf", []byte("This is not a PDF")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFixture(t, fs, tt.name+".pdf", tt.data)
			if _, err := Load(fs, path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	if _, err := Load(fs, "/in/missing.pdf"); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestLoad_EmptyFileIsNoPages(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := writeFixture(t, fs, "zero.pdf", nil)
	if _, err := Load(fs, path); !errors.Is(err, ErrNoPages) {
		t.Errorf("expected ErrNoPages, got %v", err)
	}
}

func TestPageText_OutOfRange(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc, err := Load(fs, writeFixture(t, fs, "one.pdf", pdftest.Build("only")))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := doc.PageText(1); err == nil {
		t.Error("expected error for index past the end")
	}
	if _, err := doc.PageText(-1); err == nil {
		t.Error("expected error for negative index")
	}
}

func TestWritePages(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc, err := Load(fs, writeFixture(t, fs, "four.pdf", pdftest.Build("one", "two", "three", "four")))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var buf bytes.Buffer
	if err := doc.WritePages(&buf, []int{1, 2}); err != nil {
		t.Fatalf("WritePages failed: %v", err)
	}

	count, err := api.PageCount(bytes.NewReader(buf.Bytes()), nil)
	if err != nil {
		t.Fatalf("output is not a valid PDF: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 pages, got %d", count)
	}

	out := writeFixture(t, fs, "out.pdf", buf.Bytes())
	sub, err := Load(fs, out)
	if err != nil {
		t.Fatalf("reloading output: %v", err)
	}
	for i, want := range []string{"two", "three"} {
		text, err := sub.PageText(i)
		if err != nil {
			t.Fatalf("PageText(%d): %v", i, err)
		}
		if !bytes.Contains([]byte(text), []byte(want)) {
			t.Errorf("output page %d: expected %q in %q", i+1, want, text)
		}
	}
}

func TestWritePages_InvalidSelection(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc, err := Load(fs, writeFixture(t, fs, "two.pdf", pdftest.Build("a", "b")))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	var buf bytes.Buffer
	if err := doc.WritePages(&buf, nil); err == nil {
		t.Error("expected error for empty selection")
	}
	if err := doc.WritePages(&buf, []int{5}); err == nil {
		t.Error("expected error for out-of-range page")
	}
}
