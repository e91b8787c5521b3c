package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/posplitter/internal/models"
)

func TestShouldProcess(t *testing.T) {
	config := PDFSplitterConfig{OutputBucket: "out-bucket", OutputPrefix: "split"}
	tests := []struct {
		name  string
		event GCSEvent
		want  bool
	}{
		{"pdf upload", GCSEvent{Bucket: "in-bucket", Name: "inbox/batch.pdf"}, true},
		{"upper-case extension", GCSEvent{Bucket: "in-bucket", Name: "BATCH.PDF"}, true},
		{"not a pdf", GCSEvent{Bucket: "in-bucket", Name: "notes.txt"}, false},
		{"own output", GCSEvent{Bucket: "out-bucket", Name: "split/job1/PO_1.pdf"}, false},
		{"prefix in another bucket", GCSEvent{Bucket: "in-bucket", Name: "split/job1/PO_1.pdf"}, true},
		{"prefix-like name", GCSEvent{Bucket: "out-bucket", Name: "splitting.pdf"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldProcess(tt.event, config))
		})
	}
}

func TestShouldSkipExisting(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{models.StatusSplit, true},
		{models.StatusFailed, false},
		{models.StatusSplitting, false},
		{models.StatusUploading, false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run("status="+tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldSkipExisting(tt.status))
		})
	}
}

func TestObjectNameFor(t *testing.T) {
	assert.Equal(t, "split/abc123/PO_42.pdf", objectNameFor("split", "abc123", filepath.Join("tmp", "out", "PO_42.pdf")))
	assert.Equal(t, "abc123/Document_1 (1).pdf", objectNameFor("", "abc123", "Document_1 (1).pdf"))
}

func TestCalculateFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	hash, err := calculateFileHash(path)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash)

	_, err = calculateFileHash(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestLoadPDFSplitterConfig(t *testing.T) {
	t.Setenv("PROJECT_ID", "proj")
	t.Setenv("OUTPUT_BUCKET", "bucket")
	t.Setenv("OUTPUT_PREFIX", "/po/")
	t.Setenv("FIRESTORE_COLLECTION", "")
	t.Setenv("WORKFLOW_ID", "")
	t.Setenv("WORKFLOW_LOCATION", "")

	config, err := LoadPDFSplitterConfig()
	require.NoError(t, err)
	assert.Equal(t, PDFSplitterConfig{
		ProjectID:        "proj",
		OutputBucket:     "bucket",
		OutputPrefix:     "po",
		CollectionName:   "split-jobs",
		WorkflowLocation: "us-central1",
	}, config)
}

func TestLoadPDFSplitterConfig_Missing(t *testing.T) {
	t.Setenv("PROJECT_ID", "")
	t.Setenv("OUTPUT_BUCKET", "bucket")
	_, err := LoadPDFSplitterConfig()
	assert.ErrorContains(t, err, "PROJECT_ID")

	t.Setenv("PROJECT_ID", "proj")
	t.Setenv("OUTPUT_BUCKET", "")
	_, err = LoadPDFSplitterConfig()
	assert.ErrorContains(t, err, "OUTPUT_BUCKET")
}

func TestProgressLogger(t *testing.T) {
	var logged []int
	handler := &recordingHandler{onRecord: func(r slog.Record) {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "percent" {
				logged = append(logged, int(a.Value.Int64()))
			}
			return true
		})
	}}
	progress := progressLogger(slog.New(handler))
	for _, f := range []float64{0.1, 0.2, 0.3, 0.4, 0.8, 1} {
		progress(f)
	}
	assert.Equal(t, []int{30, 80, 100}, logged)
}

type recordingHandler struct {
	slog.Handler
	onRecord func(slog.Record)
}

func (h *recordingHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.onRecord(r)
	return nil
}
