package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/posplitter/internal/gcp"
	"github.com/Lllllllleong/posplitter/internal/models"
	"github.com/Lllllllleong/posplitter/internal/splitter"
)

type PDFSplitterConfig struct {
	ProjectID        string
	OutputBucket     string
	OutputPrefix     string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
}

type PDFSplitterFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client // nil when no workflow is configured
	splitter         *splitter.Splitter
	config           PDFSplitterConfig
}

type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// LoadPDFSplitterConfig reads the function configuration from the environment.
func LoadPDFSplitterConfig() (PDFSplitterConfig, error) {
	config := PDFSplitterConfig{
		ProjectID:        gcp.GetEnv("PROJECT_ID", ""),
		OutputBucket:     gcp.GetEnv("OUTPUT_BUCKET", ""),
		OutputPrefix:     strings.Trim(gcp.GetEnv("OUTPUT_PREFIX", "split"), "/"),
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "split-jobs"),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", ""),
	}
	if config.ProjectID == "" {
		return config, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if config.OutputBucket == "" {
		return config, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}
	return config, nil
}

func NewPDFSplitter(ctx context.Context) (*PDFSplitterFunction, error) {
	config, err := LoadPDFSplitterConfig()
	if err != nil {
		return nil, err
	}

	firestoreClient, err := firestore.NewClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	var executionsClient *executions.Client
	if config.WorkflowID != "" {
		executionsClient, err = executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
	}

	f := &PDFSplitterFunction{
		firestoreClient:  firestoreClient,
		storageClient:    storageClient,
		executionsClient: executionsClient,
		splitter:         splitter.New(),
		config:           config,
	}
	slog.Info("PDF Splitter logic initialized.", "outputBucket", config.OutputBucket, "workflowId", config.WorkflowID)
	return f, nil
}

func (f *PDFSplitterFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !shouldProcess(e, f.config) {
		logCtx.Info("Ignoring object that is not a source PDF.")
		return nil
	}
	logCtx.Info("Processing new GCS object.")

	tempDir, err := os.MkdirTemp("", "po-splitter-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePdfPath := filepath.Join(tempDir, "source.pdf")
	if err := gcp.StreamObjectToFile(ctx, f.storageClient, e.Bucket, e.Name, sourcePdfPath); err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash, err := calculateFileHash(sourcePdfPath)
	if err != nil {
		logCtx.Error("Failed to calculate file hash", "error", err)
		return fmt.Errorf("failed to calculate file hash: %w", err)
	}
	logCtx = logCtx.With("fileHash", fileHash)

	existing, err := f.findExistingJob(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	var docRef *firestore.DocumentRef
	switch {
	case existing == nil:
		docRef, err = f.createInitialJob(ctx, fileHash, e.Name)
		if err != nil {
			logCtx.Error("Failed to create initial Firestore job", "error", err)
			return err
		}
		logCtx.Info("Created split job in Firestore.", "jobId", docRef.ID)
	case shouldSkipExisting(existing.status):
		logCtx.Info("Duplicate file detected. Skipping.", "existingJobId", existing.ref.ID)
		return nil // Clean exit for a duplicate
	default:
		docRef = existing.ref
		if err := f.restartJob(ctx, docRef); err != nil {
			logCtx.Error("Failed to restart existing Firestore job", "error", err, "jobId", docRef.ID)
			return err
		}
		logCtx.Info("Retrying unfinished split job.", "jobId", docRef.ID, "previousStatus", existing.status)
	}
	logCtx = logCtx.With("jobId", docRef.ID)

	report, err := f.split(ctx, logCtx, docRef, sourcePdfPath, filepath.Join(tempDir, "out"))
	if err != nil {
		return err
	}

	objects, err := f.uploadOutputs(ctx, logCtx, docRef, report.OutputPaths)
	if err != nil {
		return err
	}

	updates := []firestore.Update{
		{Path: "status", Value: models.StatusSplit},
		{Path: "outputObjects", Value: objects},
	}
	if len(report.DiscardedPages) > 0 {
		updates = append(updates, firestore.Update{Path: "discardedPages", Value: report.DiscardedPages})
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to update status to SPLIT", err)
	}

	if f.executionsClient != nil {
		if err := f.triggerWorkflow(ctx, logCtx, docRef, report, objects); err != nil {
			return err
		}
	}

	logCtx.Info("Split job complete.", "fileCount", report.Created)
	return nil
}

// existingJob is a split job already recorded for the same file hash.
type existingJob struct {
	ref    *firestore.DocumentRef
	status string
}

func (f *PDFSplitterFunction) findExistingJob(ctx context.Context, fileHash string) (*existingJob, error) {
	docs, err := f.firestoreClient.Collection(f.config.CollectionName).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var job models.SplitJob
	if err := docs[0].DataTo(&job); err != nil {
		return nil, fmt.Errorf("failed to decode split job %s: %w", docs[0].Ref.ID, err)
	}
	return &existingJob{ref: docs[0].Ref, status: job.Status}, nil
}

// shouldSkipExisting reports whether a job in the given status already
// covers the file. Failed and unfinished jobs are re-run so a redelivered
// event can complete them.
func shouldSkipExisting(status string) bool {
	return status == models.StatusSplit
}

// restartJob resets a failed or unfinished job before it is re-run.
// Objects it already uploaded are skipped by the conditional upload.
func (f *PDFSplitterFunction) restartJob(ctx context.Context, docRef *firestore.DocumentRef) error {
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusSplitting},
		{Path: "errorDetails", Value: firestore.Delete},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to reset split job: %w", err)
	}
	return nil
}

func (f *PDFSplitterFunction) createInitialJob(ctx context.Context, fileHash, filename string) (*firestore.DocumentRef, error) {
	newJob := models.SplitJob{
		FileHash:         fileHash,
		OriginalFilename: filename,
		Status:           models.StatusSplitting,
		CreatedAt:        time.Now(),
	}
	docRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, newJob)
	if err != nil {
		return nil, fmt.Errorf("failed to create split job: %w", err)
	}
	return docRef, nil
}

func (f *PDFSplitterFunction) split(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, source, outDir string) (*models.SplitReport, error) {
	report, err := f.splitter.Split(ctx, source, outDir, progressLogger(logCtx))
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to split PDF", err)
	}
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusUploading},
		{Path: "pageCount", Value: report.TotalPages},
		{Path: "fileCount", Value: report.Created},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "failed to update status to UPLOADING", err)
	}
	logCtx.Info("PDF split locally.", "pageCount", report.TotalPages, "fileCount", report.Created)
	return report, nil
}

func (f *PDFSplitterFunction) uploadOutputs(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, localPaths []string) ([]string, error) {
	logCtx.Info("Starting concurrent upload of split files.", "fileCount", len(localPaths))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(10)

	objects := make([]string, len(localPaths))
	for i, localPath := range localPaths {
		objects[i] = objectNameFor(f.config.OutputPrefix, docRef.ID, localPath)
		eg.Go(func() error {
			if err := f.uploadFile(gctx, localPath, objects[i]); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(localPath), err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "one or more split files failed to upload", err)
	}
	logCtx.Info("All split files uploaded successfully.")
	return objects, nil
}

func (f *PDFSplitterFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, report *models.SplitReport, objects []string) error {
	logCtx.Info("Triggering workflow.")
	payloadBytes, err := json.Marshal(models.WorkflowPayload{
		JobID:         docRef.ID,
		PageCount:     report.TotalPages,
		FileCount:     report.Created,
		OutputObjects: objects,
	})
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to marshal workflow payload", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	execution, err := f.executionsClient.CreateExecution(ctx, req)
	if err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to trigger workflow execution", err)
	}
	if _, err := docRef.Update(ctx, []firestore.Update{{Path: "workflowExecutionId", Value: execution.GetName()}}); err != nil {
		logCtx.Warn("Failed to record workflow execution ID.", "error", err)
	}
	return nil
}

func (f *PDFSplitterFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.updateStatus(ctx, docRef, models.StatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

func (f *PDFSplitterFunction) updateStatus(ctx context.Context, docRef *firestore.DocumentRef, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := docRef.Update(ctx, updates)
	return err
}

func (f *PDFSplitterFunction) uploadFile(ctx context.Context, localPath, destObject string) error {
	const maxRetries = 4
	var backoff = 1 * time.Second
	var lastErr error

	bucket := f.storageClient.Bucket(f.config.OutputBucket)
	for i := 0; i < maxRetries; i++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, time.Second*50)
			defer cancel()

			uploaded, err := gcp.UploadFileIfAbsent(writeCtx, bucket, destObject, localPath)
			if err != nil {
				return err
			}
			if !uploaded {
				slog.Info("Object already exists. Skipping upload.", "gcsObject", destObject)
			}
			return nil
		}()

		if err == nil {
			return nil // Success!
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", destObject,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", destObject, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", destObject, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", destObject, lastErr)
}

// shouldProcess filters out non-PDF uploads and the function's own outputs
// when they land in the watched bucket.
func shouldProcess(e GCSEvent, config PDFSplitterConfig) bool {
	if !strings.EqualFold(path.Ext(e.Name), ".pdf") {
		return false
	}
	if e.Bucket == config.OutputBucket && config.OutputPrefix != "" && strings.HasPrefix(e.Name, config.OutputPrefix+"/") {
		return false
	}
	return true
}

// objectNameFor places a split file under <prefix>/<jobID>/.
func objectNameFor(prefix, jobID, localPath string) string {
	return path.Join(prefix, jobID, filepath.Base(localPath))
}

// progressLogger logs split progress at every quarter.
func progressLogger(logCtx *slog.Logger) splitter.ProgressFunc {
	next := 0.25
	return func(fraction float64) {
		if fraction < next {
			return
		}
		logCtx.Debug("Split progress.", "percent", int(fraction*100))
		for next <= fraction {
			next += 0.25
		}
	}
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
