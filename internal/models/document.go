package models

import "time"

// SplitJob is the Firestore record for one uploaded PDF handled by the
// split function. It tracks the overall status and the objects produced.
type SplitJob struct {
	FileHash            string    `firestore:"fileHash,omitempty"`
	OriginalFilename    string    `firestore:"originalFilename,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	PageCount           int       `firestore:"pageCount,omitempty"`
	FileCount           int       `firestore:"fileCount,omitempty"`
	OutputObjects       []string  `firestore:"outputObjects,omitempty"`
	DiscardedPages      []int     `firestore:"discardedPages,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
}

// Job statuses written to SplitJob.Status.
const (
	StatusSplitting = "SPLITTING"
	StatusUploading = "UPLOADING"
	StatusSplit     = "SPLIT"
	StatusFailed    = "FAILED"
)
