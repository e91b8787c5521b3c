package models

// These structs define the JSON payloads for the local HTTP API.

// SplitRequest is the input for POST /api/split.
type SplitRequest struct {
	InputPath string `json:"inputPath"`
	OutputDir string `json:"outputDir"`
}

// SplitResponse is the output of POST /api/split.
type SplitResponse struct {
	Status string       `json:"status"`
	Kind   string       `json:"kind,omitempty"`
	Report *SplitReport `json:"report,omitempty"`
}

// WorkflowPayload is the argument handed to the downstream workflow once a
// split job has uploaded its outputs.
type WorkflowPayload struct {
	JobID         string   `json:"jobId"`
	PageCount     int      `json:"pageCount"`
	FileCount     int      `json:"fileCount"`
	OutputObjects []string `json:"outputObjects"`
}
