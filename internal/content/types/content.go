package types

import (
	"fmt"
	"io"
	"time"
)

// Stage is a named phase in the content review pipeline
type Stage string

const (
	StageUploads    Stage = "uploads"
	StageMonitoring Stage = "monitoring"
	StageMobile     Stage = "mobile"
)

// Stages lists all pipeline stages in review order
var Stages = []Stage{StageUploads, StageMonitoring, StageMobile}

// Valid reports whether the stage is one of the known pipeline phases
func (s Stage) Valid() bool {
	switch s {
	case StageUploads, StageMonitoring, StageMobile:
		return true
	}
	return false
}

// ParseStage converts a path or query parameter into a Stage
func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if !stage.Valid() {
		return "", fmt.Errorf("unknown stage: %q", s)
	}
	return stage, nil
}

// ContentRecord represents one asset at one stage of the pipeline.
// ImageURL and Path are derived from the stored object key, never set
// independently of it.
type ContentRecord struct {
	ID         string                 `json:"id"`
	Title      string                 `json:"title"`
	ImageURL   string                 `json:"imageUrl"`
	Path       string                 `json:"path"`
	Type       string                 `json:"type"`
	Status     string                 `json:"status"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	UploadedAt time.Time              `json:"uploadedAt"`
	UpdatedAt  time.Time              `json:"updatedAt,omitempty"`
}

// UploadStatusEntry tracks one monitoring-stage item's transfer and
// activation progress. It parallels a ContentRecord but is not the same
// entity; the two may transiently diverge.
type UploadStatusEntry struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Progress  int       `json:"progress"`
}

// IngestRequest carries a validated upload into the engine
type IngestRequest struct {
	OriginalFilename string
	Title            string
	ContentType      string
	Size             int64
	Body             io.Reader
	Metadata         map[string]interface{}
}

// PromoteRequest copies an asset from one stage to another
type PromoteRequest struct {
	SourceStage Stage
	TargetStage Stage
	SourceID    string
	// ID overrides the assigned target-stage id when non-empty
	ID string
	// Title overrides the carried-forward title when non-empty
	Title    string
	Type     string
	Metadata map[string]interface{}
}

// RemoveResult reports the outcome of removing one record
type RemoveResult struct {
	ID          string `json:"id"`
	Removed     bool   `json:"removed"`
	BlobDeleted bool   `json:"blobDeleted"`
	// Warning is set when the record was removed but the backing blob
	// could not be deleted for a reason other than already being gone
	Warning string `json:"warning,omitempty"`
}

// BatchRemoveItem is the per-id outcome of a batch removal
type BatchRemoveItem struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchRemoveResult aggregates a batch removal. Callers must inspect the
// individual results; the aggregate count alone does not say which ids
// failed.
type BatchRemoveResult struct {
	Results      []BatchRemoveItem `json:"results"`
	SuccessCount int               `json:"successCount"`
	Total        int               `json:"total"`
}
