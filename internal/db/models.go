package db

import (
	"time"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Batch is one conversion run over a file or directory.
type Batch struct {
	ID        string      `gorm:"primaryKey;size:36" json:"id"`
	Root      string      `json:"root"`
	Mode      string      `json:"mode"` // single, batch, watch
	Codec     string      `json:"codec"`
	Quality   int         `json:"quality"`
	Replace   bool        `json:"replace"`
	StartedAt time.Time   `gorm:"index" json:"started_at"`
	EndedAt   time.Time   `json:"ended_at"`
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Deleted   int         `json:"deleted"`
	Jobs      []JobRecord `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"jobs,omitempty"`
}

// JobRecord is the stored outcome of a single job.
type JobRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BatchID    string    `gorm:"index;size:36" json:"batch_id"`
	Position   int       `json:"position"`
	InputPath  string    `gorm:"index" json:"input_path"`
	OutputPath string    `json:"output_path"`
	SourceMD5  string    `gorm:"index" json:"source_md5"`
	Status     string    `gorm:"index" json:"status"` // success, failed
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Stats aggregates every stored job.
type Stats struct {
	Batches      int64 `json:"batches"`
	TotalJobs    int64 `json:"total_jobs"`
	SuccessCount int64 `json:"success_count"`
	FailedCount  int64 `json:"failed_count"`
	DeletedCount int64 `json:"deleted_count"`
}
