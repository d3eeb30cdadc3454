package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JobStatus represents the status of a single upload job.
// A job moves pending -> uploading-image -> saving-record -> succeeded,
// or to failed from either in-flight phase.
type JobStatus string

const (
	JobStatusPending        JobStatus = "pending"
	JobStatusUploadingImage JobStatus = "uploading-image"
	JobStatusSavingRecord   JobStatus = "saving-record"
	JobStatusSucceeded      JobStatus = "succeeded"
	JobStatusFailed         JobStatus = "failed"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// UploadJob is one certificate record moving through the two-phase upload.
type UploadJob struct {
	Index    int               `json:"index"`
	Record   CertificateRecord `json:"-"`
	Name     string            `json:"name"`
	ImageURL string            `json:"image_url,omitempty"`
	Status   JobStatus         `json:"status"`
	Duration time.Duration     `json:"duration"`
	Error    string            `json:"error,omitempty"`
}

// FailureRecord describes a job that failed during a run.
type FailureRecord struct {
	Index    int           `json:"index"`
	Name     string        `json:"name"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

// FailureList is stored as JSON in the upload_runs table.
type FailureList []FailureRecord

// Value implements the driver.Valuer interface.
func (f FailureList) Value() (driver.Value, error) {
	if f == nil {
		return "[]", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface.
func (f *FailureList) Scan(value interface{}) error {
	if value == nil {
		*f = FailureList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan FailureList")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, f)
}

// RunStatus represents the status of an upload run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusStopped   RunStatus = "stopped"
)

// UploadRun is the persisted summary of one pass over a job queue.
type UploadRun struct {
	ID          string      `gorm:"type:text;primaryKey" json:"id"`
	Status      RunStatus   `gorm:"type:text;default:running" json:"status"`
	TotalJobs   int         `gorm:"default:0" json:"total_jobs"`
	Processed   int         `gorm:"default:0" json:"processed"`
	Succeeded   int         `gorm:"default:0" json:"succeeded"`
	Failed      int         `gorm:"default:0" json:"failed"`
	Failures    FailureList `gorm:"type:text" json:"failures"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName returns the database table name for UploadRun.
func (UploadRun) TableName() string {
	return "upload_runs"
}

// Severity classifies a run log entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// LogEntry is a human-readable line in a run log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
}
