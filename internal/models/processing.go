package models

import (
	"time"

	"github.com/lib/pq"
)

// Unit statuses.
const (
	StatusOK      = "ok"
	StatusFlagged = "flagged"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// ProcessingRun is one pass of the batch driver over the raw files of an aim.
type ProcessingRun struct {
	ID         string `gorm:"primaryKey;size:36"`
	Aim        string
	StartedAt  time.Time
	FinishedAt *time.Time
	Total      int
	Succeeded  int
	Flagged    int
	Skipped    int
	Failed     int
}

// UnitResult records the outcome of one subject-task file.
type UnitResult struct {
	ID             int           `gorm:"primaryKey"`
	RunID          string        `gorm:"size:36;index"`
	Run            ProcessingRun `gorm:"foreignKey:RunID"`
	Subject        string        `gorm:"index"`
	File           string
	ExperimentID   string `gorm:"index"`
	Status         string
	Error          string
	CleanedPath    string
	EventsPath     string
	CleanedRows    int
	EventRows      int
	DroppedColumns pq.StringArray `gorm:"type:text"`
	CreatedAt      time.Time
}

// UnitMetric is one quality-control metric computed over a unit's event file.
type UnitMetric struct {
	ID           int `gorm:"primaryKey"`
	UnitResultID int `gorm:"index"`
	MetricKey    string
	MetricValue  float64
	SampleSize   int
	CreatedAt    time.Time
}
