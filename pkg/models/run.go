package models

import (
	"time"

	"github.com/google/uuid"
)

// Analysis run sources.
const (
	RunSourceCILogs       = "ci_logs"
	RunSourceVercelLogs   = "vercel_logs"
	RunSourceBugbotReview = "bugbot_review"
)

// Delivery states for a persisted run.
const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
	DeliveryStatusSkipped   = "skipped"
)

// AnalysisRun is one persisted analysis invocation: the results bundle plus
// its originating context and webhook delivery state.
type AnalysisRun struct {
	ID             uuid.UUID         `db:"id"              json:"id"`
	Source         string            `db:"source"          json:"source"`
	JobName        string            `db:"job_name"        json:"job_name,omitempty"`
	WorkflowRunID  string            `db:"workflow_run_id" json:"workflow_run_id,omitempty"`
	PRNumber       int               `db:"pr_number"       json:"pr_number,omitempty"`
	Summary        string            `db:"summary"         json:"summary"`
	TotalFailures  int               `db:"total_failures"  json:"total_failures"`
	Failures       []AnalyzedFailure `db:"failures"        json:"failures"`
	AnalysisDate   string            `db:"analysis_date"   json:"analysis_date"`
	DeliveryStatus string            `db:"delivery_status" json:"delivery_status"`
	DeliveryError  *string           `db:"delivery_error"  json:"delivery_error,omitempty"`
	DeliveredAt    *time.Time        `db:"delivered_at"    json:"delivered_at,omitempty"`
	CreatedAt      time.Time         `db:"created_at"      json:"created_at"`
}

// NewAnalysisRun builds a pending run from a results bundle.
func NewAnalysisRun(source, jobName string, results AnaResults, workflowRunID string, prNumber int) *AnalysisRun {
	return &AnalysisRun{
		ID:             uuid.New(),
		Source:         source,
		JobName:        jobName,
		WorkflowRunID:  workflowRunID,
		PRNumber:       prNumber,
		Summary:        results.Summary,
		TotalFailures:  results.TotalFailures,
		Failures:       results.Failures,
		AnalysisDate:   results.AnalysisDate,
		DeliveryStatus: DeliveryStatusPending,
		CreatedAt:      time.Now().UTC(),
	}
}
