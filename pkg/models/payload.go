package models

import "time"

// AnaWebhookPayload is the wire-format wrapper POSTed to the Tod webhook.
// It is always derived from an AnaResults plus optional CI context.
type AnaWebhookPayload struct {
	Summary       string            `json:"summary"`
	AnalysisDate  string            `json:"analysisDate"`
	WorkflowRunID string            `json:"workflowRunId,omitempty"`
	PRNumber      int               `json:"prNumber,omitempty"`
	Failures      []AnalyzedFailure `json:"failures"`
}

// NewAnaWebhookPayload derives a webhook payload from a results bundle.
// workflowRunID and prNumber are omitted from the wire when zero.
func NewAnaWebhookPayload(results AnaResults, workflowRunID string, prNumber int) AnaWebhookPayload {
	p := AnaWebhookPayload{
		Summary:      results.Summary,
		AnalysisDate: results.AnalysisDate,
		Failures:     results.Failures,
	}
	if p.Failures == nil {
		p.Failures = []AnalyzedFailure{}
	}
	if workflowRunID != "" {
		p.WorkflowRunID = workflowRunID
	}
	if prNumber > 0 {
		p.PRNumber = prNumber
	}
	return p
}

// TodWebhookPayload is the legacy envelope used by the backward-compatible
// send helpers. Data carries either an AnaResults or a single AnalyzedFailure.
type TodWebhookPayload struct {
	Source   string             `json:"source"`
	Type     string             `json:"type"`
	Data     any                `json:"data"`
	Metadata TodWebhookMetadata `json:"metadata"`
}

const (
	TodPayloadSource              = "ana"
	TodPayloadTypeAnalysisResults = "analysis_results"
	TodPayloadTypeSingleFailure   = "single_failure"
)

type TodWebhookMetadata struct {
	RelatedPR string `json:"relatedPR"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// NewTodWebhookPayload wraps data in the legacy envelope.
func NewTodWebhookPayload(payloadType string, data any, relatedPR, version string) TodWebhookPayload {
	return TodWebhookPayload{
		Source: TodPayloadSource,
		Type:   payloadType,
		Data:   data,
		Metadata: TodWebhookMetadata{
			RelatedPR: relatedPR,
			Timestamp: time.Now().UTC().Format(TimestampLayout),
			Version:   version,
		},
	}
}

// TodResponse is the JSON body Tod returns on a successful delivery.
type TodResponse struct {
	Success      bool   `json:"success"`
	TodosCreated int    `json:"todosCreated,omitempty"`
	TodoID       string `json:"todoId,omitempty"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}
