// Package handler implements the HTTP handlers for the analysis API.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/anahq/ana/internal/analysis"
	"github.com/anahq/ana/internal/api/response"
	"github.com/anahq/ana/internal/cache"
	"github.com/anahq/ana/internal/review"
	"github.com/anahq/ana/internal/store"
	"github.com/anahq/ana/internal/webhook"
	"github.com/anahq/ana/pkg/models"
)

const (
	// deliveryClaimTTL bounds how long a delivery slot stays claimed, so a
	// workflow re-run after this window delivers again.
	deliveryClaimTTL = 10 * time.Minute

	deliveryStatusTTL = 24 * time.Hour
)

// Deliverer sends a payload to the downstream webhook.
type Deliverer interface {
	SendToTod(ctx context.Context, payload models.AnaWebhookPayload) webhook.Result
}

// Analyze handles the POST /api/v1/analyze/* endpoints: it runs the
// requested analysis, persists the run, and optionally delivers the results
// downstream.
type Analyze struct {
	store   store.Store
	cache   cache.Cache
	client  Deliverer
	reviews *review.Analyzer
}

func NewAnalyze(s store.Store, c cache.Cache, d Deliverer, ra *review.Analyzer) *Analyze {
	return &Analyze{store: s, cache: c, client: d, reviews: ra}
}

type analyzeLogsRequest struct {
	JobName       string `json:"jobName"`
	Logs          string `json:"logs"`
	WorkflowRunID string `json:"workflowRunId"`
	PRNumber      int    `json:"prNumber"`
	Deliver       bool   `json:"deliver"`
}

// Logs handles POST /api/v1/analyze/logs.
func (h *Analyze) Logs(w http.ResponseWriter, r *http.Request) {
	var req analyzeLogsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}
	if req.JobName == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobName is required", nil)
		return
	}
	if req.Logs == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "logs is required", nil)
		return
	}

	res := analysis.AnalyzeJobLogs(req.JobName, req.Logs)
	results := analysis.BuildResults(res, models.FailureTypeCI)

	h.persistAndRespond(w, r, models.RunSourceCILogs, req.JobName, results,
		req.WorkflowRunID, req.PRNumber, req.Deliver)
}

// Vercel handles POST /api/v1/analyze/vercel.
func (h *Analyze) Vercel(w http.ResponseWriter, r *http.Request) {
	var req analyzeLogsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}
	if req.Logs == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "logs is required", nil)
		return
	}
	jobName := req.JobName
	if jobName == "" {
		jobName = "Vercel Deploy"
	}

	res := analysis.AnalyzeVercelDeploymentLogs(jobName, req.Logs)
	results := analysis.BuildResults(res, models.FailureTypeVercel)

	h.persistAndRespond(w, r, models.RunSourceVercelLogs, jobName, results,
		req.WorkflowRunID, req.PRNumber, req.Deliver)
}

type analyzeReviewRequest struct {
	Review   models.Review          `json:"review"`
	Comments []models.ReviewComment `json:"comments"`
	PRNumber int                    `json:"prNumber"`
	Deliver  bool                   `json:"deliver"`
}

// Review handles POST /api/v1/analyze/review.
func (h *Analyze) Review(w http.ResponseWriter, r *http.Request) {
	var req analyzeReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}
	if req.PRNumber <= 0 {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "prNumber is required", nil)
		return
	}

	event := models.ReviewEvent{Review: req.Review, Comments: req.Comments}
	results, err := h.reviews.AnalyzeBugbotReview(event, req.PRNumber)
	if err != nil {
		response.Error(w, http.StatusUnprocessableEntity, "INVALID_REVIEW", err.Error(), nil)
		return
	}

	h.persistAndRespond(w, r, models.RunSourceBugbotReview, "", results,
		"", req.PRNumber, req.Deliver)
}

// persistAndRespond stores the run, runs the optional delivery flow, and
// writes the run back to the caller.
func (h *Analyze) persistAndRespond(w http.ResponseWriter, r *http.Request,
	source, jobName string, results models.AnaResults, workflowRunID string, prNumber int, deliver bool) {

	run := models.NewAnalysisRun(source, jobName, results, workflowRunID, prNumber)

	if err := h.store.CreateRun(r.Context(), run); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to persist analysis run", nil)
		return
	}

	if deliver {
		h.deliver(r.Context(), run, results)
	} else {
		h.markDelivery(r.Context(), run, models.DeliveryStatusSkipped, "")
	}

	response.Created(w, run)
}

// deliver sends the run downstream exactly once per delivery slot. Redis
// errors fail open: a broken cache should not stop deliveries.
func (h *Analyze) deliver(ctx context.Context, run *models.AnalysisRun, results models.AnaResults) {
	claimKey := cache.DeliveryClaimKey(run.Source, claimContext(run))
	claimed, err := h.cache.ClaimDelivery(ctx, claimKey, deliveryClaimTTL)
	if err == nil && !claimed {
		h.markDelivery(ctx, run, models.DeliveryStatusSkipped, "delivery already claimed for this run")
		return
	}

	payload := models.NewAnaWebhookPayload(results, run.WorkflowRunID, run.PRNumber)
	res := h.client.SendToTod(ctx, payload)
	if res.Success {
		h.markDelivery(ctx, run, models.DeliveryStatusDelivered, "")
		return
	}
	h.markDelivery(ctx, run, models.DeliveryStatusFailed, res.Err)
}

func (h *Analyze) markDelivery(ctx context.Context, run *models.AnalysisRun, status, deliveryError string) {
	run.DeliveryStatus = status

	opts := []store.DeliveryUpdateOption{}
	if status == models.DeliveryStatusDelivered {
		now := time.Now().UTC()
		run.DeliveredAt = &now
		opts = append(opts, store.WithDeliveredAt(now))
	}
	if deliveryError != "" {
		run.DeliveryError = &deliveryError
		opts = append(opts, store.WithDeliveryError(deliveryError))
	}

	// Best effort: the run response already carries the outcome.
	_ = h.store.UpdateRunDelivery(ctx, run.ID, status, opts...)
	_ = h.cache.SetDeliveryStatus(ctx, run.ID, status, deliveryStatusTTL)
}

// claimContext identifies the delivery slot: the workflow run when known,
// the PR otherwise, falling back to the run ID (never deduped).
func claimContext(run *models.AnalysisRun) string {
	if run.WorkflowRunID != "" {
		return run.WorkflowRunID
	}
	if run.PRNumber > 0 {
		return fmt.Sprintf("pr-%d", run.PRNumber)
	}
	return run.ID.String()
}
