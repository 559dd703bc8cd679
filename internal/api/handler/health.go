package handler

import (
	"context"
	"net/http"

	"github.com/anahq/ana/internal/api/response"
	"github.com/anahq/ana/internal/cache"
	"github.com/anahq/ana/internal/store"
)

// Health reports liveness of the service and its backing stores.
type Health struct {
	store store.Store
	cache cache.Cache
}

func NewHealth(s store.Store, c cache.Cache) *Health {
	return &Health{store: s, cache: c}
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// Check handles GET /api/v1/health. A degraded dependency turns the overall
// status to "degraded" but still answers 200 so load balancers keep routing.
func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{Status: "ok", Database: "ok", Cache: "ok"}

	if err := h.store.Ping(r.Context()); err != nil {
		status.Status = "degraded"
		status.Database = "unreachable"
	}
	if err := h.cache.Ping(r.Context()); err != nil {
		status.Status = "degraded"
		status.Cache = "unreachable"
	}

	response.JSON(w, status)
}

// ConnectionTester probes the downstream webhook endpoint.
type ConnectionTester interface {
	TestConnection(ctx context.Context) (string, error)
	Endpoint() string
}

// WebhookStatus reports reachability of the Tod webhook.
type WebhookStatus struct {
	client ConnectionTester
}

func NewWebhookStatus(c ConnectionTester) *WebhookStatus {
	return &WebhookStatus{client: c}
}

type webhookStatusBody struct {
	Status   string `json:"status"`
	Endpoint string `json:"endpoint"`
}

// Status handles GET /api/v1/webhook/status.
func (h *WebhookStatus) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.client.TestConnection(r.Context())
	if err != nil {
		response.Error(w, http.StatusBadGateway, "WEBHOOK_UNREACHABLE", err.Error(), nil)
		return
	}
	response.JSON(w, webhookStatusBody{Status: status, Endpoint: h.client.Endpoint()})
}
