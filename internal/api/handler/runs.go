package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/anahq/ana/internal/api/response"
	"github.com/anahq/ana/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Runs handles the read side of persisted analysis runs.
type Runs struct {
	store store.Store
}

func NewRuns(s store.Store) *Runs {
	return &Runs{store: s}
}

// List handles GET /api/v1/runs.
func (h *Runs) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.RunFilter{
		Source:         q.Get("source"),
		DeliveryStatus: q.Get("delivery_status"),
	}

	if v := q.Get("pr_number"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "pr_number must be a positive integer", nil)
			return
		}
		filter.PRNumber = n
	}

	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "since must be an RFC 3339 timestamp", nil)
			return
		}
		filter.Since = t
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "page must be an integer", nil)
			return
		}
		filter.Page = n
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be an integer", nil)
			return
		}
		filter.Limit = n
	}

	runs, total, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list analysis runs", nil)
		return
	}

	page, limit := normalizePagination(filter.Page, filter.Limit)
	response.Collection(w, runs, response.PaginationMeta{
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasNext: page*limit < total,
	})
}

// Get handles GET /api/v1/runs/{runID}.
func (h *Runs) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "runID must be a valid UUID", nil)
		return
	}

	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Analysis run not found", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch analysis run", nil)
		return
	}

	response.JSON(w, run)
}

// normalizePagination mirrors the store's clamping so the meta block reports
// the values actually applied to the query.
func normalizePagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
