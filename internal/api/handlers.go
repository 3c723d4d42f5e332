// Package api exposes HTTP handlers for the activities service.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"example.com/activities/internal/domain"
	"example.com/activities/internal/persistence"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service      *domain.Service
	maxBatchSize int
}

// NewHandler builds a Handler. A maxBatchSize of zero disables the request size guard.
func NewHandler(service *domain.Service, maxBatchSize int) *Handler {
	return &Handler{service: service, maxBatchSize: maxBatchSize}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/activity/", h.activity)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/activity/"), "/")
	if rest == "" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.ingest(w, r)
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	trackID, tail, _ := strings.Cut(rest, "/")
	switch tail {
	case "":
		h.aggregate(w, r, trackID)
	case "history":
		h.history(w, r, trackID)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	candidates, err := domain.DecodeCandidates(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if h.maxBatchSize > 0 && len(candidates) > h.maxBatchSize {
		writeError(w, http.StatusBadRequest, "batch_too_large", fmt.Sprintf("at most %d activities per request", h.maxBatchSize))
		return
	}

	accepted, err := h.service.Ingest(r.Context(), candidates)
	if err != nil {
		if errors.Is(err, domain.ErrNothingToStore) {
			writeError(w, http.StatusBadRequest, "nothing_stored", "Cannot store any activity")
			return
		}
		log.Printf("ingest failed: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]ActivityView, 0, len(accepted))
	for _, activity := range accepted {
		items = append(items, toActivityView(activity))
	}
	writeJSON(w, http.StatusCreated, items)
}

func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request, trackID string) {
	summary, err := h.service.Aggregate(r.Context(), trackID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTrackNotFound):
			writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("Track ID %s does not exist", trackID))
		case errors.Is(err, domain.ErrAmountComputation):
			log.Printf("aggregate %s: %v", trackID, err)
			writeError(w, http.StatusBadRequest, "amount_error", fmt.Sprintf("Cannot calculate amount for %s", trackID))
		default:
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, AggregateResponse{
		TrackID:    summary.TrackID,
		LastStatus: string(summary.LastStatus),
		Amount:     summary.Amount.StringFixed(2),
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request, trackID string) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxHistoryLimit)
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	activities, next, err := h.service.History(r.Context(), trackID, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]ActivityView, 0, len(activities))
	for _, activity := range activities {
		items = append(items, toActivityView(activity))
	}
	writeJSON(w, http.StatusOK, HistoryResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

// ActivityView is the wire representation of a stored activity.
type ActivityView struct {
	ID         string `json:"id"`
	OccurredAt string `json:"occurred_at"`
	TrackID    string `json:"track_id"`
	Status     string `json:"status"`
	Amount     string `json:"amount"`
}

// AggregateResponse describes a track summary.
type AggregateResponse struct {
	TrackID    string `json:"track_id"`
	LastStatus string `json:"last_status"`
	Amount     string `json:"amount"`
}

// HistoryResponse packages a page of a track's history.
type HistoryResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	payload := map[string]string{
		"type":    code,
		"message": message,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toActivityView(activity domain.Activity) ActivityView {
	return ActivityView{
		ID:         activity.ID,
		OccurredAt: domain.FormatTimestamp(activity.OccurredAt),
		TrackID:    activity.TrackID,
		Status:     string(activity.Status),
		Amount:     activity.Amount,
	}
}
