// Package httptransport is the thin HTTP layer over the loader and query
// services. It exists for the external orchestration that feeds parsed
// batches in and for operator tooling; business logic stays in the services.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"sstload/internal/loader/models"
	"sstload/internal/loader/store"
	"sstload/internal/query"
	"sstload/pkg/domain"
	"sstload/pkg/fieldmap"
	"sstload/pkg/platform/sentinel"
)

// Loader is the slice of the loader service the transport needs.
type Loader interface {
	Load(ctx context.Context, req models.LoadRequest) (*models.Outcome, error)
}

// Handler handles loader and query endpoints.
type Handler struct {
	loader  Loader
	queries *query.Service
	status  store.StatusStore
	logger  *slog.Logger
}

// New creates a Handler.
func New(loader Loader, queries *query.Service, status store.StatusStore, logger *slog.Logger) (*Handler, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader service is required")
	}
	if queries == nil {
		return nil, fmt.Errorf("query service is required")
	}
	if status == nil {
		return nil, fmt.Errorf("status store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Handler{loader: loader, queries: queries, status: status, logger: logger}, nil
}

type loadRequestBody struct {
	State         string            `json:"state"`
	Kind          string            `json:"kind"`
	Label         string            `json:"label"`
	EffectiveDate string            `json:"effective_date"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	AllowBackfill bool              `json:"allow_backfill,omitempty"`
	LoadedBy      string            `json:"loaded_by,omitempty"`
	Records       []recordBody      `json:"records"`
}

type recordBody struct {
	Line   int           `json:"line"`
	Fields *fieldmap.Map `json:"fields"`
}

// handleSubmitLoad accepts one parsed document batch and runs a load
// attempt synchronously, returning the outcome.
func (h *Handler) handleSubmitLoad(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body loadRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	req, err := body.toRequest()
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	outcome, err := h.loader.Load(ctx, req)
	if err != nil {
		status := statusForError(err)
		h.logger.WarnContext(ctx, "load request failed",
			"state", req.State.String(), "kind", req.Kind.ShortCode(), "error", err)
		writeJSON(w, status, outcomeBody(outcome))
		return
	}
	writeJSON(w, http.StatusOK, outcomeBody(outcome))
}

func (b loadRequestBody) toRequest() (models.LoadRequest, error) {
	var req models.LoadRequest
	state, err := domain.ParseStateCode(b.State)
	if err != nil {
		return req, err
	}
	kind, err := domain.ParseDocumentKind(b.Kind)
	if err != nil {
		return req, err
	}
	label, err := domain.ParseVersionLabel(b.Label)
	if err != nil {
		return req, err
	}
	effective, err := parseDate(b.EffectiveDate)
	if err != nil {
		return req, fmt.Errorf("effective_date: %w", err)
	}
	records := make([]models.RawRecord, 0, len(b.Records))
	for _, rec := range b.Records {
		fields := rec.Fields
		if fields == nil {
			fields = fieldmap.New()
		}
		records = append(records, models.RawRecord{Line: rec.Line, Fields: fields})
	}
	return models.LoadRequest{
		State:         state,
		Kind:          kind,
		Label:         label,
		EffectiveDate: effective,
		Metadata:      b.Metadata,
		Records:       records,
		AllowBackfill: b.AllowBackfill,
		LoadedBy:      b.LoadedBy,
	}, nil
}

// handleRecentLoads lists the latest load attempts for operator follow-up.
func (h *Handler) handleRecentLoads(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	attempts, err := h.status.RecentAttempts(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	out := make([]attemptBody, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, toAttemptBody(*a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": out})
}

// handleCurrentDocument returns the active version and items for a state
// and kind.
func (h *Handler) handleCurrentDocument(w http.ResponseWriter, r *http.Request) {
	state, kind, err := stateKindParams(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	version, items, err := h.queries.Current(r.Context(), state, kind)
	if err != nil {
		h.writeError(w, r, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version": toVersionBody(version),
		"items":   toItemBodies(items),
	})
}

// handleItemAsOf answers point-in-time lookups.
func (h *Handler) handleItemAsOf(w http.ResponseWriter, r *http.Request) {
	state, kind, err := stateKindParams(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		h.writeError(w, r, http.StatusBadRequest, fmt.Errorf("code is required"))
		return
	}
	at, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, fmt.Errorf("date: %w", err))
		return
	}
	subtype := domain.ItemSubtype(r.URL.Query().Get("subtype"))

	state2, err := h.queries.ItemAsOf(r.Context(), state, kind, subtype, code, at)
	if err != nil {
		h.writeError(w, r, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version": toVersionBody(state2.Version),
		"item":    toItemBody(state2.Item),
	})
}

// handleItemHistory answers change-history queries between two dates.
func (h *Handler) handleItemHistory(w http.ResponseWriter, r *http.Request) {
	state, kind, err := stateKindParams(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		h.writeError(w, r, http.StatusBadRequest, fmt.Errorf("code is required"))
		return
	}
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, fmt.Errorf("from: %w", err))
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, fmt.Errorf("to: %w", err))
		return
	}
	subtype := domain.ItemSubtype(r.URL.Query().Get("subtype"))

	history, err := h.queries.History(r.Context(), state, kind, subtype, code, from, to)
	if err != nil {
		h.writeError(w, r, statusForError(err), err)
		return
	}
	out := make([]changeBody, 0, len(history))
	for _, e := range history {
		out = append(out, changeBody{
			FromLabel:     e.FromLabel.String(),
			ToLabel:       e.ToLabel.String(),
			EffectiveDate: e.EffectiveDate.Format(dateLayout),
			Change:        string(e.Change),
			Fields:        e.Fields,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": out})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusForError maps the loader taxonomy onto HTTP statuses.
func statusForError(err error) int {
	var batchErr *models.BatchValidationError
	var structErr *models.StructuralMismatchError
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound
	case models.IsTemporalConflict(err):
		return http.StatusConflict
	case errors.As(err, &batchErr), errors.As(err, &structErr):
		return http.StatusUnprocessableEntity
	case models.IsTransient(err), errors.Is(err, sentinel.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

func stateKindParams(r *http.Request) (domain.StateCode, domain.DocumentKind, error) {
	state, err := domain.ParseStateCode(r.URL.Query().Get("state"))
	if err != nil {
		return "", "", err
	}
	kind, err := domain.ParseDocumentKind(r.URL.Query().Get("kind"))
	if err != nil {
		return "", "", err
	}
	return state, kind, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
