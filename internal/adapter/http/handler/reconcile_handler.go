package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gorecon/internal/adapter/http/dto"
	"github.com/iho/gorecon/internal/adapter/report"
	"github.com/iho/gorecon/internal/domain"
	"github.com/iho/gorecon/internal/matching"
	"github.com/iho/gorecon/internal/usecase"
)

// ReconcileHandler handles reconciliation session requests.
type ReconcileHandler struct {
	uc         *usecase.ReconcileUseCase
	defaultCfg matching.Config
}

// NewReconcileHandler creates a new ReconcileHandler. defaultCfg is the
// server-wide matching configuration requests may override per run.
func NewReconcileHandler(uc *usecase.ReconcileUseCase, defaultCfg matching.Config) *ReconcileHandler {
	return &ReconcileHandler{uc: uc, defaultCfg: defaultCfg}
}

// Create runs a reconciliation over the posted record pools.
func (h *ReconcileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	input := usecase.RunInput{
		Config: req.Config.Apply(h.defaultCfg),
	}

	input.Ledger, input.PreRejected = convertRecords(req.Ledger, "ledger", input.PreRejected)
	input.Bank, input.PreRejected = convertRecords(req.Bank, "bank", input.PreRejected)

	session, err := h.uc.Run(r.Context(), input)
	if err != nil {
		writeError(w, mapDomainError(err), "reconciliation failed", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.SessionFromDomain(session))
}

// Get returns a stored session.
func (h *ReconcileHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.uc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, mapDomainError(err), "session not found", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionFromDomain(session))
}

// Exceptions returns only the exception list of a stored session, the
// working set for a review queue.
func (h *ReconcileHandler) Exceptions(w http.ResponseWriter, r *http.Request) {
	session, err := h.uc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, mapDomainError(err), "session not found", err.Error())
		return
	}

	out := make([]dto.ExceptionResponse, 0, len(session.Exceptions))
	for _, exc := range session.Exceptions {
		out = append(out, dto.ExceptionFromDomain(exc))
	}

	writeJSON(w, http.StatusOK, out)
}

// List returns stored session summaries, newest first.
func (h *ReconcileHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", usecase.DefaultSessionList)
	offset := parseIntQuery(r, "offset", 0)

	sessions, err := h.uc.ListSessions(r.Context(), limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "list failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionSummariesFromDomain(sessions))
}

// Report renders a stored session in the requested format
// (?format=text|json|csv, default text).
func (h *ReconcileHandler) Report(w http.ResponseWriter, r *http.Request) {
	session, err := h.uc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, mapDomainError(err), "session not found", err.Error())
		return
	}

	format := report.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = report.FormatText
	}

	switch format {
	case report.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	case report.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}

	if err := report.Render(w, session, format); err != nil {
		writeError(w, http.StatusBadRequest, "render failed", err.Error())
	}
}

// ReviewException advances one exception through the review workflow.
func (h *ReconcileHandler) ReviewException(w http.ResponseWriter, r *http.Request) {
	var req dto.ReviewExceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	status, err := req.ToStatus()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid status", err.Error())
		return
	}

	session, err := h.uc.ReviewException(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "recordID"), status)
	if err != nil {
		writeError(w, mapDomainError(err), "review failed", err.Error())
		return
	}

	for _, exc := range session.Exceptions {
		if exc.Record.ID == chi.URLParam(r, "recordID") {
			writeJSON(w, http.StatusOK, dto.ExceptionFromDomain(exc))
			return
		}
	}

	writeError(w, http.StatusNotFound, "exception not found", "")
}

func convertRecords(in []dto.RecordRequest, source string, rejected []domain.Rejection) ([]*domain.Record, []domain.Rejection) {
	out := make([]*domain.Record, 0, len(in))

	for _, rr := range in {
		rec, err := rr.ToDomain(source)
		if err != nil {
			rejected = append(rejected, domain.Rejection{
				Record: &domain.Record{ID: rr.ID, Source: source},
				Reason: err.Error(),
			})
			continue
		}

		out = append(out, rec)
	}

	return out, rejected
}
