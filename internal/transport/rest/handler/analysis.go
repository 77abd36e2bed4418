package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"okrdrift/internal/model"
	"okrdrift/internal/service"
)

// AnalysisHandler exposes the analysis service's health and stored history
type AnalysisHandler struct {
	orchestrator *service.Orchestrator
	sessionSvc   *service.SessionService
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(orchestrator *service.Orchestrator, sessionSvc *service.SessionService) *AnalysisHandler {
	return &AnalysisHandler{orchestrator: orchestrator, sessionSvc: sessionSvc}
}

// Health probes the analysis service
// @Summary Analysis service health
// @Tags analysis
// @Produce json
// @Success 200 {object} map[string]string
// @Router /v1/analysis/health [get]
func (h *AnalysisHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.orchestrator.CheckHealth(r.Context())
	code := http.StatusOK
	if status != model.HealthHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]model.HealthStatus{"status": status})
}

// Reports returns the stored reports of a student, most recent first
// @Summary Student report history
// @Tags analysis
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {array} model.AnalysisReport
// @Failure 404 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /v1/students/{studentId}/reports [get]
func (h *AnalysisHandler) Reports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.orchestrator.FetchReports(r.Context(), mux.Vars(r)["studentId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// Profile returns header information from the student's latest report
func (h *AnalysisHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.orchestrator.StudentProfile(r.Context(), mux.Vars(r)["studentId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Outcomes lists archived submission outcomes for a student (newest first) or for a session
// (in submission order)
// @Summary Archived outcomes
// @Tags diagnostics
// @Produce json
// @Param studentId query string false "Student ID"
// @Param sessionId query string false "Session ID"
// @Param limit query int false "Max records for a student"
// @Success 200 {array} model.OutcomeRecord
// @Router /v1/diagnostics/outcomes [get]
func (h *AnalysisHandler) Outcomes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	studentID, sessionID := q.Get("studentId"), q.Get("sessionId")

	var (
		records []*model.OutcomeRecord
		err     error
	)
	switch {
	case sessionID != "":
		records, err = h.sessionSvc.SessionOutcomes(r.Context(), sessionID)
	case studentID != "":
		limit := int64(20)
		if raw := q.Get("limit"); raw != "" {
			n, perr := strconv.ParseInt(raw, 10, 64)
			if perr != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}
		records, err = h.sessionSvc.Outcomes(r.Context(), studentID, limit)
	default:
		writeError(w, http.StatusBadRequest, "studentId or sessionId is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list outcomes")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Outcome returns one archived outcome
// @Summary Archived outcome
// @Tags diagnostics
// @Produce json
// @Param outcomeId path string true "Outcome ID"
// @Success 200 {object} model.OutcomeRecord
// @Router /v1/diagnostics/outcomes/{outcomeId} [get]
func (h *AnalysisHandler) Outcome(w http.ResponseWriter, r *http.Request) {
	record, err := h.sessionSvc.Outcome(r.Context(), mux.Vars(r)["outcomeId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
