package handler

import (
	"net/http"
	"strconv"

	"okrdrift/internal/model"
	"okrdrift/internal/platform/logger"
	"okrdrift/internal/service"
	"okrdrift/internal/transport/rest/middleware"
)

// SessionHandler handles presentation session endpoints
type SessionHandler struct {
	sessionSvc *service.SessionService
	log        *logger.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionSvc *service.SessionService, log *logger.Logger) *SessionHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &SessionHandler{sessionSvc: sessionSvc, log: log.Component("session_handler")}
}

// sessionID is the session the request's token was issued for
func sessionID(r *http.Request) string {
	return middleware.GetSessionID(r.Context())
}

// Create starts a new session
// @Summary Create session
// @Tags sessions
// @Produce json
// @Success 201 {object} model.SessionTokenResponse
// @Router /v1/sessions [post]
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	resp, err := h.sessionSvc.Create(r.Context())
	if err != nil {
		h.log.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Get returns the session snapshot
// @Summary Get session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} model.SessionSnapshot
// @Router /v1/sessions/{id} [get]
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.sessionSvc.Snapshot(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type provideStudentRequest struct {
	StudentID string `json:"studentId"`
}

// ProvideStudent records the student id and advances to goal collection
// @Summary Provide student id
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} model.SessionSnapshot
// @Router /v1/sessions/{id}/student [post]
func (h *SessionHandler) ProvideStudent(w http.ResponseWriter, r *http.Request) {
	var req provideStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snapshot, err := h.sessionSvc.ProvideStudentID(r.Context(), sessionID(r), req.StudentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Back returns to student id collection
func (h *SessionHandler) Back(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.sessionSvc.Back(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type submitRequest struct {
	QuarterlyGoal string `json:"quarterlyGoal"`
	CurrentLevel  string `json:"currentLevel"`
}

// Submit starts an analysis. With ?wait=true the response is held until the outcome is applied
// or discarded.
// @Summary Submit analysis
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param wait query bool false "Wait for the outcome"
// @Success 202 {object} model.SessionSnapshot
// @Router /v1/sessions/{id}/submit [post]
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := sessionID(r)
	snapshot, done, err := h.sessionSvc.Submit(r.Context(), id, req.QuarterlyGoal, model.Level(req.CurrentLevel))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		writeJSON(w, http.StatusAccepted, snapshot)
		return
	}

	select {
	case <-done:
	case <-r.Context().Done():
		return
	}
	snapshot, err = h.sessionSvc.Snapshot(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type selectTabRequest struct {
	Tab string `json:"tab"`
}

// SelectTab switches the displayed tab
func (h *SessionHandler) SelectTab(w http.ResponseWriter, r *http.Request) {
	var req selectTabRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snapshot, err := h.sessionSvc.SelectTab(r.Context(), sessionID(r), model.Tab(req.Tab))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type toggleMonthRequest struct {
	Month string `json:"month"`
}

// ToggleMonth expands or collapses one roadmap month
func (h *SessionHandler) ToggleMonth(w http.ResponseWriter, r *http.Request) {
	var req toggleMonthRequest
	if err := decodeJSON(r, &req); err != nil || req.Month == "" {
		writeError(w, http.StatusBadRequest, "month is required")
		return
	}
	snapshot, err := h.sessionSvc.ToggleMonth(r.Context(), sessionID(r), req.Month)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// Reset discards the report and starts a new analysis
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.sessionSvc.NewAnalysis(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// View returns the projection of the active tab
// @Summary Get active view
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} projection.View
// @Router /v1/sessions/{id}/view [get]
func (h *SessionHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessionSvc.View(r.Context(), sessionID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
