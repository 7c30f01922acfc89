package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/academy-hub/attendance-feed-engine/internal/application/command"
	"github.com/academy-hub/attendance-feed-engine/internal/application/query"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":    "Attendance Feed Engine API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":   "/health",
			"feed":     "/api/v1/feed",
			"absences": "/api/v1/absences",
			"tickets":  "/api/v1/tickets",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(s.Uptime().Seconds()),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// FEED HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetClassFeed hydrates the feed screen for a class and day.
// GET /api/v1/feed?tenant_id=&class_id=&date=&student_ids=a,b,c
func (s *Server) handleGetClassFeed(w http.ResponseWriter, r *http.Request) {
	q := query.GetClassFeedQuery{
		TenantID:   getQueryParam(r, "tenant_id", ""),
		ClassID:    getQueryParam(r, "class_id", ""),
		Date:       getQueryParam(r, "date", ""),
		StudentIDs: getQueryParamList(r, "student_ids"),
	}

	result, err := s.deps.ClassFeed.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleSaveFeed saves one card.
// POST /api/v1/feed
func (s *Server) handleSaveFeed(w http.ResponseWriter, r *http.Request) {
	var cmd command.SaveFeedCommand
	if !s.decodeBody(w, r, &cmd) {
		return
	}
	cmd.CorrelationID = getRequestID(r.Context())

	result, err := s.deps.SaveFeed.Handle(r.Context(), cmd)
	if err != nil {
		// A validation rejection carries the failed rules for the card UI.
		if result != nil && len(result.Violations) > 0 {
			writeJSONErrorWithDetails(w, http.StatusUnprocessableEntity, "validation_failed",
				"card fails validation", result.Violations)
			return
		}
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleBulkSaveFeed saves every submitted card of a class screen.
// POST /api/v1/feed/bulk
func (s *Server) handleBulkSaveFeed(w http.ResponseWriter, r *http.Request) {
	var cmd command.BulkSaveFeedCommand
	if !s.decodeBody(w, r, &cmd) {
		return
	}
	cmd.CorrelationID = getRequestID(r.Context())

	result, err := s.deps.BulkSaveFeed.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	// Partial failure is a 200: the per-item results carry the outcomes.
	writeJSON(w, http.StatusOK, result)
}

// DraftAutosaveRequest is the debounced autosave payload sent while a card is
// being edited.
type DraftAutosaveRequest struct {
	TenantID  string     `json:"tenant_id"`
	StudentID string     `json:"student_id"`
	ClassID   string     `json:"class_id"`
	Date      string     `json:"date"`
	Draft     feed.Draft `json:"draft"`
}

// handleDraftAutosave accepts a draft snapshot for the write-behind cache.
// PUT /api/v1/feed/draft
func (s *Server) handleDraftAutosave(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordDraft == nil {
		writeJSONError(w, http.StatusNotImplemented, "drafts_disabled", "Draft autosave is not enabled")
		return
	}

	var req DraftAutosaveRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if err := s.deps.RecordDraft(r.Context(), req); err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// handleDeleteFeed soft-deletes a record.
// DELETE /api/v1/feed?tenant_id=&student_id=&class_id=&date=
func (s *Server) handleDeleteFeed(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteFeedCommand{
		TenantID:      getQueryParam(r, "tenant_id", ""),
		StudentID:     getQueryParam(r, "student_id", ""),
		ClassID:       getQueryParam(r, "class_id", ""),
		Date:          getQueryParam(r, "date", ""),
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.DeleteFeed.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleToggleNeedsMakeup flips the makeup override on an absence record.
// POST /api/v1/feed/needs-makeup
func (s *Server) handleToggleNeedsMakeup(w http.ResponseWriter, r *http.Request) {
	var cmd command.ToggleNeedsMakeupCommand
	if !s.decodeBody(w, r, &cmd) {
		return
	}
	cmd.CorrelationID = getRequestID(r.Context())

	result, err := s.deps.ToggleMakeup.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ABSENCE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListAbsences lists absence records in a date window.
// GET /api/v1/absences?tenant_id=&from=&to=&include_tickets=&page=&page_size=
func (s *Server) handleListAbsences(w http.ResponseWriter, r *http.Request) {
	q := query.ListAbsencesQuery{
		TenantID:       getQueryParam(r, "tenant_id", ""),
		From:           getQueryParam(r, "from", ""),
		To:             getQueryParam(r, "to", ""),
		IncludeTickets: getQueryParamBool(r, "include_tickets"),
		Page:           getQueryParamInt(r, "page", 1),
		PageSize:       getQueryParamInt(r, "page_size", 0),
	}

	result, err := s.deps.ListAbsences.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleMonthlyAbsences returns a student's month-to-date absence count.
// GET /api/v1/students/{id}/absences/monthly?tenant_id=&as_of=
func (s *Server) handleMonthlyAbsences(w http.ResponseWriter, r *http.Request) {
	q := query.MonthlyAbsencesQuery{
		TenantID:  getQueryParam(r, "tenant_id", ""),
		StudentID: r.PathValue("id"),
		AsOf:      getQueryParam(r, "as_of", ""),
		Threshold: getQueryParamInt(r, "threshold", 0),
	}

	result, err := s.deps.MonthlyAbsences.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// TICKET HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListTickets lists makeup tickets.
// GET /api/v1/tickets?tenant_id=&statuses=&student_id=&absence_from=&absence_to=...
func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	q := query.ListTicketsQuery{
		TenantID:      getQueryParam(r, "tenant_id", ""),
		Statuses:      getQueryParamList(r, "statuses"),
		StudentID:     getQueryParam(r, "student_id", ""),
		AbsenceFrom:   getQueryParam(r, "absence_from", ""),
		AbsenceTo:     getQueryParam(r, "absence_to", ""),
		ScheduledFrom: getQueryParam(r, "scheduled_from", ""),
		ScheduledTo:   getQueryParam(r, "scheduled_to", ""),
		Page:          getQueryParamInt(r, "page", 1),
		PageSize:      getQueryParamInt(r, "page_size", 0),
	}

	result, err := s.deps.ListTickets.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleScheduleTicket sets or moves a makeup session date.
// POST /api/v1/tickets/{id}/schedule
func (s *Server) handleScheduleTicket(w http.ResponseWriter, r *http.Request) {
	var cmd command.ScheduleTicketCommand
	if !s.decodeBody(w, r, &cmd) {
		return
	}
	cmd.TicketID = r.PathValue("id")
	cmd.CorrelationID = getRequestID(r.Context())

	result, err := s.deps.Schedule.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleCompleteTicket marks a makeup session delivered.
// POST /api/v1/tickets/{id}/complete
func (s *Server) handleCompleteTicket(w http.ResponseWriter, r *http.Request) {
	var cmd command.CompleteTicketCommand
	if !s.decodeBody(w, r, &cmd) {
		return
	}
	cmd.TicketID = r.PathValue("id")
	cmd.CorrelationID = getRequestID(r.Context())

	result, err := s.deps.Transition.HandleComplete(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleCancelTicket drops a makeup obligation.
// POST /api/v1/tickets/{id}/cancel
func (s *Server) handleCancelTicket(w http.ResponseWriter, r *http.Request) {
	var cmd command.CancelTicketCommand
	if !s.decodeBody(w, r, &cmd) {
		return
	}
	cmd.TicketID = r.PathValue("id")
	cmd.CorrelationID = getRequestID(r.Context())

	result, err := s.deps.Transition.HandleCancel(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleReopenTicket returns a completed ticket to pending.
// POST /api/v1/tickets/{id}/reopen
func (s *Server) handleReopenTicket(w http.ResponseWriter, r *http.Request) {
	var cmd command.ReopenTicketCommand
	if !s.decodeBody(w, r, &cmd) {
		return
	}
	cmd.TicketID = r.PathValue("id")
	cmd.CorrelationID = getRequestID(r.Context())

	result, err := s.deps.Transition.HandleReopen(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body, writing a 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dest); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON")
		return false
	}
	return true
}

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, shared.ErrAlreadyExists):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	case shared.IsIllegalTransition(err):
		writeJSONError(w, http.StatusConflict, "illegal_transition", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, shared.ErrStoreUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, "store_unavailable", "The record store is temporarily unavailable")
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
