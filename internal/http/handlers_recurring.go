package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.RecurringExpensesView(s.today()))
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.moneyFrom(req.moneyInput)
	if err != nil {
		writeError(w, r, err)
		return
	}

	re, err := s.tracker.SubmitRecurring(r.Context(), core.RecurringExpense{
		Name:      sanitizeInput(req.Name),
		Category:  sanitizeInput(req.Category),
		Money:     m,
		Frequency: core.Frequency(strings.ToLower(sanitizeInput(req.Frequency))),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, re)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteRecurring(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleApplyRecurring materializes due templates for today, or for the
// date given in the optional body.
func (s *Server) handleApplyRecurring(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	day, err := optionalDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if day.IsZero() {
		day = s.today()
	}

	applied, err := s.tracker.ApplyDue(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if applied == nil {
		applied = []services.Applied{}
	}
	writeJSON(w, http.StatusOK, applied)
}
