package http

import (
	"net/http"

	"fintrack/internal/core"
)

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Incomes())
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.moneyFrom(req.moneyInput)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := optionalDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if date.IsZero() {
		date = s.today()
	}

	in, err := s.tracker.SubmitIncome(r.Context(), core.Income{
		Source: sanitizeInput(req.Source),
		Money:  m,
		Date:   date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteIncome(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
