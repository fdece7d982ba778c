package http

import (
	"net/http"

	"fintrack/internal/core"
)

func (s *Server) moneyFrom(in moneyInput) (core.Money, error) {
	return s.tracker.ParseMoney(string(in.Amount), in.Currency)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.FilteredExpenses(f))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
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

	e, err := s.tracker.SubmitExpense(r.Context(), core.Expense{
		Name:     sanitizeInput(req.Name),
		Category: sanitizeInput(req.Category),
		Tags:     sanitizeAll(req.Tags),
		Money:    m,
		Date:     date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Header("Location", "/expenses/"+e.ID).Body(e).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
