package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Budget())
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req moneyInput
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.budgetMoney(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.tracker.SubmitBudget(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// budgetMoney also accepts a zero amount, which clears the budget.
func (s *Server) budgetMoney(in moneyInput) (core.Money, error) {
	amount := strings.ReplaceAll(strings.TrimSpace(string(in.Amount)), ",", ".")
	if d, err := decimal.NewFromString(amount); err == nil && d.IsZero() {
		return s.tracker.MoneyOf(decimal.Zero, in.Currency)
	}
	return s.moneyFrom(in)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.tracker.BudgetStatus()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.SavingsGoalsView())
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	target, err := s.tracker.ParseMoney(string(req.Target), req.Currency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	current := core.Zero(target.Currency)
	if strings.TrimSpace(string(req.Current)) != "" {
		if current, err = s.tracker.ParseMoney(string(req.Current), string(target.Currency)); err != nil {
			writeError(w, r, err)
			return
		}
	}
	deadline, err := optionalDate(req.Deadline)
	if err != nil {
		writeError(w, r, err)
		return
	}

	g, err := s.tracker.AddGoal(r.Context(), core.SavingsGoal{
		Name:     sanitizeInput(req.Name),
		Target:   target,
		Current:  current,
		Deadline: deadline,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req moneyInput
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := s.moneyFrom(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.tracker.Deposit(r.Context(), r.PathValue("id"), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.DeleteGoal(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Categories())
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.AddCategory(r.Context(), sanitizeInput(req.Name)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.tracker.Categories())
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	removed, err := s.tracker.DeleteCategory(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"expensesRemoved": removed})
}

func (s *Server) handleGetCurrency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currencyRequest{Currency: string(s.tracker.PreferredCurrency())})
}

func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	code, err := core.ParseCurrency(req.Currency)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.SetPreferredCurrency(r.Context(), code); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, currencyRequest{Currency: string(code)})
}
