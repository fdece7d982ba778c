package http

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/export"
)

// currencyParam reads ?currency=, where empty means the preferred currency.
func currencyParam(r *http.Request) (core.CurrencyCode, error) {
	v := strings.TrimSpace(r.URL.Query().Get("currency"))
	if v == "" {
		return "", nil
	}
	return core.ParseCurrency(v)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	c, err := currencyParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	totals, err := s.tracker.Totals(c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	c, err := currencyParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	totals, err := s.tracker.CategoryTotals(c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	c, err := currencyParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	points, err := s.tracker.Trend(c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, s.tracker.FilteredExpenses(f)); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	report, err := export.BuildReport(s.tracker, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WritePDF(&buf, report); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.pdf"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := s.tracker.SnapshotJSON()
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) handlePutSnapshot(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.RestoreJSON(r.Context(), body); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
