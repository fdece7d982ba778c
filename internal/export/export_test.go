package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"

	"github.com/shopspring/decimal"
)

func sampleExpenses() []core.Expense {
	return []core.Expense{
		{
			ID:       "1",
			Name:     "Dinner, with friends",
			Category: "food",
			Tags:     []string{"weekend", "social"},
			Money:    core.NewMoney(decimal.RequireFromString("42.5"), core.EUR),
			Date:     core.NewDate(2024, 5, 3),
		},
		{
			ID:       "2",
			Name:     "Bus",
			Category: "transport",
			Money:    core.NewMoney(decimal.NewFromInt(2), core.USD),
			Date:     core.NewDate(2024, 5, 4),
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleExpenses()); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "name,amount,currency,category,date,tags\n") {
		t.Errorf("unexpected header in %q", out)
	}
	if !strings.Contains(out, `"Dinner, with friends",42.50,EUR,food,2024-05-03,weekend;social`) {
		t.Errorf("comma field not quoted as expected: %q", out)
	}

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("reading back CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[2][5] != "" {
		t.Errorf("untagged expense tags = %q, want empty", rows[2][5])
	}
}

func TestWriteCSV_RejectsDelimiterInTag(t *testing.T) {
	expenses := sampleExpenses()
	expenses[1].Tags = []string{"a;b"}

	var buf bytes.Buffer
	err := WriteCSV(&buf, expenses)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("WriteCSV() error = %v, want ErrInvalidInput", err)
	}
	if buf.Len() != 0 {
		t.Errorf("WriteCSV() wrote %d bytes before failing", buf.Len())
	}
}

func TestWritePDF(t *testing.T) {
	status := core.BudgetStatus{
		Budget:      core.NewMoney(decimal.NewFromInt(100), core.USD),
		Spent:       core.NewMoney(decimal.NewFromInt(48), core.USD),
		Remaining:   core.NewMoney(decimal.NewFromInt(52), core.USD),
		PercentUsed: 48,
	}
	r := Report{
		GeneratedAt: time.Date(2024, 5, 5, 10, 0, 0, 0, time.UTC),
		Currency:    core.USD,
		Expenses:    sampleExpenses(),
		Total:       core.NewMoney(decimal.NewFromInt(48), core.USD),
		CategoryTotals: []core.CategoryAmount{
			{Name: "food", Amount: core.NewMoney(decimal.NewFromInt(46), core.USD)},
		},
		Budget: &status,
	}

	var buf bytes.Buffer
	if err := WritePDF(&buf, r); err != nil {
		t.Fatalf("WritePDF() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header")
	}
}

func TestWritePDF_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, Report{Currency: core.INR, Total: core.Zero(core.INR)}); err != nil {
		t.Fatalf("WritePDF() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Error("empty report produced no output")
	}
}

func TestFilenameAndToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	name, err := Filename("expenses", dir, "csv", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("Filename() error = %v", err)
	}
	if filepath.Base(name) != "expenses_20240102_030405.csv" {
		t.Errorf("Filename() = %s", name)
	}

	abs, err := ToFile(name, func(w io.Writer) error { return WriteCSV(w, sampleExpenses()) })
	if err != nil {
		t.Fatalf("ToFile() error = %v", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("Bus")) {
		t.Errorf("file content missing expense: %s", data)
	}
}

type fakeSource struct {
	budgetErr error
}

func (fakeSource) PreferredCurrency() core.CurrencyCode { return core.USD }
func (fakeSource) FilteredExpenses(ledger.Filter) []core.Expense {
	return sampleExpenses()
}
func (fakeSource) TotalExpenses(c core.CurrencyCode) (core.Money, error) {
	return core.NewMoney(decimal.NewFromInt(48), c), nil
}
func (fakeSource) CategoryTotals(core.CurrencyCode) ([]core.CategoryAmount, error) {
	return nil, nil
}
func (f fakeSource) BudgetStatus() (core.BudgetStatus, error) {
	if f.budgetErr != nil {
		return core.BudgetStatus{}, f.budgetErr
	}
	return core.BudgetStatus{PercentUsed: 10}, nil
}

func TestBuildReport(t *testing.T) {
	tests := []struct {
		name       string
		budgetErr  error
		wantBudget bool
		wantErr    bool
	}{
		{"budget set - included", nil, true, false},
		{"zero budget - section omitted", core.ErrDivisionByZero, false, false},
		{"other failure - returned", errors.New("boom"), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := BuildReport(fakeSource{budgetErr: tt.budgetErr}, time.Now())
			if (err != nil) != tt.wantErr {
				t.Fatalf("BuildReport() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (r.Budget != nil) != tt.wantBudget {
				t.Errorf("Budget present = %v, want %v", r.Budget != nil, tt.wantBudget)
			}
			if len(r.Expenses) != 2 || r.Currency != core.USD {
				t.Errorf("report = %+v", r)
			}
		})
	}
}
