package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/currency"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	color.NoColor = true
	os.Exit(m.Run())
}

type runner struct {
	t    *testing.T
	data string
}

func newRunner(t *testing.T) *runner {
	t.Helper()
	return &runner{t: t, data: filepath.Join(t.TempDir(), "fintrack.json")}
}

// run executes one command against the runner's snapshot file, the way
// separate invocations of the binary would.
func (r *runner) run(args ...string) (string, error) {
	r.t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp("test", WithOutput(&out, &errOut), WithNow(func() time.Time { return fixedNow }))
	app.SetArgs(append([]string{"--backend", "file", "--data", r.data}, args...))
	err := app.Execute(context.Background())
	return out.String(), err
}

func (r *runner) mustRun(args ...string) string {
	r.t.Helper()
	out, err := r.run(args...)
	if err != nil {
		r.t.Fatalf("%v: %v", args, err)
	}
	return out
}

var idPattern = regexp.MustCompile(`\(id ([0-9a-f-]+)\)`)

func idFrom(t *testing.T, out string) string {
	t.Helper()
	m := idPattern.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no id in output %q", out)
	}
	return m[1]
}

func usd(s string) string {
	return currency.Format(core.NewMoney(decimal.RequireFromString(s), core.USD))
}

func TestApp_ExpenseLifecycle(t *testing.T) {
	r := newRunner(t)

	out := r.mustRun("expense", "add", "Lunch", "12.50", "-c", "USD", "-k", "food", "-t", "work,team")
	if !strings.Contains(out, "Added expense Lunch") {
		t.Errorf("add output = %q", out)
	}
	id := idFrom(t, out)

	out = r.mustRun("expense", "list")
	for _, want := range []string{"Lunch", "food", "team, work", usd("12.50"), "2024-06-15"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	out = r.mustRun("expense", "list", "--category", "transport")
	if !strings.Contains(out, "No expenses found") {
		t.Errorf("filtered list = %q", out)
	}

	r.mustRun("expense", "rm", id)
	out = r.mustRun("expense", "list")
	if !strings.Contains(out, "No expenses found") {
		t.Errorf("list after rm = %q", out)
	}
}

func TestApp_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown category", []string{"expense", "add", "Taxi", "5", "-k", "travel"}, core.ErrInvalidInput},
		{"bad amount", []string{"expense", "add", "Taxi", "abc"}, core.ErrInvalidAmount},
		{"unknown currency", []string{"currency", "set", "XYZ"}, core.ErrUnknownCurrency},
		{"bad date", []string{"income", "add", "Salary", "100", "-d", "yesterday"}, core.ErrInvalidInput},
		{"missing expense", []string{"expense", "rm", "nope"}, core.ErrNotFound},
		{"bad frequency", []string{"recurring", "add", "Gym", "30", "-f", "hourly"}, core.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRunner(t)
			_, err := r.run(tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApp_BudgetAndTotals(t *testing.T) {
	r := newRunner(t)

	out := r.mustRun("budget", "status")
	if !strings.Contains(out, "No budget set") {
		t.Errorf("status without budget = %q", out)
	}

	r.mustRun("currency", "set", "USD")
	r.mustRun("budget", "set", "100")
	r.mustRun("expense", "add", "Groceries", "40", "-k", "food")
	r.mustRun("income", "add", "Salary", "100")

	out = r.mustRun("budget", "status")
	for _, want := range []string{"40.0%", "ON TRACK", usd("60")} {
		if !strings.Contains(out, want) {
			t.Errorf("budget status missing %q:\n%s", want, out)
		}
	}

	r.mustRun("expense", "add", "Dinner", "50", "-k", "food")
	out = r.mustRun("budget", "status")
	if !strings.Contains(out, "NEAR LIMIT") {
		t.Errorf("budget status at 90%% = %q", out)
	}

	out = r.mustRun("total")
	for _, want := range []string{usd("90"), usd("100"), usd("10")} {
		if !strings.Contains(out, want) {
			t.Errorf("total missing %q:\n%s", want, out)
		}
	}

	out = r.mustRun("summary")
	if !strings.Contains(out, "food") || !strings.Contains(out, "2024-06-15") {
		t.Errorf("summary = %q", out)
	}
}

func TestApp_RecurringAppliedOnStart(t *testing.T) {
	r := newRunner(t)

	r.mustRun("recurring", "add", "Rent", "900", "-c", "USD", "-k", "housing")

	out := r.mustRun("expense", "list")
	if !strings.Contains(out, "Applied 1 recurring expense(s)") || !strings.Contains(out, "Rent") {
		t.Errorf("list after start = %q", out)
	}

	out = r.mustRun("recurring", "apply")
	if !strings.Contains(out, "No recurring expenses due") {
		t.Errorf("second apply = %q", out)
	}

	out = r.mustRun("recurring", "apply", "--date", "2024-07-15")
	if !strings.Contains(out, "Applied 1 recurring expense(s) for 2024-07-15") {
		t.Errorf("apply next month = %q", out)
	}

	out = r.mustRun("recurring", "list")
	if !strings.Contains(out, "2024-07-15") || !strings.Contains(out, "monthly") {
		t.Errorf("recurring list = %q", out)
	}
}

func TestApp_Goals(t *testing.T) {
	r := newRunner(t)

	out := r.mustRun("goal", "add", "Bike", "400", "-c", "USD", "--deadline", "2024-12-31")
	id := idFrom(t, out)

	out = r.mustRun("goal", "deposit", id, "100", "-c", "USD")
	if !strings.Contains(out, "25.0%") {
		t.Errorf("deposit output = %q", out)
	}

	out = r.mustRun("goal", "list")
	for _, want := range []string{"Bike", "2024-12-31", "Average progress 25.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("goal list missing %q:\n%s", want, out)
		}
	}

	r.mustRun("goal", "rm", id)
	out = r.mustRun("goal", "list")
	if !strings.Contains(out, "No savings goals") {
		t.Errorf("goal list after rm = %q", out)
	}
}

func TestApp_CategoryRemovalCascades(t *testing.T) {
	r := newRunner(t)

	r.mustRun("category", "add", "Travel")
	r.mustRun("expense", "add", "Train", "30", "-k", "travel")
	r.mustRun("expense", "add", "Bread", "3", "-k", "food")

	out := r.mustRun("category", "rm", "travel")
	if !strings.Contains(out, "Removed category travel and 1 expense(s)") {
		t.Errorf("rm output = %q", out)
	}
	out = r.mustRun("expense", "list")
	if strings.Contains(out, "Train") || !strings.Contains(out, "Bread") {
		t.Errorf("list after cascade = %q", out)
	}
}

func TestApp_ExportAndImport(t *testing.T) {
	r := newRunner(t)
	dir := t.TempDir()

	r.mustRun("expense", "add", "Coffee", "3.20", "-c", "EUR", "-k", "food")

	r.mustRun("export", "csv", "--dir", dir)
	data, err := os.ReadFile(filepath.Join(dir, "fintrack_20240615_120000.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "name,amount,currency,category,date,tags\n") {
		t.Errorf("csv = %q", data)
	}
	if !strings.Contains(string(data), "Coffee,3.20,EUR,food,2024-06-15,") {
		t.Errorf("csv row missing: %q", data)
	}

	r.mustRun("export", "pdf", "--dir", dir, "--name", "report")
	pdf, err := os.ReadFile(filepath.Join(dir, "report_20240615_120000.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Error("pdf export does not start with %PDF-")
	}

	r.mustRun("export", "json", "--dir", dir)
	snapshotFile := filepath.Join(dir, "fintrack_20240615_120000.json")

	other := newRunner(t)
	out := other.mustRun("import", "json", snapshotFile)
	if !strings.Contains(out, "Imported 1 expense(s)") {
		t.Errorf("import output = %q", out)
	}
	out = other.mustRun("expense", "list")
	if !strings.Contains(out, "Coffee") {
		t.Errorf("imported list = %q", out)
	}
}

func TestApp_CorruptSnapshot(t *testing.T) {
	r := newRunner(t)
	if err := os.WriteFile(r.data, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := r.run("expense", "list"); !errors.Is(err, core.ErrInvalidSnapshot) {
		t.Fatalf("list on corrupt data: error = %v, want ErrInvalidSnapshot", err)
	}

	good := newRunner(t)
	good.mustRun("expense", "add", "Tea", "2", "-k", "food")

	out := r.mustRun("import", "json", good.data)
	if !strings.Contains(out, "corrupt") || !strings.Contains(out, "Imported 1 expense(s)") {
		t.Errorf("import over corrupt data = %q", out)
	}
	if out := r.mustRun("expense", "list"); !strings.Contains(out, "Tea") {
		t.Errorf("list after repair = %q", out)
	}
}

func TestApp_EventsRequireBroker(t *testing.T) {
	r := newRunner(t)
	_, err := r.run("events")
	if err == nil || !strings.Contains(err.Error(), "AMQP is not configured") {
		t.Errorf("events error = %v", err)
	}
}

func TestApp_InvalidBackend(t *testing.T) {
	var out, errOut bytes.Buffer
	app := NewApp("test", WithOutput(&out, &errOut))
	app.SetArgs([]string{"--backend", "cloud", "total"})
	err := app.Execute(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid data backend") {
		t.Errorf("error = %v", err)
	}
}
