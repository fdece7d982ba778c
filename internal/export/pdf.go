package export

import (
	"fmt"
	"io"
	"time"

	"fintrack/internal/core"

	"github.com/jung-kurt/gofpdf"
)

// Report is everything the PDF summary shows.
type Report struct {
	Title          string
	GeneratedAt    time.Time
	Currency       core.CurrencyCode
	Expenses       []core.Expense
	Total          core.Money
	CategoryTotals []core.CategoryAmount
	Budget         *core.BudgetStatus
}

var (
	headerColor     = [3]int{40, 40, 40}
	headerTextColor = [3]int{255, 255, 255}
	bodyTextColor   = [3]int{50, 50, 50}
	lineColor       = [3]int{200, 200, 200}
)

// table column widths in mm, 190 in total
var expenseColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 25, "L"},
	{"Name", 60, "L"},
	{"Category", 35, "L"},
	{"Tags", 40, "L"},
	{"Amount", 30, "R"},
}

// WritePDF renders r as an A4 report. Amounts use ISO codes since the core
// PDF fonts have no rupee sign.
func WritePDF(w io.Writer, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	title := r.Title
	if title == "" {
		title = "Expense report"
	}
	pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
	pdf.SetTextColor(headerTextColor[0], headerTextColor[1], headerTextColor[2])
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 12, tr("  "+title), "", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	generated := r.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("  Generated %s, totals in %s", generated.Format("2006-01-02 15:04"), r.Currency)), "", 1, "L", true, 0, "")
	pdf.Ln(8)

	section(pdf, "Expenses")
	pdf.SetFont("Arial", "B", 10)
	for _, c := range expenseColumns {
		pdf.CellFormat(c.width, 7, c.title, "B", 0, c.align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, e := range r.Expenses {
		cells := []string{
			e.Date.String(),
			truncate(e.Name, 34),
			truncate(e.Category, 20),
			truncate(joinTags(e.Tags), 24),
			e.Money.String(),
		}
		for i, c := range expenseColumns {
			pdf.CellFormat(c.width, 6, tr(cells[i]), "", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(r.Expenses) == 0 {
		pdf.CellFormat(0, 6, "No expenses recorded.", "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(160, 8, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, tr(r.Total.String()), "T", 1, "R", false, 0, "")
	pdf.Ln(6)

	if len(r.CategoryTotals) > 0 {
		section(pdf, "By category")
		pdf.SetFont("Arial", "", 10)
		for _, ct := range r.CategoryTotals {
			pdf.CellFormat(160, 6, tr(ct.Name), "", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, tr(ct.Amount.String()), "", 1, "R", false, 0, "")
		}
		pdf.Ln(6)
	}

	if r.Budget != nil {
		section(pdf, "Budget")
		pdf.SetFont("Arial", "", 10)
		if r.Budget.OverBudget {
			pdf.SetTextColor(192, 0, 0)
		} else {
			pdf.SetTextColor(0, 128, 0)
		}
		pdf.MultiCell(190, 5, tr(fmt.Sprintf("Spent %s of %s (%.1f%%), remaining %s",
			r.Budget.Spent.String(), r.Budget.Budget.String(),
			r.Budget.PercentUsed, r.Budget.Remaining.String())), "", "L", false)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("error writing PDF: %w", err)
	}
	return nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.Cell(0, 8, title)
	pdf.Ln(7)
	pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
	pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+190, pdf.GetY())
	pdf.Ln(4)
	pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
