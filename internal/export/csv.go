// Package export renders expenses as CSV and PDF reports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"
)

// CSVHeader is the first row of every CSV export.
var CSVHeader = []string{"name", "amount", "currency", "category", "date", "tags"}

// WriteCSV writes one row per expense. Tags are joined with ';', so a tag
// containing ';' fails the whole export with core.ErrInvalidInput.
func WriteCSV(w io.Writer, expenses []core.Expense) error {
	for _, e := range expenses {
		for _, t := range e.Tags {
			if strings.Contains(t, core.TagDelimiter) {
				return fmt.Errorf("%w: %w: expense %q tag %q", core.ErrInvalidInput, core.ErrTagDelimiter, e.ID, t)
			}
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(CSVHeader); err != nil {
		return fmt.Errorf("error writing CSV header: %w", err)
	}
	for _, e := range expenses {
		record := []string{
			e.Name,
			e.Money.Amount.StringFixed(2),
			string(e.Money.Currency),
			e.Category,
			e.Date.String(),
			strings.Join(e.Tags, core.TagDelimiter),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("error writing CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// Filename builds a timestamped file name inside dir and makes sure dir
// exists. An empty dir means the working directory.
func Filename(base, dir, ext string, now time.Time) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = cwd
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating output directory '%s': %w", dir, err)
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", base, now.Format("20060102_150405"), ext)), nil
}

// ToFile creates path and streams write into it.
func ToFile(path string, write func(io.Writer) error) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("error creating file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return filepath.Abs(path)
}
