// Package excel bulk-imports words from a spreadsheet into the flat store.
package excel

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/wordpusher/internal/store"
	"github.com/example/wordpusher/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath  string // Path to the Excel file
	SheetName string // Sheet to read; empty means the first sheet
	// SkipHeader drops the first row when it does not look like a word
	SkipHeader bool
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Added          int
	Duplicates     int
	Skipped        int
	Errors         []string
}

// ImportWords reads term/definition pairs from columns A and B and appends
// each new term through the store. Duplicate terms and malformed rows are
// counted, not fatal.
func ImportWords(st *store.Store, cfg ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := cfg.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %q: %w", sheet, err)
	}

	result := &ImportResult{}
	now := time.Now()

	for i, row := range rows {
		if i == 0 && cfg.SkipHeader {
			continue
		}
		result.TotalProcessed++

		if len(row) < 2 {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: expected term and definition", i+1))
			continue
		}
		term := strings.TrimSpace(row[0])
		definition := strings.TrimSpace(row[1])
		if term == "" || definition == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: empty term or definition", i+1))
			continue
		}

		err := st.AppendUnique(models.NewWordRecord(term, definition, now))
		switch {
		case errors.Is(err, store.ErrDuplicateTerm):
			result.Duplicates++
		case err != nil:
			// Storage errors abort the import; partial progress is already
			// durable because each append commits on its own.
			return result, fmt.Errorf("failed to append %q: %w", term, err)
		default:
			result.Added++
		}
	}
	return result, nil
}
