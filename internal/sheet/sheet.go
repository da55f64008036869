// Package sheet imports word lists from spreadsheets.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/lexiquiz/internal/catalog"
	"github.com/conorfennell/lexiquiz/internal/domain"
	"github.com/conorfennell/lexiquiz/internal/normalize"
)

// Catalog is where imported rows end up.
type Catalog interface {
	List(kind domain.Kind, query string) ([]domain.LearningItem, error)
	Add(kind domain.Kind, in catalog.ItemInput) (domain.LearningItem, error)
}

// Config describes the file to import. Columns are A source, B target,
// C example and D notes.
type Config struct {
	FilePath  string
	SheetName string // xlsx only
	StartRow  int    // 1-based
	Kind      domain.Kind
}

// DefaultConfig skips a header row and imports words from the first sheet.
func DefaultConfig(path string) Config {
	return Config{
		FilePath:  path,
		SheetName: "Sheet1",
		StartRow:  2,
		Kind:      domain.Word,
	}
}

// Result holds the outcome of an import.
type Result struct {
	Processed int
	Created   int
	Skipped   int
	Errors    []string
}

// Import reads cfg.FilePath and adds every new row to c. Rows whose source
// text already exists in the collection are skipped.
func Import(c Catalog, cfg Config) (*Result, error) {
	if cfg.Kind == "" {
		cfg.Kind = domain.Word
	}
	if cfg.StartRow < 1 {
		cfg.StartRow = 1
	}

	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(cfg.FilePath)) == ".csv" {
		rows, err = readCSV(cfg.FilePath)
	} else {
		rows, err = readExcel(cfg.FilePath, cfg.SheetName)
	}
	if err != nil {
		return nil, err
	}

	existing, err := c.List(cfg.Kind, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list existing %s items: %w", cfg.Kind, err)
	}
	seen := make(map[string]bool, len(existing))
	for _, it := range existing {
		seen[normalize.Text(it.SourceText)] = true
	}

	result := &Result{}
	for i, row := range rows {
		rowNum := i + 1
		if rowNum < cfg.StartRow {
			continue
		}
		result.Processed++

		in := catalog.ItemInput{
			Source:  cell(row, 0),
			Target:  cell(row, 1),
			Example: cell(row, 2),
			Notes:   cell(row, 3),
		}
		if in.Source == "" || in.Target == "" {
			result.Skipped++
			continue
		}
		key := normalize.Text(in.Source)
		if seen[key] {
			result.Skipped++
			continue
		}

		if _, err := c.Add(cfg.Kind, in); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		seen[key] = true
		result.Created++
	}

	slog.Info("spreadsheet imported",
		"path", cfg.FilePath,
		"kind", cfg.Kind,
		"processed", result.Processed,
		"created", result.Created,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)
	return result, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func readExcel(path, sheetName string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows of sheet %q: %w", sheetName, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
