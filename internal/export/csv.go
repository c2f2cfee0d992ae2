// Package export flattens stored records into a CSV table whose column
// order follows the schema.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"exdform/internal/domain"
)

// ErrNothingToExport is returned when there are no records.
var ErrNothingToExport = errors.New("nothing to export")

// IDColumn is always the first column.
const IDColumn = "id"

// Table is a flat view of the stored records.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Columns computes the export column order:
//
//  1. id
//  2. schema order, keeping only keys present in the first record; a
//     multiselect contributes its modality labels
//  3. every other key seen in any record, sorted
//
// A key is placed at most once.
func Columns(schema []domain.Variable, records []domain.StoredRecord) []string {
	cols := []string{IDColumn}
	placed := map[string]bool{IDColumn: true}
	add := func(k string) {
		if !placed[k] {
			placed[k] = true
			cols = append(cols, k)
		}
	}

	if len(records) == 0 {
		return cols
	}
	probe := records[0].Data
	for _, v := range schema {
		for _, k := range v.Keys() {
			if _, ok := probe[k]; ok {
				add(k)
			}
		}
	}

	var rest []string
	seen := map[string]bool{}
	for _, r := range records {
		for k := range r.Data {
			if !placed[k] && !seen[k] {
				seen[k] = true
				rest = append(rest, k)
			}
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		add(k)
	}
	return cols
}

// Build flattens records into a Table. Missing cells are empty strings.
func Build(schema []domain.Variable, records []domain.StoredRecord) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrNothingToExport
	}
	cols := Columns(schema, records)
	t := &Table{Columns: cols, Rows: make([][]string, 0, len(records))}
	for _, r := range records {
		row := make([]string, len(cols))
		row[0] = strconv.FormatInt(r.ID, 10)
		for i, c := range cols[1:] {
			row[i+1] = r.Data[c].Text()
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteCSV writes the header and every row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// WriteFile writes t as UTF-8 CSV to path, replacing any existing file.
func WriteFile(path string, t *Table) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close export file: %w", cerr)
		}
	}()
	return WriteCSV(f, t)
}
