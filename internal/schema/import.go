// Package schema turns tabular schema rows (name, description, modalities,
// type, optional max length) into variables.
package schema

import (
	"strings"

	"exdform/internal/domain"
)

// Row is one data row of a schema table, header excluded.
type Row []string

// Skipped describes a row that produced no variable.
type Skipped struct {
	Row    int    `json:"row"` // 1-based among data rows
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ImportResult is the outcome of an import.
type ImportResult struct {
	Variables []domain.Variable
	Skipped   []Skipped
}

// idType marks identifier rows, which never become form fields.
const idType = "ID"

// Import builds variables from rows. Rows that are too short, unnamed or of
// an unknown type are reported in Skipped; ID rows are dropped silently.
// Modality cells may span lines.
func Import(rows []Row) ImportResult {
	var res ImportResult
	for i, row := range rows {
		if len(row) < 4 {
			res.Skipped = append(res.Skipped, Skipped{
				Row:    i + 1,
				Name:   firstCell(row),
				Reason: "fewer than 4 columns",
			})
			continue
		}
		if strings.ToUpper(strings.TrimSpace(row[3])) == idType {
			continue
		}
		if strings.TrimSpace(row[0]) == "" {
			res.Skipped = append(res.Skipped, Skipped{Row: i + 1, Reason: "empty name"})
			continue
		}
		maxLength := ""
		if len(row) >= 5 {
			maxLength = row[4]
		}
		modalities := strings.ReplaceAll(row[2], "\n", ", ")
		v, err := domain.NewVariable(row[0], row[1], modalities, row[3], maxLength)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{
				Row:    i + 1,
				Name:   strings.TrimSpace(row[0]),
				Reason: err.Error(),
			})
			continue
		}
		res.Variables = append(res.Variables, v)
	}
	return res
}

func firstCell(row Row) string {
	if len(row) == 0 {
		return ""
	}
	return strings.TrimSpace(row[0])
}
