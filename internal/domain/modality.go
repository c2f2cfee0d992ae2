package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// Modality is one coded option of a categorical variable.
type Modality struct {
	Code  int    `json:"code"`
	Label string `json:"label"`
}

var modalityPattern = regexp.MustCompile(`(\d+)\s*[-:]?\s*([^,\n]+)`)

// ParseModalities extracts "code - label" / "code: label" pairs separated by
// commas or newlines. Unmatched text is dropped; it never fails.
func ParseModalities(text string) []Modality {
	var out []Modality
	for _, m := range modalityPattern.FindAllStringSubmatch(text, -1) {
		code, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		label := strings.TrimSpace(m[2])
		if label == "" {
			continue
		}
		out = append(out, Modality{Code: code, Label: label})
	}
	return out
}

// BinaryModalities is the implicit yes/no pair of BINARY variables.
var BinaryModalities = []Modality{
	{Code: 1, Label: "Yes"},
	{Code: 0, Label: "No"},
}
