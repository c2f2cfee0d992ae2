package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// VariableType is the declared type of a schema variable.
type VariableType string

const (
	TypeNumericContinuous      VariableType = "NUMERIC_CONTINUOUS"
	TypeNumericDiscrete        VariableType = "NUMERIC_DISCRETE"
	TypeText                   VariableType = "TEXT"
	TypeBinary                 VariableType = "BINARY"
	TypeCategorical            VariableType = "CATEGORICAL"
	TypeCategoricalMultiselect VariableType = "CATEGORICAL_MULTISELECT"
	TypeDate                   VariableType = "DATE"
	TypeTime                   VariableType = "TIME"
)

// ErrUnknownVariableType is returned for type tags outside the closed set.
var ErrUnknownVariableType = errors.New("unknown variable type")

// typeAliases maps accepted source tags (canonical and legacy French) to types.
var typeAliases = map[string]VariableType{
	"NUMERIC_CONTINUOUS":      TypeNumericContinuous,
	"NUM_CONTINUE":            TypeNumericContinuous,
	"NUMERIC_DISCRETE":        TypeNumericDiscrete,
	"NUM_DISCRETE":            TypeNumericDiscrete,
	"TEXT":                    TypeText,
	"TEXTE":                   TypeText,
	"BINARY":                  TypeBinary,
	"BINAIRE":                 TypeBinary,
	"CATEGORICAL":             TypeCategorical,
	"CATEGORIELLE":            TypeCategorical,
	"CATEGORICAL_MULTISELECT": TypeCategoricalMultiselect,
	"CATEGORIELLE_MULTIPLE":   TypeCategoricalMultiselect,
	"DATE":                    TypeDate,
	"TIME":                    TypeTime,
	"TEMPS":                   TypeTime,
}

// ParseVariableType resolves a type tag, case-insensitively and trimmed.
func ParseVariableType(s string) (VariableType, error) {
	t, ok := typeAliases[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownVariableType, s)
	}
	return t, nil
}

// Valid reports whether t is one of the declared variable types.
func (t VariableType) Valid() bool {
	switch t {
	case TypeNumericContinuous, TypeNumericDiscrete, TypeText, TypeBinary,
		TypeCategorical, TypeCategoricalMultiselect, TypeDate, TypeTime:
		return true
	}
	return false
}

// IsNumeric reports whether values of t feed numeric series.
func (t VariableType) IsNumeric() bool {
	return t == TypeNumericContinuous || t == TypeNumericDiscrete
}

// HasModalities reports whether t carries a parsed modality list.
func (t VariableType) HasModalities() bool {
	return t == TypeCategorical || t == TypeCategoricalMultiselect
}

// Variable is the immutable description of one form field.
type Variable struct {
	name        string
	description string
	typ         VariableType
	maxLength   int
	modalities  []Modality
}

// NewVariable builds a Variable from the raw cells of a schema row.
// maxLengthText sets a limit only when it is all digits and positive.
func NewVariable(name, description, modalitiesText, typeText, maxLengthText string) (Variable, error) {
	typ, err := ParseVariableType(typeText)
	if err != nil {
		return Variable{}, err
	}
	v := Variable{
		name:        strings.TrimSpace(name),
		description: strings.TrimSpace(description),
		typ:         typ,
		maxLength:   parseMaxLength(maxLengthText),
	}
	if typ.HasModalities() {
		v.modalities = ParseModalities(modalitiesText)
	}
	return v, nil
}

func parseMaxLength(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func (v Variable) Name() string        { return v.name }
func (v Variable) Description() string { return v.description }
func (v Variable) Type() VariableType  { return v.typ }

// MaxLength returns the typing limit, or 0 when there is none.
func (v Variable) MaxLength() int { return v.maxLength }

// Modalities returns a copy of the ordered modality list.
func (v Variable) Modalities() []Modality {
	if len(v.modalities) == 0 {
		return nil
	}
	out := make([]Modality, len(v.modalities))
	copy(out, v.modalities)
	return out
}

// Label returns the description, falling back to the name.
func (v Variable) Label() string {
	if v.description != "" {
		return v.description
	}
	return v.name
}

// Keys returns the record keys this variable may write.
func (v Variable) Keys() []string {
	if v.typ != TypeCategoricalMultiselect {
		return []string{v.name}
	}
	keys := make([]string, len(v.modalities))
	for i, m := range v.modalities {
		keys[i] = m.Label
	}
	return keys
}
