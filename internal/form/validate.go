package form

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"exdform/internal/domain"
)

// Validation failure reasons.
var (
	ErrDecimalSeparator = errors.New("wrong decimal separator")
	ErrInvalidNumber    = errors.New("invalid numeric value")
	ErrNotInteger       = errors.New("must be an integer")
	ErrTooLong          = errors.New("exceeds maximum length")
	ErrNotTextEntry     = errors.New("type is not entered as text")
)

// Validate checks raw text typed for a text-entry variable and coerces it to
// the stored value. Numbers keep the user's trimmed text rather than a
// reformatted number. Empty input is valid for every text-entry type.
// Numbers longer than maxLength are rejected; TEXT and TIME never fail.
func Validate(t domain.VariableType, maxLength int, raw string) (domain.Value, error) {
	text := strings.TrimSpace(raw)
	if t.IsNumeric() && maxLength > 0 && utf8.RuneCountInString(text) > maxLength {
		return domain.Value{}, fmt.Errorf("%w (%d)", ErrTooLong, maxLength)
	}

	switch t {
	case domain.TypeNumericContinuous:
		if text == "" {
			return domain.String(""), nil
		}
		if strings.Contains(text, ",") {
			return domain.Value{}, ErrDecimalSeparator
		}
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return domain.Value{}, ErrInvalidNumber
		}
		return domain.String(text), nil

	case domain.TypeNumericDiscrete:
		if text == "" {
			return domain.String(""), nil
		}
		if _, ok := new(big.Int).SetString(text, 10); !ok {
			return domain.Value{}, ErrNotInteger
		}
		return domain.String(text), nil

	case domain.TypeText, domain.TypeTime:
		return domain.String(text), nil

	case domain.TypeBinary, domain.TypeCategorical, domain.TypeCategoricalMultiselect, domain.TypeDate:
		return domain.Value{}, fmt.Errorf("%w: %s", ErrNotTextEntry, t)
	}
	return domain.Value{}, fmt.Errorf("%w: %q", domain.ErrUnknownVariableType, string(t))
}

// Issue is one field's validation failure.
type Issue struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Err   error  `json:"-"`
}

func (i Issue) Reason() string {
	if i.Err == nil {
		return ""
	}
	return i.Err.Error()
}

// ValidationError aggregates every failing field of a commit.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = fmt.Sprintf("%s: %s", is.Label, is.Reason())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the per-field reasons to errors.Is.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Issues))
	for _, is := range e.Issues {
		if is.Err != nil {
			errs = append(errs, is.Err)
		}
	}
	return errs
}
