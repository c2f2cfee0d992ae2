package form

import (
	"errors"

	"exdform/internal/domain"
)

// ErrEditRejected is returned when an edit does not fit the typing pattern.
// The previous text is kept.
var ErrEditRejected = errors.New("edit rejected by input pattern")

// Truncate limits s to maxLength runes. A maxLength of 0 means no limit.
func Truncate(s string, maxLength int) string {
	if maxLength <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLength {
			return s[:i]
		}
		n++
	}
	return s
}

// IsTimePrefix reports whether s could still become a valid HH:MM:SS time,
// with HH in 00-23 and MM, SS in 00-59.
func IsTimePrefix(s string) bool {
	if len(s) > 8 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch i {
		case 0:
			if c < '0' || c > '2' {
				return false
			}
		case 1:
			if s[0] == '2' {
				if c < '0' || c > '3' {
					return false
				}
			} else if c < '0' || c > '9' {
				return false
			}
		case 2, 5:
			if c != ':' {
				return false
			}
		case 3, 6:
			if c < '0' || c > '5' {
				return false
			}
		case 4, 7:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

// ApplyEdit runs the typing constraints of a text-entry variable against a
// proposed text. Text-like types are cut to maxLength; TIME edits that cannot
// become a valid time are refused and prev is returned.
func ApplyEdit(t domain.VariableType, maxLength int, prev, next string) (string, error) {
	switch t {
	case domain.TypeTime:
		if !IsTimePrefix(next) {
			return prev, ErrEditRejected
		}
		return next, nil
	case domain.TypeNumericContinuous, domain.TypeNumericDiscrete, domain.TypeText:
		return Truncate(next, maxLength), nil
	}
	return next, nil
}
