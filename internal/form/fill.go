package form

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownField is returned when input names a variable the schema lacks.
var ErrUnknownField = errors.New("unknown field")

// SetInput assigns textual input to a field of any kind.
//
// Text fields take the text as typed. Choice fields take an option code or
// modality label; empty text clears the selection. Multiselects take a
// comma-separated list of codes or labels marked yes, each optionally
// prefixed with "!" to mark it no; unlisted modalities become unset.
func SetInput(f Field, text string) error {
	switch f := f.(type) {
	case *TextField:
		return f.SetText(text)
	case *DateField:
		return f.SetText(strings.TrimSpace(text))
	case *ChoiceField:
		return f.setInput(strings.TrimSpace(text))
	case *MultiChoiceField:
		return f.setInput(text)
	}
	return fmt.Errorf("unsupported field %T", f)
}

func (f *ChoiceField) setInput(text string) error {
	if text == "" {
		f.Clear()
		return nil
	}
	if code, err := strconv.Atoi(text); err == nil {
		return f.SelectCode(code)
	}
	for _, m := range f.v.Modalities() {
		if strings.EqualFold(m.Label, text) {
			return f.SelectCode(m.Code)
		}
	}
	for i, o := range f.options {
		if o.Label != "" && strings.EqualFold(o.Label, text) {
			return f.Select(i)
		}
	}
	return fmt.Errorf("%s: %w: %q", f.v.Name(), ErrNoSuchOption, text)
}

func (f *MultiChoiceField) setInput(text string) error {
	mods := f.v.Modalities()
	next := make([]Tri, len(mods))
	for _, item := range strings.Split(text, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		state := Yes
		if strings.HasPrefix(item, "!") {
			state = No
			item = strings.TrimSpace(item[1:])
		}
		i := f.indexOf(item)
		if i < 0 {
			return fmt.Errorf("%s: %w: %q", f.v.Name(), ErrNoSuchOption, item)
		}
		next[i] = state
	}
	copy(f.states, next)
	f.invalid = false
	return nil
}

func (f *MultiChoiceField) indexOf(item string) int {
	code, codeErr := strconv.Atoi(item)
	for i, m := range f.v.Modalities() {
		if (codeErr == nil && m.Code == code) || strings.EqualFold(m.Label, item) {
			return i
		}
	}
	return -1
}

// Fill resets the form and assigns input by variable name. Every rejected
// entry is reported; accepted entries stay applied.
func (s *Session) Fill(values map[string]string) error {
	if s.State() == StateEmpty {
		return ErrNoSchema
	}
	s.Reset()
	var errs []error
	for _, name := range sortedKeys(values) {
		f, ok := s.byName[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownField, name))
			continue
		}
		if err := SetInput(f, values[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
