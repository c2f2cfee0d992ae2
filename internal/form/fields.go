package form

import (
	"errors"
	"fmt"
	"time"

	"exdform/internal/domain"
)

// DateLayout is the stored DATE format.
const DateLayout = "2006-01-02"

// ErrNoSuchOption is returned when a selection names an unknown option.
var ErrNoSuchOption = errors.New("no such option")

// Field is the live input capability of one schema variable.
// Concrete fields are *TextField, *ChoiceField, *MultiChoiceField and *DateField.
type Field interface {
	Variable() domain.Variable
	// Reset restores the empty or default input.
	Reset()
	// Invalid reports whether the last commit rejected this field.
	Invalid() bool

	collect(rec domain.Record) error
	setInvalid(bool)
}

// newField builds the field for v. Every declared type maps to exactly one
// field kind.
func newField(v domain.Variable, clock func() time.Time) (Field, error) {
	switch v.Type() {
	case domain.TypeNumericContinuous, domain.TypeNumericDiscrete, domain.TypeText, domain.TypeTime:
		return &TextField{base: base{v: v}}, nil
	case domain.TypeBinary, domain.TypeCategorical:
		return newChoiceField(v), nil
	case domain.TypeCategoricalMultiselect:
		return &MultiChoiceField{base: base{v: v}, states: make([]Tri, len(v.Modalities()))}, nil
	case domain.TypeDate:
		f := &DateField{base: base{v: v}, clock: clock}
		f.Reset()
		return f, nil
	}
	return nil, fmt.Errorf("field %q: %w: %q", v.Name(), domain.ErrUnknownVariableType, string(v.Type()))
}

type base struct {
	v       domain.Variable
	invalid bool
}

func (b *base) Variable() domain.Variable { return b.v }
func (b *base) Invalid() bool             { return b.invalid }
func (b *base) setInvalid(x bool)         { b.invalid = x }

// ── Text entry ─────────────────────────────────────────────

// TextField holds typed text for numeric, text and time variables.
type TextField struct {
	base
	text string
}

// Text returns the current input.
func (f *TextField) Text() string { return f.text }

// SetText applies the typing constraints and stores the result. A rejected
// edit leaves the previous text in place.
func (f *TextField) SetText(s string) error {
	next, err := ApplyEdit(f.v.Type(), f.v.MaxLength(), f.text, s)
	f.text = next
	f.invalid = false
	return err
}

func (f *TextField) Reset() {
	f.text = ""
	f.invalid = false
}

func (f *TextField) collect(rec domain.Record) error {
	val, err := Validate(f.v.Type(), f.v.MaxLength(), f.text)
	if err != nil {
		return err
	}
	rec[f.v.Name()] = val
	return nil
}

// ── Single choice ──────────────────────────────────────────

// Option is one entry of a ChoiceField.
type Option struct {
	Label string
	Value domain.Value
}

// ChoiceField is a single selection for BINARY and CATEGORICAL variables.
// BINARY offers yes(1)/no(0) and defaults to yes. CATEGORICAL starts on a
// "no selection" entry whose value is the empty string.
type ChoiceField struct {
	base
	options  []Option
	selected int
}

func newChoiceField(v domain.Variable) *ChoiceField {
	f := &ChoiceField{base: base{v: v}}
	if v.Type() == domain.TypeBinary {
		for _, m := range domain.BinaryModalities {
			f.options = append(f.options, Option{
				Label: fmt.Sprintf("%d (%s)", m.Code, m.Label),
				Value: domain.Int(int64(m.Code)),
			})
		}
		return f
	}
	f.options = append(f.options, Option{Label: "", Value: domain.String("")})
	for _, m := range v.Modalities() {
		f.options = append(f.options, Option{
			Label: fmt.Sprintf("%d - %s", m.Code, m.Label),
			Value: domain.Int(int64(m.Code)),
		})
	}
	return f
}

// Options returns the selectable entries in display order.
func (f *ChoiceField) Options() []Option {
	out := make([]Option, len(f.options))
	copy(out, f.options)
	return out
}

// Selected returns the index of the current option.
func (f *ChoiceField) Selected() int { return f.selected }

// Value returns the value of the current option.
func (f *ChoiceField) Value() domain.Value { return f.options[f.selected].Value }

// Select picks the option at index i.
func (f *ChoiceField) Select(i int) error {
	if i < 0 || i >= len(f.options) {
		return fmt.Errorf("%s: %w: index %d", f.v.Name(), ErrNoSuchOption, i)
	}
	f.selected = i
	f.invalid = false
	return nil
}

// SelectCode picks the option carrying the given code.
func (f *ChoiceField) SelectCode(code int) error {
	for i, o := range f.options {
		if n, ok := o.Value.IntValue(); ok && n == int64(code) {
			return f.Select(i)
		}
	}
	return fmt.Errorf("%s: %w: code %d", f.v.Name(), ErrNoSuchOption, code)
}

// Clear selects the "no selection" entry of a CATEGORICAL field.
// BINARY fields go back to their default.
func (f *ChoiceField) Clear() { f.Reset() }

func (f *ChoiceField) Reset() {
	f.selected = 0
	f.invalid = false
}

func (f *ChoiceField) collect(rec domain.Record) error {
	rec[f.v.Name()] = f.Value()
	return nil
}

// ── Multiple choice ────────────────────────────────────────

// Tri is the per-modality state of a multiselect.
type Tri uint8

const (
	Unset Tri = iota
	Yes
	No
)

func (t Tri) String() string {
	switch t {
	case Yes:
		return "yes"
	case No:
		return "no"
	}
	return "unset"
}

// MultiChoiceField keeps an independent yes/no/unset state per modality.
// Only explicit states are written, keyed by modality label.
type MultiChoiceField struct {
	base
	states []Tri
}

// States returns the state of each modality in modality order.
func (f *MultiChoiceField) States() []Tri {
	out := make([]Tri, len(f.states))
	copy(out, f.states)
	return out
}

// Set changes the state of the modality at index i.
func (f *MultiChoiceField) Set(i int, state Tri) error {
	if i < 0 || i >= len(f.states) {
		return fmt.Errorf("%s: %w: index %d", f.v.Name(), ErrNoSuchOption, i)
	}
	if state > No {
		return fmt.Errorf("%s: invalid state %d", f.v.Name(), state)
	}
	f.states[i] = state
	f.invalid = false
	return nil
}

// SetLabel changes the state of the modality with the given label.
func (f *MultiChoiceField) SetLabel(label string, state Tri) error {
	for i, m := range f.v.Modalities() {
		if m.Label == label {
			return f.Set(i, state)
		}
	}
	return fmt.Errorf("%s: %w: %q", f.v.Name(), ErrNoSuchOption, label)
}

func (f *MultiChoiceField) Reset() {
	for i := range f.states {
		f.states[i] = Unset
	}
	f.invalid = false
}

func (f *MultiChoiceField) collect(rec domain.Record) error {
	for i, m := range f.v.Modalities() {
		switch f.states[i] {
		case Yes:
			rec[m.Label] = domain.Int(1)
		case No:
			rec[m.Label] = domain.Int(0)
		}
	}
	return nil
}

// ── Date ───────────────────────────────────────────────────

// DateField always holds a date; it defaults to the current day.
type DateField struct {
	base
	clock func() time.Time
	date  time.Time
}

// Date returns the current date value.
func (f *DateField) Date() time.Time { return f.date }

// Text returns the date in stored form.
func (f *DateField) Text() string { return f.date.Format(DateLayout) }

// SetDate replaces the date, ignoring the time of day.
func (f *DateField) SetDate(t time.Time) {
	y, m, d := t.Date()
	f.date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	f.invalid = false
}

// SetText parses a yyyy-MM-dd date.
func (f *DateField) SetText(s string) error {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("%s: invalid date %q: %w", f.v.Name(), s, err)
	}
	f.SetDate(t)
	return nil
}

func (f *DateField) Reset() {
	now := time.Now
	if f.clock != nil {
		now = f.clock
	}
	f.SetDate(now())
}

func (f *DateField) collect(rec domain.Record) error {
	rec[f.v.Name()] = domain.String(f.Text())
	return nil
}
