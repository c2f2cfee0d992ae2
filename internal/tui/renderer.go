// Package tui renders a form session as a sequence of terminal prompts.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"exdform/internal/apperror"
	"exdform/internal/domain"
	"exdform/internal/form"
	"exdform/internal/service"
)

const noSelection = "(no selection)"

// Renderer prompts for every field of a session.
type Renderer struct {
	driver PromptDriver
}

// Option configures the Renderer.
type Option func(*Renderer)

// WithPromptDriver overrides the prompt driver used by the renderer.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// New creates a Renderer using the survey driver unless overridden.
func New(options ...Option) *Renderer {
	r := &Renderer{driver: NewSurveyDriver(nil)}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Driver returns the prompt driver.
func (r *Renderer) Driver() PromptDriver { return r.driver }

// FillForm prompts for each field in schema order. With onlyInvalid set,
// only fields rejected by the last commit are asked again.
func (r *Renderer) FillForm(ctx context.Context, s *form.Session, onlyInvalid bool) error {
	for _, f := range s.Fields() {
		if onlyInvalid && !f.Invalid() {
			continue
		}
		if err := r.promptField(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) promptField(ctx context.Context, f form.Field) error {
	switch f := f.(type) {
	case *form.TextField:
		return r.promptText(ctx, f)
	case *form.ChoiceField:
		return r.promptChoice(ctx, f)
	case *form.MultiChoiceField:
		return r.promptMulti(ctx, f)
	case *form.DateField:
		return r.promptDate(ctx, f)
	}
	return fmt.Errorf("%w: %T", ErrUnsupportedField, f)
}

func (r *Renderer) promptText(ctx context.Context, f *form.TextField) error {
	v := f.Variable()
	ans, err := r.driver.Input(ctx, InputConfig{
		Message: displayLabel(v),
		Default: f.Text(),
		Help:    textHelp(v),
		Validator: func(s string) error {
			next, err := form.ApplyEdit(v.Type(), v.MaxLength(), "", s)
			if err != nil {
				return err
			}
			_, err = form.Validate(v.Type(), v.MaxLength(), next)
			return err
		},
	})
	if err != nil {
		return err
	}
	return f.SetText(ans)
}

func (r *Renderer) promptChoice(ctx context.Context, f *form.ChoiceField) error {
	opts := f.Options()
	labels := make([]string, len(opts))
	for i, o := range opts {
		labels[i] = o.Label
		if labels[i] == "" {
			labels[i] = noSelection
		}
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      displayLabel(f.Variable()),
		Options:      labels,
		DefaultIndex: f.Selected(),
	})
	if err != nil {
		return err
	}
	return f.Select(idx)
}

// promptMulti asks for the modalities answered yes, then for those
// explicitly answered no among the rest. Anything else stays unset.
func (r *Renderer) promptMulti(ctx context.Context, f *form.MultiChoiceField) error {
	v := f.Variable()
	mods := v.Modalities()
	if len(mods) == 0 {
		return nil
	}
	states := f.States()
	labels := make([]string, len(mods))
	var yesDefaults []int
	for i, m := range mods {
		labels[i] = fmt.Sprintf("%d - %s", m.Code, m.Label)
		if states[i] == form.Yes {
			yesDefaults = append(yesDefaults, i)
		}
	}

	yes, err := r.driver.MultiSelect(ctx, SelectConfig{
		Message:  displayLabel(v) + " (yes)",
		Options:  labels,
		Defaults: yesDefaults,
	})
	if err != nil {
		return err
	}
	next := make([]form.Tri, len(mods))
	for _, i := range yes {
		if i >= 0 && i < len(next) {
			next[i] = form.Yes
		}
	}

	var rest []int
	var restLabels []string
	var noDefaults []int
	for i := range mods {
		if next[i] == form.Yes {
			continue
		}
		if states[i] == form.No {
			noDefaults = append(noDefaults, len(rest))
		}
		rest = append(rest, i)
		restLabels = append(restLabels, labels[i])
	}
	if len(rest) > 0 {
		no, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  displayLabel(v) + " (explicitly no)",
			Options:  restLabels,
			Defaults: noDefaults,
		})
		if err != nil {
			return err
		}
		for _, j := range no {
			if j >= 0 && j < len(rest) {
				next[rest[j]] = form.No
			}
		}
	}

	for i, st := range next {
		if err := f.Set(i, st); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) promptDate(ctx context.Context, f *form.DateField) error {
	ans, err := r.driver.Input(ctx, InputConfig{
		Message: displayLabel(f.Variable()),
		Default: f.Text(),
		Help:    "yyyy-mm-dd",
		Validator: func(s string) error {
			_, err := time.Parse(form.DateLayout, strings.TrimSpace(s))
			return err
		},
	})
	if err != nil {
		return err
	}
	return f.SetText(strings.TrimSpace(ans))
}

// EntryHooks lets the caller act between records.
type EntryHooks struct {
	// BeforeRecord runs before each blank form is shown.
	BeforeRecord func(ctx context.Context) error
}

// RunEntry loops over form entry until the user stops or aborts. It
// returns the number of records saved.
func (r *Renderer) RunEntry(ctx context.Context, svc *service.FormService, hooks EntryHooks) (int, error) {
	saved := 0
	for {
		if hooks.BeforeRecord != nil {
			if err := hooks.BeforeRecord(ctx); err != nil {
				return saved, err
			}
		}
		s := svc.Session()
		if s.State() == form.StateEmpty {
			return saved, apperror.NewPrecondition("no schema loaded").WithCause(form.ErrNoSchema)
		}

		retry := false
		for {
			if err := r.FillForm(ctx, s, retry); err != nil {
				return saved, err
			}
			ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Save record?", Default: true})
			if err != nil {
				return saved, err
			}
			if !ok {
				s.Reset()
				break
			}
			id, err := svc.Commit(ctx)
			if err == nil {
				saved++
				if err := r.driver.Info(ctx, fmt.Sprintf("Record saved with ID %d", id)); err != nil {
					return saved, err
				}
				break
			}
			if apperror.CodeOf(err) != apperror.CodeValidation {
				return saved, err
			}
			if err := r.reportIssues(ctx, err); err != nil {
				return saved, err
			}
			retry = true
		}

		more, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Enter another record?", Default: true})
		if err != nil {
			return saved, err
		}
		if !more {
			return saved, nil
		}
	}
}

func (r *Renderer) reportIssues(ctx context.Context, err error) error {
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		return r.driver.Info(ctx, err.Error())
	}
	for _, is := range verr.Issues {
		if err := r.driver.Info(ctx, fmt.Sprintf("  %s: %s", is.Label, is.Reason())); err != nil {
			return err
		}
	}
	return nil
}

func displayLabel(v domain.Variable) string {
	if v.Label() != v.Name() {
		return fmt.Sprintf("%s (%s)", v.Label(), v.Name())
	}
	return v.Name()
}

func textHelp(v domain.Variable) string {
	var parts []string
	switch v.Type() {
	case domain.TypeNumericContinuous:
		parts = append(parts, "decimal number, use '.' as separator")
	case domain.TypeNumericDiscrete:
		parts = append(parts, "whole number")
	case domain.TypeTime:
		parts = append(parts, "hh:mm:ss")
	}
	if v.MaxLength() > 0 && v.Type() != domain.TypeTime {
		parts = append(parts, fmt.Sprintf("at most %d characters", v.MaxLength()))
	}
	return strings.Join(parts, ", ")
}
