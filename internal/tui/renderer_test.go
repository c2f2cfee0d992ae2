package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exdform/internal/domain"
	"exdform/internal/form"
	"exdform/internal/schema"
	"exdform/internal/service"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	multiIdx     [][]int
	confirm      []bool
	infoMessages []string
	inputPos     int
	selectPos    int
	multiPos     int
	confirmPos   int
	validated    []error
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	if cfg.Validator != nil {
		s.validated = append(s.validated, cfg.Validator(val))
	}
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, _ SelectConfig) ([]int, error) {
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

type memStore struct {
	records []domain.StoredRecord
}

func (m *memStore) Append(_ context.Context, r domain.Record) (int64, error) {
	m.records = append(m.records, domain.StoredRecord{ID: int64(len(m.records) + 1), Data: r})
	return int64(len(m.records)), nil
}

func (m *memStore) ReadAll(context.Context) ([]domain.StoredRecord, error) { return m.records, nil }
func (m *memStore) Clear(context.Context) error                            { m.records = nil; return nil }
func (m *memStore) Close() error                                           { return nil }

func newEntryService(t *testing.T, rows []schema.Row) (*service.FormService, *memStore) {
	t.Helper()
	store := &memStore{}
	loader, err := schema.NewLoader(2, nil)
	require.NoError(t, err)
	session := form.NewSession(form.WithClock(func() time.Time {
		return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	}))
	svc := service.NewFormService(session, loader,
		service.WithStoreOpener(func(context.Context, domain.DatabaseConnection) (domain.RecordStore, error) {
			return store, nil
		}))
	ctx := context.Background()
	require.NoError(t, svc.OpenStore(ctx, domain.DatabaseConnection{Host: "x"}))
	_, err = svc.LoadSchemaRows(ctx, rows)
	require.NoError(t, err)
	return svc, store
}

func TestFillForm_AllFieldKinds(t *testing.T) {
	svc, _ := newEntryService(t, []schema.Row{
		{"weight", "Weight", "", "NUM_CONTINUE"},
		{"smoker", "", "", "BINARY"},
		{"status", "", "1 - Single, 2 - Married", "CATEGORICAL"},
		{"colours", "", "1 - Red, 2 - Blue, 3 - Green", "CATEGORICAL_MULTISELECT"},
		{"visit", "", "", "DATE"},
	})
	driver := &stubDriver{
		inputs:    []string{"72.5", "2024-05-31"},
		selectIdx: []int{1, 2},
		multiIdx:  [][]int{{0}, {1}},
	}
	r := New(WithPromptDriver(driver))

	require.NoError(t, r.FillForm(context.Background(), svc.Session(), false))

	rec, err := svc.Session().Record()
	require.NoError(t, err)
	assert.Equal(t, domain.Record{
		"weight": domain.String("72.5"),
		"smoker": domain.Int(0),
		"status": domain.Int(2),
		"Red":    domain.Int(1),
		"Green":  domain.Int(0),
		"visit":  domain.String("2024-05-31"),
	}, rec)
}

func TestRunEntry_RepromptsInvalidFields(t *testing.T) {
	svc, store := newEntryService(t, []schema.Row{
		{"age", "Age", "", "NUM_DISCRETE"},
		{"note", "", "", "TEXT"},
	})
	driver := &stubDriver{
		// first pass: invalid age; retry asks for age only
		inputs:  []string{"4.5", "hello", "45"},
		confirm: []bool{true, true, false},
	}
	r := New(WithPromptDriver(driver))

	saved, err := r.RunEntry(context.Background(), svc, EntryHooks{})
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	require.Len(t, store.records, 1)
	assert.Equal(t, domain.Record{"age": domain.String("45"), "note": domain.String("hello")}, store.records[0].Data)
	assert.Contains(t, driver.infoMessages, "  Age: must be an integer")
	assert.Contains(t, driver.infoMessages, "Record saved with ID 1")
	assert.ErrorIs(t, driver.validated[0], form.ErrNotInteger)
}

func TestRunEntry_BeforeRecordHook(t *testing.T) {
	svc, _ := newEntryService(t, []schema.Row{{"note", "", "", "TEXT"}})
	driver := &stubDriver{inputs: []string{"a"}, confirm: []bool{false, false}}
	r := New(WithPromptDriver(driver))

	calls := 0
	saved, err := r.RunEntry(context.Background(), svc, EntryHooks{
		BeforeRecord: func(context.Context) error { calls++; return nil },
	})
	require.NoError(t, err)
	assert.Equal(t, 0, saved)
	assert.Equal(t, 1, calls)
}

func TestRunEntry_AbortStops(t *testing.T) {
	svc, _ := newEntryService(t, []schema.Row{{"note", "", "", "TEXT"}})
	r := New(WithPromptDriver(&stubDriver{}))

	_, err := r.RunEntry(context.Background(), svc, EntryHooks{})
	assert.Error(t, err)
}

func TestTextHelp(t *testing.T) {
	timeVar, err := domain.NewVariable("arrival", "", "", "TIME", "5")
	require.NoError(t, err)
	assert.Equal(t, "hh:mm:ss", textHelp(timeVar))

	textVar, err := domain.NewVariable("note", "", "", "TEXT", "20")
	require.NoError(t, err)
	assert.Equal(t, "at most 20 characters", textHelp(textVar))
}
