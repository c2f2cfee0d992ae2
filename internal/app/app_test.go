package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exdform/internal/logger"
	"exdform/internal/tui"
)

type scriptedDriver struct {
	inputs  []string
	confirm []bool
	infos   []string
}

func (d *scriptedDriver) Input(_ context.Context, cfg tui.InputConfig) (string, error) {
	if len(d.inputs) == 0 {
		return "", errors.New("no input scripted")
	}
	v := d.inputs[0]
	d.inputs = d.inputs[1:]
	if cfg.Validator != nil {
		if err := cfg.Validator(v); err != nil {
			return "", err
		}
	}
	return v, nil
}

func (d *scriptedDriver) Confirm(context.Context, tui.ConfirmConfig) (bool, error) {
	if len(d.confirm) == 0 {
		return false, errors.New("no confirm scripted")
	}
	v := d.confirm[0]
	d.confirm = d.confirm[1:]
	return v, nil
}

func (d *scriptedDriver) Select(context.Context, tui.SelectConfig) (int, error) {
	return -1, errors.New("no select scripted")
}

func (d *scriptedDriver) MultiSelect(context.Context, tui.SelectConfig) ([]int, error) {
	return nil, errors.New("no multiselect scripted")
}

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

type harness struct {
	dir    string
	env    map[string]string
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.csv")
	require.NoError(t, os.WriteFile(schemaPath, []byte(
		"name,description,modalities,type\n"+
			"age,Age in years,,NUMERIC_DISCRETE\n"+
			"note,,,TEXT\n"), 0o644))
	return &harness{
		dir: dir,
		env: map[string]string{
			"EXDFORM_STORE_PATH": filepath.Join(dir, "records.db"),
			"EXDFORM_SCHEMA":     schemaPath,
			"EXDFORM_EXPORT_DIR": filepath.Join(dir, "exports"),
		},
	}
}

func (h *harness) run(driver tui.PromptDriver, args ...string) int {
	h.stdout.Reset()
	h.stderr.Reset()
	return Run(context.Background(), args, Env{
		Stdout: &h.stdout,
		Stderr: &h.stderr,
		Getenv: func(key string) string { return h.env[key] },
		Driver: driver,
		Logger: logger.Nop(),
	})
}

func TestRun_Usage(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, ExitUsage, h.run(nil))
	assert.Contains(t, h.stderr.String(), "usage: exdform")

	assert.Equal(t, ExitUsage, h.run(nil, "frobnicate"))
	assert.Contains(t, h.stderr.String(), `unknown command "frobnicate"`)

	assert.Equal(t, ExitOK, h.run(nil, "help"))
	assert.Equal(t, ExitUsage, h.run(nil, "report", "-nope"))
}

func TestRun_EntryExportReport(t *testing.T) {
	h := newHarness(t)

	driver := &scriptedDriver{
		inputs:  []string{"41", "hello"},
		confirm: []bool{true, false},
	}
	require.Equal(t, ExitOK, h.run(driver, "entry"), h.stderr.String())
	assert.Contains(t, h.stdout.String(), "1 record(s) saved")
	assert.Contains(t, h.stderr.String(), "Record saved with ID 1")
	assert.Equal(t, []string{"Record saved with ID 1"}, driver.infos)

	out := filepath.Join(h.dir, "out.csv")
	require.Equal(t, ExitOK, h.run(nil, "export", "-out", out), h.stderr.String())
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "id,age,note\n1,41,hello\n", string(data))

	require.Equal(t, ExitOK, h.run(nil, "report"), h.stderr.String())
	assert.Contains(t, h.stdout.String(), "Total records: 1")

	require.Equal(t, ExitOK, h.run(nil, "report", "-json"), h.stderr.String())
	assert.Contains(t, h.stdout.String(), `"summary"`)
}

func TestRun_EntryWithoutSchema(t *testing.T) {
	h := newHarness(t)
	delete(h.env, "EXDFORM_SCHEMA")

	assert.Equal(t, ExitError, h.run(&scriptedDriver{}, "entry"))
	assert.Contains(t, h.stderr.String(), "no schema file given")
}

func TestRun_ReportWithoutData(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, ExitError, h.run(nil, "report"))
	assert.Contains(t, h.stderr.String(), "error:")
}

func TestRun_Reset(t *testing.T) {
	h := newHarness(t)
	driver := &scriptedDriver{inputs: []string{"7", ""}, confirm: []bool{true, false}}
	require.Equal(t, ExitOK, h.run(driver, "entry"), h.stderr.String())

	require.Equal(t, ExitOK, h.run(&scriptedDriver{confirm: []bool{false}}, "reset"))
	assert.Contains(t, h.stdout.String(), "reset cancelled")
	require.Equal(t, ExitOK, h.run(nil, "report"), "records survive a cancelled reset")

	require.Equal(t, ExitOK, h.run(nil, "reset", "-yes"), h.stderr.String())
	assert.Contains(t, h.stderr.String(), "Database has been reset")
	assert.Equal(t, ExitError, h.run(nil, "report"))
}

func TestRun_Lint(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, ExitOK, h.run(nil, "lint"), h.stderr.String())
	assert.Contains(t, h.stdout.String(), "age")
	assert.Contains(t, h.stdout.String(), "NUMERIC_DISCRETE")

	bad := filepath.Join(h.dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte(
		"name,description,modalities,type\n"+
			"colour,,1 - Red,CATEGORICAL\n"+
			"weird,,,SHAPE\n"), 0o644))
	assert.Equal(t, ExitError, h.run(nil, "lint", bad))
	assert.Contains(t, h.stdout.String(), `skipped row 2 "weird"`)
	assert.Contains(t, h.stderr.String(), "1 skipped row(s)")
}
