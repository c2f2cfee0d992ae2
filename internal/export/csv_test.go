package export_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exdform/internal/domain"
	"exdform/internal/export"
)

func mustVar(t *testing.T, name, typ, modalities string) domain.Variable {
	t.Helper()
	v, err := domain.NewVariable(name, "", modalities, typ, "")
	require.NoError(t, err)
	return v
}

func TestColumns_ProbesFirstRecord(t *testing.T) {
	schema := []domain.Variable{
		mustVar(t, "A", "TEXT", ""),
		mustVar(t, "M", "CATEGORICAL_MULTISELECT", "1 - Red, 2 - Blue"),
	}
	records := []domain.StoredRecord{
		{ID: 1, Data: domain.Record{"A": domain.String("x"), "Red": domain.Int(1)}},
	}

	assert.Equal(t, []string{"id", "A", "Red"}, export.Columns(schema, records))
}

func TestColumns_LeftoverKeysSorted(t *testing.T) {
	schema := []domain.Variable{
		mustVar(t, "age", "NUM_DISCRETE", ""),
		mustVar(t, "M", "CATEGORICAL_MULTISELECT", "1 - Red, 2 - Blue"),
		mustVar(t, "sex", "BINARY", ""),
	}
	records := []domain.StoredRecord{
		{ID: 1, Data: domain.Record{"sex": domain.Int(1), "Blue": domain.Int(0), "age": domain.String("3")}},
		{ID: 2, Data: domain.Record{"Red": domain.Int(1), "zeta": domain.String("z"), "alpha": domain.String("a")}},
		{ID: 3, Data: domain.Record{"id": domain.Int(99), "age": domain.String("4")}},
	}

	// Red is absent from the probe record so it lands in the sorted tail.
	assert.Equal(t,
		[]string{"id", "age", "Blue", "sex", "Red", "alpha", "zeta"},
		export.Columns(schema, records))
}

func TestColumns_SharedKeyPlacedOnce(t *testing.T) {
	schema := []domain.Variable{
		mustVar(t, "M", "CATEGORICAL_MULTISELECT", "1 - Red"),
		mustVar(t, "N", "CATEGORICAL_MULTISELECT", "1 - Red"),
	}
	records := []domain.StoredRecord{{ID: 1, Data: domain.Record{"Red": domain.Int(1)}}}

	assert.Equal(t, []string{"id", "Red"}, export.Columns(schema, records))
}

func TestBuild_NothingToExport(t *testing.T) {
	_, err := export.Build(nil, nil)
	assert.ErrorIs(t, err, export.ErrNothingToExport)
}

func TestBuild_FillsMissingCells(t *testing.T) {
	schema := []domain.Variable{mustVar(t, "A", "TEXT", ""), mustVar(t, "B", "NUM_DISCRETE", "")}
	records := []domain.StoredRecord{
		{ID: 4, Data: domain.Record{"A": domain.String("x"), "B": domain.String("1")}},
		{ID: 7, Data: domain.Record{"A": domain.String("y, with comma"), "C": domain.Null()}},
	}

	table, err := export.Build(schema, records)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "A", "B", "C"}, table.Columns)
	assert.Equal(t, [][]string{
		{"4", "x", "1", ""},
		{"7", "y, with comma", "", ""},
	}, table.Rows)

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, table))
	assert.Equal(t, "id,A,B,C\n4,x,1,\n7,\"y, with comma\",,\n", buf.String())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "records.csv")
	table := &export.Table{Columns: []string{"id", "nom"}, Rows: [][]string{{"1", "Ünïcödé"}}}

	require.NoError(t, export.WriteFile(path, table))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,nom\n1,Ünïcödé\n", string(data))
}

func TestParseSchedule(t *testing.T) {
	s, err := export.ParseSchedule("0 18 * * *")
	require.NoError(t, err)

	from := time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC), s.Next(from))

	_, err = export.ParseSchedule("every tuesday")
	assert.Error(t, err)
}

func TestSchedule_RunStopsWhenCancelled(t *testing.T) {
	s, err := export.ParseSchedule("@every 1h")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	calls := 0
	err = s.Run(ctx, func(context.Context, time.Time) error {
		calls++
		return nil
	}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, calls)
}

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	key := export.ObjectKey(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), id)
	assert.Equal(t, "exports/2024-05-01/6ba7b810-9dad-11d1-80b4-00c04fd430c8.csv", key)
}

func TestPublishConfig_Enabled(t *testing.T) {
	assert.False(t, export.PublishConfig{}.Enabled())
	assert.True(t, export.PublishConfig{Endpoint: "minio:9000", Bucket: "exports"}.Enabled())

	_, err := export.NewPublisher(export.PublishConfig{Endpoint: "minio:9000", Bucket: "b"})
	assert.Error(t, err, "credentials are required")
}

func TestTimestampedPath(t *testing.T) {
	got := export.TimestampedPath("out", "records", time.Date(2024, 5, 1, 9, 3, 7, 0, time.UTC))
	assert.Equal(t, filepath.Join("out", "records-20240501-090307.csv"), got)
}
