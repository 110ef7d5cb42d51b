package csvsink

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

func testSummary() domain.WeeklySummary {
	return domain.WeeklySummary{
		Station: "467410",
		Weather: domain.WeatherAggregate{Columns: []string{"StnPres", "Precp"}, Means: []float64{1000.7, 0.25}},
		Readings: []domain.DistrictReading{
			{Code: "67000010", District: "新營區", PositivityRate: "12.5", EggCount: "300"},
			{Code: "67000020", District: "鹽水區", PositivityRate: "0", EggCount: "0"},
		},
	}
}

func TestWrite_UTF8WithBOM(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, w.Write(context.Background(), testSummary()))

	raw, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "missing BOM")

	records, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	require.NoError(t, err)
	want := [][]string{
		{"行政區", "陽性率", "總卵粒數", "StnPres", "Precp"},
		{"新營區", "12.5", "300", "1000.7", "0.25"},
		{"鹽水區", "0", "0", "1000.7", "0.25"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_ReplacesPreviousSummary(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, os.WriteFile(w.Path(), []byte("stale,stale,stale,stale,stale,stale\n"), 0o644))

	s := testSummary()
	s.Readings = s.Readings[:1]
	require.NoError(t, w.Write(context.Background(), s))

	raw, err := os.ReadFile(w.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "stale")
	assert.Equal(t, 2, bytes.Count(raw, []byte("\n")))
}

func TestWrite_UnwritableDirectory(t *testing.T) {
	w := NewWriter(t.TempDir()+"/absent", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, w.Write(context.Background(), testSummary()))
}
