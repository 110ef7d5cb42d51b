package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bucketCSV = "\ufeffSeq,縣市,區別,監測週期,陽性率,總卵粒數\n" +
	"1,臺南市,67000010,11401,0.10,120\n" +
	"2,臺南市,67000320,11401,0.25,300\n" +
	"3,臺南市,99999999,11401,0.00,0\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func mustLoad(t *testing.T, content string) *table {
	t.Helper()
	tbl, err := loadTable(writeFile(t, "t.csv", content))
	require.NoError(t, err)
	return tbl
}

func summaryCSV(rows ...string) string {
	return "\ufeff行政區,陽性率,總卵粒數,StnPres,Temperature\n" + strings.Join(rows, "\n") + "\n"
}

func failures(phases []*phase) map[string][]string {
	out := map[string][]string{}
	for _, p := range phases {
		if !p.passed() {
			out[p.name] = p.errors
		}
	}
	return out
}

func TestValidSummaryPasses(t *testing.T) {
	summary := mustLoad(t, summaryCSV(
		"新營區,0.10,120,1009.5,24.1",
		"東區,0.25,300,1009.5,24.1",
		",0.00,0,1009.5,24.1",
	))
	bucket := mustLoad(t, bucketCSV)

	assert.Empty(t, failures(validate(summary, bucket)))
}

func TestMissingBOMFails(t *testing.T) {
	summary := mustLoad(t, strings.TrimPrefix(summaryCSV("東區,0.25,300,1009.5,24.1"), "\ufeff"))

	phases := validate(summary, nil)
	assert.False(t, phases[0].passed())
	assert.True(t, phases[1].passed())
}

func TestDivergentWeatherFails(t *testing.T) {
	summary := mustLoad(t, summaryCSV(
		"新營區,0.10,120,1009.5,24.1",
		"東區,0.25,300,1009.5,24.2",
	))

	got := failures(validate(summary, nil))
	require.Len(t, got, 1)
	assert.Contains(t, got["Phase 4: Weather broadcast"][0], `"Temperature"`)
}

func TestUnknownDistrictFails(t *testing.T) {
	summary := mustLoad(t, summaryCSV("火星區,0.10,120,1009.5,24.1"))

	got := failures(validate(summary, nil))
	assert.Contains(t, got, "Phase 3: District names")
}

func TestLeftoverColumnsFail(t *testing.T) {
	summary := mustLoad(t, "\ufeff行政區,陽性率,總卵粒數,Seq,ObsTime\n東區,0.25,300,1,2025-11-01\n")

	errs := failures(validate(summary, nil))["Phase 2: Shape (columns and rows)"]
	assert.Len(t, errs, 2)
}

func TestTooManyRowsFails(t *testing.T) {
	rows := make([]string, 11)
	for i := range rows {
		rows[i] = "東區,0.25,300,1009.5,24.1"
	}
	summary := mustLoad(t, summaryCSV(rows...))

	assert.Contains(t, failures(validate(summary, nil)), "Phase 2: Shape (columns and rows)")
}

func TestSurveillanceMismatchFails(t *testing.T) {
	summary := mustLoad(t, summaryCSV(
		"新營區,0.10,120,1009.5,24.1",
		"東區,0.30,300,1009.5,24.1",
		",0.00,0,1009.5,24.1",
	))
	bucket := mustLoad(t, bucketCSV)

	errs := failures(validate(summary, bucket))["Phase 5: Surveillance parity (summary vs CSV)"]
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "line 3")
}

func TestRunExitCodes(t *testing.T) {
	good := writeFile(t, "week_data.csv", summaryCSV("東區,0.25,300,1009.5,24.1"))
	bad := writeFile(t, "week_data.csv", summaryCSV("東區,0.25,300,abc,24.1"))

	assert.Equal(t, 0, run(good, ""))
	assert.Equal(t, 1, run(bad, ""))
	assert.Equal(t, 1, run(filepath.Join(t.TempDir(), "missing.csv"), ""))
}
