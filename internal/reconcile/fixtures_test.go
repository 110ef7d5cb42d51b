package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

var (
	november = domain.Period{Year: 2025, Month: time.November}
	october  = domain.Period{Year: 2025, Month: time.October}
)

const station = "467410"

// weatherHeader mirrors a CODiS daily export: a descriptive title line, then the
// column codes.
var weatherHeader = []string{
	"ObsTime", "StnPres", "StnPresMaxTime", "StnPresMinTime", "Temperature",
	"T Max Time", "T Min Time", "RH", "RHMinTime", "WGustTime",
	"Precp", "PrecpMax10Time", "PrecpMax60Time", "UVI Max Time",
}

type day struct {
	pressure string
	temp     string
	precp    string
}

func validDay(pressure float64) day {
	return day{pressure: fmt.Sprintf("%.1f", pressure), temp: "25.0", precp: "0.0"}
}

func missingDay() day {
	return day{pressure: "--", temp: "--", precp: "--"}
}

func weatherCSV(days []day) string {
	var b strings.Builder
	titles := make([]string, len(weatherHeader))
	for i := range titles {
		titles[i] = fmt.Sprintf("欄位%d", i+1)
	}
	b.WriteString(strings.Join(titles, ",") + "\n")
	b.WriteString(strings.Join(weatherHeader, ",") + "\n")
	for i, d := range days {
		fmt.Fprintf(&b, "%02d,%s,00:10,14:00,%s,13:00,05:00,80,14:30,12:00,%s,10:00,10:00,12:00\n",
			i+1, d.pressure, d.temp, d.precp)
	}
	return b.String()
}

func writeWeather(t *testing.T, dir string, period domain.Period, days []day) {
	t.Helper()
	path := domain.WeatherArtifact{Station: station, Period: period}.Path(dir)
	require.NoError(t, os.WriteFile(path, []byte(weatherCSV(days)), 0o644))
}

type bucketRow struct {
	code  string
	rate  string
	eggs  string
	cycle string
}

func writeBucket(t *testing.T, dir string, period domain.Period, rows []bucketRow) {
	t.Helper()
	var b strings.Builder
	b.WriteString("\ufeffSeq,縣市,區別,監測週期,陽性率,總卵粒數\n")
	for i, r := range rows {
		fmt.Fprintf(&b, "%d,臺南市,%s,%s,%s,%s\n", i+1, r.code, r.cycle, r.rate, r.eggs)
	}
	path := domain.BucketArtifact{Period: period}.Path(dir)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

// bucketRows returns n rows cycling through the district codes in order.
func bucketRows(n int) []bucketRow {
	rows := make([]bucketRow, n)
	for i := range rows {
		rows[i] = bucketRow{
			code:  domain.Districts[i%len(domain.Districts)].Code,
			rate:  fmt.Sprintf("%d.5", i),
			eggs:  fmt.Sprintf("%d", 100+i),
			cycle: fmt.Sprintf("11%02d", i+1),
		}
	}
	return rows
}

func pressures(from float64, n int) []day {
	days := make([]day, n)
	for i := range days {
		days[i] = validDay(from + float64(i)*0.1)
	}
	return days
}

func tempDir(t *testing.T) string {
	t.Helper()
	return filepath.Clean(t.TempDir())
}
