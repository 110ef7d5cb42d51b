package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SummaryFileName is the reconciled weekly output written to the download directory.
const SummaryFileName = "week_data.csv"

// WeatherArtifact names the daily-observation export of one station for one month.
// Both the weather retriever (when normalizing the browser download) and the
// reconciler (when reading it back) resolve the file through this type.
type WeatherArtifact struct {
	Station string
	Period  Period
}

// FileName returns "<station>-<YYYY>-<MM>.csv".
func (a WeatherArtifact) FileName() string {
	return fmt.Sprintf("%s-%04d-%02d.csv", a.Station, a.Period.Year, int(a.Period.Month))
}

// Path joins FileName onto dir.
func (a WeatherArtifact) Path(dir string) string {
	return filepath.Join(dir, a.FileName())
}

// BucketArtifact names the oviposition-trap surveillance CSV for a Republic-era year.
type BucketArtifact struct {
	Period Period
}

// FileName returns "bucket_<ROC year>.csv".
func (a BucketArtifact) FileName() string {
	return fmt.Sprintf("bucket_%d.csv", a.Period.ROCYear())
}

// Path joins FileName onto dir.
func (a BucketArtifact) Path(dir string) string {
	return filepath.Join(dir, a.FileName())
}

// YearTitle is the dataset link title on the open-data portal for the period's year.
func (a BucketArtifact) YearTitle() string {
	return fmt.Sprintf("%d年臺南市登革熱誘卵桶監測資訊", a.Period.ROCYear())
}

// Stem returns name up to (not including) the first dot.
func Stem(name string) string {
	stem, _, _ := strings.Cut(name, ".")
	return stem
}
