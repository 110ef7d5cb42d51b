package reconcile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

// Surveillance column names.
const (
	ColSeq            = "Seq"
	ColCounty         = "縣市"
	ColDistrictCode   = "區別"
	ColPeriod         = "監測週期"
	ColDistrict       = "行政區"
	ColPositivityRate = "陽性率"
	ColEggCount       = "總卵粒數"
)

// RecentPeriods is how many of the latest surveillance rows are kept.
const RecentPeriods = 10

// AdministrativeColumns are dropped from the surveillance table.
var AdministrativeColumns = []string{ColSeq, ColCounty, ColDistrictCode, ColPeriod}

func loadBucket(dir string, artifact domain.BucketArtifact) ([]domain.DistrictReading, error) {
	df, err := readCSV(artifact.Path(dir))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", artifact.FileName(), err)
	}
	if err := requireColumns(df, slices.Concat(AdministrativeColumns, []string{ColPositivityRate, ColEggCount})...); err != nil {
		return nil, fmt.Errorf("%s: %w", artifact.FileName(), err)
	}

	codes := df.Col(ColDistrictCode).Records()
	names := make([]string, len(codes))
	for i, c := range codes {
		codes[i] = strings.TrimSpace(c)
		names[i], _ = domain.LookupDistrict(codes[i])
	}

	df = df.Mutate(series.New(names, series.String, ColDistrict)).
		Drop(AdministrativeColumns)
	if df.Err != nil {
		return nil, fmt.Errorf("map districts of %s: %w", artifact.FileName(), df.Err)
	}

	n := df.Nrow()
	if n == 0 {
		return nil, nil
	}
	recent := rowRange(max(0, n-RecentPeriods), n)
	df = df.Subset(recent).Select([]string{ColDistrict, ColPositivityRate, ColEggCount})
	if df.Err != nil {
		return nil, fmt.Errorf("select recent rows of %s: %w", artifact.FileName(), df.Err)
	}

	districts := df.Col(ColDistrict).Records()
	rates := df.Col(ColPositivityRate).Records()
	eggs := df.Col(ColEggCount).Records()
	readings := make([]domain.DistrictReading, len(recent))
	for i, row := range recent {
		readings[i] = domain.DistrictReading{
			Code:           codes[row],
			District:       districts[i],
			PositivityRate: rates[i],
			EggCount:       eggs[i],
		}
	}
	return readings, nil
}
