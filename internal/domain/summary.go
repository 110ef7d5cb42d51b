package domain

import (
	"math"
	"time"
)

// WeatherAggregate is the per-column mean of a 7-day weather window.
// Means[i] is NaN when column Columns[i] had no numeric cell in the window.
type WeatherAggregate struct {
	Columns []string
	Means   []float64
}

// Value returns the mean for column name.
func (w WeatherAggregate) Value(name string) (float64, bool) {
	for i, c := range w.Columns {
		if c == name {
			return w.Means[i], true
		}
	}
	return math.NaN(), false
}

// DistrictReading is one surveillance row reduced to what the summary carries.
// Cells are kept verbatim as published.
type DistrictReading struct {
	Code           string `json:"district_code"`
	District       string `json:"district"`
	PositivityRate string `json:"positivity_rate"`
	EggCount       string `json:"egg_count"`
}

// WeeklySummary pairs every selected surveillance row with the same weekly weather mean.
type WeeklySummary struct {
	RunID       string
	GeneratedAt time.Time
	Period      Period
	Station     string
	Fallback    bool // the window borrowed rows from the prior month
	Weather     WeatherAggregate
	Readings    []DistrictReading
}

// Rows is the number of denormalized output rows: one per reading, times the single
// weather row.
func (s WeeklySummary) Rows() int {
	return len(s.Readings)
}
