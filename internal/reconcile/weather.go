package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"math"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
)

const (
	// WindowDays is the length of the weekly weather window.
	WindowDays = 7

	// PressureColumn carries the station pressure; its sentinel marks a day with no
	// usable observation.
	PressureColumn   = "StnPres"
	PressureSentinel = "--"
)

// AuxiliaryColumns are per-day timestamp columns dropped before aggregation.
var AuxiliaryColumns = []string{
	"ObsTime",
	"StnPresMaxTime",
	"StnPresMinTime",
	"T Max Time",
	"T Min Time",
	"RHMinTime",
	"WGustTime",
	"PrecpMax10Time",
	"PrecpMax60Time",
	"UVI Max Time",
}

// weatherMonth is one station-month with the header repaired and auxiliary
// columns removed.
type weatherMonth struct {
	period  domain.Period
	df      dataframe.DataFrame
	invalid []int // rows whose pressure is the sentinel
	valid   []int
}

func loadWeather(dir string, artifact domain.WeatherArtifact) (weatherMonth, error) {
	path := artifact.Path(dir)
	raw, err := readCSV(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return weatherMonth{}, fmt.Errorf("read %s: %w", artifact.FileName(), err)
		}
		return weatherMonth{}, err
	}
	df, err := promoteHeader(raw)
	if err != nil {
		return weatherMonth{}, fmt.Errorf("repair header of %s: %w", artifact.FileName(), err)
	}
	if err := requireColumns(df, append([]string{PressureColumn}, AuxiliaryColumns...)...); err != nil {
		return weatherMonth{}, fmt.Errorf("%s: %w", artifact.FileName(), err)
	}

	m := weatherMonth{period: artifact.Period}
	for i, v := range df.Col(PressureColumn).Records() {
		if v == PressureSentinel {
			m.invalid = append(m.invalid, i)
		} else {
			m.valid = append(m.valid, i)
		}
	}

	m.df = df.Drop(AuxiliaryColumns)
	if m.df.Err != nil {
		return weatherMonth{}, fmt.Errorf("drop auxiliary columns of %s: %w", artifact.FileName(), m.df.Err)
	}
	return m, nil
}

// insufficient reports whether the month has a sentinel within its first week.
// A short month without one stands on its own with whatever rows it has.
func (m weatherMonth) insufficient() bool {
	return len(m.invalid) > 0 && m.invalid[0] < WindowDays
}

// lastValid returns the indexes of the last n valid rows, oldest first.
func (m weatherMonth) lastValid(n int) []int {
	if n > len(m.valid) {
		n = len(m.valid)
	}
	return m.valid[len(m.valid)-n:]
}

// window stacks the selected rows of each part in order.
func window(parts ...windowPart) (dataframe.DataFrame, error) {
	var out dataframe.DataFrame
	started := false
	for _, p := range parts {
		if len(p.rows) == 0 {
			continue
		}
		sub := p.month.df.Subset(p.rows)
		if sub.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("select rows of %s: %w", p.month.period, sub.Err)
		}
		if !started {
			out, started = sub, true
			continue
		}
		out = out.RBind(sub)
		if out.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("append rows of %s: %w", p.month.period, out.Err)
		}
	}
	if !started {
		return dataframe.DataFrame{}, fmt.Errorf("empty weather window: %w", domain.ErrDataShortfall)
	}
	return out, nil
}

type windowPart struct {
	month weatherMonth
	rows  []int
}

// aggregate averages each column over the window. Cells that do not parse as
// numbers are left out of their column's mean; a column with no numeric cells
// averages to NaN.
func aggregate(df dataframe.DataFrame) domain.WeatherAggregate {
	names := df.Names()
	agg := domain.WeatherAggregate{
		Columns: names,
		Means:   make([]float64, len(names)),
	}
	for i, name := range names {
		var xs []float64
		for _, v := range df.Col(name).Float() {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				xs = append(xs, v)
			}
		}
		if len(xs) == 0 {
			agg.Means[i] = math.NaN()
			continue
		}
		agg.Means[i] = stat.Mean(xs, nil)
	}
	return agg
}
