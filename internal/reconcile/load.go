package reconcile

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// loadOptions keep every cell as the verbatim string it was published as.
var loadOptions = []dataframe.LoadOption{
	dataframe.DetectTypes(false),
	dataframe.DefaultType(series.String),
	dataframe.NaNValues([]string{}),
}

// readCSV loads path with its first line as the header. A leading UTF-8 BOM is
// stripped so it does not end up in the first column name.
func readCSV(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()

	r := transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	df := dataframe.ReadCSV(r, append([]dataframe.LoadOption{dataframe.HasHeader(true)}, loadOptions...)...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("parse %s: %w", path, df.Err)
	}
	return df, nil
}

// promoteHeader makes the first data row the header, dropping the file's nominal
// header line.
func promoteHeader(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	records := df.Records()
	if len(records) < 2 {
		return dataframe.DataFrame{}, errors.New("no header row below the title row")
	}
	out := dataframe.LoadRecords(records[1:], loadOptions...)
	if out.Err != nil {
		return dataframe.DataFrame{}, out.Err
	}
	return out, nil
}

func requireColumns(df dataframe.DataFrame, cols ...string) error {
	have := make(map[string]bool, df.Ncol())
	for _, name := range df.Names() {
		have[name] = true
	}
	for _, c := range cols {
		if !have[c] {
			return fmt.Errorf("missing column %q", c)
		}
	}
	return nil
}

// rowRange returns the indexes [from, to).
func rowRange(from, to int) []int {
	idx := make([]int, 0, max(0, to-from))
	for i := from; i < to; i++ {
		idx = append(idx, i)
	}
	return idx
}
