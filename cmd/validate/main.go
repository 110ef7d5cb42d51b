// Command validate checks the integrity of a reconciled week_data.csv: encoding,
// shape, district names, the broadcast weather row, and optionally parity with the
// surveillance CSV it was built from.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -summary crawler_DF/week_data.csv \
//	  -bucket crawler_DF/bucket_114.csv
package main

import (
	"bytes"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
	"github.com/couchcryptid/dengue-weekly-etl/internal/reconcile"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readingColumns lead every summary row, in this order.
var readingColumns = []string{reconcile.ColDistrict, reconcile.ColPositivityRate, reconcile.ColEggCount}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// table is a parsed CSV with its BOM already removed.
type table struct {
	bom    bool
	header []string
	rows   [][]string
}

func (t *table) col(name string) int {
	return slices.Index(t.header, name)
}

func main() {
	summaryPath := flag.String("summary", filepath.Join("crawler_DF", domain.SummaryFileName), "path to the weekly summary CSV")
	bucketPath := flag.String("bucket", "", "optional surveillance CSV the summary was built from")
	flag.Parse()

	if *summaryPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*summaryPath, *bucketPath); code != 0 {
		os.Exit(code)
	}
}

func run(summaryPath, bucketPath string) int {
	fmt.Println("=== Weekly Summary Integrity Validation ===")
	fmt.Println()

	summary, err := loadTable(summaryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load summary: %v\n", err)
		return 1
	}

	var bucket *table
	if bucketPath != "" {
		bucket, err = loadTable(bucketPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load surveillance: %v\n", err)
			return 1
		}
	}

	phases := validate(summary, bucket)

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d summary, %d weather columns\n", len(summary.rows), max(0, len(summary.header)-len(readingColumns)))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validate runs every phase; bucket may be nil.
func validate(summary, bucket *table) []*phase {
	phases := []*phase{
		validateEncoding(summary),
		validateShape(summary),
		validateDistricts(summary),
		validateWeatherBroadcast(summary),
	}
	if bucket != nil {
		phases = append(phases, validateSurveillanceParity(summary, bucket))
	}
	return phases
}

// ── Data loading ──

func loadTable(path string) (*table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t := &table{}
	if rest, ok := bytes.CutPrefix(data, utf8BOM); ok {
		t.bom = true
		data = rest
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no header in %s", path)
	}
	t.header = all[0]
	t.rows = all[1:]
	return t, nil
}

// ── Phase 1: Encoding ──

func validateEncoding(t *table) *phase {
	p := &phase{name: "Phase 1: Encoding (UTF-8 BOM)"}
	if !t.bom {
		p.errorf("summary does not start with a UTF-8 byte order mark")
	}
	for i, row := range t.rows {
		if len(row) != len(t.header) {
			p.errorf("line %d: %d cells, header has %d", i+2, len(row), len(t.header))
		}
	}
	return p
}

// ── Phase 2: Shape ──

func validateShape(t *table) *phase {
	p := &phase{name: "Phase 2: Shape (columns and rows)"}

	if len(t.header) < len(readingColumns) || !slices.Equal(t.header[:len(readingColumns)], readingColumns) {
		p.errorf("header starts with %q, want %q", t.header[:min(len(t.header), len(readingColumns))], readingColumns)
	}
	if len(t.header) == len(readingColumns) {
		p.errorf("no weather columns")
	}
	for _, name := range t.header {
		if slices.Contains(reconcile.AdministrativeColumns, name) && !slices.Contains(readingColumns, name) {
			p.errorf("administrative column %q was not dropped", name)
		}
		if slices.Contains(reconcile.AuxiliaryColumns, name) {
			p.errorf("auxiliary weather column %q was not dropped", name)
		}
	}

	seen := make(map[string]bool, len(t.header))
	for _, name := range t.header {
		if seen[name] {
			p.errorf("duplicate column %q", name)
		}
		seen[name] = true
	}

	if len(t.rows) == 0 {
		p.errorf("no rows")
	}
	if len(t.rows) > reconcile.RecentPeriods {
		p.errorf("%d rows, at most %d expected", len(t.rows), reconcile.RecentPeriods)
	}
	return p
}

// ── Phase 3: Districts ──

func validateDistricts(t *table) *phase {
	p := &phase{name: "Phase 3: District names"}

	known := make(map[string]bool, len(domain.Districts))
	for _, d := range domain.Districts {
		known[d.Name] = true
	}

	idx := t.col(reconcile.ColDistrict)
	if idx < 0 {
		p.errorf("missing column %q", reconcile.ColDistrict)
		return p
	}
	for i, row := range t.rows {
		if idx >= len(row) {
			continue
		}
		// Unknown codes map to an empty name.
		if name := row[idx]; name != "" && !known[name] {
			p.errorf("line %d: unknown district %q", i+2, name)
		}
	}
	return p
}

// ── Phase 4: Weather broadcast ──
// Every row carries the same weekly mean.

func validateWeatherBroadcast(t *table) *phase {
	p := &phase{name: "Phase 4: Weather broadcast"}
	if len(t.rows) == 0 {
		return p
	}

	for j := len(readingColumns); j < len(t.header); j++ {
		name := t.header[j]
		first := cell(t.rows[0], j)
		if first != "" {
			if _, err := strconv.ParseFloat(first, 64); err != nil {
				p.errorf("column %q: mean %q is not numeric", name, first)
			}
		}
		for i, row := range t.rows[1:] {
			if v := cell(row, j); v != first {
				p.errorf("line %d: column %q is %q, first row has %q", i+3, name, v, first)
			}
		}
	}
	return p
}

// ── Phase 5: Surveillance parity ──
// Summary rows are the last rows of the surveillance file, in order.

func validateSurveillanceParity(summary, bucket *table) *phase {
	p := &phase{name: "Phase 5: Surveillance parity (summary vs CSV)"}

	code := bucket.col(reconcile.ColDistrictCode)
	rate := bucket.col(reconcile.ColPositivityRate)
	eggs := bucket.col(reconcile.ColEggCount)
	if code < 0 || rate < 0 || eggs < 0 {
		p.errorf("surveillance header %q lacks %q, %q or %q", bucket.header,
			reconcile.ColDistrictCode, reconcile.ColPositivityRate, reconcile.ColEggCount)
		return p
	}

	want := bucket.rows[max(0, len(bucket.rows)-reconcile.RecentPeriods):]
	if len(summary.rows) != len(want) {
		p.errorf("summary has %d rows, surveillance tail has %d", len(summary.rows), len(want))
		return p
	}

	for i, src := range want {
		got := summary.rows[i]
		name, _ := domain.LookupDistrict(cell(src, code))
		if v := cell(got, 0); v != name {
			p.errorf("line %d: district %q, want %q for code %q", i+2, v, name, cell(src, code))
		}
		if v, w := cell(got, 1), cell(src, rate); v != w {
			p.errorf("line %d: %s %q, surveillance has %q", i+2, reconcile.ColPositivityRate, v, w)
		}
		if v, w := cell(got, 2), cell(src, eggs); v != w {
			p.errorf("line %d: %s %q, surveillance has %q", i+2, reconcile.ColEggCount, v, w)
		}
	}
	return p
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
