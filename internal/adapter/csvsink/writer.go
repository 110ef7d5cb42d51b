// Package csvsink writes the weekly summary as week_data.csv.
package csvsink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
	"github.com/couchcryptid/dengue-weekly-etl/internal/reconcile"
)

// Writer replaces <dir>/week_data.csv on every Write.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// Path is the summary file location.
func (w *Writer) Path() string {
	return filepath.Join(w.dir, domain.SummaryFileName)
}

// Write encodes the summary table as UTF-8 with a byte order mark so spreadsheet
// applications detect the encoding.
func (w *Writer) Write(_ context.Context, summary domain.WeeklySummary) error {
	path := w.Path()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	enc := transform.NewWriter(f, unicode.UTF8BOM.NewEncoder())
	if err := reconcile.Table(summary).WriteCSV(enc); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	w.logger.Info("weekly summary written", "path", path, "rows", summary.Rows())
	return nil
}

func (w *Writer) Name() string { return "csv" }
