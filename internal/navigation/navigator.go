// Package navigation drives the CODiS station page from the station table to the
// monthly CSV export.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/dengue-weekly-etl/internal/automation"
	"github.com/couchcryptid/dengue-weekly-etl/internal/domain"
	"github.com/couchcryptid/dengue-weekly-etl/internal/observability"
)

// Stage is a step of the disclosure sequence.
type Stage int

const (
	Listed Stage = iota
	RowActivated
	ReportModeSelected
	PanelReady
	StationConfirmed
	StationConfirmSkipped
	ExportTriggered
)

func (s Stage) String() string {
	switch s {
	case Listed:
		return "listed"
	case RowActivated:
		return "row_activated"
	case ReportModeSelected:
		return "report_mode_selected"
	case PanelReady:
		return "panel_ready"
	case StationConfirmed:
		return "station_confirmed"
	case StationConfirmSkipped:
		return "station_confirm_skipped"
	case ExportTriggered:
		return "export_triggered"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Layout names the controls revealed after a station row is activated.
type Layout struct {
	ReportMode    automation.Selector // monthly (daily values) tab
	Panel         automation.Selector // report panel
	StationSelect automation.Selector // station dropdown inside the panel
	ExportControl automation.Selector // CSV button inside the panel
}

// CODiSLayout is the layout of codis.cwa.gov.tw/StationData.
func CODiSLayout() Layout {
	return Layout{
		ReportMode:    automation.CSS("div.lightbox-tool-menu > div").WithText("月報表(逐日資料)"),
		Panel:         automation.CSS("section.lightbox-tool").WithText("測站時序圖報表"),
		StationSelect: automation.CSS("select"),
		ExportControl: automation.CSS("div.lightbox-tool-type-ctrl-btn").WithText("CSV"),
	}
}

// NavigatorOptions holds the layout and the fixed pauses between steps.
type NavigatorOptions struct {
	Layout        Layout
	RevealSettle  time.Duration
	ModeSettle    time.Duration
	ConfirmSettle time.Duration
}

// DefaultNavigatorOptions returns the CODiS layout with the pauses the page needs
// to finish its animations.
func DefaultNavigatorOptions() NavigatorOptions {
	return NavigatorOptions{
		Layout:        CODiSLayout(),
		RevealSettle:  300 * time.Millisecond,
		ModeSettle:    500 * time.Millisecond,
		ConfirmSettle: 400 * time.Millisecond,
	}
}

// ErrOutOfOrder is returned when a Navigator method is called in the wrong stage.
var ErrOutOfOrder = errors.New("navigator step out of order")

// Navigator walks one station from the listed table to a triggered export.
// It is single use.
type Navigator struct {
	session automation.Session
	station string
	opts    NavigatorOptions
	logger  *slog.Logger
	metrics *observability.Metrics

	stage Stage
	trace []Stage
}

// NewNavigator creates a Navigator in the Listed stage.
func NewNavigator(session automation.Session, station string, opts NavigatorOptions, logger *slog.Logger, metrics *observability.Metrics) *Navigator {
	return &Navigator{
		session: session,
		station: station,
		opts:    opts,
		logger:  logger.With("station", station),
		metrics: metrics,
		stage:   Listed,
		trace:   []Stage{Listed},
	}
}

// Stage returns the current stage.
func (n *Navigator) Stage() Stage { return n.stage }

// Trace returns the stages visited so far, in order.
func (n *Navigator) Trace() []Stage {
	return append([]Stage(nil), n.trace...)
}

func (n *Navigator) advance(s Stage) {
	n.stage = s
	n.trace = append(n.trace, s)
	n.metrics.NavigationTransitions.WithLabelValues(s.String()).Inc()
	n.logger.Debug("navigation stage", "stage", s.String())
}

// OpenExportSurface activates the located row action and walks the report panel
// open, returning the export control. Station confirmation is best effort; every
// other step is required.
func (n *Navigator) OpenExportSurface(ctx context.Context, action automation.Element) (automation.Element, error) {
	if n.stage != Listed {
		return nil, fmt.Errorf("open export surface in stage %s: %w", n.stage, ErrOutOfOrder)
	}

	if err := action.ScrollIntoView(ctx); err != nil {
		return nil, fmt.Errorf("reveal station row: %w", err)
	}
	if !sleepWithContext(ctx, n.opts.RevealSettle) {
		return nil, ctx.Err()
	}
	if err := action.Click(ctx); err != nil {
		return nil, fmt.Errorf("activate station row: %w", err)
	}
	n.advance(RowActivated)

	mode, err := n.session.WaitFor(ctx, n.opts.Layout.ReportMode)
	if err != nil {
		return nil, fmt.Errorf("wait for report mode: %w", err)
	}
	if err := mode.Click(ctx); err != nil {
		return nil, fmt.Errorf("select report mode: %w", err)
	}
	if !sleepWithContext(ctx, n.opts.ModeSettle) {
		return nil, ctx.Err()
	}
	n.advance(ReportModeSelected)

	panel, err := n.session.WaitFor(ctx, n.opts.Layout.Panel)
	if err != nil {
		return nil, fmt.Errorf("wait for report panel: %w", err)
	}
	n.advance(PanelReady)

	if err := n.confirmStation(ctx, panel); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		n.logger.Warn("station selection unchanged, assuming panel already shows it", "error", err)
		n.advance(StationConfirmSkipped)
	} else {
		n.advance(StationConfirmed)
	}

	controls, err := panel.Find(ctx, n.opts.Layout.ExportControl)
	if err != nil {
		return nil, fmt.Errorf("find export control: %w", err)
	}
	if len(controls) == 0 {
		return nil, fmt.Errorf("export control %s: %w", n.opts.Layout.ExportControl, domain.ErrNotFound)
	}
	return controls[0], nil
}

func (n *Navigator) confirmStation(ctx context.Context, panel automation.Element) error {
	selects, err := panel.Find(ctx, n.opts.Layout.StationSelect)
	if err != nil {
		return err
	}
	if len(selects) == 0 {
		return fmt.Errorf("station select: %w", domain.ErrNotFound)
	}
	if err := selects[0].SelectOption(ctx, n.station); err != nil {
		return err
	}
	if !sleepWithContext(ctx, n.opts.ConfirmSettle) {
		return ctx.Err()
	}
	return nil
}

// TriggerExport clicks the export control returned by OpenExportSurface.
func (n *Navigator) TriggerExport(ctx context.Context, control automation.Element) error {
	if n.stage != StationConfirmed && n.stage != StationConfirmSkipped {
		return fmt.Errorf("trigger export in stage %s: %w", n.stage, ErrOutOfOrder)
	}
	if err := control.Click(ctx); err != nil {
		return fmt.Errorf("click export control: %w", err)
	}
	n.advance(ExportTriggered)
	return nil
}
