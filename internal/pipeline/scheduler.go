package pipeline

import (
	"context"
	"time"
)

// Run executes a pass immediately and then every interval until the context is
// cancelled. A failed pass is logged and the schedule continues; there are no
// retries between ticks.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	p.logger.Info("scheduler started", "interval", interval)

	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			p.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		}
		_, _ = p.RunOnce(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}
