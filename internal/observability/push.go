package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Pusher sends the process's metrics to a Prometheus Pushgateway after a one-shot pass.
type Pusher struct {
	pusher *push.Pusher
}

// NewPusher targets url under job "dengue_etl", grouped by station.
func NewPusher(url, station string, g prometheus.Gatherer) *Pusher {
	return &Pusher{
		pusher: push.New(url, namespace).Gatherer(g).Grouping("station", station),
	}
}

// Push replaces the job's metric group on the gateway.
func (p *Pusher) Push(ctx context.Context) error {
	if err := p.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
