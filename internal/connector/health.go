package connector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cloakedsheets/internal/domain"
)

// DefaultHealthInterval is the fixed re-check cadence. There is no backoff
// and no circuit breaker; a flat interval is enough for a status light.
const DefaultHealthInterval = 30 * time.Second

// HealthPoller re-checks connector health on a fixed interval and reports
// connect/disconnect transitions.
type HealthPoller struct {
	client   Client
	interval time.Duration
	logger   *zap.Logger
	onChange func(connected bool, status domain.HealthStatus)
}

// NewHealthPoller creates a poller; onChange fires on every transition,
// including the result of the immediate first check.
func NewHealthPoller(client Client, interval time.Duration, logger *zap.Logger,
	onChange func(connected bool, status domain.HealthStatus)) *HealthPoller {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthPoller{client: client, interval: interval, logger: logger, onChange: onChange}
}

// Run polls until ctx is canceled. The first check happens immediately.
func (p *HealthPoller) Run(ctx context.Context) {
	connected := false
	first := true

	check := func() {
		checkCtx, cancel := context.WithTimeout(ctx, p.interval)
		defer cancel()

		status, err := p.client.CheckHealth(checkCtx)
		healthy := err == nil && status.Ready()
		if healthy == connected && !first {
			return
		}
		first = false
		connected = healthy
		if healthy {
			p.logger.Info("connector reachable", zap.String("version", status.Version))
		} else {
			p.logger.Warn("connector unreachable", zap.Error(err))
		}
		if p.onChange != nil {
			p.onChange(healthy, status)
		}
	}

	check()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
