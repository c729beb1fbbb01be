package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/bidhaus/bidhaus-backend/internal/locks"
	"github.com/bidhaus/bidhaus-backend/pkg/logger"
	"github.com/bidhaus/bidhaus-backend/pkg/metrics"
)

const (
	defaultInterval = time.Minute
	jobName         = "settlement-sweep"
)

// ServiceParams configure the settlement service.
type ServiceParams struct {
	Logger   *logger.Logger
	Sweeper  *Sweeper
	Locks    lockManager
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Service runs the settlement sweeper on a fixed cadence. A cycle-wide lock
// keeps concurrent deployments from sweeping the same batch twice; the
// per-auction locks inside the sweeper make overlap harmless anyway.
type Service struct {
	logg     *logger.Logger
	sweeper  *Sweeper
	locks    lockManager
	metrics  *metrics.JobMetrics
	interval time.Duration
}

// NewService builds a settlement service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock manager required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		sweeper:  params.Sweeper,
		locks:    params.Locks,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run starts the sweep loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "sweep cycle failed", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "settlement service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "sweep cycle failed", err)
			}
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	token, err := s.locks.Acquire(ctx, locks.SweepCycleName)
	if err != nil {
		return fmt.Errorf("cycle lock acquire: %w", err)
	}
	if token == "" {
		s.logg.Info(ctx, "another sweeper instance is running; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.locks.Release(ctx, locks.SweepCycleName, token); relErr != nil {
			s.logg.Error(ctx, "failed to release cycle lock", relErr)
		}
	}()

	cycleCtx := s.logg.WithField(ctx, "job", jobName)
	s.logg.Info(cycleCtx, "sweep starting")
	start := time.Now()
	settled, err := s.sweeper.SettleDue(cycleCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(jobName, duration)

	cycleCtx = s.logg.WithFields(cycleCtx, map[string]any{
		"settled":     settled,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		s.metrics.IncFailure(jobName)
		s.logg.Error(cycleCtx, "sweep finished with errors", err)
		return err
	}
	s.metrics.IncSuccess(jobName)
	s.logg.Info(cycleCtx, "sweep complete")
	return nil
}
