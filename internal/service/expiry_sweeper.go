package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepBatchSize = 200

// ExpirySweeper periodically finalizes timed attempts their learners
// abandoned. Lazy finalization on touch stays authoritative; the sweep only
// makes results and certificates appear without a further request.
type ExpirySweeper struct {
	attempts AttemptService
	cron     *cron.Cron
	timeout  time.Duration
	logger   *zap.Logger
}

// NewExpirySweeper schedules the sweep with a standard cron expression or a
// descriptor such as "@every 1m".
func NewExpirySweeper(attempts AttemptService, schedule string, logger *zap.Logger) (*ExpirySweeper, error) {
	s := &ExpirySweeper{
		attempts: attempts,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		timeout:  30 * time.Second,
		logger:   logger.Named("expiry_sweeper"),
	}
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *ExpirySweeper) Start() {
	s.cron.Start()
	s.logger.Info("expiry sweeper started")
}

// Stop waits for a running sweep to finish or ctx to end.
func (s *ExpirySweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *ExpirySweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.attempts.FinalizeExpired(ctx, sweepBatchSize)
	if err != nil {
		s.logger.Error("sweep failed", zap.Int("finalized", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("expired attempts finalized", zap.Int("count", n))
	}
}
