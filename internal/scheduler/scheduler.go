package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/paddocklabs/studbook/internal/config"
	"github.com/paddocklabs/studbook/internal/service/effects"
	"github.com/paddocklabs/studbook/internal/service/semen"
)

// Scheduler runs the periodic expiry sweep over semen inventory.
type Scheduler struct {
	cron       *cron.Cron
	ledger     *semen.Service
	dispatcher *effects.Dispatcher
	cfg        config.SweeperConfig
	logger     *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.SweeperConfig, ledger *semen.Service, dispatcher *effects.Dispatcher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:       cron.New(),
		ledger:     ledger,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start registers the sweep job and starts the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.sweepExpired); err != nil {
		s.logger.Error("failed to schedule expiry sweep", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) sweepExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	swept, effs, err := s.ledger.SweepExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if swept > 0 {
		s.logger.Info("expired batches swept", zap.Int("count", swept))
		s.dispatcher.Dispatch(effs)
	}
}
