package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only when it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// SchedulerConfig recurring stock scan settings
type SchedulerConfig struct {
	Spec    string
	LockKey string
	LockTTL time.Duration
}

// Scheduler runs the stock scan on a cron spec; with redis configured only one
// instance scans at a time
type Scheduler struct {
	cron    *cron.Cron
	monitor *StockMonitor
	rdb     *redis.Client
	cfg     SchedulerConfig
	logger  *zap.Logger
}

func NewScheduler(monitor *StockMonitor, rdb *redis.Client, cfg SchedulerConfig, logger *zap.Logger) *Scheduler {
	if cfg.LockKey == "" {
		cfg.LockKey = "procurement:stock-scan"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &Scheduler{
		cron:    cron.New(),
		monitor: monitor,
		rdb:     rdb,
		cfg:     cfg,
		logger:  logger.Named("scheduler"),
	}
}

// Start registers the scan and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LockTTL)
		defer cancel()
		s.RunOnce(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("stock scan scheduled", zap.String("spec", s.cfg.Spec))
	return nil
}

// Stop waits for a running scan to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// RunOnce scans when the lock can be taken; reports whether a scan ran
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	release, err := s.acquire(ctx)
	if err != nil {
		if errors.Is(err, errLockHeld) {
			s.logger.Debug("stock scan running elsewhere, skipped")
		} else {
			s.logger.Error("stock scan lock failed", zap.Error(err))
		}
		return false
	}
	defer release()

	s.monitor.CheckStockLevelsAndNotify(ctx, TriggerSchedule)
	return true
}

var errLockHeld = errors.New("lock held by another instance")

func (s *Scheduler) acquire(ctx context.Context) (func(), error) {
	if s.rdb == nil {
		return func() {}, nil
	}

	token := uuid.New().String()
	ok, err := s.rdb.SetNX(ctx, s.cfg.LockKey, token, s.cfg.LockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errLockHeld
	}
	return func() {
		if err := releaseScript.Run(context.Background(), s.rdb, []string{s.cfg.LockKey}, token).Err(); err != nil {
			s.logger.Warn("stock scan lock release failed", zap.Error(err))
		}
	}, nil
}
