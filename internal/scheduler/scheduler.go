package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/railscout/internal/config"
)

// Prober checks one canary route.
type Prober interface {
	CheckRoute(ctx context.Context, route config.ProbeRoute) error
	ResetNotificationState()
}

// Scheduler runs every probe route once per interval.
type Scheduler struct {
	cfg    config.ProbeConfig
	prober Prober
	logger *logrus.Logger
	now    func() time.Time

	mu         sync.Mutex
	currentDay int
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func NewScheduler(cfg config.ProbeConfig, prober Prober, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		prober: prober,
		logger: logger,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.WithFields(logrus.Fields{
		"interval": s.cfg.Interval,
		"routes":   len(s.cfg.Routes),
	}).Info("probe scheduler started")

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped: context cancelled")
			return
		case <-s.stopCh:
			s.logger.Info("scheduler stopped: stop signal received")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	dayChanged := s.currentDay != 0 && now.Day() != s.currentDay
	s.currentDay = now.Day()
	s.mu.Unlock()

	// a source that is still failing alerts again once a day
	if dayChanged {
		s.logger.Info("day changed, resetting probe state")
		s.prober.ResetNotificationState()
	}

	s.RunOnce(ctx)
}

// RunOnce probes every route in order and stops early when ctx ends.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, route := range s.cfg.Routes {
		if ctx.Err() != nil {
			return
		}
		s.logger.WithFields(logrus.Fields{
			"source":      route.Source,
			"origin":      route.Origin,
			"destination": route.Destination,
		}).Debug("executing probe")

		if err := s.prober.CheckRoute(ctx, route); err != nil {
			s.logger.WithFields(logrus.Fields{
				"source": route.Source,
				"error":  err,
			}).Error("probe alert failed")
		}
	}
}
