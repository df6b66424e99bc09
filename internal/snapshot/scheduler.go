package snapshot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TargetLister supplies the device IDs eligible for scheduled capture.
type TargetLister interface {
	ListTargets(ctx context.Context) ([]string, error)
}

// CaptureScheduler periodically captures every eligible device's
// configuration through the fetcher and ingests the result.
type CaptureScheduler struct {
	service  *Service
	targets  TargetLister
	interval time.Duration
	workers  int
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCaptureScheduler creates a scheduler that captures on an interval.
func NewCaptureScheduler(service *Service, targets TargetLister, interval time.Duration, workers int, logger *zap.Logger) *CaptureScheduler {
	return &CaptureScheduler{
		service:  service,
		targets:  targets,
		interval: interval,
		workers:  workers,
		logger:   logger,
	}
}

// Start begins the capture loop in a background goroutine.
func (s *CaptureScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop signals the scheduler to stop and waits for completion.
func (s *CaptureScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// tick loads capture targets and dispatches them to the worker pool.
func (s *CaptureScheduler) tick() {
	ctx, cancel := context.WithTimeout(s.ctx, s.interval)
	defer cancel()

	targets, err := s.targets.ListTargets(ctx)
	if err != nil {
		s.logger.Warn("capture scheduler: failed to load targets", zap.Error(err))
		return
	}
	if len(targets) == 0 {
		return
	}

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

dispatch:
	for _, deviceID := range targets {
		select {
		case <-s.ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(deviceID string) {
			defer wg.Done()
			defer func() { <-sem }()
			s.capture(ctx, deviceID)
		}(deviceID)
	}

	wg.Wait()
}

// capture fetches and ingests one device's configuration.
func (s *CaptureScheduler) capture(ctx context.Context, deviceID string) {
	configuration, err := s.service.fetcher.FetchConfiguration(ctx, deviceID)
	if err != nil {
		s.logger.Warn("scheduled capture failed",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return
	}

	if _, err := s.service.Ingest(ctx, deviceID, configuration, CauseScheduled); err != nil {
		s.logger.Warn("scheduled ingest failed",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
}
