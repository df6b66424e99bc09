package inventory

import (
	"context"
	"runtime"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// Prober pings device addresses to determine reachability.
type Prober struct {
	pingTimeout time.Duration
	pingCount   int
	logger      *zap.Logger
}

// NewProber creates a prober with the given ping settings.
func NewProber(timeout time.Duration, count int, logger *zap.Logger) *Prober {
	return &Prober{
		pingTimeout: timeout,
		pingCount:   count,
		logger:      logger,
	}
}

// Ping probes a single address and returns whether it responded, with the
// average round-trip time when it did.
func (p *Prober) Ping(ctx context.Context, addr string) (alive bool, rtt time.Duration) {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		p.logger.Debug("failed to create pinger", zap.String("addr", addr), zap.Error(err))
		return false, 0
	}

	pinger.Count = p.pingCount
	pinger.Timeout = p.pingTimeout
	// Windows requires privileged (raw socket) mode.
	pinger.SetPrivileged(runtime.GOOS == "windows")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if runErr := pinger.Run(); runErr != nil {
			p.logger.Debug("ping failed", zap.String("addr", addr), zap.Error(runErr))
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		pinger.Stop()
		return false, 0
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv > 0 {
		return true, stats.AvgRtt
	}
	return false, 0
}

// StatusScheduler periodically probes devices and reconciles their
// operational status. Devices in maintenance are never probed.
type StatusScheduler struct {
	store    *DeviceStore
	prober   *Prober
	onChange func(ctx context.Context, d Device, oldStatus, newStatus string)
	interval time.Duration
	workers  int
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStatusScheduler creates a scheduler that probes devices on an interval.
// onChange is invoked for each device whose status flips.
func NewStatusScheduler(store *DeviceStore, prober *Prober, onChange func(ctx context.Context, d Device, oldStatus, newStatus string), interval time.Duration, workers int, logger *zap.Logger) *StatusScheduler {
	return &StatusScheduler{
		store:    store,
		prober:   prober,
		onChange: onChange,
		interval: interval,
		workers:  workers,
		logger:   logger,
	}
}

// Start begins the probe loop in a background goroutine.
func (s *StatusScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		// Run immediately on start, then on each tick.
		s.tick()

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
func (s *StatusScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// tick loads probe targets and dispatches them to the worker pool.
func (s *StatusScheduler) tick() {
	ctx, cancel := context.WithTimeout(s.ctx, s.interval)
	defer cancel()

	devices, err := s.store.ListProbeTargets(ctx)
	if err != nil {
		s.logger.Warn("probe scheduler: failed to load devices", zap.Error(err))
		return
	}
	if len(devices) == 0 {
		return
	}

	// Semaphore-based worker pool.
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

dispatch:
	for i := range devices {
		select {
		case <-s.ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(d Device) {
			defer wg.Done()
			defer func() { <-sem }()
			s.probeDevice(ctx, d)
		}(devices[i])
	}

	wg.Wait()
}

// probeDevice pings one device and persists a status flip if observed.
func (s *StatusScheduler) probeDevice(ctx context.Context, d Device) {
	alive, rtt := s.prober.Ping(ctx, d.IPAddress)

	newStatus := StatusOffline
	if alive {
		newStatus = StatusOnline
	}
	if newStatus == d.Status {
		return
	}

	updated, err := s.store.UpdateDeviceStatus(ctx, d.ID, newStatus, time.Now().UTC())
	if err != nil {
		s.logger.Warn("failed to update device status",
			zap.String("device_id", d.ID),
			zap.Error(err),
		)
		return
	}
	if !updated {
		return
	}

	s.logger.Info("device status changed",
		zap.String("device_id", d.ID),
		zap.String("name", d.Name),
		zap.String("old_status", d.Status),
		zap.String("new_status", newStatus),
		zap.Duration("rtt", rtt),
	)

	if s.onChange != nil {
		s.onChange(ctx, d, d.Status, newStatus)
	}
}
