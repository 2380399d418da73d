package waitlist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ebcbot/waitlist/config"
	"github.com/ebcbot/waitlist/pkg/logger"
)

// Sweeper drives the engine's periodic maintenance: host liveness checks,
// stale-queue eviction, and advertisement reconciliation. Each sweep
// isolates per-room failures; a bad room is logged and skipped.
type Sweeper interface {
	Start(ctx context.Context) error
	Stop() error
}

type sweeper struct {
	svc Service
	cfg config.WaitlistConfig
	l   logger.Logger

	mu        sync.Mutex
	isRunning bool
	startedAt time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

const sweeperShutdownTimeout = 30 * time.Second

func NewSweeper(svc Service, cfg config.WaitlistConfig, l logger.Logger) Sweeper {
	return &sweeper{
		svc: svc,
		cfg: cfg,
		l:   l,
	}
}

func (sw *sweeper) Start(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.isRunning {
		return errors.New("sweeper is already running")
	}

	sw.l.Infof(ctx, "starting sweeper - host_check: %v, reap: %v, ad_reconcile: %v",
		sw.cfg.HostCheckInterval, sw.cfg.ReapInterval, sw.cfg.AdReconcileInterval)

	sw.isRunning = true
	sw.startedAt = time.Now()
	// Fresh channel per run so a stopped sweeper can be started again.
	sw.stopCh = make(chan struct{})

	sw.wg.Add(1)
	go sw.loop(ctx, sw.stopCh)

	return nil
}

func (sw *sweeper) Stop() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if !sw.isRunning {
		return errors.New("sweeper is not running")
	}

	close(sw.stopCh)

	done := make(chan struct{})
	go func() {
		sw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		sw.l.Info(context.Background(), "sweeper stopped gracefully")
	case <-time.After(sweeperShutdownTimeout):
		sw.l.Warn(context.Background(), "sweeper shutdown timeout exceeded")
	}

	sw.isRunning = false
	return nil
}

func (sw *sweeper) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer sw.wg.Done()

	// Reconcile the advertisement surface once at startup, then on the
	// regular interval.
	sw.svc.ReconcileAds(ctx)

	hostTicker := time.NewTicker(sw.cfg.HostCheckInterval)
	defer hostTicker.Stop()
	reapTicker := time.NewTicker(sw.cfg.ReapInterval)
	defer reapTicker.Stop()
	adTicker := time.NewTicker(sw.cfg.AdReconcileInterval)
	defer adTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.l.Info(ctx, "sweeper stopped due to context cancellation")
			return
		case <-stopCh:
			sw.l.Info(ctx, "sweeper stopped due to stop signal")
			return
		case <-hostTicker.C:
			sw.svc.CheckHosts(ctx)
		case <-reapTicker.C:
			sw.svc.ReapStale(ctx)
		case <-adTicker.C:
			sw.svc.ReconcileAds(ctx)
		}
	}
}
