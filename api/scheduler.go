/*
scheduler.go - Periodic leave accrual

PURPOSE:

	Periodically recalculates the leave accrual of every known owner for the
	current period, so leave wallets are open before the first approval of
	the year.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Owners are everyone with a leave request, plus any configured extras
  - Recalculation is idempotent per owner and period (one accrual cause),
    so repeated runs are no-ops

USAGE:

	scheduler := NewAccrualScheduler(engine, logger)
	scheduler.Start(ctx)
	// ... later
	scheduler.Stop()

SEE ALSO:
  - handlers.go: Recalculate endpoint (manual recalculation)
  - generic/accrual.go: Calculator
*/
package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/approval-ledger/generic"
)

type AccrualScheduler struct {
	Engine        *generic.Engine
	Logger        *zap.Logger
	Clock         generic.Clock
	CheckInterval time.Duration

	// Extra owners recalculated on every run even without leave requests.
	Extra []string

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewAccrualScheduler(engine *generic.Engine, logger *zap.Logger) *AccrualScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccrualScheduler{
		Engine:        engine,
		Logger:        logger,
		Clock:         generic.SystemClock{},
		CheckInterval: time.Hour,
	}
}

// Start begins the scheduler. A non-positive interval disables it.
func (s *AccrualScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CheckInterval <= 0 {
		s.Logger.Info("accrual scheduler disabled")
		return
	}
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)

	s.Logger.Info("accrual scheduler started", zap.Duration("interval", s.CheckInterval))
}

func (s *AccrualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	s.Logger.Info("accrual scheduler stopped")
}

func (s *AccrualScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.CheckInterval)
	defer ticker.Stop()

	s.RunNow(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunNow(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunNow recalculates every owner once and returns how many succeeded.
func (s *AccrualScheduler) RunNow(ctx context.Context) int {
	owners, err := s.owners(ctx)
	if err != nil {
		s.Logger.Error("listing leave owners", zap.Error(err))
		return 0
	}

	period := generic.PeriodFor(s.Clock.Now())
	processed := 0
	for _, owner := range owners {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.Engine.RecalculateAccrual(ctx, owner, period); err != nil {
			s.Logger.Warn("accrual recalculation failed",
				zap.String("owner_id", owner),
				zap.String("period", period.Key()),
				zap.Error(err))
			continue
		}
		processed++
	}
	if processed > 0 {
		s.Logger.Info("accrual run completed",
			zap.Int("processed", processed),
			zap.Int("owners", len(owners)),
			zap.String("period", period.Key()))
	}
	return processed
}

func (s *AccrualScheduler) owners(ctx context.Context) ([]string, error) {
	reqs, err := s.Engine.Requests.List(ctx, generic.RequestFilter{Domain: generic.DomainLeave})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(reqs)+len(s.Extra))
	for _, o := range s.Extra {
		seen[o] = true
	}
	for _, r := range reqs {
		seen[r.OwnerID] = true
	}
	out := make([]string, 0, len(seen))
	for o := range seen {
		out = append(out, o)
	}
	sort.Strings(out)
	return out, nil
}
