package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fiffu/manzil/config"
	"github.com/fiffu/manzil/lib/subscription"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultSweepInterval = 5 * time.Minute
	defaultClientIdleTTL = time.Hour
)

type sweepMetrics struct {
	evicted  int
	retained int
	pending  int
}

// Sweeper periodically drops idle clients and reports payments that still
// await reconciliation.
type Sweeper struct {
	log     *zap.Logger
	clients *Clients
	ledger  *subscription.Ledger

	interval time.Duration // How often to sweep
	idleTTL  time.Duration // Evict clients unseen for this long

	mu     sync.Mutex
	ticker *time.Ticker
	cancel func()
	done   chan struct{}
}

func NewSweeper(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, clients *Clients, ledger *subscription.Ledger) *Sweeper {
	s := &Sweeper{
		log:      log,
		clients:  clients,
		ledger:   ledger,
		interval: orDefault(time.Duration(cfg.Sweeper.IntervalSecs)*time.Second, defaultSweepInterval),
		idleTTL:  orDefault(time.Duration(cfg.Sweeper.ClientIdleMins)*time.Minute, defaultClientIdleTTL),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Sugar().Info("Trying to stop sweeper")
			s.Stop()
			return nil
		},
	})
	return s
}

func (s *Sweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.ticker = time.NewTicker(s.interval)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		for {
			select {
			case t := <-s.ticker.C:
				s.Sweep(ctx, t)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.ticker.Stop()
	s.cancel()
	<-s.done
	s.log.Sugar().Info("Sweeper stopped")
}

func (s *Sweeper) Sweep(ctx context.Context, now time.Time) sweepMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	var m sweepMetrics
	m.evicted, m.retained = s.clients.evictIdle(now.Add(-s.idleTTL))

	pending, err := s.ledger.Pending(ctx)
	if err != nil {
		s.log.Sugar().Warnw("Failed to read reconciliation ledger", "err", err)
	}
	m.pending = len(pending)

	if m.evicted > 0 {
		s.log.Sugar().Infow(
			fmt.Sprintf("Evicted %d idle clients", m.evicted),
			"retained", m.retained,
		)
	}
	if m.pending > 0 {
		s.log.Sugar().Warnw("Payments awaiting reconciliation", "count", m.pending)
	}
	return m
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
