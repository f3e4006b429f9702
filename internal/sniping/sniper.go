// internal/sniping/sniper.go
package sniping

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/rovshanmuradov/solana-bundler/internal/bot"
	"github.com/rovshanmuradov/solana-bundler/internal/listener"
	"github.com/rovshanmuradov/solana-bundler/internal/task"
)

// Executor runs a prepared task. *bot.Runner implements it.
type Executor interface {
	Execute(ctx context.Context, t *task.Task) *bot.Outcome
}

// Preparer applies task defaults. *task.Manager implements it.
type Preparer interface {
	Prepare(t *task.Task) error
}

// Sniper turns create events into buy tasks.
type Sniper struct {
	strategy Strategy
	exec     Executor
	prep     Preparer
	slots    *semaphore.Weighted
	fired    atomic.Int64
	logger   *zap.Logger
}

// NewSniper creates a sniper running at most workers buys at once.
func NewSniper(strategy Strategy, exec Executor, prep Preparer, workers int, logger *zap.Logger) (*Sniper, error) {
	if err := strategy.validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
		logger.Warn("Invalid workers count, using 1 worker")
	}
	return &Sniper{
		strategy: strategy,
		exec:     exec,
		prep:     prep,
		slots:    semaphore.NewWeighted(int64(workers)),
		logger:   logger.Named("sniper"),
	}, nil
}

// Handle is a listener.Handler.
func (s *Sniper) Handle(ctx context.Context, ev *listener.Event) {
	if !s.strategy.Matches(ev) {
		s.logger.Debug("Token filtered out", zap.String("symbol", ev.Create.Symbol))
		return
	}
	n := s.fired.Add(1)
	if limit := int64(s.strategy.MaxSnipes); limit > 0 && n > limit {
		s.logger.Debug("Snipe limit reached", zap.String("mint", ev.Create.Mint.String()))
		return
	}

	t := s.strategy.TaskFor(ev)
	if err := s.prep.Prepare(t); err != nil {
		s.logger.Error("Invalid snipe task", zap.String("task_name", t.Name), zap.Error(err))
		return
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return
	}
	defer s.slots.Release(1)

	out := s.exec.Execute(ctx, t)
	s.logger.Info("Snipe finished",
		zap.String("mint", ev.Create.Mint.String()),
		zap.Duration("since_event", time.Since(ev.ReceivedAt)),
		zap.Bool("ok", out.Err == nil))
}

// Fired returns how many tokens passed the filter, including those over the limit.
func (s *Sniper) Fired() int64 { return s.fired.Load() }
