// internal/monitor/watcher.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
)

// WatchOptions tune a Watcher.
type WatchOptions struct {
	Interval        time.Duration
	DisplayInterval time.Duration
	MaxFailures     int
	Alerts          AlertConfig
	OnAlert         func(Alert)
}

func (o WatchOptions) withDefaults() WatchOptions {
	if o.Interval <= 0 {
		o.Interval = 2 * time.Second
	}
	if o.DisplayInterval <= 0 {
		o.DisplayInterval = o.Interval
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = 5
	}
	if o.Alerts.Cooldown <= 0 {
		o.Alerts.Cooldown = time.Minute
	}
	return o
}

// Watcher polls the value of one position and publishes throttled updates.
type Watcher struct {
	valuer   Valuer
	pos      Position
	opts     WatchOptions
	alerts   *AlertManager
	updates  chan PriceUpdate
	throttle *Throttler
	logger   *zap.Logger
}

func NewWatcher(valuer Valuer, pos Position, opts WatchOptions, logger *zap.Logger) *Watcher {
	opts = opts.withDefaults()
	logger = logger.Named("monitor")
	updates := make(chan PriceUpdate, 1)
	return &Watcher{
		valuer:   valuer,
		pos:      pos,
		opts:     opts,
		alerts:   NewAlertManager(opts.Alerts),
		updates:  updates,
		throttle: NewThrottler(opts.DisplayInterval, updates, logger),
		logger:   logger,
	}
}

// Updates delivers price updates; it is closed when Run returns.
func (w *Watcher) Updates() <-chan PriceUpdate { return w.updates }

// Run polls until ctx is done, the curve migrates or polling fails
// MaxFailures times in a row. A migrated curve raises AlertMigrated and ends the watch without error.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.updates)

	w.logger.Info("Starting position monitor",
		zap.String("mint", w.pos.Mint.String()),
		zap.Uint64("tokens", w.pos.Tokens),
		zap.Uint64("cost", w.pos.CostLamports),
		zap.Duration("interval", w.opts.Interval))

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	failures := 0
	for {
		err := w.poll(ctx)
		switch {
		case err == nil:
			failures = 0
		case errors.Is(err, pumpfun.ErrCurveComplete):
			w.alert(Alert{
				Type:    AlertMigrated,
				Mint:    w.pos.Mint.String(),
				Message: "Bonding curve complete, token migrated",
				At:      time.Now(),
			})
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			failures++
			w.logger.Warn("Failed to value position", zap.Int("failures", failures), zap.Error(err))
			if failures >= w.opts.MaxFailures {
				return fmt.Errorf("monitor stopped after %d failures: %w", failures, err)
			}
		}

		select {
		case <-ctx.Done():
			w.logger.Debug("Position monitor stopped")
			return nil
		case <-ticker.C:
			w.throttle.FlushPending()
		}
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	pollCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	v, err := w.valuer.Value(pollCtx, &w.pos)
	if err != nil {
		return err
	}
	update := newPriceUpdate(&w.pos, v, time.Now())
	w.throttle.Send(update)
	for _, a := range w.alerts.Check(update) {
		w.alert(a)
	}
	return nil
}

func (w *Watcher) alert(a Alert) {
	w.logger.Info("Position alert", zap.String("type", string(a.Type)), zap.String("message", a.Message))
	if w.opts.OnAlert != nil {
		w.opts.OnAlert(a)
	}
}
