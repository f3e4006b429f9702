package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
)

var testMint = solana.MustPublicKeyFromBase58("2ZiSPGncrkwWa6GBZB4EDtsfq7HEWwXwsPFDkXzGpump")

type staticCurve struct {
	state *pumpfun.CurveState
	err   error
}

func (s *staticCurve) FetchState(context.Context, solana.PublicKey) (*pumpfun.CurveState, error) {
	return s.state, s.err
}

func curveState() *pumpfun.CurveState {
	return &pumpfun.CurveState{
		Global: &pumpfun.GlobalAccount{Initialized: true, FeeBasisPoints: 100, InitialRealTokenReserves: 793_100_000_000_000},
		Curve: &pumpfun.BondingCurve{
			VirtualTokenReserves: 1_073_000_000_000_000,
			VirtualSolReserves:   30_000_000_000,
			RealTokenReserves:    793_100_000_000_000,
			RealSolReserves:      5_000_000_000,
			TokenTotalSupply:     1_000_000_000_000_000,
		},
	}
}

type funcValuer func(ctx context.Context, pos *Position) (*Valuation, error)

func (f funcValuer) Value(ctx context.Context, pos *Position) (*Valuation, error) { return f(ctx, pos) }

func TestCurveValuer(t *testing.T) {
	v := NewCurveValuer(&staticCurve{state: curveState()})
	pos := &Position{Mint: testMint, Tokens: 1_000_000_000_000, Decimals: pumpfun.TokenDecimals, CostLamports: 30_000_000}

	val, err := v.Value(context.Background(), pos)
	require.NoError(t, err)
	assert.Greater(t, val.SellValue, uint64(0))
	assert.Less(t, val.SellValue, uint64(30_000_000), "selling back costs the fee and the price impact")
	assert.InDelta(t, 27.96, val.SpotPrice, 0.01)

	u := newPriceUpdate(pos, val, time.Now())
	assert.Equal(t, int64(val.SellValue)-30_000_000, u.PnL)
	assert.Less(t, u.PnLPercent, 0.0)

	state := curveState()
	state.Curve.Complete = true
	_, err = NewCurveValuer(&staticCurve{state: state}).Value(context.Background(), pos)
	assert.ErrorIs(t, err, pumpfun.ErrCurveComplete)
}

func TestThrottler(t *testing.T) {
	out := make(chan PriceUpdate, 4)
	th := NewThrottler(time.Second, out, zap.NewNop())
	now := time.Unix(1_700_000_000, 0)
	th.now = func() time.Time { return now }

	th.Send(PriceUpdate{SellValue: 1})
	th.Send(PriceUpdate{SellValue: 2})
	th.Send(PriceUpdate{SellValue: 3})
	require.Len(t, out, 1)
	assert.True(t, th.HasPending())

	th.FlushPending()
	assert.Len(t, out, 1, "interval not elapsed")

	now = now.Add(time.Second)
	th.FlushPending()
	require.Len(t, out, 2)
	assert.Equal(t, uint64(1), (<-out).SellValue)
	assert.Equal(t, uint64(3), (<-out).SellValue, "only the latest pending update survives")
	assert.False(t, th.HasPending())

	sent, dropped := th.Stats()
	assert.Equal(t, uint64(2), sent)
	assert.Equal(t, uint64(2), dropped)
}

func TestAlertManager(t *testing.T) {
	am := NewAlertManager(AlertConfig{ProfitTargetPercent: 50, LossLimitPercent: 20, Cooldown: time.Minute})
	at := time.Unix(1_700_000_000, 0)

	alerts := am.Check(PriceUpdate{Mint: testMint, Symbol: "PEPE", PnLPercent: 60, At: at})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertProfitTarget, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "PEPE")

	assert.Empty(t, am.Check(PriceUpdate{Mint: testMint, PnLPercent: 70, At: at.Add(10 * time.Second)}))
	assert.Len(t, am.Check(PriceUpdate{Mint: testMint, PnLPercent: 70, At: at.Add(2 * time.Minute)}), 1)

	loss := am.Check(PriceUpdate{Mint: testMint, PnLPercent: -25, At: at.Add(3 * time.Minute)})
	require.Len(t, loss, 1)
	assert.Equal(t, AlertLossLimit, loss[0].Type)
	assert.Empty(t, am.Check(PriceUpdate{Mint: testMint, PnLPercent: 5, At: at.Add(time.Hour)}))
}

func TestWatcher_PublishesUntilCancelled(t *testing.T) {
	valuer := funcValuer(func(context.Context, *Position) (*Valuation, error) {
		return &Valuation{SpotPrice: 28, SellValue: 45_000_000}, nil
	})
	var (
		mu     sync.Mutex
		alerts []Alert
	)
	w := NewWatcher(valuer, Position{Mint: testMint, Tokens: 1, CostLamports: 30_000_000}, WatchOptions{
		Interval: 5 * time.Millisecond,
		Alerts:   AlertConfig{ProfitTargetPercent: 40},
		OnAlert: func(a Alert) {
			mu.Lock()
			alerts = append(alerts, a)
			mu.Unlock()
		},
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	u := <-w.Updates()
	assert.Equal(t, int64(15_000_000), u.PnL)
	assert.InDelta(t, 50.0, u.PnLPercent, 1e-9)

	cancel()
	for range w.Updates() {
	}
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, alerts)
	assert.Equal(t, AlertProfitTarget, alerts[0].Type)
}

func TestWatcher_StopsOnMigration(t *testing.T) {
	valuer := funcValuer(func(context.Context, *Position) (*Valuation, error) {
		return nil, fmt.Errorf("sell: %w", pumpfun.ErrCurveComplete)
	})
	var got []Alert
	w := NewWatcher(valuer, Position{Mint: testMint}, WatchOptions{
		Interval: time.Millisecond,
		OnAlert:  func(a Alert) { got = append(got, a) },
	}, zap.NewNop())

	require.NoError(t, w.Run(context.Background()))
	require.Len(t, got, 1)
	assert.Equal(t, AlertMigrated, got[0].Type)
	_, open := <-w.Updates()
	assert.False(t, open)
}

func TestWatcher_GivesUpAfterFailures(t *testing.T) {
	boom := errors.New("rpc down")
	calls := 0
	valuer := funcValuer(func(context.Context, *Position) (*Valuation, error) {
		calls++
		return nil, boom
	})
	w := NewWatcher(valuer, Position{Mint: testMint}, WatchOptions{Interval: time.Millisecond, MaxFailures: 3}, zap.NewNop())

	err := w.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}
