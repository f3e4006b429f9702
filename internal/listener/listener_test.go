package listener

import (
	"context"
	"encoding/base64"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-bundler/internal/layout"
)

type fakeStream struct {
	msgs chan *ws.LogResult
}

func (s *fakeStream) Recv(ctx context.Context) (*ws.LogResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-s.msgs:
		if !ok {
			return nil, errors.New("connection reset")
		}
		return msg, nil
	}
}

func (s *fakeStream) Unsubscribe() {}

type fakeConn struct {
	stream  *fakeStream
	program solana.PublicKey
}

func (c *fakeConn) LogsSubscribeMentions(mentions solana.PublicKey, _ rpc.CommitmentType) (Stream, error) {
	c.program = mentions
	return c.stream, nil
}

func (c *fakeConn) Close() {}

// dialer hands out one stream per dial.
type dialer struct {
	streams []*fakeStream
	dials   atomic.Int32
}

func (d *dialer) dial(context.Context, string) (Conn, error) {
	n := int(d.dials.Add(1)) - 1
	if n >= len(d.streams) {
		// hang until the test cancels
		return &fakeConn{stream: &fakeStream{msgs: make(chan *ws.LogResult)}}, nil
	}
	return &fakeConn{stream: d.streams[n]}, nil
}

func createLog(t *testing.T, mint solana.PublicKey, symbol string) []string {
	t.Helper()
	body, err := bin.MarshalBorsh(&pumpfun.CreateEvent{
		Name:   symbol + " token",
		Symbol: symbol,
		URI:    "ipfs://" + symbol,
		Mint:   mint,
	})
	require.NoError(t, err)
	data := append(layout.EventDiscriminator("CreateEvent").Bytes(), body...)
	return []string{"Program log: Instruction: Create", "Program data: " + base64.StdEncoding.EncodeToString(data)}
}

func logResult(sig solana.Signature, slot uint64, logs []string) *ws.LogResult {
	res := &ws.LogResult{}
	res.Context.Slot = slot
	res.Value.Signature = sig
	res.Value.Logs = logs
	return res
}

func testOptions() Options {
	return Options{InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func collect(n int) (Handler, <-chan *Event) {
	out := make(chan *Event, n)
	return func(_ context.Context, ev *Event) { out <- ev }, out
}

func TestListener_DispatchesCreateEvents(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	sig := solana.Signature{1}

	stream := &fakeStream{msgs: make(chan *ws.LogResult, 8)}
	stream.msgs <- logResult(solana.Signature{2}, 10, []string{"Program log: Instruction: Buy"})
	failed := logResult(solana.Signature{3}, 11, createLog(t, solana.NewWallet().PublicKey(), "BAD"))
	failed.Value.Err = map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	stream.msgs <- failed
	stream.msgs <- logResult(sig, 12, createLog(t, mint, "NEW"))
	stream.msgs <- logResult(sig, 12, createLog(t, mint, "NEW"))

	d := &dialer{streams: []*fakeStream{stream}}
	l, err := New("wss://example.com", d.dial, testOptions(), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	handler, events := collect(4)
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, handler) }()

	select {
	case ev := <-events:
		assert.Equal(t, mint, ev.Create.Mint)
		assert.Equal(t, "NEW", ev.Create.Symbol)
		assert.Equal(t, sig, ev.Signature)
		assert.Equal(t, uint64(12), ev.Slot)
	case <-time.After(2 * time.Second):
		t.Fatal("no event dispatched")
	}

	// give the duplicate time to be seen before stopping
	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, events, "duplicate and failed transactions are dropped")
}

func TestListener_Reconnects(t *testing.T) {
	first := &fakeStream{msgs: make(chan *ws.LogResult)}
	close(first.msgs)
	second := &fakeStream{msgs: make(chan *ws.LogResult, 1)}
	mint := solana.NewWallet().PublicKey()
	second.msgs <- logResult(solana.Signature{7}, 1, createLog(t, mint, "RC"))

	d := &dialer{streams: []*fakeStream{first, second}}
	l, err := New("wss://example.com", d.dial, testOptions(), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler, events := collect(1)
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, handler) }()

	select {
	case ev := <-events:
		assert.Equal(t, mint, ev.Create.Mint)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not reconnect")
	}
	assert.GreaterOrEqual(t, d.dials.Load(), int32(2))

	cancel()
	require.NoError(t, <-done)
}

func TestListener_DialErrorsBackOff(t *testing.T) {
	var dials atomic.Int32
	dial := func(context.Context, string) (Conn, error) {
		dials.Add(1)
		return nil, errors.New("refused")
	}
	l, err := New("wss://example.com", dial, testOptions(), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, l.Run(ctx, func(context.Context, *Event) {}))
	assert.Greater(t, dials.Load(), int32(1))
}

func TestNew_Defaults(t *testing.T) {
	_, err := New("", nil, Options{}, zap.NewNop())
	assert.Error(t, err)

	l, err := New("wss://example.com", nil, Options{}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, pumpfun.PumpFunProgramID, l.opts.Program)
	assert.Equal(t, rpc.CommitmentProcessed, l.opts.Commitment)
	assert.Equal(t, "rpc-logs", l.source)
}
