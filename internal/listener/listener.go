// internal/listener/listener.go
package listener

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
)

// Event is a new Pump.fun token.
type Event struct {
	Signature solana.Signature
	// Slot is zero when the source does not report it.
	Slot       uint64
	Create     *pumpfun.CreateEvent
	ReceivedAt time.Time
}

// Handler is called once per event, each call in its own goroutine.
type Handler func(ctx context.Context, ev *Event)

// Feed is one live connection to an event source.
type Feed interface {
	// Next blocks for the next message. It returns a nil event for messages that are not token launches.
	Next(ctx context.Context) (*Event, error)
	Close()
}

// Connector opens a new Feed. The listener calls it again after every failure.
type Connector func(ctx context.Context) (Feed, error)

type Options struct {
	Program        solana.PublicKey
	Commitment     rpc.CommitmentType
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// DedupTTL is how long a signature is remembered, so replays after a reconnect are dropped.
	DedupTTL time.Duration
}

func DefaultOptions() Options {
	return Options{
		Program:        pumpfun.PumpFunProgramID,
		Commitment:     rpc.CommitmentProcessed,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		DedupTTL:       2 * time.Minute,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Program.IsZero() {
		o.Program = def.Program
	}
	if o.Commitment == "" {
		o.Commitment = def.Commitment
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = def.InitialBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = def.MaxBackoff
	}
	if o.DedupTTL <= 0 {
		o.DedupTTL = def.DedupTTL
	}
	return o
}

// Listener streams token launches and reconnects when the feed drops.
type Listener struct {
	source  string
	connect Connector
	opts    Options
	seen    *expirable.LRU[solana.Signature, struct{}]
	logger  *zap.Logger

	inflight sync.WaitGroup
}

// New listens to Pump.fun program logs over the RPC websocket at url.
// A nil dial uses DialWS.
func New(url string, dial DialFunc, opts Options, logger *zap.Logger) (*Listener, error) {
	if url == "" {
		return nil, errors.New("websocket url is required")
	}
	if dial == nil {
		dial = DialWS
	}
	opts = opts.withDefaults()
	return NewWithConnector("rpc-logs", LogsConnector(url, dial, opts.Program, opts.Commitment), opts, logger), nil
}

// NewWithConnector listens to any feed; source names it in logs.
func NewWithConnector(source string, connect Connector, opts Options, logger *zap.Logger) *Listener {
	opts = opts.withDefaults()
	return &Listener{
		source:  source,
		connect: connect,
		opts:    opts,
		seen:    expirable.NewLRU[solana.Signature, struct{}](4096, nil, opts.DedupTTL),
		logger:  logger.Named("listener"),
	}
}

// Run blocks until ctx is done, then waits for running handlers to return.
func (l *Listener) Run(ctx context.Context, handler Handler) error {
	defer l.inflight.Wait()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.opts.InitialBackoff
	bo.MaxInterval = l.opts.MaxBackoff

	for {
		received, err := l.listenOnce(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		if received {
			bo.Reset()
		}
		wait := bo.NextBackOff()
		l.logger.Warn("Subscription lost, reconnecting",
			zap.String("source", l.source),
			zap.Error(err),
			zap.Duration("backoff", wait))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// listenOnce runs one feed until it fails. It reports whether any message arrived.
func (l *Listener) listenOnce(ctx context.Context, handler Handler) (bool, error) {
	feed, err := l.connect(ctx)
	if err != nil {
		return false, err
	}
	defer feed.Close()
	l.logger.Info("Listening for new tokens", zap.String("source", l.source))

	received := false
	for {
		ev, err := feed.Next(ctx)
		if err != nil {
			return received, err
		}
		received = true
		if ev != nil {
			l.dispatch(ctx, ev, handler)
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, ev *Event, handler Handler) {
	if l.seen.Contains(ev.Signature) {
		return
	}
	l.seen.Add(ev.Signature, struct{}{})
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}
	l.logger.Debug("Create event",
		zap.String("mint", ev.Create.Mint.String()),
		zap.String("signature", ev.Signature.String()))

	l.inflight.Add(1)
	go func() {
		defer l.inflight.Done()
		handler(ctx, ev)
	}()
}
