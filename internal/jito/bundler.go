// internal/jito/bundler.go
package jito

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	jitorpc "github.com/jito-labs/jito-go-rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/txbuilder"
)

// MaxBundleSize is the block engine's limit on transactions per bundle.
const MaxBundleSize = 5

var (
	ErrEmptyBundle     = errors.New("bundle has no transactions")
	ErrBundleTooLarge  = fmt.Errorf("bundle exceeds %d transactions", MaxBundleSize)
	ErrBundleFailed    = errors.New("bundle transaction failed")
	ErrBundleNotLanded = errors.New("bundle did not land")
	errPending         = errors.New("bundle pending")
)

// DefaultTipAccounts are the mainnet tip accounts, used when the relay cannot list them.
var DefaultTipAccounts = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
	solana.MustPublicKeyFromBase58("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	solana.MustPublicKeyFromBase58("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	solana.MustPublicKeyFromBase58("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	solana.MustPublicKeyFromBase58("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	solana.MustPublicKeyFromBase58("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
}

// Relay is the block engine JSON-RPC surface used for bundles.
type Relay interface {
	GetTipAccounts() (json.RawMessage, error)
	SendBundle(bundles [][]string) (json.RawMessage, error)
}

// NewRelay connects to a block engine. uuid may be empty for unauthenticated access.
// The client always declares base64 transaction encoding, which EncodeBundle produces.
func NewRelay(blockEngineURL, uuid string) Relay {
	return jitorpc.NewJitoJsonRpcClient(blockEngineURL, uuid)
}

// StatusReader reports signature statuses; solbc.Client satisfies it.
type StatusReader interface {
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Options tunes a Bundler.
type Options struct {
	TipLamports    uint64
	SendRetries    uint
	PollInterval   time.Duration
	LandingTimeout time.Duration
}

// DefaultOptions returns conservative defaults.
func DefaultOptions() Options {
	return Options{
		TipLamports:    100_000,
		SendRetries:    3,
		PollInterval:   time.Second,
		LandingTimeout: 30 * time.Second,
	}
}

// Bundler submits signed transactions as Jito bundles.
type Bundler struct {
	relay    Relay
	statuses StatusReader
	opts     Options
	logger   *zap.Logger

	mu          sync.Mutex
	tipAccounts []solana.PublicKey
	rnd         *rand.Rand
}

// NewBundler creates a new Bundler.
func NewBundler(relay Relay, statuses StatusReader, opts Options, logger *zap.Logger) *Bundler {
	def := DefaultOptions()
	if opts.SendRetries == 0 {
		opts.SendRetries = def.SendRetries
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.LandingTimeout <= 0 {
		opts.LandingTimeout = def.LandingTimeout
	}
	return &Bundler{
		relay:    relay,
		statuses: statuses,
		opts:     opts,
		logger:   logger.Named("jito"),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// TipLamports is the configured tip per bundle.
func (b *Bundler) TipLamports() uint64 { return b.opts.TipLamports }

// TipAccounts returns the relay's tip accounts, fetched once.
func (b *Bundler) TipAccounts() []solana.PublicKey {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tipAccounts != nil {
		return b.tipAccounts
	}

	accounts, err := b.fetchTipAccounts()
	if err != nil {
		b.logger.Warn("Falling back to default tip accounts", zap.Error(err))
		accounts = DefaultTipAccounts
	}
	b.tipAccounts = accounts
	return accounts
}

func (b *Bundler) fetchTipAccounts() ([]solana.PublicKey, error) {
	raw, err := b.relay.GetTipAccounts()
	if err != nil {
		return nil, fmt.Errorf("getTipAccounts: %w", err)
	}
	var addrs []string
	if err := json.Unmarshal(raw, &addrs); err != nil {
		return nil, fmt.Errorf("failed to decode tip accounts: %w", err)
	}
	if len(addrs) == 0 {
		return nil, errors.New("relay returned no tip accounts")
	}
	out := make([]solana.PublicKey, 0, len(addrs))
	for _, a := range addrs {
		pk, err := solana.PublicKeyFromBase58(a)
		if err != nil {
			return nil, fmt.Errorf("invalid tip account %q: %w", a, err)
		}
		out = append(out, pk)
	}
	return out, nil
}

// TipInstruction transfers the configured tip from payer to a random tip account.
func (b *Bundler) TipInstruction(payer solana.PublicKey) solana.Instruction {
	accounts := b.TipAccounts()
	b.mu.Lock()
	account := accounts[b.rnd.Intn(len(accounts))]
	b.mu.Unlock()
	return txbuilder.TransferInstruction(payer, account, b.opts.TipLamports)
}

// EncodeBundle validates the bundle size and base64-encodes each transaction.
func EncodeBundle(txs []*solana.Transaction) ([]string, error) {
	switch {
	case len(txs) == 0:
		return nil, ErrEmptyBundle
	case len(txs) > MaxBundleSize:
		return nil, fmt.Errorf("%w: got %d", ErrBundleTooLarge, len(txs))
	}
	encoded := make([]string, 0, len(txs))
	for i, tx := range txs {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("failed to serialize transaction %d: %w", i, err)
		}
		encoded = append(encoded, base64.StdEncoding.EncodeToString(raw))
	}
	return encoded, nil
}

// SendBundle submits txs in order and returns the bundle id.
func (b *Bundler) SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	encoded, err := EncodeBundle(txs)
	if err != nil {
		return "", err
	}

	bundleID, err := backoff.Retry(ctx, func() (string, error) {
		raw, err := b.relay.SendBundle([][]string{encoded})
		if err != nil {
			return "", err
		}
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", backoff.Permanent(fmt.Errorf("unexpected sendBundle result %s: %w", string(raw), err))
		}
		return id, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(b.opts.SendRetries),
		backoff.WithNotify(func(err error, d time.Duration) {
			b.logger.Debug("Retrying sendBundle", zap.Error(err), zap.Duration("backoff", d))
		}),
	)
	if err != nil {
		return "", fmt.Errorf("sendBundle: %w", err)
	}

	b.logger.Info("Bundle sent",
		zap.String("bundle_id", bundleID),
		zap.Int("transactions", len(txs)),
		zap.String("first_signature", txs[0].Signatures[0].String()))
	return bundleID, nil
}

// WaitForLanding polls the statuses of every transaction of the bundle until all are
// confirmed, one fails, or the landing timeout passes.
func (b *Bundler) WaitForLanding(ctx context.Context, txs []*solana.Transaction) error {
	sigs := make([]solana.Signature, 0, len(txs))
	for _, tx := range txs {
		if len(tx.Signatures) == 0 {
			return fmt.Errorf("transaction is not signed")
		}
		sigs = append(sigs, tx.Signatures[0])
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		res, err := b.statuses.GetSignatureStatuses(ctx, sigs...)
		if err != nil {
			return struct{}{}, err
		}
		if res == nil || len(res.Value) != len(sigs) {
			return struct{}{}, errPending
		}
		for i, st := range res.Value {
			if st == nil {
				return struct{}{}, errPending
			}
			if st.Err != nil {
				return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %s: %v", ErrBundleFailed, sigs[i], st.Err))
			}
			if st.ConfirmationStatus != rpc.ConfirmationStatusConfirmed &&
				st.ConfirmationStatus != rpc.ConfirmationStatusFinalized {
				return struct{}{}, errPending
			}
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(b.opts.PollInterval)),
		backoff.WithMaxElapsedTime(b.opts.LandingTimeout),
	)

	switch {
	case err == nil:
		b.logger.Info("Bundle landed", zap.String("first_signature", sigs[0].String()))
		return nil
	case errors.Is(err, ErrBundleFailed):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w after %s: %v", ErrBundleNotLanded, b.opts.LandingTimeout, err)
	}
}
