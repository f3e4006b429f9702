// internal/submit/submit.go
package submit

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/blockchain/solbc"
)

// Result is the outcome of one submission.
type Result struct {
	Signatures []solana.Signature
	BundleID   string
}

// Submitter lands signed transactions on chain.
type Submitter interface {
	Name() string
	Submit(ctx context.Context, txs []*solana.Transaction) (*Result, error)
}

// RPCSender is the part of solbc.Client used for direct submission.
type RPCSender interface {
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*solbc.SimulationResult, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	WaitForConfirmation(ctx context.Context, sig solana.Signature, timeout time.Duration) error
}

// Direct sends each transaction through RPC and waits for its confirmation.
type Direct struct {
	client   RPCSender
	analyzer *solbc.ErrorAnalyzer
	simulate bool
	timeout  time.Duration
	logger   *zap.Logger
}

// NewDirect creates a direct RPC submitter. When simulate is set every
// transaction is simulated first and a failing simulation aborts the send.
func NewDirect(client RPCSender, simulate bool, timeout time.Duration, logger *zap.Logger) *Direct {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger = logger.Named("submit.direct")
	return &Direct{
		client:   client,
		analyzer: solbc.NewErrorAnalyzer(logger),
		simulate: simulate,
		timeout:  timeout,
		logger:   logger,
	}
}

func (d *Direct) Name() string { return "rpc" }

// Submit sends txs one after another; they are independent, so a failure stops the rest.
func (d *Direct) Submit(ctx context.Context, txs []*solana.Transaction) (*Result, error) {
	res := &Result{}
	for i, tx := range txs {
		if d.simulate {
			sim, err := d.client.SimulateTransaction(ctx, tx)
			if err != nil {
				return res, fmt.Errorf("simulate transaction %d: %w", i, err)
			}
			if err := d.analyzer.AnalyzeSimulation(sim); err != nil {
				return res, fmt.Errorf("simulate transaction %d: %w", i, err)
			}
			d.logger.Debug("Simulation passed", zap.Uint64("units", sim.UnitsConsumed))
		}

		sig, err := d.client.SendTransaction(ctx, tx)
		if err != nil {
			return res, fmt.Errorf("send transaction %d: %w", i, d.analyzer.Analyze(err))
		}
		res.Signatures = append(res.Signatures, sig)
		d.logger.Info("Transaction sent", zap.String("signature", sig.String()))

		if err := d.client.WaitForConfirmation(ctx, sig, d.timeout); err != nil {
			return res, fmt.Errorf("confirm %s: %w", sig, err)
		}
		d.logger.Info("Transaction confirmed", zap.String("signature", sig.String()))
	}
	return res, nil
}

// BundleSender is the part of jito.Bundler used here.
type BundleSender interface {
	SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error)
	WaitForLanding(ctx context.Context, txs []*solana.Transaction) error
}

// Bundle submits all transactions atomically through the Jito block engine.
// The caller is responsible for including a tip instruction.
type Bundle struct {
	sender BundleSender
	logger *zap.Logger
}

// NewBundle creates a new Bundle submitter.
func NewBundle(sender BundleSender, logger *zap.Logger) *Bundle {
	return &Bundle{sender: sender, logger: logger.Named("submit.bundle")}
}

func (b *Bundle) Name() string { return "jito" }

func (b *Bundle) Submit(ctx context.Context, txs []*solana.Transaction) (*Result, error) {
	id, err := b.sender.SendBundle(ctx, txs)
	if err != nil {
		return nil, err
	}
	res := &Result{BundleID: id}
	for _, tx := range txs {
		res.Signatures = append(res.Signatures, tx.Signatures[0])
	}
	if err := b.sender.WaitForLanding(ctx, txs); err != nil {
		return res, fmt.Errorf("bundle %s: %w", id, err)
	}
	return res, nil
}
