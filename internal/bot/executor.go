// internal/bot/executor.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/dex"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/model"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-bundler/internal/submit"
	"github.com/rovshanmuradov/solana-bundler/internal/task"
	"github.com/rovshanmuradov/solana-bundler/internal/txbuilder"
	"github.com/rovshanmuradov/solana-bundler/internal/wallet"
)

var (
	ErrNothingToSell = errors.New("wallet holds no tokens to sell")
	ErrJitoDisabled  = errors.New("jito is not configured")
)

// Chain is the RPC surface the executor needs besides the venues.
type Chain interface {
	txbuilder.BlockhashSource
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, uint8, error)
}

// Venues resolves a protocol name to a DEX; dex.Factory satisfies it.
type Venues interface {
	GetDEXByName(name string) (dex.DEX, error)
}

// CurveFetcher loads Pump.fun curve state; pumpfun.DEX satisfies it.
type CurveFetcher interface {
	FetchState(ctx context.Context, mint solana.PublicKey) (*pumpfun.CurveState, error)
}

// Tipper builds the Jito tip transfer; jito.Bundler satisfies it.
type Tipper interface {
	TipInstruction(payer solana.PublicKey) solana.Instruction
}

// TableSource resolves address lookup tables; solbc.LookupTableCache satisfies it.
type TableSource interface {
	Tables(ctx context.Context, addrs ...solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error)
}

type ExecutorDeps struct {
	Chain   Chain
	Venues  Venues
	Curves  CurveFetcher
	Wallets *wallet.Store
	Direct  submit.Submitter
	// Bundle and Tipper are nil when Jito is not configured.
	Bundle submit.Submitter
	Tipper Tipper
	Budget txbuilder.ComputeBudget
	// Tables and LookupTable are optional.
	Tables      TableSource
	LookupTable solana.PublicKey
	Logger      *zap.Logger
}

// Executor turns one task into signed transactions and submits them.
type Executor struct {
	deps   ExecutorDeps
	logger *zap.Logger
}

func NewExecutor(deps ExecutorDeps) *Executor {
	return &Executor{deps: deps, logger: deps.Logger.Named("executor")}
}

// Outcome is the result of one task.
type Outcome struct {
	Task      *task.Task
	Venue     string
	Submitter string
	Estimates []model.Estimate
	Result    *submit.Result
	Err       error
	Elapsed   time.Duration
}

// leg is one wallet's share of a task: either instructions or a prebuilt transaction.
type leg struct {
	wallet *wallet.Wallet
	ixs    []solana.Instruction
	tx     *solana.Transaction
}

// Execute runs t to completion. The error, if any, is reported in the outcome.
func (e *Executor) Execute(ctx context.Context, t *task.Task) *Outcome {
	start := time.Now()
	out := &Outcome{Task: t}

	e.logger.Info("Executing task",
		zap.String("task", t.Name),
		zap.String("operation", string(t.Operation)),
		zap.String("protocol", t.Protocol),
		zap.String("mint", t.Mint))

	out.Err = e.execute(ctx, t, out)
	out.Elapsed = time.Since(start)
	return out
}

func (e *Executor) execute(ctx context.Context, t *task.Task, out *Outcome) error {
	wallets, err := e.deps.Wallets.Select(t.WalletNames())
	if err != nil {
		return err
	}
	submitter, bundled, err := e.submitterFor(t)
	if err != nil {
		return err
	}
	out.Submitter = submitter.Name()

	var legs []leg
	if t.Operation == task.OperationBundleBuy {
		out.Venue = "Pump.fun"
		legs, err = e.planBundleBuy(ctx, t, wallets, out)
	} else {
		legs, err = e.planLegs(ctx, t, wallets, out)
	}
	if err != nil {
		return err
	}

	txs, err := e.assemble(ctx, t, legs, bundled)
	if err != nil {
		return err
	}
	res, err := submitter.Submit(ctx, txs)
	out.Result = res
	return err
}

func (e *Executor) submitterFor(t *task.Task) (submit.Submitter, bool, error) {
	if t.Bundled() {
		if e.deps.Bundle == nil || e.deps.Tipper == nil {
			return nil, false, fmt.Errorf("task %s: %w", t.Name, ErrJitoDisabled)
		}
		return e.deps.Bundle, true, nil
	}
	return e.deps.Direct, false, nil
}

func (e *Executor) budgetFor(t *task.Task) txbuilder.ComputeBudget {
	budget := e.deps.Budget
	if t.PriorityFee != nil {
		if t.PriorityFee.ComputeUnits > 0 {
			budget.Units = t.PriorityFee.ComputeUnits
		}
		if t.PriorityFee.MicroLamports > 0 {
			budget.MicroLamports = t.PriorityFee.MicroLamports
		}
	}
	return budget
}

func (e *Executor) planLegs(ctx context.Context, t *task.Task, wallets []*wallet.Wallet, out *Outcome) ([]leg, error) {
	venue, err := e.deps.Venues.GetDEXByName(t.Protocol)
	if err != nil {
		return nil, err
	}
	out.Venue = venue.GetName()

	legs := make([]leg, 0, len(wallets))
	for _, w := range wallets {
		req, err := e.request(ctx, t, w)
		if err != nil {
			return nil, fmt.Errorf("wallet %s: %w", w.Name, err)
		}
		plan, err := venue.Plan(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("wallet %s: %w", w.Name, err)
		}
		out.Estimates = append(out.Estimates, plan.Estimate)
		legs = append(legs, leg{wallet: w, ixs: plan.Instructions, tx: plan.Transaction})
	}
	return legs, nil
}

// request translates t into a venue request for w. Sells are sized from w's current balance.
func (e *Executor) request(ctx context.Context, t *task.Task, w *wallet.Wallet) (*dex.Request, error) {
	pool, err := t.PoolKey()
	if err != nil {
		return nil, err
	}
	req := &dex.Request{
		User:                w.PublicKey,
		Pool:                pool,
		SlippageBps:         t.SlippageBps,
		PriorityFeeLamports: e.budgetFor(t).PriorityFeeLamports(),
	}

	switch t.Operation {
	case task.OperationBuy:
		if req.Mint, err = t.MintKey(); err != nil {
			return nil, err
		}
		req.Operation = dex.OperationBuy
		if req.Amount, err = dex.LamportsFromSOL(t.AmountSOL); err != nil {
			return nil, err
		}
	case task.OperationSell:
		if req.Mint, err = t.MintKey(); err != nil {
			return nil, err
		}
		req.Operation = dex.OperationSell
		ata, err := w.GetATA(req.Mint)
		if err != nil {
			return nil, err
		}
		balance, _, err := e.deps.Chain.GetTokenAccountBalance(ctx, ata)
		if err != nil {
			return nil, fmt.Errorf("failed to get token balance: %w", err)
		}
		req.Amount = dex.PercentOf(balance, t.SellPercent)
		if req.Amount == 0 {
			return nil, ErrNothingToSell
		}
		// Only an emptied account can be closed.
		req.CloseAccount = t.CloseAccount && req.Amount == balance
	case task.OperationSwap:
		if req.InputMint, req.OutputMint, err = t.SwapMints(); err != nil {
			return nil, err
		}
		req.Operation = dex.OperationSwap
		req.Amount = t.Amount
		if req.Amount == 0 {
			if req.Amount, err = dex.LamportsFromSOL(t.AmountSOL); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unsupported operation %q", t.Operation)
	}
	return req, nil
}

// planBundleBuy prices every wallet against one fetched curve. Each buy moves the
// curve, so the next wallet is quoted against the reserves the previous one leaves.
func (e *Executor) planBundleBuy(ctx context.Context, t *task.Task, wallets []*wallet.Wallet, out *Outcome) ([]leg, error) {
	if e.deps.Curves == nil {
		return nil, errors.New("bundle_buy requires the Pump.fun venue")
	}
	mint, err := t.MintKey()
	if err != nil {
		return nil, err
	}
	lamports, err := dex.LamportsFromSOL(t.AmountSOL)
	if err != nil {
		return nil, err
	}
	state, err := e.deps.Curves.FetchState(ctx, mint)
	if err != nil {
		return nil, err
	}

	legs := make([]leg, 0, len(wallets))
	for _, w := range wallets {
		ixs, q, err := pumpfun.BuildBuyFromState(state, w.PublicKey, lamports, t.SlippageBps)
		if err != nil {
			return nil, fmt.Errorf("wallet %s: %w", w.Name, err)
		}
		out.Estimates = append(out.Estimates, model.Estimate{
			InputMint:   txbuilder.WSOLMint,
			OutputMint:  mint,
			AmountIn:    q.SolIn,
			ExpectedOut: q.TokensOut,
			MinOut:      q.TokensOut,
		})
		legs = append(legs, leg{wallet: w, ixs: ixs})
		state = advanceCurve(state, q.After)
	}
	return legs, nil
}

func advanceCurve(state *pumpfun.CurveState, after pumpfun.Reserves) *pumpfun.CurveState {
	curve := *state.Curve
	curve.VirtualSolReserves = after.VirtualSol
	curve.VirtualTokenReserves = after.VirtualToken
	curve.RealTokenReserves = after.RealToken
	curve.RealSolReserves = after.RealSol
	next := *state
	next.Curve = &curve
	return &next
}

// assemble signs every leg against one blockhash. Bundles carry the tip in their
// last transaction, or in an extra transaction when the last one is prebuilt.
func (e *Executor) assemble(ctx context.Context, t *task.Task, legs []leg, bundled bool) ([]*solana.Transaction, error) {
	if len(legs) == 0 {
		return nil, errors.New("nothing to submit")
	}
	blockhash, err := e.deps.Chain.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	tables, err := e.lookupTables(ctx)
	if err != nil {
		return nil, err
	}
	budget := e.budgetFor(t)

	txs := make([]*solana.Transaction, 0, len(legs)+1)
	tipped := false
	for i, l := range legs {
		if l.tx != nil {
			if err := wallet.SignWith(l.tx, l.wallet); err != nil {
				return nil, fmt.Errorf("wallet %s: failed to sign transaction: %w", l.wallet.Name, err)
			}
			txs = append(txs, l.tx)
			continue
		}
		b := txbuilder.NewBuilder(l.wallet.PrivateKey).
			SetComputeBudget(budget).
			WithLookupTables(tables).
			AddInstructions(l.ixs...)
		if bundled && i == len(legs)-1 {
			b.AddInstructions(e.deps.Tipper.TipInstruction(l.wallet.PublicKey))
			tipped = true
		}
		tx, err := b.BuildWithBlockhash(blockhash)
		if err != nil {
			return nil, fmt.Errorf("wallet %s: %w", l.wallet.Name, err)
		}
		txs = append(txs, tx)
	}

	if bundled && !tipped {
		payer := legs[len(legs)-1].wallet
		tx, err := txbuilder.NewBuilder(payer.PrivateKey).
			SetComputeBudget(txbuilder.ComputeBudget{}).
			AddInstructions(e.deps.Tipper.TipInstruction(payer.PublicKey)).
			BuildWithBlockhash(blockhash)
		if err != nil {
			return nil, fmt.Errorf("tip transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (e *Executor) lookupTables(ctx context.Context) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	if e.deps.Tables == nil || e.deps.LookupTable.IsZero() {
		return nil, nil
	}
	return e.deps.Tables.Tables(ctx, e.deps.LookupTable)
}
