package bot

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/config"
	"github.com/rovshanmuradov/solana-bundler/internal/dex"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-bundler/internal/logger"
	"github.com/rovshanmuradov/solana-bundler/internal/submit"
	"github.com/rovshanmuradov/solana-bundler/internal/task"
	"github.com/rovshanmuradov/solana-bundler/internal/txbuilder"
	"github.com/rovshanmuradov/solana-bundler/internal/wallet"
)

var (
	testMint   = solana.MustPublicKeyFromBase58("4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R")
	tipAccount = solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5")
	testHash   = solana.Hash{7}
)

type fakeChain struct {
	mu       sync.Mutex
	balances map[solana.PublicKey]uint64
}

func (c *fakeChain) GetRecentBlockhash(context.Context) (solana.Hash, error) { return testHash, nil }

func (c *fakeChain) GetTokenAccountBalance(_ context.Context, account solana.PublicKey) (uint64, uint8, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[account], 6, nil
}

// fakeVenue plans a 1-lamport transfer per request, or hands back a prebuilt transaction.
type fakeVenue struct {
	mu       sync.Mutex
	prebuilt bool
	err      error
	requests []*dex.Request
}

func (v *fakeVenue) GetName() string { return "Fake" }

func (v *fakeVenue) Plan(_ context.Context, req *dex.Request) (*dex.Plan, error) {
	v.mu.Lock()
	v.requests = append(v.requests, req)
	v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	ix := system.NewTransferInstruction(1, req.User, solana.NewWallet().PublicKey()).Build()
	if !v.prebuilt {
		return &dex.Plan{Instructions: []solana.Instruction{ix}}, nil
	}
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{3}, solana.TransactionPayer(req.User))
	if err != nil {
		return nil, err
	}
	tx.Signatures = make([]solana.Signature, 1)
	return &dex.Plan{Transaction: tx}, nil
}

type fakeVenues map[string]dex.DEX

func (f fakeVenues) GetDEXByName(name string) (dex.DEX, error) {
	d, ok := f[name]
	if !ok {
		return nil, errors.New("unknown venue")
	}
	return d, nil
}

type fakeCurves struct{ state *pumpfun.CurveState }

func (f fakeCurves) FetchState(context.Context, solana.PublicKey) (*pumpfun.CurveState, error) {
	return f.state, nil
}

type fakeTipper struct{}

func (fakeTipper) TipInstruction(payer solana.PublicKey) solana.Instruction {
	return system.NewTransferInstruction(10_000, payer, tipAccount).Build()
}

type recordingSubmitter struct {
	name string
	mu   sync.Mutex
	txs  [][]*solana.Transaction
}

func (s *recordingSubmitter) Name() string { return s.name }

func (s *recordingSubmitter) Submit(_ context.Context, txs []*solana.Transaction) (*submit.Result, error) {
	s.mu.Lock()
	s.txs = append(s.txs, txs)
	s.mu.Unlock()
	res := &submit.Result{}
	for _, tx := range txs {
		res.Signatures = append(res.Signatures, tx.Signatures[0])
	}
	if s.name == "jito" {
		res.BundleID = "bundle-1"
	}
	return res, nil
}

func newTestWallets(t *testing.T, names ...string) *wallet.Store {
	t.Helper()
	store := &wallet.Store{}
	for _, n := range names {
		w, err := wallet.NewWallet(solana.NewWallet().PrivateKey.String())
		require.NoError(t, err)
		w.Name = n
		require.NoError(t, store.Add(w))
	}
	return store
}

func testCurveState(t *testing.T) *pumpfun.CurveState {
	t.Helper()
	accounts, err := pumpfun.DeriveAccounts(pumpfun.GetDefaultConfig(), testMint, solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	require.NoError(t, err)
	return &pumpfun.CurveState{
		Global: &pumpfun.GlobalAccount{Initialized: true, FeeBasisPoints: 100},
		Curve: &pumpfun.BondingCurve{
			VirtualTokenReserves: 1_073_000_000_000_000,
			VirtualSolReserves:   30_000_000_000,
			RealTokenReserves:    793_100_000_000_000,
			TokenTotalSupply:     1_000_000_000_000_000,
		},
		Accounts: accounts,
	}
}

type harness struct {
	chain  *fakeChain
	venue  *fakeVenue
	direct *recordingSubmitter
	bundle *recordingSubmitter
	store  *wallet.Store
	exec   *Executor
}

func newHarness(t *testing.T, withJito bool, names ...string) *harness {
	h := &harness{
		chain:  &fakeChain{balances: map[solana.PublicKey]uint64{}},
		venue:  &fakeVenue{},
		direct: &recordingSubmitter{name: "rpc"},
		bundle: &recordingSubmitter{name: "jito"},
		store:  newTestWallets(t, names...),
	}
	deps := ExecutorDeps{
		Chain:   h.chain,
		Venues:  fakeVenues{"fake": h.venue},
		Curves:  fakeCurves{state: testCurveState(t)},
		Wallets: h.store,
		Direct:  h.direct,
		Budget:  txbuilder.ComputeBudget{Units: 200_000, MicroLamports: 1_000},
		Logger:  zap.NewNop(),
	}
	if withJito {
		deps.Bundle = h.bundle
		deps.Tipper = fakeTipper{}
	}
	h.exec = NewExecutor(deps)
	return h
}

func hasAccount(tx *solana.Transaction, key solana.PublicKey) bool {
	for _, k := range tx.Message.AccountKeys {
		if k.Equals(key) {
			return true
		}
	}
	return false
}

func TestExecutor_BuyDirect(t *testing.T) {
	h := newHarness(t, false, "main")
	out := h.exec.Execute(context.Background(), &task.Task{
		Name: "buy", Protocol: "fake", Operation: task.OperationBuy, Wallet: "main",
		Mint: testMint.String(), AmountSOL: 0.05, SlippageBps: 250,
	})
	require.NoError(t, out.Err)
	assert.Equal(t, "Fake", out.Venue)
	assert.Equal(t, "rpc", out.Submitter)

	require.Len(t, h.venue.requests, 1)
	req := h.venue.requests[0]
	assert.Equal(t, dex.OperationBuy, req.Operation)
	assert.Equal(t, uint64(50_000_000), req.Amount)
	assert.Equal(t, uint64(250), req.SlippageBps)
	assert.Equal(t, uint64(200), req.PriorityFeeLamports)

	require.Len(t, h.direct.txs, 1)
	tx := h.direct.txs[0][0]
	assert.Len(t, tx.Message.Instructions, 3, "unit limit, unit price, transfer")
	assert.Equal(t, testHash, tx.Message.RecentBlockhash)
	assert.NoError(t, tx.VerifySignatures())
}

func TestExecutor_SellSizedFromBalance(t *testing.T) {
	h := newHarness(t, false, "main")
	w, err := h.store.Get("main")
	require.NoError(t, err)
	ata, err := w.GetATA(testMint)
	require.NoError(t, err)
	h.chain.balances[ata] = 1_000

	sell := &task.Task{
		Name: "sell", Protocol: "fake", Operation: task.OperationSell, Wallet: "main",
		Mint: testMint.String(), SellPercent: 50, CloseAccount: true,
	}
	require.NoError(t, h.exec.Execute(context.Background(), sell).Err)
	assert.Equal(t, uint64(500), h.venue.requests[0].Amount)
	assert.False(t, h.venue.requests[0].CloseAccount, "partial sells keep the account")

	sell.SellPercent = 100
	require.NoError(t, h.exec.Execute(context.Background(), sell).Err)
	assert.Equal(t, uint64(1_000), h.venue.requests[1].Amount)
	assert.True(t, h.venue.requests[1].CloseAccount)
}

func TestExecutor_SellEmptyWallet(t *testing.T) {
	h := newHarness(t, false, "main")
	out := h.exec.Execute(context.Background(), &task.Task{
		Name: "sell", Protocol: "fake", Operation: task.OperationSell, Wallet: "main",
		Mint: testMint.String(), SellPercent: 100,
	})
	assert.ErrorIs(t, out.Err, ErrNothingToSell)
	assert.Empty(t, h.direct.txs)
}

func TestExecutor_JitoNotConfigured(t *testing.T) {
	h := newHarness(t, false, "main")
	out := h.exec.Execute(context.Background(), &task.Task{
		Name: "buy", Protocol: "fake", Operation: task.OperationBuy, Wallet: "main",
		Mint: testMint.String(), AmountSOL: 0.1, UseJito: true,
	})
	assert.ErrorIs(t, out.Err, ErrJitoDisabled)
}

func TestExecutor_VenueErrorPropagates(t *testing.T) {
	h := newHarness(t, false, "main")
	h.venue.err = pumpfun.ErrCurveComplete
	out := h.exec.Execute(context.Background(), &task.Task{
		Name: "buy", Protocol: "fake", Operation: task.OperationBuy, Wallet: "main",
		Mint: testMint.String(), AmountSOL: 0.1,
	})
	assert.ErrorIs(t, out.Err, pumpfun.ErrCurveComplete)
}

func TestExecutor_BundleBuy(t *testing.T) {
	h := newHarness(t, true, "a", "b", "c")
	out := h.exec.Execute(context.Background(), &task.Task{
		Name: "bundle", Protocol: "pumpfun", Operation: task.OperationBundleBuy,
		Wallets: []string{"a", "b", "c"}, Mint: testMint.String(), AmountSOL: 1, SlippageBps: 500,
		PriorityFee: &task.PriorityFee{MicroLamports: 50_000},
	})
	require.NoError(t, out.Err)
	assert.Equal(t, "jito", out.Submitter)
	assert.Equal(t, "bundle-1", out.Result.BundleID)

	require.Len(t, h.bundle.txs, 1)
	txs := h.bundle.txs[0]
	require.Len(t, txs, 3)
	for i, tx := range txs {
		assert.Equal(t, testHash, tx.Message.RecentBlockhash)
		assert.NoError(t, tx.VerifySignatures())
		assert.Equal(t, i == 2, hasAccount(tx, tipAccount), "only the last transaction tips")
	}

	require.Len(t, out.Estimates, 3)
	assert.Greater(t, out.Estimates[0].ExpectedOut, out.Estimates[1].ExpectedOut)
	assert.Greater(t, out.Estimates[1].ExpectedOut, out.Estimates[2].ExpectedOut)
	assert.Empty(t, h.direct.txs)
}

func TestExecutor_PrebuiltTransactionGetsTipTransaction(t *testing.T) {
	h := newHarness(t, true, "main")
	h.venue.prebuilt = true
	out := h.exec.Execute(context.Background(), &task.Task{
		Name: "swap", Protocol: "fake", Operation: task.OperationSwap, Wallet: "main",
		InputMint: txbuilder.WSOLMint.String(), OutputMint: testMint.String(), Amount: 1_000, UseJito: true,
	})
	require.NoError(t, out.Err)

	require.Len(t, h.bundle.txs, 1)
	txs := h.bundle.txs[0]
	require.Len(t, txs, 2)
	require.Len(t, txs[0].Signatures, 1)
	assert.NoError(t, txs[0].VerifySignatures())
	assert.False(t, hasAccount(txs[0], tipAccount))
	assert.True(t, hasAccount(txs[1], tipAccount))
	assert.Len(t, txs[1].Message.Instructions, 1, "tip transaction carries no compute budget")
}

func TestAdvanceCurve_DoesNotMutateInput(t *testing.T) {
	state := testCurveState(t)
	before := *state.Curve
	next := advanceCurve(state, pumpfun.Reserves{VirtualSol: 1, VirtualToken: 2, RealToken: 3, RealSol: 4})
	assert.Equal(t, before, *state.Curve)
	assert.Equal(t, uint64(1), next.Curve.VirtualSolReserves)
	assert.Equal(t, uint64(4), next.Curve.RealSolReserves)
	assert.Same(t, state.Global, next.Global)
}

func TestRunner_RunTasksWritesResults(t *testing.T) {
	h := newHarness(t, false, "main")
	path := filepath.Join(t.TempDir(), "results.csv")
	journal, err := logger.NewSafeCSVWriter(path, resultsHeader)
	require.NoError(t, err)

	r := &Runner{
		cfg:      &config.Config{Workers: 2},
		log:      zap.NewNop(),
		runID:    "run-1",
		executor: h.exec,
		journal:  journal,
		shutdown: NewShutdownHandler(zap.NewNop()),
	}
	r.shutdown.Add("results", journal)

	tasks := []*task.Task{
		{Name: "ok-1", Protocol: "fake", Operation: task.OperationBuy, Wallet: "main", Mint: testMint.String(), AmountSOL: 0.01},
		{Name: "ok-2", Protocol: "fake", Operation: task.OperationBuy, Wallet: "main", Mint: testMint.String(), AmountSOL: 0.02},
		{Name: "missing-wallet", Protocol: "fake", Operation: task.OperationBuy, Wallet: "ghost", Mint: testMint.String(), AmountSOL: 0.02},
	}
	err = r.RunTasks(context.Background(), tasks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 tasks failed")
	require.NoError(t, r.Close(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	statuses := map[string]string{}
	assert.Equal(t, resultsHeader, rows[0])
	for _, row := range rows[1:] {
		statuses[row[1]] = row[5]
		assert.Equal(t, "run-1", row[len(row)-1])
	}
	assert.Equal(t, map[string]string{"ok-1": "ok", "ok-2": "ok", "missing-wallet": "failed"}, statuses)
	assert.Len(t, r.Outcomes(), 3)
}
