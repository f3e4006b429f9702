// internal/bot/runner.go
package bot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-bundler/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-bundler/internal/config"
	"github.com/rovshanmuradov/solana-bundler/internal/dex"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/jupiter"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-bundler/internal/jito"
	"github.com/rovshanmuradov/solana-bundler/internal/logger"
	"github.com/rovshanmuradov/solana-bundler/internal/submit"
	"github.com/rovshanmuradov/solana-bundler/internal/task"
	"github.com/rovshanmuradov/solana-bundler/internal/txbuilder"
	"github.com/rovshanmuradov/solana-bundler/internal/wallet"
)

var resultsHeader = []string{"time", "task", "operation", "venue", "submitter", "status", "bundle_id", "signatures", "amount_in", "expected_out", "elapsed_ms", "error", "run_id"}

// Runner executes a task file with a bounded pool of workers.
type Runner struct {
	cfg      *config.Config
	log      *zap.Logger
	runID    string
	tasks    *task.Manager
	executor *Executor
	journal  *logger.SafeCSVWriter
	shutdown *ShutdownHandler

	mu       sync.Mutex
	outcomes []*Outcome
}

// Services are the long-lived components built from configuration.
type Services struct {
	Client  *solbc.Client
	Factory *dex.Factory
	Wallets *wallet.Store
	Bundler *jito.Bundler
}

// NewClient connects to the configured RPC endpoints.
func NewClient(cfg *config.Config, log *zap.Logger) (*solbc.Client, error) {
	client, err := solbc.NewClient(cfg.RPCList, solbc.Options{
		RateLimit:     cfg.RPCRateLimit,
		Burst:         5,
		MaxRetries:    uint(cfg.Retries) + 1,
		RetryInterval: 200 * time.Millisecond,
		Commitment:    cfg.CommitmentType(),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}
	return client, nil
}

// NewFactory builds the venue factory over client.
func NewFactory(cfg *config.Config, client *solbc.Client, log *zap.Logger) (*dex.Factory, error) {
	daosProgram, err := cfg.DaosFunProgram()
	if err != nil {
		return nil, err
	}
	jup := jupiter.NewClient(jupiter.Options{
		BaseURL:    cfg.Jupiter.BaseURL,
		Timeout:    10 * time.Second,
		RateLimit:  cfg.Jupiter.RateLimit,
		MaxRetries: uint(cfg.Retries),
	}, log)
	return dex.NewFactory(dex.Deps{
		Client:         client,
		Jupiter:        jup,
		PumpFun:        pumpfun.GetDefaultConfig(),
		DaosFunProgram: daosProgram,
		PoolCacheTTL:   cfg.PoolCacheTTL(),
		Logger:         log,
	})
}

// NewServices connects to RPC and builds the venues, wallets and, when configured, the Jito bundler.
func NewServices(cfg *config.Config, log *zap.Logger) (*Services, error) {
	client, err := NewClient(cfg, log)
	if err != nil {
		return nil, err
	}
	factory, err := NewFactory(cfg, client, log)
	if err != nil {
		return nil, err
	}

	wallets, err := wallet.LoadWallets(cfg.WalletsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}

	svc := &Services{Client: client, Factory: factory, Wallets: wallets}
	if cfg.Jito.BlockEngineURL != "" {
		svc.Bundler = jito.NewBundler(
			jito.NewRelay(cfg.Jito.BlockEngineURL, cfg.Jito.UUID),
			client,
			jito.Options{TipLamports: cfg.Jito.TipLamports, LandingTimeout: cfg.LandingTimeout()},
			log,
		)
	}
	return svc, nil
}

// NewRunner wires an executor over svc.
func NewRunner(cfg *config.Config, svc *Services, log *zap.Logger) (*Runner, error) {
	curves, err := svc.Factory.PumpFun()
	if err != nil {
		return nil, err
	}
	lut, err := cfg.LookupTableAddress()
	if err != nil {
		return nil, err
	}

	deps := ExecutorDeps{
		Chain:   svc.Client,
		Venues:  svc.Factory,
		Curves:  curves,
		Wallets: svc.Wallets,
		Direct:  submit.NewDirect(svc.Client, cfg.Simulate, cfg.ConfirmTimeout(), log),
		Budget: txbuilder.ComputeBudget{
			Units:         cfg.PriorityFee.ComputeUnits,
			MicroLamports: cfg.PriorityFee.MicroLamports,
		},
		Tables:      solbc.NewLookupTableCache(svc.Client, 10*time.Minute, log),
		LookupTable: lut,
		Logger:      log,
	}
	if svc.Bundler != nil {
		deps.Bundle = submit.NewBundle(svc.Bundler, log)
		deps.Tipper = svc.Bundler
	}

	tasks := task.NewManager(log, cfg.SlippageBps)
	tasks.SetProtocolSlippage(string(dex.ProtocolJupiter), cfg.Jupiter.SlippageBps)

	runID := uuid.New().String()
	r := &Runner{
		cfg:      cfg,
		log:      log.Named("runner").With(zap.String("run_id", runID)),
		runID:    runID,
		tasks:    tasks,
		executor: NewExecutor(deps),
		shutdown: NewShutdownHandler(log),
	}
	if cfg.ResultsFile != "" {
		journal, err := logger.NewSafeCSVWriter(cfg.ResultsFile, resultsHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to open results file: %w", err)
		}
		r.journal = journal
		r.shutdown.Add("results", journal)
	}
	return r, nil
}

// Run loads the tasks file and executes every task. A failing task does not stop
// the others; the returned error summarises how many failed.
func (r *Runner) Run(ctx context.Context) error {
	tasks, err := r.tasks.LoadTasks(r.cfg.TasksFile)
	if err != nil {
		return err
	}
	return r.RunTasks(ctx, tasks)
}

// RunTasks executes tasks with at most cfg.Workers in flight.
func (r *Runner) RunTasks(ctx context.Context, tasks []*task.Task) error {
	workers := r.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	r.log.Info("Starting execution", zap.Int("tasks", len(tasks)), zap.Int("workers", workers))

	var (
		g      errgroup.Group
		failed atomic.Int32
	)
	g.SetLimit(workers)
	for _, t := range tasks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if out := r.Execute(ctx, t); out.Err != nil {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d tasks failed", n, len(tasks))
	}
	r.log.Info("All tasks completed")
	return nil
}

// Execute runs one task and records its outcome.
func (r *Runner) Execute(ctx context.Context, t *task.Task) *Outcome {
	out := r.executor.Execute(ctx, t)
	r.report(out)
	return out
}

// RunID identifies this runner's rows in the results file.
func (r *Runner) RunID() string { return r.runID }

// Tasks returns the manager used to load and prepare tasks.
func (r *Runner) Tasks() *task.Manager { return r.tasks }

// Outcomes returns every outcome recorded so far, in completion order.
func (r *Runner) Outcomes() []*Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Outcome(nil), r.outcomes...)
}

func (r *Runner) report(out *Outcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, out)
	r.mu.Unlock()

	fields := []zap.Field{
		zap.String("task", out.Task.Name),
		zap.String("venue", out.Venue),
		zap.String("submitter", out.Submitter),
		zap.Duration("elapsed", out.Elapsed),
	}
	if out.Err != nil {
		r.log.Error("Task failed", append(fields, zap.Error(out.Err))...)
	} else {
		r.log.Info("Task succeeded", fields...)
	}
	if r.journal == nil {
		return
	}
	if err := r.journal.WriteRecord(append(resultRecord(out, time.Now()), r.runID)); err != nil {
		r.log.Warn("Failed to write result", zap.Error(err))
	}
}

func resultRecord(out *Outcome, now time.Time) []string {
	status, errText := "ok", ""
	if out.Err != nil {
		status, errText = "failed", out.Err.Error()
	}
	var bundleID, sigs string
	if out.Result != nil {
		bundleID = out.Result.BundleID
		sigs = joinSignatures(out.Result.Signatures)
	}
	var amountIn, expectedOut uint64
	for _, est := range out.Estimates {
		amountIn += est.AmountIn
		expectedOut += est.ExpectedOut
	}
	return []string{
		now.UTC().Format(time.RFC3339),
		out.Task.Name,
		string(out.Task.Operation),
		out.Venue,
		out.Submitter,
		status,
		bundleID,
		sigs,
		strconv.FormatUint(amountIn, 10),
		strconv.FormatUint(expectedOut, 10),
		strconv.FormatInt(out.Elapsed.Milliseconds(), 10),
		errText,
	}
}

func joinSignatures(sigs []solana.Signature) string {
	s := ""
	for i, sig := range sigs {
		if i > 0 {
			s += " "
		}
		s += sig.String()
	}
	return s
}

// Close releases the results file.
func (r *Runner) Close(ctx context.Context) error {
	return r.shutdown.Shutdown(ctx)
}
