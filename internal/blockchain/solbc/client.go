// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	ErrTransactionFailed   = errors.New("transaction failed on-chain")
	ErrNoBlockhash         = errors.New("no blockhash returned")
)

// AccountReader is the read-only slice of Client used by instruction builders.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error)
}

// Options tune request pacing and retries.
type Options struct {
	RateLimit     float64 // requests per second, 0 disables limiting
	Burst         int
	MaxRetries    uint
	RetryInterval time.Duration
	Commitment    rpc.CommitmentType
	ConfirmPoll   time.Duration
}

// DefaultOptions mirror the values used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		RateLimit:     20,
		Burst:         5,
		MaxRetries:    3,
		RetryInterval: 200 * time.Millisecond,
		Commitment:    rpc.CommitmentConfirmed,
		ConfirmPoll:   500 * time.Millisecond,
	}
}

// Client is a thin adapter over solana-go rpc clients with pooling, rate limiting and retries.
type Client struct {
	pool    *RPCPool
	limiter *rate.Limiter
	opts    Options
	logger  *zap.Logger
}

// NewClient creates a client over the given RPC endpoints.
func NewClient(endpoints []string, opts Options, logger *zap.Logger) (*Client, error) {
	pool, err := NewRPCPool(endpoints)
	if err != nil {
		return nil, err
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 1
	}
	if opts.ConfirmPoll <= 0 {
		opts.ConfirmPoll = 500 * time.Millisecond
	}
	return &Client{
		pool:    pool,
		limiter: limiter,
		opts:    opts,
		logger:  logger.Named("solbc-client"),
	}, nil
}

// Commitment returns the commitment level used for reads.
func (c *Client) Commitment() rpc.CommitmentType { return c.opts.Commitment }

func call[T any](ctx context.Context, c *Client, method string, fn func(*rpc.Client) (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	if c.opts.RetryInterval > 0 {
		policy.InitialInterval = c.opts.RetryInterval
		policy.MaxInterval = c.opts.RetryInterval * 10
	}

	op := func() (T, error) {
		var zero T
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, backoff.Permanent(err)
		}
		res, err := fn(c.pool.Next())
		if err != nil {
			if !isRetryable(err) {
				return zero, backoff.Permanent(err)
			}
			return zero, err
		}
		return res, nil
	}

	notify := func(err error, d time.Duration) {
		c.logger.Debug("RPC call failed, retrying",
			zap.String("method", method),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.opts.MaxRetries),
		backoff.WithNotify(notify))
	if err != nil {
		c.logger.Debug("RPC call error", zap.String("method", method), zap.Error(err))
		return res, fmt.Errorf("%s: %w", method, err)
	}
	return res, nil
}

// isRetryable separates transient node errors from request errors.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, rpc.ErrNotFound) {
		return false
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case -32004, -32005, -32007, -32014, 429:
			// block not available, node behind, slot skipped, status unavailable, rate limited
			return true
		}
		return false
	}
	return true
}

// IsAccountNotFoundError reports whether err means the account does not exist.
func IsAccountNotFoundError(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, rpc.ErrNotFound)
}

// GetRecentBlockhash returns the latest blockhash at finalized commitment.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := call(ctx, c, "getLatestBlockhash", func(r *rpc.Client) (*rpc.GetLatestBlockhashResult, error) {
		return r.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	})
	if err != nil {
		return solana.Hash{}, err
	}
	if res == nil || res.Value == nil {
		return solana.Hash{}, ErrNoBlockhash
	}
	return res.Value.Blockhash, nil
}

// GetAccountInfo fetches a single account. A missing account yields ErrAccountNotFound.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	res, err := call(ctx, c, "getAccountInfo", func(r *rpc.Client) (*rpc.GetAccountInfoResult, error) {
		return r.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
			Commitment: c.opts.Commitment,
			Encoding:   solana.EncodingBase64,
		})
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", pubkey, ErrAccountNotFound)
		}
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("%s: %w", pubkey, ErrAccountNotFound)
	}
	return res, nil
}

// GetAccountData is GetAccountInfo returning only the raw bytes.
func (c *Client) GetAccountData(ctx context.Context, pubkey solana.PublicKey) ([]byte, error) {
	res, err := c.GetAccountInfo(ctx, pubkey)
	if err != nil {
		return nil, err
	}
	return res.Value.Data.GetBinary(), nil
}

// GetMultipleAccounts fetches up to 100 accounts in one request; missing accounts come back nil.
func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	if len(pubkeys) == 0 {
		return &rpc.GetMultipleAccountsResult{}, nil
	}
	return call(ctx, c, "getMultipleAccounts", func(r *rpc.Client) (*rpc.GetMultipleAccountsResult, error) {
		return r.GetMultipleAccountsWithOpts(ctx, pubkeys, &rpc.GetMultipleAccountsOpts{
			Commitment: c.opts.Commitment,
			Encoding:   solana.EncodingBase64,
		})
	})
}

// GetProgramAccounts lists program accounts matching the given filters.
func (c *Client) GetProgramAccounts(ctx context.Context, programID solana.PublicKey, filters ...rpc.RPCFilter) (rpc.GetProgramAccountsResult, error) {
	return call(ctx, c, "getProgramAccounts", func(r *rpc.Client) (rpc.GetProgramAccountsResult, error) {
		return r.GetProgramAccountsWithOpts(ctx, programID, &rpc.GetProgramAccountsOpts{
			Commitment: c.opts.Commitment,
			Encoding:   solana.EncodingBase64,
			Filters:    filters,
		})
	})
}

// SendTransaction submits a signed transaction with preflight checks.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return c.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: c.opts.Commitment,
	})
}

// SendTransactionWithOpts submits a signed transaction with explicit options.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	sig, err := call(ctx, c, "sendTransaction", func(r *rpc.Client) (solana.Signature, error) {
		return r.SendTransactionWithOpts(ctx, tx, opts)
	})
	if err != nil {
		c.logger.Error("SendTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// SimulationResult is the subset of simulateTransaction output used by callers.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}

// SimulateTransaction runs the transaction against the current bank without submitting it.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error) {
	res, err := call(ctx, c, "simulateTransaction", func(r *rpc.Client) (*rpc.SimulateTransactionResponse, error) {
		return r.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
			Commitment:             c.opts.Commitment,
			ReplaceRecentBlockhash: true,
		})
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, errors.New("simulateTransaction: empty result")
	}
	units := uint64(0)
	if res.Value.UnitsConsumed != nil {
		units = *res.Value.UnitsConsumed
	}
	return &SimulationResult{
		Err:           res.Value.Err,
		Logs:          res.Value.Logs,
		UnitsConsumed: units,
	}, nil
}

// GetSignatureStatuses returns statuses, searching transaction history.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return call(ctx, c, "getSignatureStatuses", func(r *rpc.Client) (*rpc.GetSignatureStatusesResult, error) {
		return r.GetSignatureStatuses(ctx, true, signatures...)
	})
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	res, err := call(ctx, c, "getBalance", func(r *rpc.Client) (*rpc.GetBalanceResult, error) {
		return r.GetBalance(ctx, pubkey, c.opts.Commitment)
	})
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// GetTokenAccountBalance returns the raw token amount held by an SPL token account.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, uint8, error) {
	res, err := call(ctx, c, "getTokenAccountBalance", func(r *rpc.Client) (*rpc.GetTokenAccountBalanceResult, error) {
		return r.GetTokenAccountBalance(ctx, account, c.opts.Commitment)
	})
	if err != nil {
		return 0, 0, err
	}
	if res == nil || res.Value == nil {
		return 0, 0, fmt.Errorf("%s: %w", account, ErrAccountNotFound)
	}
	amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse token amount %q: %w", res.Value.Amount, err)
	}
	return amount, res.Value.Decimals, nil
}

// WaitForConfirmation polls signature status until the transaction reaches
// confirmed commitment, fails on-chain, or timeout elapses.
func (c *Client) WaitForConfirmation(ctx context.Context, sig solana.Signature, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.opts.ConfirmPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%s: %w", sig, ErrConfirmationTimeout)
			}
			return ctx.Err()
		case <-ticker.C:
			statuses, err := c.GetSignatureStatuses(ctx, sig)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%s: %w: %v", sig, ErrTransactionFailed, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
	}
}
