// =============================================
// File: internal/task/task.go
// =============================================
package task

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-bundler/internal/dex"
)

// OperationType defines the supported operation types
type OperationType string

const (
	OperationBuy       OperationType = "buy"
	OperationSell      OperationType = "sell"
	OperationSwap      OperationType = "swap"
	OperationBundleBuy OperationType = "bundle_buy"
)

// MaxBundleWallets is the most wallets a bundle can carry, one transaction each.
const MaxBundleWallets = 5

// PriorityFee overrides the configured compute budget for one task.
type PriorityFee struct {
	ComputeUnits  uint32 `yaml:"compute_units"`
	MicroLamports uint64 `yaml:"micro_lamports"`
}

// Task is one entry of the tasks file.
type Task struct {
	ID        int           `yaml:"-"`
	Name      string        `yaml:"name"`
	Protocol  string        `yaml:"protocol"`
	Operation OperationType `yaml:"operation"`
	Wallet    string        `yaml:"wallet"`
	Wallets   []string      `yaml:"wallets"`
	Mint      string        `yaml:"mint"`
	Pool      string        `yaml:"pool"`
	// InputMint and OutputMint describe a swap; Amount is raw input units.
	InputMint  string `yaml:"input_mint"`
	OutputMint string `yaml:"output_mint"`
	Amount     uint64 `yaml:"amount"`

	AmountSOL    float64      `yaml:"amount_sol"`
	SellPercent  float64      `yaml:"sell_percent"`
	SlippageBps  uint64       `yaml:"slippage_bps"`
	PriorityFee  *PriorityFee `yaml:"priority_fee"`
	UseJito      bool         `yaml:"use_jito"`
	CloseAccount bool         `yaml:"close_account"`
}

// WalletNames returns the wallets the task trades with, in order.
func (t *Task) WalletNames() []string {
	if len(t.Wallets) > 0 {
		return t.Wallets
	}
	if t.Wallet != "" {
		return []string{t.Wallet}
	}
	return nil
}

// Validate checks if the task has valid parameters
func (t *Task) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	if t.Protocol == "" {
		return fmt.Errorf("protocol cannot be empty")
	}
	if len(t.WalletNames()) == 0 {
		return fmt.Errorf("wallet cannot be empty")
	}
	if t.SlippageBps > 10_000 {
		return fmt.Errorf("slippage_bps must not exceed 10000")
	}

	switch t.Operation {
	case OperationBuy, OperationBundleBuy:
		if _, err := parseKey("mint", t.Mint); err != nil {
			return err
		}
		if t.AmountSOL <= 0 {
			return fmt.Errorf("amount_sol must be greater than zero")
		}
	case OperationSell:
		if _, err := parseKey("mint", t.Mint); err != nil {
			return err
		}
		if t.SellPercent <= 0 || t.SellPercent > 100 {
			return fmt.Errorf("sell_percent must be in (0, 100]")
		}
	case OperationSwap:
		if _, err := parseKey("input_mint", t.InputMint); err != nil {
			return err
		}
		if _, err := parseKey("output_mint", t.OutputMint); err != nil {
			return err
		}
		if t.Amount == 0 && t.AmountSOL <= 0 {
			return fmt.Errorf("swap needs amount or amount_sol")
		}
	default:
		return fmt.Errorf("invalid operation: %s", t.Operation)
	}

	if t.Pool != "" {
		if _, err := parseKey("pool", t.Pool); err != nil {
			return err
		}
	}
	if t.Bundled() {
		if limit, n := t.BundleWalletLimit(), len(t.WalletNames()); n > limit {
			return fmt.Errorf("a %s bundle on %s supports at most %d wallets, got %d", t.Operation, t.Protocol, limit, n)
		}
	}
	return nil
}

// Bundled reports whether the task is submitted as a Jito bundle.
func (t *Task) Bundled() bool {
	return t.Operation == OperationBundleBuy || t.UseJito
}

// BundleWalletLimit is the most wallets a bundle of this task can carry. Venues that
// return prebuilt transactions need a separate tip transaction, which takes one slot.
func (t *Task) BundleWalletLimit() int {
	switch p, _ := dex.ParseProtocol(t.Protocol); p {
	case dex.ProtocolJupiter, dex.ProtocolSmart:
		return MaxBundleWallets - 1
	default:
		return MaxBundleWallets
	}
}

func parseKey(field, value string) (solana.PublicKey, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return solana.PublicKey{}, fmt.Errorf("%s cannot be empty", field)
	}
	pk, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return pk, nil
}

// MintKey returns the traded mint.
func (t *Task) MintKey() (solana.PublicKey, error) { return parseKey("mint", t.Mint) }

// PoolKey returns the pinned pool, zero when none is set.
func (t *Task) PoolKey() (solana.PublicKey, error) {
	if t.Pool == "" {
		return solana.PublicKey{}, nil
	}
	return parseKey("pool", t.Pool)
}

// SwapMints returns the input and output mints of a swap.
func (t *Task) SwapMints() (in, out solana.PublicKey, err error) {
	if in, err = parseKey("input_mint", t.InputMint); err != nil {
		return
	}
	out, err = parseKey("output_mint", t.OutputMint)
	return
}
