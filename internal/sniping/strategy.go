package sniping

import (
	"fmt"
	"strings"

	"github.com/rovshanmuradov/solana-bundler/internal/listener"
	"github.com/rovshanmuradov/solana-bundler/internal/task"
)

// Strategy describes what to buy when a new token launches.
type Strategy struct {
	Protocol    string
	Wallets     []string
	AmountSOL   float64
	SlippageBps uint64
	UseJito     bool
	// Bundle buys from every wallet in one Jito bundle instead of one task per wallet.
	Bundle bool
	// MaxSnipes stops buying after this many tokens; zero means no limit.
	MaxSnipes int
	// Match, when set, must appear in the token name or symbol (case-insensitive).
	Match string
}

func (s Strategy) validate() error {
	if len(s.Wallets) == 0 {
		return fmt.Errorf("sniping needs at least one wallet")
	}
	if s.AmountSOL <= 0 {
		return fmt.Errorf("sniping amount must be greater than zero")
	}
	if s.Bundle && len(s.Wallets) > task.MaxBundleWallets {
		return fmt.Errorf("a bundle carries at most %d wallets", task.MaxBundleWallets)
	}
	return nil
}

// Matches reports whether ev passes the name/symbol filter.
func (s Strategy) Matches(ev *listener.Event) bool {
	if s.Match == "" {
		return true
	}
	needle := strings.ToLower(s.Match)
	return strings.Contains(strings.ToLower(ev.Create.Name), needle) ||
		strings.Contains(strings.ToLower(ev.Create.Symbol), needle)
}

// TaskFor returns the buy task for ev.
func (s Strategy) TaskFor(ev *listener.Event) *task.Task {
	t := &task.Task{
		Name:        "snipe-" + ev.Create.Symbol,
		Protocol:    s.Protocol,
		Operation:   task.OperationBuy,
		Mint:        ev.Create.Mint.String(),
		AmountSOL:   s.AmountSOL,
		SlippageBps: s.SlippageBps,
		UseJito:     s.UseJito,
	}
	if t.Protocol == "" {
		t.Protocol = "pumpfun"
	}
	if s.Bundle {
		t.Operation = task.OperationBundleBuy
		t.Wallets = s.Wallets
	} else {
		t.Wallet = s.Wallets[0]
	}
	return t
}
