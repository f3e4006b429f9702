package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-bundler/internal/bot"
	"github.com/rovshanmuradov/solana-bundler/internal/dex"
	"github.com/rovshanmuradov/solana-bundler/internal/monitor"
	"github.com/rovshanmuradov/solana-bundler/internal/ui"
	"github.com/rovshanmuradov/solana-bundler/internal/wallet"
)

type watchArgs struct {
	mint     solana.PublicKey
	wallet   string
	tokens   decimal.Decimal
	cost     uint64
	interval time.Duration
	alerts   monitor.AlertConfig
}

func parseWatchArgs(args []string) (*watchArgs, error) {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	mint := fs.String("mint", "", "Token mint")
	walletName := fs.String("wallet", "", "Read the position size from this wallet's token account")
	tokens := fs.String("tokens", "", "Position size in tokens, instead of -wallet")
	cost := fs.Float64("cost", 0, "SOL paid for the position")
	interval := fs.Duration("interval", 2*time.Second, "Polling interval")
	tp := fs.Float64("tp", 0, "Alert at this profit in percent")
	sl := fs.Float64("sl", 0, "Alert at this loss in percent")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	w := &watchArgs{
		wallet:   *walletName,
		interval: *interval,
		alerts:   monitor.AlertConfig{ProfitTargetPercent: *tp, LossLimitPercent: *sl},
	}
	var err error
	if w.mint, err = solana.PublicKeyFromBase58(strings.TrimSpace(*mint)); err != nil {
		return nil, fmt.Errorf("invalid mint: %w", err)
	}
	switch {
	case *tokens != "" && w.wallet != "":
		return nil, fmt.Errorf("use either -tokens or -wallet")
	case *tokens != "":
		if w.tokens, err = decimal.NewFromString(*tokens); err != nil || w.tokens.IsNegative() {
			return nil, fmt.Errorf("tokens must be a non-negative number")
		}
	case w.wallet == "":
		return nil, fmt.Errorf("one of -tokens or -wallet is required")
	}
	if w.cost, err = dex.LamportsFromSOL(*cost); err != nil {
		return nil, fmt.Errorf("invalid cost: %w", err)
	}
	if w.interval < 200*time.Millisecond {
		return nil, fmt.Errorf("interval must be at least 200ms")
	}
	if *tp < 0 || *sl < 0 {
		return nil, fmt.Errorf("tp and sl are positive percentages")
	}
	return w, nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	w, err := parseWatchArgs(args)
	if err != nil {
		return err
	}
	client, err := bot.NewClient(a.cfg, a.logger)
	if err != nil {
		return err
	}
	factory, err := bot.NewFactory(a.cfg, client, a.logger)
	if err != nil {
		return err
	}
	curves, err := factory.PumpFun()
	if err != nil {
		return err
	}

	token, err := solbc.NewTokenInfoCache(client, a.logger).Get(ctx, w.mint)
	if err != nil {
		return fmt.Errorf("failed to resolve mint: %w", err)
	}
	pos := monitor.Position{Mint: w.mint, Symbol: token.Label(), Decimals: token.Decimals, CostLamports: w.cost}
	if w.wallet != "" {
		if pos.Tokens, err = a.walletBalance(ctx, client, w.wallet, w.mint); err != nil {
			return err
		}
	} else if pos.Tokens, err = dex.ToBaseUnits(w.tokens, token.Decimals); err != nil {
		return err
	}

	watcher := monitor.NewWatcher(monitor.NewCurveValuer(curves), pos, monitor.WatchOptions{
		Interval: w.interval,
		Alerts:   w.alerts,
		OnAlert:  func(al monitor.Alert) { a.print(a.out.Warn(al.Message)) },
	}, a.logger)

	a.print(a.out.Panel("Watching "+pos.Symbol,
		ui.F("mint", w.mint.String()),
		ui.F("position", tokens(pos.Tokens, pos.Decimals)),
		ui.F("cost", sol(pos.CostLamports)),
	))

	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()
	for u := range watcher.Updates() {
		a.print(a.formatUpdate(u))
	}
	return <-done
}

func (a *app) walletBalance(ctx context.Context, client *solbc.Client, name string, mint solana.PublicKey) (uint64, error) {
	store, err := wallet.LoadWallets(a.cfg.WalletsFile)
	if err != nil {
		return 0, fmt.Errorf("failed to load wallets: %w", err)
	}
	w, err := store.Get(name)
	if err != nil {
		return 0, err
	}
	ata, err := w.GetATA(mint)
	if err != nil {
		return 0, err
	}
	amount, _, err := client.GetTokenAccountBalance(ctx, ata)
	if err != nil {
		return 0, fmt.Errorf("failed to read token balance of %s: %w", name, err)
	}
	a.logger.Debug("Position loaded from wallet", zap.String("wallet", name), zap.Uint64("amount", amount))
	return amount, nil
}

func (a *app) formatUpdate(u monitor.PriceUpdate) string {
	sign := "+"
	pnl := u.PnL
	if pnl < 0 {
		sign, pnl = "-", -pnl
	}
	pnlText := fmt.Sprintf("%s%s", sign, sol(uint64(pnl)))
	if u.Cost > 0 {
		pnlText += fmt.Sprintf(" (%+.2f%%)", u.PnLPercent)
	}
	return strings.Join([]string{
		a.out.Muted(u.At.Format("15:04:05")),
		u.Symbol,
		"price " + decimal.NewFromFloat(u.SpotPrice).Shift(-9).StringFixed(12) + " SOL",
		"value " + sol(u.SellValue),
		a.out.Status(u.PnL >= 0, pnlText),
		fmt.Sprintf("curve %.1f%%", u.Progress),
	}, "  ")
}
