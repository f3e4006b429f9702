package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/bot"
	"github.com/rovshanmuradov/solana-bundler/internal/listener"
	"github.com/rovshanmuradov/solana-bundler/internal/sniping"
)

func (a *app) listen(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("listen", flag.ContinueOnError)
	buy := fs.Float64("buy", 0, "SOL to spend on every new token; 0 only prints them")
	wallets := fs.String("wallets", "", "Comma separated wallets to buy with")
	bundle := fs.Bool("bundle", false, "Buy from all wallets in one Jito bundle")
	jito := fs.Bool("jito", false, "Send buys through Jito")
	match := fs.String("match", "", "Only buy tokens whose name or symbol contains this text")
	limit := fs.Int("limit", 1, "Stop buying after this many tokens; 0 for no limit")
	source := fs.String("source", "rpc", "Event source: rpc (program logs) or pumpportal")
	portalURL := fs.String("portal-url", listener.PumpPortalURL, "PumpPortal websocket URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := a.newListener(*source, *portalURL)
	if err != nil {
		return err
	}

	var sniper *sniping.Sniper
	if *buy > 0 {
		svc, err := bot.NewServices(a.cfg, a.logger)
		if err != nil {
			return err
		}
		runner, err := bot.NewRunner(a.cfg, svc, a.logger)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = runner.Close(closeCtx)
		}()

		names := splitList(*wallets)
		if len(names) == 0 {
			names = svc.Wallets.Names()
		}
		sniper, err = sniping.NewSniper(sniping.Strategy{
			Wallets:   names,
			AmountSOL: *buy,
			UseJito:   *jito || *bundle,
			Bundle:    *bundle,
			MaxSnipes: *limit,
			Match:     *match,
		}, runner, runner.Tasks(), a.cfg.Workers, a.logger)
		if err != nil {
			return err
		}
	}

	return l.Run(ctx, func(ctx context.Context, ev *listener.Event) {
		a.logger.Info("New token",
			zap.String("name", ev.Create.Name),
			zap.String("symbol", ev.Create.Symbol),
			zap.String("mint", ev.Create.Mint.String()),
			zap.String("creator", ev.Create.Creator.String()),
			zap.String("signature", ev.Signature.String()))
		if sniper != nil {
			sniper.Handle(ctx, ev)
		}
	})
}

func (a *app) newListener(source, portalURL string) (*listener.Listener, error) {
	opts := listener.Options{Commitment: a.cfg.CommitmentType()}
	switch source {
	case "rpc":
		return listener.New(a.cfg.WebSocketURL, nil, opts, a.logger)
	case "pumpportal":
		return listener.NewWithConnector("pumpportal", listener.PumpPortalConnector(portalURL), opts, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown source %q, expected rpc or pumpportal", source)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
