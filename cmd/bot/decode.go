package main

import (
	"context"
	"flag"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-bundler/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-bundler/internal/bot"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/cpmm"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/daosfun"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/raydium"
	"github.com/rovshanmuradov/solana-bundler/internal/layout"
	"github.com/rovshanmuradov/solana-bundler/internal/txbuilder"
	"github.com/rovshanmuradov/solana-bundler/internal/ui"
)

type decodeFunc func(data []byte) (any, error)

func wrap[T any](fn func([]byte) (*T, error)) decodeFunc {
	return func(data []byte) (any, error) { return fn(data) }
}

var decoders = map[string]decodeFunc{
	"pumpfun-curve":  wrap(pumpfun.DecodeBondingCurve),
	"pumpfun-global": wrap(pumpfun.DecodeGlobal),
	"amm-v4":         wrap(layout.DecodeLiquidityStateV4),
	"market-v3":      wrap(layout.DecodeMarketStateV3),
	"cpmm-pool":      wrap(cpmm.DecodePoolState),
	"cpmm-config":    wrap(cpmm.DecodeAmmConfig),
	"daosfun-curve":  wrap(daosfun.DecodeCurveState),
	"mint":           wrap(layout.DecodeSPLMint),
	"token-account":  wrap(layout.DecodeTokenAccount),
	"metadata":       wrap(layout.DecodeMetaplexMetadata),
}

func decoderKinds() []string {
	kinds := make([]string, 0, len(decoders))
	for k := range decoders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// detectKind picks a decoder from the account owner and size.
func detectKind(owner solana.PublicKey, data []byte, daosProgram solana.PublicKey) (string, error) {
	switch {
	case owner.Equals(pumpfun.PumpFunProgramID):
		if _, err := pumpfun.DecodeBondingCurve(data); err == nil {
			return "pumpfun-curve", nil
		}
		return "pumpfun-global", nil
	case owner.Equals(raydium.AmmV4ProgramID):
		return "amm-v4", nil
	case owner.Equals(raydium.OpenBookProgramID):
		return "market-v3", nil
	case owner.Equals(cpmm.ProgramID):
		if len(data) == cpmm.PoolStateSize {
			return "cpmm-pool", nil
		}
		return "cpmm-config", nil
	case owner.Equals(solbc.MetaplexMetadataProgramID):
		return "metadata", nil
	case !daosProgram.IsZero() && owner.Equals(daosProgram):
		return "daosfun-curve", nil
	case owner.Equals(solana.TokenProgramID), owner.Equals(txbuilder.Token2022ProgramID):
		if len(data) == layout.SPLMintSize {
			return "mint", nil
		}
		if len(data) == layout.SPLTokenAccountSize {
			return "token-account", nil
		}
		// token-2022 accounts with extensions carry the account type right after the base layout
		if len(data) > layout.SPLTokenAccountSize && data[layout.SPLTokenAccountSize] == 1 {
			return "mint", nil
		}
		return "token-account", nil
	}
	return "", fmt.Errorf("no decoder for accounts owned by %s", owner)
}

func (a *app) decode(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	kind := fs.String("kind", "", "Layout: "+strings.Join(decoderKinds(), ", ")+" (detected from the owner when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("decode takes exactly one account address")
	}
	address, err := solana.PublicKeyFromBase58(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}

	client, err := bot.NewClient(a.cfg, a.logger)
	if err != nil {
		return err
	}
	info, err := client.GetAccountInfo(ctx, address)
	if err != nil {
		return err
	}
	data := info.Value.Data.GetBinary()

	if *kind == "" {
		daos, err := a.cfg.DaosFunProgram()
		if err != nil {
			return err
		}
		if *kind, err = detectKind(info.Value.Owner, data, daos); err != nil {
			return err
		}
	}
	panel, err := a.renderDecoded(*kind, address, info.Value.Owner, data)
	if err != nil {
		return err
	}
	a.print(panel)
	return nil
}

func (a *app) renderDecoded(kind string, address, owner solana.PublicKey, data []byte) (string, error) {
	fn, ok := decoders[kind]
	if !ok {
		return "", fmt.Errorf("unknown layout %q, expected one of %s", kind, strings.Join(decoderKinds(), ", "))
	}
	v, err := fn(data)
	if err != nil {
		return "", err
	}
	fields := append([]ui.Field{
		ui.F("address", address.String()),
		ui.F("owner", owner.String()),
		ui.F("size", fmt.Sprintf("%d bytes", len(data))),
	}, structFields(v)...)
	return a.out.Panel(kind, fields...), nil
}

// structFields lists the exported fields of the struct v points to.
func structFields(v any) []ui.Field {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return []ui.Field{ui.F("value", fmt.Sprint(v))}
	}
	rt := rv.Type()
	out := make([]ui.Field, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		out = append(out, ui.F(f.Name, formatValue(rv.Field(i))))
	}
	return out
}

func formatValue(v reflect.Value) string {
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	switch v.Kind() {
	case reflect.Array, reflect.Slice:
		if v.Len() > 8 {
			return fmt.Sprintf("<%d items>", v.Len())
		}
	}
	return fmt.Sprint(v.Interface())
}
