package main

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-bundler/internal/config"
	"github.com/rovshanmuradov/solana-bundler/internal/dex"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/cpmm"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/raydium"
	"github.com/rovshanmuradov/solana-bundler/internal/layout"
	"github.com/rovshanmuradov/solana-bundler/internal/monitor"
	"github.com/rovshanmuradov/solana-bundler/internal/ui"
)

var testMint = solana.MustPublicKeyFromBase58("2ZiSPGncrkwWa6GBZB4EDtsfq7HEWwXwsPFDkXzGpump")

func newTestApp() *app {
	return &app{cfg: &config.Config{SlippageBps: 100}, logger: zap.NewNop(), out: ui.NewRenderer()}
}

func bondingCurveData(vtoken, vsol, rtoken, rsol uint64) []byte {
	d := layout.AccountDiscriminator("BondingCurve")
	buf := d.Bytes()
	for _, v := range []uint64{vtoken, vsol, rtoken, rsol, 1_000_000_000_000_000} {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	return append(buf, 0)
}

func TestDetectKind(t *testing.T) {
	daos := solana.NewWallet().PublicKey()
	tests := []struct {
		owner solana.PublicKey
		data  []byte
		want  string
	}{
		{pumpfun.PumpFunProgramID, bondingCurveData(1, 1, 1, 1), "pumpfun-curve"},
		{pumpfun.PumpFunProgramID, []byte{1, 2, 3}, "pumpfun-global"},
		{raydium.AmmV4ProgramID, nil, "amm-v4"},
		{raydium.OpenBookProgramID, nil, "market-v3"},
		{cpmm.ProgramID, make([]byte, cpmm.PoolStateSize), "cpmm-pool"},
		{cpmm.ProgramID, make([]byte, 236), "cpmm-config"},
		{daos, nil, "daosfun-curve"},
		{solbc.MetaplexMetadataProgramID, nil, "metadata"},
		{solana.TokenProgramID, make([]byte, layout.SPLMintSize), "mint"},
		{solana.TokenProgramID, make([]byte, layout.SPLTokenAccountSize), "token-account"},
	}
	for _, tt := range tests {
		got, err := detectKind(tt.owner, tt.data, daos)
		require.NoError(t, err, tt.want)
		assert.Equal(t, tt.want, got)
	}

	_, err := detectKind(solana.SystemProgramID, nil, solana.PublicKey{})
	assert.Error(t, err)
	for kind := range decoders {
		assert.Contains(t, decoderKinds(), kind)
	}
}

func TestRenderDecoded(t *testing.T) {
	a := newTestApp()
	data := bondingCurveData(1_073_000_000_000_000, 30_000_000_000, 793_100_000_000_000, 0)
	out, err := a.renderDecoded("pumpfun-curve", testMint, pumpfun.PumpFunProgramID, data)
	require.NoError(t, err)
	assert.Contains(t, out, "VirtualTokenReserves")
	assert.Contains(t, out, "1073000000000000")
	assert.Contains(t, out, "Complete")

	_, err = a.renderDecoded("nope", testMint, pumpfun.PumpFunProgramID, data)
	assert.Error(t, err)
	_, err = a.renderDecoded("mint", testMint, solana.TokenProgramID, []byte{1})
	assert.Error(t, err)
}

func TestParseQuoteArgs(t *testing.T) {
	q, err := parseQuoteArgs([]string{"-mint", testMint.String(), "-amount", "0.5"}, 150)
	require.NoError(t, err)
	assert.Equal(t, dex.ProtocolPumpFun, q.protocol)
	assert.False(t, q.sell)
	assert.Equal(t, uint64(150), q.slippage)
	assert.True(t, q.amount.Equal(decimal.RequireFromString("0.5")))

	q, err = parseQuoteArgs([]string{"-protocol", "raydium", "-side", "sell", "-mint", testMint.String(), "-amount", "1000"}, 100)
	require.NoError(t, err)
	assert.Equal(t, dex.ProtocolRaydium, q.protocol)
	assert.True(t, q.sell)

	bad := [][]string{
		{"-mint", "nope"},
		{"-mint", testMint.String(), "-protocol", "jupiter"},
		{"-mint", testMint.String(), "-side", "hold"},
		{"-mint", testMint.String(), "-amount", "-1"},
		{"-mint", testMint.String(), "-slippage", "20000"},
	}
	for _, args := range bad {
		_, err := parseQuoteArgs(args, 100)
		assert.Error(t, err, args)
	}
}

func TestRenderCurveQuote(t *testing.T) {
	a := newTestApp()
	state := &pumpfun.CurveState{
		Global: &pumpfun.GlobalAccount{FeeBasisPoints: 100, InitialRealTokenReserves: 793_100_000_000_000},
		Curve: &pumpfun.BondingCurve{
			VirtualTokenReserves: 1_073_000_000_000_000,
			VirtualSolReserves:   30_000_000_000,
			RealTokenReserves:    793_100_000_000_000,
		},
	}

	out, err := a.renderCurveQuote(state, &quoteArgs{mint: testMint, amount: decimal.RequireFromString("0.1"), slippage: 100})
	require.NoError(t, err)
	assert.Contains(t, out, "Pump.fun buy")
	assert.Contains(t, out, "0.1 SOL")

	state.Curve.Complete = true
	_, err = a.renderCurveQuote(state, &quoteArgs{mint: testMint, amount: decimal.RequireFromString("0.1")})
	assert.ErrorIs(t, err, pumpfun.ErrCurveComplete)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
	assert.Equal(t, "short", shorten("short"))
	assert.Equal(t, "12345678...abcdefgh", shorten("12345678XXXXXXXXXXabcdefgh"))
}

func TestNewListener(t *testing.T) {
	a := newTestApp()
	a.cfg.WebSocketURL = "wss://example.com"

	_, err := a.newListener("rpc", "")
	require.NoError(t, err)
	_, err = a.newListener("pumpportal", "wss://pumpportal.example")
	require.NoError(t, err)
	_, err = a.newListener("grpc", "")
	assert.Error(t, err)
}

func TestParseWatchArgs(t *testing.T) {
	w, err := parseWatchArgs([]string{"-mint", testMint.String(), "-tokens", "1500.5", "-cost", "0.25", "-tp", "50", "-sl", "20"})
	require.NoError(t, err)
	assert.Equal(t, testMint, w.mint)
	assert.True(t, w.tokens.Equal(decimal.RequireFromString("1500.5")))
	assert.Equal(t, uint64(250_000_000), w.cost)
	assert.Equal(t, 2*time.Second, w.interval)
	assert.Equal(t, 50.0, w.alerts.ProfitTargetPercent)
	assert.Equal(t, 20.0, w.alerts.LossLimitPercent)

	w, err = parseWatchArgs([]string{"-mint", testMint.String(), "-wallet", "main", "-interval", "1s"})
	require.NoError(t, err)
	assert.Equal(t, "main", w.wallet)

	bad := [][]string{
		{"-mint", testMint.String()},
		{"-mint", testMint.String(), "-tokens", "1", "-wallet", "main"},
		{"-mint", "nope", "-tokens", "1"},
		{"-mint", testMint.String(), "-tokens", "-1"},
		{"-mint", testMint.String(), "-tokens", "1", "-cost", "-1"},
		{"-mint", testMint.String(), "-tokens", "1", "-interval", "10ms"},
		{"-mint", testMint.String(), "-tokens", "1", "-tp", "-5"},
	}
	for _, args := range bad {
		_, err := parseWatchArgs(args)
		assert.Error(t, err, args)
	}
}

func TestFormatUpdate(t *testing.T) {
	a := newTestApp()
	line := a.formatUpdate(monitor.PriceUpdate{
		Mint:       testMint,
		Symbol:     "PEPE",
		SpotPrice:  27.96,
		SellValue:  45_000_000,
		Cost:       30_000_000,
		PnL:        15_000_000,
		PnLPercent: 50,
		Progress:   12.5,
		At:         time.Date(2024, 1, 1, 12, 4, 5, 0, time.UTC),
	})
	assert.Contains(t, line, "12:04:05")
	assert.Contains(t, line, "PEPE")
	assert.Contains(t, line, "value 0.045 SOL")
	assert.Contains(t, line, "+0.015 SOL (+50.00%)")
	assert.Contains(t, line, "curve 12.5%")

	loss := a.formatUpdate(monitor.PriceUpdate{Symbol: "PEPE", SellValue: 20_000_000, PnL: -10_000_000})
	assert.Contains(t, loss, "-0.01 SOL")
	assert.NotContains(t, loss, "%)")
}
