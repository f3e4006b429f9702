package dex

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-bundler/internal/txbuilder"
)

// MockClient implements raydium.Client
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	args := m.Called(ctx, pubkey)
	res, _ := args.Get(0).(*rpc.GetAccountInfoResult)
	return res, args.Error(1)
}

func (m *MockClient) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	args := m.Called(ctx, pubkeys)
	res, _ := args.Get(0).(*rpc.GetMultipleAccountsResult)
	return res, args.Error(1)
}

func (m *MockClient) GetProgramAccounts(ctx context.Context, program solana.PublicKey, filters ...rpc.RPCFilter) (rpc.GetProgramAccountsResult, error) {
	args := m.Called(ctx, program, filters)
	res, _ := args.Get(0).(rpc.GetProgramAccountsResult)
	return res, args.Error(1)
}

// fakeDEX records calls and returns a fixed outcome.
type fakeDEX struct {
	name  string
	err   error
	calls int
}

func (f *fakeDEX) GetName() string { return f.name }

func (f *fakeDEX) Plan(_ context.Context, _ *Request) (*Plan, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Plan{Protocol: Protocol(f.name)}, nil
}

func TestParseProtocol(t *testing.T) {
	tests := map[string]Protocol{
		"pump.fun":     ProtocolPumpFun,
		" PumpFun ":    ProtocolPumpFun,
		"raydium":      ProtocolRaydium,
		"raydium-cpmm": ProtocolCPMM,
		"daos.fun":     ProtocolDaosFun,
		"JUP":          ProtocolJupiter,
		"auto":         ProtocolSmart,
	}
	for in, want := range tests {
		got, err := ParseProtocol(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseProtocol("orca")
	assert.Error(t, err)
}

func TestRequest_Legs(t *testing.T) {
	mint := solana.NewWallet().PublicKey()

	in, out, err := (&Request{Operation: OperationBuy, Mint: mint}).Legs()
	require.NoError(t, err)
	assert.Equal(t, txbuilder.WSOLMint, in)
	assert.Equal(t, mint, out)

	in, out, err = (&Request{Operation: OperationSell, Mint: mint}).Legs()
	require.NoError(t, err)
	assert.Equal(t, mint, in)
	assert.Equal(t, txbuilder.WSOLMint, out)

	_, _, err = (&Request{Operation: OperationSwap, InputMint: mint}).Legs()
	assert.Error(t, err)
	_, _, err = (&Request{Operation: OperationSwap, InputMint: mint, OutputMint: mint}).Legs()
	assert.Error(t, err)
	_, _, err = (&Request{Operation: "snipe", Mint: mint}).Legs()
	assert.Error(t, err)
}

func TestFactory(t *testing.T) {
	f, err := NewFactory(Deps{Client: new(MockClient), PumpFun: pumpfun.GetDefaultConfig(), Logger: zap.NewNop()})
	require.NoError(t, err)

	for _, name := range []string{"pumpfun", "raydium", "cpmm", "jupiter", "smart"} {
		d, err := f.GetDEXByName(name)
		require.NoError(t, err, name)
		again, err := f.GetDEXByName(name)
		require.NoError(t, err)
		assert.Same(t, d, again, "venues are built once")
	}

	curve, err := f.PumpFun()
	require.NoError(t, err)
	assert.Equal(t, "Pump.fun", curve.GetName())
	amm, err := f.Raydium()
	require.NoError(t, err)
	assert.Equal(t, "Raydium", amm.GetName())

	_, err = f.Get(ProtocolDaosFun)
	assert.Error(t, err, "DAOS.fun needs a configured program id")

	_, err = NewFactory(Deps{Logger: zap.NewNop()})
	assert.Error(t, err)
}

func TestFactory_DaosFunWithProgram(t *testing.T) {
	f, err := NewFactory(Deps{
		Client:         new(MockClient),
		DaosFunProgram: solana.NewWallet().PublicKey(),
		Logger:         zap.NewNop(),
	})
	require.NoError(t, err)
	d, err := f.Get(ProtocolDaosFun)
	require.NoError(t, err)
	assert.Equal(t, "DAOS.fun", d.GetName())
}

func TestSmartAdapter_FallsBackOnCompleteCurve(t *testing.T) {
	primary := &fakeDEX{name: "pumpfun", err: fmt.Errorf("buy: %w", pumpfun.ErrCurveComplete)}
	fallback := &fakeDEX{name: "jupiter"}
	d := newSmartAdapter(primary, fallback, zap.NewNop())

	req := &Request{Operation: OperationBuy, Mint: solana.NewWallet().PublicKey(), Amount: 1}
	plan, err := d.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, Protocol("jupiter"), plan.Protocol)

	// the mint is remembered as migrated
	_, err = d.Plan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 2, fallback.calls)
}

func TestSmartAdapter_OtherErrorsPropagate(t *testing.T) {
	boom := errors.New("rpc down")
	primary := &fakeDEX{name: "pumpfun", err: boom}
	fallback := &fakeDEX{name: "jupiter"}
	d := newSmartAdapter(primary, fallback, zap.NewNop())

	_, err := d.Plan(context.Background(), &Request{Operation: OperationBuy, Mint: solana.NewWallet().PublicKey()})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, fallback.calls)
}

func TestUnitConversions(t *testing.T) {
	lamports, err := LamportsFromSOL(0.25)
	require.NoError(t, err)
	assert.Equal(t, uint64(250_000_000), lamports)

	raw, err := ToBaseUnits(decimal.RequireFromString("1564784.1234567"), 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_564_784_123_456), raw)

	_, err = ToBaseUnits(decimal.NewFromInt(-1), 6)
	assert.Error(t, err)
	_, err = ToBaseUnits(decimal.RequireFromString("1e30"), 9)
	assert.Error(t, err)

	assert.Equal(t, "1.5", FromBaseUnits(1_500_000, 6).String())

	assert.Equal(t, uint64(500), PercentOf(1_000, 50))
	assert.Equal(t, uint64(333), PercentOf(1_000, 33.3))
	assert.Equal(t, uint64(1_000), PercentOf(1_000, 150))
	assert.Zero(t, PercentOf(1_000, 0))
}
