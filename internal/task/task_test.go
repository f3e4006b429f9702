package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testMint = "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"

const tasksYAML = `
tasks:
  - name: snipe
    protocol: pumpfun
    operation: buy
    wallet: main
    mint: ` + testMint + `
    amount_sol: 0.05
    slippage_bps: 300
    use_jito: true
  - name: bundle
    protocol: pumpfun
    operation: bundle_buy
    wallets: [a, b, c]
    mint: ` + testMint + `
    amount_sol: 0.1
    priority_fee:
      compute_units: 120000
      micro_lamports: 50000
  - name: dump
    protocol: smart
    operation: sell
    wallet: main
    mint: ` + testMint + `
    sell_percent: 50
    close_account: true
  - name: broken
    protocol: raydium
    operation: sell
    wallet: main
    mint: not-a-mint
    sell_percent: 10
  - name: rotate
    protocol: jupiter
    operation: swap
    wallet: main
    input_mint: So11111111111111111111111111111111111111112
    output_mint: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
    amount: 1000000
`

func TestManager_LoadTasks(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tasksYAML), 0o600))

	m := NewManager(zap.New(core), 100)
	m.SetProtocolSlippage("Jupiter", 50)
	tasks, err := m.LoadTasks(path)
	require.NoError(t, err)
	require.Len(t, tasks, 4)

	assert.Equal(t, "snipe", tasks[0].Name)
	assert.Equal(t, uint64(300), tasks[0].SlippageBps)
	assert.True(t, tasks[0].UseJito)

	assert.Equal(t, OperationBundleBuy, tasks[1].Operation)
	assert.Equal(t, []string{"a", "b", "c"}, tasks[1].WalletNames())
	require.NotNil(t, tasks[1].PriorityFee)
	assert.Equal(t, uint32(120000), tasks[1].PriorityFee.ComputeUnits)
	assert.Equal(t, uint64(100), tasks[1].SlippageBps)

	assert.Equal(t, 2, tasks[2].ID)
	assert.True(t, tasks[2].CloseAccount)

	assert.Equal(t, uint64(50), tasks[3].SlippageBps)
	in, out, err := tasks[3].SwapMints()
	require.NoError(t, err)
	assert.Equal(t, "So11111111111111111111111111111111111111112", in.String())
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", out.String())

	require.Equal(t, 1, logs.FilterMessage("Skipping invalid task").Len())
}

func TestManager_NoValidTasks(t *testing.T) {
	m := NewManager(zap.NewNop(), 100)
	_, err := m.ParseTasks([]byte("tasks: []\n"))
	assert.Error(t, err)

	_, err = m.ParseTasks([]byte("tasks:\n  - name: x\n    operation: hold\n"))
	assert.Error(t, err)
}

func TestTask_Validate(t *testing.T) {
	base := func() *Task {
		return &Task{Name: "t", Protocol: "pumpfun", Operation: OperationBuy, Wallet: "w", Mint: testMint, AmountSOL: 1, SlippageBps: 100}
	}

	assert.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Task)
	}{
		{"no name", func(t *Task) { t.Name = "" }},
		{"no wallet", func(t *Task) { t.Wallet = "" }},
		{"zero amount", func(t *Task) { t.AmountSOL = 0 }},
		{"bad mint", func(t *Task) { t.Mint = "xyz" }},
		{"slippage", func(t *Task) { t.SlippageBps = 10_001 }},
		{"sell percent", func(t *Task) { t.Operation = OperationSell; t.SellPercent = 150 }},
		{"bad pool", func(t *Task) { t.Pool = "pool" }},
		{"too many bundle wallets", func(t *Task) {
			t.Operation = OperationBundleBuy
			t.Wallets = []string{"1", "2", "3", "4", "5", "6"}
		}},
		{"swap without mints", func(t *Task) { t.Operation = OperationSwap }},
		{"too many jito wallets", func(t *Task) {
			t.UseJito = true
			t.Wallets = []string{"1", "2", "3", "4", "5", "6"}
		}},
		{"jupiter jito bundle leaves no room for tip", func(t *Task) {
			t.Protocol = "jupiter"
			t.UseJito = true
			t.Wallets = []string{"1", "2", "3", "4", "5"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := base()
			tt.mutate(task)
			assert.Error(t, task.Validate())
		})
	}
}

func TestTask_BundleWalletLimit(t *testing.T) {
	five := []string{"1", "2", "3", "4", "5"}

	pump := &Task{Name: "t", Protocol: "pumpfun", Operation: OperationBuy, Wallets: five, Mint: testMint, AmountSOL: 1, UseJito: true}
	assert.NoError(t, pump.Validate())
	assert.Equal(t, MaxBundleWallets, pump.BundleWalletLimit())

	jup := &Task{Name: "t", Protocol: "jup", Operation: OperationSwap, Wallets: five[:4], UseJito: true,
		InputMint: "So11111111111111111111111111111111111111112", OutputMint: testMint, Amount: 1000}
	assert.NoError(t, jup.Validate())
	assert.Equal(t, MaxBundleWallets-1, jup.BundleWalletLimit())

	jup.Wallets = five
	assert.Error(t, jup.Validate())

	smart := &Task{Name: "t", Protocol: "smart", Operation: OperationBundleBuy, Wallets: five, Mint: testMint, AmountSOL: 1}
	assert.Error(t, smart.Validate())

	// Without Jito the wallets trade independently.
	jup.UseJito = false
	assert.NoError(t, jup.Validate())
}

func TestManager_Prepare(t *testing.T) {
	m := NewManager(zap.NewNop(), 150)
	m.SetProtocolSlippage("Jupiter", 40)

	snipe := &Task{Name: "snipe", Protocol: "pumpfun", Operation: OperationBuy, Wallet: "main", Mint: testMint, AmountSOL: 0.01}
	require.NoError(t, m.Prepare(snipe))
	assert.Equal(t, uint64(150), snipe.SlippageBps)

	jup := &Task{Name: "jup", Protocol: "jupiter", Operation: OperationBuy, Wallet: "main", Mint: testMint, AmountSOL: 0.01}
	require.NoError(t, m.Prepare(jup))
	assert.Equal(t, uint64(40), jup.SlippageBps)

	assert.Error(t, m.Prepare(&Task{Name: "broken", Protocol: "pumpfun", Operation: OperationBuy}))
}
