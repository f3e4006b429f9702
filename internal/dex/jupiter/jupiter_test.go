package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	solMint  = solana.SolMint
	usdcMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

const quoteJSON = `{
	"inputMint": "So11111111111111111111111111111111111111112",
	"inAmount": "100000000",
	"outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	"outAmount": "15234567",
	"otherAmountThreshold": "15158394",
	"swapMode": "ExactIn",
	"slippageBps": 50,
	"priceImpactPct": "0.0012",
	"routePlan": [
		{"swapInfo": {"label": "Raydium CPMM"}, "percent": 60},
		{"swapInfo": {"label": "Whirlpool"}, "percent": 40}
	]
}`

func newTestClient(url string) *Client {
	opts := DefaultOptions()
	opts.BaseURL = url
	opts.RateLimit = 0
	return NewClient(opts, zap.NewNop())
}

func swapTxBase64(t *testing.T, payer solana.PublicKey) string {
	t.Helper()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, payer, solana.NewWallet().PublicKey()).Build()},
		solana.Hash{1, 2, 3},
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	tx.Message.SetVersion(solana.MessageVersionV0)
	// Jupiter returns zeroed signature slots for the wallet to fill
	tx.Signatures = make([]solana.Signature, 1)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestClient_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, solMint.String(), r.URL.Query().Get("inputMint"))
		assert.Equal(t, "100000000", r.URL.Query().Get("amount"))
		assert.Equal(t, "50", r.URL.Query().Get("slippageBps"))
		_, _ = w.Write([]byte(quoteJSON))
	}))
	defer srv.Close()

	q, err := newTestClient(srv.URL).Quote(context.Background(), solMint, usdcMint, 100_000_000, 50)
	require.NoError(t, err)
	assert.Equal(t, usdcMint, q.OutputMint)
	assert.Equal(t, uint64(100_000_000), q.AmountIn)
	assert.Equal(t, uint64(15_234_567), q.AmountOut)
	assert.Equal(t, uint64(15_158_394), q.MinAmountOut)
	assert.Equal(t, "0.0012", q.PriceImpact.String())
	assert.Equal(t, []string{"Raydium CPMM", "Whirlpool"}, q.Route)
	assert.JSONEq(t, quoteJSON, string(q.Raw))
}

func TestClient_Quote_NoRoute(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Could not find any route","errorCode":"COULD_NOT_FIND_ANY_ROUTE"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Quote(context.Background(), solMint, usdcMint, 1, 50)
	assert.ErrorIs(t, err, ErrNoRoute)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(quoteJSON))
	}))
	defer srv.Close()

	q, err := newTestClient(srv.URL).Quote(context.Background(), solMint, usdcMint, 100_000_000, 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(15_234_567), q.AmountOut)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_SwapTransaction(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	encoded := swapTxBase64(t, user)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req map[string]json.RawMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.JSONEq(t, quoteJSON, string(req["quoteResponse"]))
		assert.Equal(t, `"`+user.String()+`"`, string(req["userPublicKey"]))
		assert.Equal(t, "true", string(req["wrapAndUnwrapSol"]))
		assert.Equal(t, "5000", string(req["prioritizationFeeLamports"]))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"swapTransaction":      encoded,
			"lastValidBlockHeight": 123,
		})
	}))
	defer srv.Close()

	quote := &Quote{Raw: json.RawMessage(quoteJSON)}
	tx, err := newTestClient(srv.URL).SwapTransaction(context.Background(), quote, user, SwapOptions{
		PrioritizationFeeLamports: 5000,
		DynamicComputeUnitLimit:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, user, tx.Message.AccountKeys[0])
	assert.Equal(t, solana.Hash{1, 2, 3}, tx.Message.RecentBlockhash)
	assert.Equal(t, solana.MessageVersionV0, tx.Message.GetVersion())
}

func TestClient_SwapTransaction_RequiresQuote(t *testing.T) {
	_, err := newTestClient("http://unused").SwapTransaction(context.Background(), &Quote{}, solana.NewWallet().PublicKey(), SwapOptions{})
	assert.Error(t, err)
}

func TestDecodeTransaction_Invalid(t *testing.T) {
	_, err := DecodeTransaction("not base64!")
	assert.Error(t, err)
}
