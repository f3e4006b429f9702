package solbc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

// fakeNode answers JSON-RPC calls through handler, which returns either a result or an error object.
func fakeNode(t *testing.T, handler func(method string, call int) (result interface{}, rpcErr map[string]interface{})) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req rpcRequest
		require.NoError(t, json.Unmarshal(body, &req))

		n := atomic.AddInt32(&calls, 1)
		result, rpcErr := handler(req.Method, int(n))
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testOptions() Options {
	return Options{
		MaxRetries:    3,
		RetryInterval: time.Millisecond,
		ConfirmPoll:   5 * time.Millisecond,
	}
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(nil, testOptions(), zap.NewNop())
	assert.Error(t, err)
}

func TestRPCPool_RoundRobin(t *testing.T) {
	pool, err := NewRPCPool([]string{"http://a", "http://b", "http://c"})
	require.NoError(t, err)
	assert.Equal(t, 3, pool.Size())

	seen := map[interface{}]int{}
	for i := 0; i < 6; i++ {
		seen[pool.Next()]++
	}
	assert.Len(t, seen, 3)
	for _, n := range seen {
		assert.Equal(t, 2, n)
	}
}

func TestGetBalance_RetriesTransientErrors(t *testing.T) {
	srv, calls := fakeNode(t, func(method string, call int) (interface{}, map[string]interface{}) {
		assert.Equal(t, "getBalance", method)
		if call == 1 {
			return nil, map[string]interface{}{"code": -32005, "message": "Node is behind"}
		}
		return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": 12345}, nil
	})

	c, err := NewClient([]string{srv.URL}, testOptions(), zap.NewNop())
	require.NoError(t, err)

	bal, err := c.GetBalance(context.Background(), solana.SystemProgramID)
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), bal)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestGetBalance_DoesNotRetryRequestErrors(t *testing.T) {
	srv, calls := fakeNode(t, func(string, int) (interface{}, map[string]interface{}) {
		return nil, map[string]interface{}{"code": -32602, "message": "Invalid params"}
	})

	c, err := NewClient([]string{srv.URL}, testOptions(), zap.NewNop())
	require.NoError(t, err)

	_, err = c.GetBalance(context.Background(), solana.SystemProgramID)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	var rpcErr *jsonrpc.RPCError
	assert.ErrorAs(t, err, &rpcErr)
}

func TestGetAccountInfo_NotFound(t *testing.T) {
	srv, _ := fakeNode(t, func(string, int) (interface{}, map[string]interface{}) {
		return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": nil}, nil
	})

	c, err := NewClient([]string{srv.URL}, testOptions(), zap.NewNop())
	require.NoError(t, err)

	_, err = c.GetAccountInfo(context.Background(), solana.SystemProgramID)
	require.Error(t, err)
	assert.True(t, IsAccountNotFoundError(err))
}

func TestWaitForConfirmation(t *testing.T) {
	srv, _ := fakeNode(t, func(method string, call int) (interface{}, map[string]interface{}) {
		status := "processed"
		if call >= 3 {
			status = "confirmed"
		}
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value": []interface{}{map[string]interface{}{
				"slot":               1,
				"confirmations":      nil,
				"err":                nil,
				"confirmationStatus": status,
			}},
		}, nil
	})

	c, err := NewClient([]string{srv.URL}, testOptions(), zap.NewNop())
	require.NoError(t, err)

	err = c.WaitForConfirmation(context.Background(), solana.Signature{}, time.Second)
	assert.NoError(t, err)
}

func TestWaitForConfirmation_FailedOnChain(t *testing.T) {
	srv, _ := fakeNode(t, func(string, int) (interface{}, map[string]interface{}) {
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value": []interface{}{map[string]interface{}{
				"slot":               1,
				"err":                map[string]interface{}{"InstructionError": []interface{}{2, map[string]interface{}{"Custom": 6002}}},
				"confirmationStatus": "confirmed",
			}},
		}, nil
	})

	c, err := NewClient([]string{srv.URL}, testOptions(), zap.NewNop())
	require.NoError(t, err)

	err = c.WaitForConfirmation(context.Background(), solana.Signature{}, time.Second)
	assert.ErrorIs(t, err, ErrTransactionFailed)
}

func TestWaitForConfirmation_Timeout(t *testing.T) {
	srv, _ := fakeNode(t, func(string, int) (interface{}, map[string]interface{}) {
		return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": []interface{}{nil}}, nil
	})

	c, err := NewClient([]string{srv.URL}, testOptions(), zap.NewNop())
	require.NoError(t, err)

	err = c.WaitForConfirmation(context.Background(), solana.Signature{}, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrConfirmationTimeout)
}
