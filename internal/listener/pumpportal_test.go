package listener

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func createMessage(t *testing.T, sig solana.Signature, mint solana.PublicKey) []byte {
	t.Helper()
	data, err := json.Marshal(portalMessage{
		Signature:       sig.String(),
		Mint:            mint.String(),
		TraderPublicKey: solana.NewWallet().PublicKey().String(),
		TxType:          "create",
		BondingCurveKey: solana.NewWallet().PublicKey().String(),
		Name:            "Portal Token",
		Symbol:          "PRT",
		URI:             "https://ipfs.io/ipfs/x",
	})
	require.NoError(t, err)
	return data
}

func TestParsePortalMessage(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	ev := parsePortalMessage(createMessage(t, solana.Signature{5}, mint))
	require.NotNil(t, ev)
	assert.Equal(t, mint, ev.Create.Mint)
	assert.Equal(t, "PRT", ev.Create.Symbol)
	assert.Equal(t, ev.Create.User, ev.Create.Creator)
	assert.False(t, ev.Create.BondingCurve.IsZero())

	assert.Nil(t, parsePortalMessage([]byte(`{"message":"Successfully subscribed to token creation events."}`)))
	assert.Nil(t, parsePortalMessage([]byte(`{"txType":"buy","mint":"`+mint.String()+`"}`)))
	assert.Nil(t, parsePortalMessage([]byte(`{"txType":"create","signature":"bad","mint":"bad"}`)))
	assert.Nil(t, parsePortalMessage([]byte(`not json`)))
}

func TestPumpPortalFeed(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	sig := solana.Signature{9}
	subscribed := make(chan string, 1)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, req, err := conn.ReadMessage()
		if err != nil {
			return
		}
		subscribed <- string(req)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"message":"Successfully subscribed"}`))
		_ = conn.WriteMessage(websocket.TextMessage, createMessage(t, sig, mint))
		_ = conn.WriteMessage(websocket.TextMessage, createMessage(t, sig, mint))
		// hold the connection until the client goes away
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	l := NewWithConnector("pumpportal", PumpPortalConnector(url), Options{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan *Event, 4)
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, func(_ context.Context, ev *Event) { events <- ev }) }()

	select {
	case req := <-subscribed:
		assert.JSONEq(t, `{"method":"subscribeNewToken"}`, req)
	case <-time.After(2 * time.Second):
		t.Fatal("no subscription request")
	}
	select {
	case ev := <-events:
		assert.Equal(t, mint, ev.Create.Mint)
		assert.Equal(t, sig, ev.Signature)
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
	assert.Empty(t, events)
}
