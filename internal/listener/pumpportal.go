package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
)

// PumpPortalURL is the public PumpPortal data feed.
const PumpPortalURL = "wss://pumpportal.fun/api/data"

// portalMessage is a PumpPortal trade or create notification.
type portalMessage struct {
	Signature       string `json:"signature"`
	Mint            string `json:"mint"`
	TraderPublicKey string `json:"traderPublicKey"`
	TxType          string `json:"txType"`
	BondingCurveKey string `json:"bondingCurveKey"`
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	URI             string `json:"uri"`
}

// PumpPortalConnector subscribes to new token notifications from a PumpPortal feed.
func PumpPortalConnector(url string) Connector {
	return func(ctx context.Context) (Feed, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", url, err)
		}
		sub, _ := json.Marshal(map[string]string{"method": "subscribeNewToken"})
		if err := conn.WriteMessage(websocket.TextMessage, sub); err != nil {
			conn.Close()
			return nil, fmt.Errorf("subscribe: %w", err)
		}

		f := &portalFeed{conn: conn, done: make(chan struct{})}
		// ReadMessage does not take a context; closing the socket unblocks it
		go func() {
			select {
			case <-ctx.Done():
				f.Close()
			case <-f.done:
			}
		}()
		return f, nil
	}
}

type portalFeed struct {
	conn *websocket.Conn
	done chan struct{}
	once sync.Once
}

func (f *portalFeed) Next(ctx context.Context) (*Event, error) {
	_, data, err := f.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return parsePortalMessage(data), nil
}

func (f *portalFeed) Close() {
	f.once.Do(func() {
		close(f.done)
		_ = f.conn.Close()
	})
}

// parsePortalMessage returns nil for acknowledgements, trades and malformed payloads.
func parsePortalMessage(data []byte) *Event {
	var msg portalMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.TxType != "create" {
		return nil
	}
	sig, err := solana.SignatureFromBase58(msg.Signature)
	if err != nil {
		return nil
	}
	mint, err := solana.PublicKeyFromBase58(msg.Mint)
	if err != nil {
		return nil
	}
	create := &pumpfun.CreateEvent{Name: msg.Name, Symbol: msg.Symbol, URI: msg.URI, Mint: mint}
	if pk, err := solana.PublicKeyFromBase58(msg.BondingCurveKey); err == nil {
		create.BondingCurve = pk
	}
	if pk, err := solana.PublicKeyFromBase58(msg.TraderPublicKey); err == nil {
		create.User = pk
		create.Creator = pk
	}
	return &Event{Signature: sig, Create: create, ReceivedAt: time.Now()}
}
