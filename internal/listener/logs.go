package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
)

// Stream is a live logs subscription; *ws.LogSubscription satisfies it.
type Stream interface {
	Recv(ctx context.Context) (*ws.LogResult, error)
	Unsubscribe()
}

// Conn is one RPC websocket connection.
type Conn interface {
	LogsSubscribeMentions(mentions solana.PublicKey, commitment rpc.CommitmentType) (Stream, error)
	Close()
}

// DialFunc opens a connection to url.
type DialFunc func(ctx context.Context, url string) (Conn, error)

type wsConn struct{ client *ws.Client }

func (c wsConn) LogsSubscribeMentions(mentions solana.PublicKey, commitment rpc.CommitmentType) (Stream, error) {
	return c.client.LogsSubscribeMentions(mentions, commitment)
}

func (c wsConn) Close() { c.client.Close() }

// DialWS connects with the solana-go websocket client.
func DialWS(ctx context.Context, url string) (Conn, error) {
	client, err := ws.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	return wsConn{client: client}, nil
}

// LogsConnector subscribes to the logs of every transaction mentioning program
// and decodes CreateEvents from them.
func LogsConnector(url string, dial DialFunc, program solana.PublicKey, commitment rpc.CommitmentType) Connector {
	return func(ctx context.Context) (Feed, error) {
		conn, err := dial(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", url, err)
		}
		sub, err := conn.LogsSubscribeMentions(program, commitment)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("subscribe: %w", err)
		}
		return &logsFeed{conn: conn, sub: sub}, nil
	}
}

type logsFeed struct {
	conn Conn
	sub  Stream
}

func (f *logsFeed) Next(ctx context.Context) (*Event, error) {
	msg, err := f.sub.Recv(ctx)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.Value.Err != nil {
		return nil, nil
	}
	create, ok := pumpfun.FindCreateEvent(msg.Value.Logs)
	if !ok {
		return nil, nil
	}
	return &Event{
		Signature:  msg.Value.Signature,
		Slot:       msg.Context.Slot,
		Create:     create,
		ReceivedAt: time.Now(),
	}, nil
}

func (f *logsFeed) Close() {
	f.sub.Unsubscribe()
	f.conn.Close()
}
