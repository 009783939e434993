package console

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/monitor"
	"github.com/GriffinCanCode/confirmscout/internal/server"
)

// Conn is the console's link to a running server.
type Conn interface {
	Send(ctx context.Context, cmd string) error
	Next(ctx context.Context) (any, error)
	Close() error
}

// Client is a websocket Conn.
type Client struct {
	conn *websocket.Conn
}

// Dial connects to the server's /ws endpoint. addr is host:port or a full
// ws:// URL.
func Dial(ctx context.Context, addr string) (*Client, error) {
	url := addr
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		url = "ws://" + addr + "/ws"
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unavailable, "dial "+url)
	}
	return &Client{conn: conn}, nil
}

// Send issues a command.
func (c *Client) Send(ctx context.Context, cmd string) error {
	return wsjson.Write(ctx, c.conn, server.Command{Type: cmd})
}

// Next blocks for the next server message and decodes it.
func (c *Client) Next(ctx context.Context) (any, error) {
	var raw json.RawMessage
	if err := wsjson.Read(ctx, c.conn, &raw); err != nil {
		return nil, err
	}
	return decode(raw)
}

func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// decode picks the message type from its "type" field. Status snapshots and
// monitor status events share a shape.
func decode(data []byte) (any, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var msg any
	switch head.Type {
	case "hello":
		msg = &server.HelloMessage{}
	case "status":
		msg = &server.StatusMessage{}
	case "activity":
		msg = &server.ActivityMessage{}
	case "clicked":
		msg = &server.ClickedMessage{}
	case "ack":
		msg = &server.AckMessage{}
	case "error":
		msg = &server.ErrorMessage{}
	case string(monitor.EventStable), string(monitor.EventScroll):
		msg = &monitor.Event{}
	default:
		return nil, fmt.Errorf("unknown message type %q", head.Type)
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
