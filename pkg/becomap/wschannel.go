package becomap

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// WSChannel carries the bridge protocol over a WebSocket connection to
// the engine's bridge endpoint.
type WSChannel struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	recv    chan Message

	closeOnce sync.Once
	closed    chan struct{}

	errMu sync.Mutex
	err   error
}

// DialWS connects to a bridge endpoint (ws:// or wss://) and starts the
// read pump. The optional header carries auth for the handshake.
func DialWS(ctx context.Context, url string, header http.Header) (*WSChannel, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, Wrap(CodeUnauthorized, "bridge handshake rejected", err)
		}
		return nil, Wrap(CodeChannelUnavailable, "dial bridge", err)
	}
	conn.SetReadLimit(MaxMessageBytes)

	ch := &WSChannel{
		conn:   conn,
		recv:   make(chan Message, pipeBuffer),
		closed: make(chan struct{}),
	}
	go ch.readPump()
	return ch, nil
}

func (ch *WSChannel) readPump() {
	defer close(ch.recv)
	for {
		_, data, err := ch.conn.ReadMessage()
		if err != nil {
			ch.setErr(err)
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			// Drop undecodable frames and keep reading.
			continue
		}
		select {
		case ch.recv <- msg:
		case <-ch.closed:
			return
		}
	}
}

func (ch *WSChannel) setErr(err error) {
	select {
	case <-ch.closed:
		// Local Close raced the read loop; not a transport failure.
		return
	default:
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	ch.errMu.Lock()
	if ch.err == nil {
		ch.err = Wrap(CodeChannelUnavailable, "bridge connection lost", err)
	}
	ch.errMu.Unlock()
}

// Send writes one envelope. Writes are serialized; the context deadline
// bounds the write when set.
func (ch *WSChannel) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return Wrap(CodeInvalidArgument, "encode message", err)
	}
	if len(data) > MaxMessageBytes {
		return New(CodePayloadTooLarge, "message exceeds size limit")
	}

	select {
	case <-ch.closed:
		return New(CodeChannelUnavailable, "channel closed")
	default:
	}

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	_ = ch.conn.SetWriteDeadline(deadline)
	if err := ch.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return Wrap(CodeSendFailed, "write frame", err)
	}
	return nil
}

// Receive returns the inbound message stream. It closes when the
// connection dies or Close is called.
func (ch *WSChannel) Receive() <-chan Message {
	return ch.recv
}

// Close sends a close frame best-effort and tears the connection down.
func (ch *WSChannel) Close() error {
	var err error
	ch.closeOnce.Do(func() {
		close(ch.closed)
		ch.writeMu.Lock()
		_ = ch.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = ch.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		ch.writeMu.Unlock()
		err = ch.conn.Close()
	})
	return err
}

// Err reports why Receive closed; nil after a clean Close.
func (ch *WSChannel) Err() error {
	ch.errMu.Lock()
	defer ch.errMu.Unlock()
	return ch.err
}
