package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"livepoll/internal/protocol"
	"livepoll/pkg/logger"
)

// fakeConn is an in-memory Conn. Reads block until the connection closes;
// writes are recorded.
type fakeConn struct {
	mu     sync.Mutex
	writes [][]byte
	closed bool
	done   chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{done: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.done
	return 0, nil, errors.New("connection closed")
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("connection closed")
	}
	f.writes = append(f.writes, data)
	return nil
}

func (f *fakeConn) SetReadLimit(int64) {}

func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.done)
	}
	return nil
}

func newTestHub() (*Hub, *Registry) {
	registry := NewRegistry()
	return NewHub(registry, logger.NewNop()), registry
}

func newTestClient() *Client {
	return NewClient(newFakeConn())
}

// drain empties the client's send buffer and returns the queued frames.
func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func decodeFrame(t *testing.T, raw []byte) protocol.ServerMessage {
	t.Helper()
	var msg protocol.ServerMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

// lastFrameOfType scans the queued frames for the newest one of the given
// type and returns it decoded.
func lastFrameOfType(t *testing.T, frames [][]byte, msgType string) (protocol.ServerMessage, bool) {
	t.Helper()
	var found protocol.ServerMessage
	ok := false
	for _, raw := range frames {
		msg := decodeFrame(t, raw)
		if msg.Type == msgType {
			found = msg
			ok = true
		}
	}
	return found, ok
}

func activeUsersData(t *testing.T, msg protocol.ServerMessage) protocol.ActiveUsersData {
	t.Helper()
	raw, err := json.Marshal(msg.Data)
	require.NoError(t, err)
	var data protocol.ActiveUsersData
	require.NoError(t, json.Unmarshal(raw, &data))
	return data
}
