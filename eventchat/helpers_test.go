package eventchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"
)

const baseTimeout = 5 * time.Second

// chatServer is a scripted stand-in for the chat service. Each accepted
// connection is handed to the script (if any) and then drained into the
// received frame list.
type chatServer struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	received []ClientFrame

	conns chan *websocket.Conn
}

func newChatServer(t *testing.T, script func(ctx context.Context, c *websocket.Conn)) *chatServer {
	t.Helper()
	s := &chatServer{t: t, conns: make(chan *websocket.Conn, 8)}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		s.conns <- c
		ctx := r.Context()
		if script != nil {
			script(ctx, c)
		}
		for {
			var f ClientFrame
			if err := wsjson.Read(ctx, c, &f); err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, f)
			s.mu.Unlock()
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *chatServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *chatServer) awaitConn() *websocket.Conn {
	s.t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(baseTimeout):
		s.t.Fatal("timeout waiting for connection")
		return nil
	}
}

// push writes a server frame onto an accepted connection.
func (s *chatServer) push(c *websocket.Conn, frameType string, payload any) {
	s.t.Helper()
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(s.t, err)
		data = b
	}
	ctx, cancel := context.WithTimeout(context.Background(), baseTimeout)
	defer cancel()
	require.NoError(s.t, wsjson.Write(ctx, c, ServerFrame{Type: frameType, Data: data}))
}

func (s *chatServer) frames() []ClientFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ClientFrame, len(s.received))
	copy(out, s.received)
	return out
}

// goroutinesIn counts live goroutines whose stack mentions the given
// function name. Used to assert that loops shut down with their owner.
func goroutinesIn(fn string) int {
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	return strings.Count(string(buf[:n]), fn)
}

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = url
	cfg.Token = "test-token"
	return cfg
}

func testParticipant(id, first string) Participant {
	return Participant{ID: id, FirstName: first}
}

func testMessage(id int64, sender Participant, body string) Message {
	return Message{ID: id, Sender: sender, Body: body, CreatedAt: time.Now().UTC()}
}
