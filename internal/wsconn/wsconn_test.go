package wsconn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func newServer(t *testing.T, handler func(conn *websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Logf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		if handler != nil {
			handler(conn)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func echo(conn *websocket.Conn) {
	ctx := context.Background()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if err := conn.Write(ctx, typ, data); err != nil {
			return
		}
	}
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.Read(context.Background()); err != nil {
			return
		}
	}
}

func testConfig(url string) Config {
	cfg := DefaultConfig(url, "test")
	cfg.PingInterval = 0
	return cfg
}

func connect(t *testing.T, cfg Config) *Client {
	t.Helper()
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return client
}

func TestNew_RequiresURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestClient_Connect(t *testing.T) {
	_, url := newServer(t, drain)
	client := connect(t, testConfig(url))

	if !client.IsConnected() || client.State() != StateConnected {
		t.Errorf("state = %s, want connected", client.State())
	}
}

func TestClient_ConnectFailure(t *testing.T) {
	client, err := New(testConfig("ws://127.0.0.1:1"))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err == nil {
		t.Fatal("expected dial error")
	}
	if client.State() != StateDisconnected {
		t.Errorf("state = %s, want disconnected", client.State())
	}
}

func TestClient_ConnectWithRetryGivesUp(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:1")
	cfg.InitialBackoff = 5 * time.Millisecond
	cfg.MaxReconnects = 3

	client, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.ConnectWithRetry(ctx); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
}

func TestClient_SubscribeRoundTrip(t *testing.T) {
	_, url := newServer(t, echo)
	client := connect(t, testConfig(url))

	got := make(chan map[string]any, 1)
	client.OnMessage(func(_ context.Context, msg []byte) {
		var m map[string]any
		if err := json.Unmarshal(msg, &m); err == nil {
			got <- m
		}
	})

	req := map[string]any{"method": "SUBSCRIBE", "params": []string{"zrxeth@bookTicker"}, "id": 1}
	if err := client.SendJSON(context.Background(), req); err != nil {
		t.Fatalf("SendJSON() error = %v", err)
	}

	select {
	case m := <-got:
		if m["method"] != "SUBSCRIBE" {
			t.Errorf("echo = %v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestClient_StateTransitions(t *testing.T) {
	_, url := newServer(t, drain)

	client, err := New(testConfig(url))
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var states []State
	client.OnStateChange(func(s State, _ error) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	if err := client.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateConnecting, StateConnected, StateClosed}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %s, want %s", i, states[i], want[i])
		}
	}
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	_, url := newServer(t, drain)
	client := connect(t, testConfig(url))

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if client.State() != StateClosed {
		t.Errorf("state = %s, want closed", client.State())
	}
	if err := client.Send(context.Background(), []byte("x")); err == nil {
		t.Error("Send after Close must fail")
	}
	if err := client.Connect(context.Background()); !IsClosedError(err) {
		t.Errorf("Connect after Close = %v, want closed error", err)
	}
}

func TestClient_ConcurrentSend(t *testing.T) {
	var received atomic.Int32
	_, url := newServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
			received.Add(1)
		}
	})
	client := connect(t, testConfig(url))

	const senders, each = 8, 5
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < each; j++ {
				if err := client.SendJSON(context.Background(), map[string]int{"id": id, "n": j}); err != nil {
					t.Errorf("SendJSON() error = %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && received.Load() < senders*each {
		time.Sleep(10 * time.Millisecond)
	}
	if got := received.Load(); got != senders*each {
		t.Errorf("server received %d messages, want %d", got, senders*each)
	}
}

func TestClient_OversizedMessageDropsConnection(t *testing.T) {
	_, url := newServer(t, func(conn *websocket.Conn) {
		big := []byte(strings.Repeat("A", 64*1024))
		_ = conn.Write(context.Background(), websocket.MessageText, big)
		time.Sleep(200 * time.Millisecond)
	})

	cfg := testConfig(url)
	cfg.MaxMessageSize = 100
	client := connect(t, cfg)

	time.Sleep(300 * time.Millisecond)
	if client.State() == StateConnected {
		t.Error("expected oversized frame to drop the connection")
	}
}

func TestClient_ReconnectsAfterServerDrop(t *testing.T) {
	var accepts atomic.Int32
	_, url := newServer(t, func(conn *websocket.Conn) {
		if accepts.Add(1) == 1 {
			return // first connection is closed immediately
		}
		drain(conn)
	})

	cfg := testConfig(url)
	cfg.InitialBackoff = 10 * time.Millisecond
	client := connect(t, cfg)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if accepts.Load() >= 2 && client.IsConnected() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client did not reconnect, accepts = %d state = %s", accepts.Load(), client.State())
}
