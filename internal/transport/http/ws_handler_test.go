package http

import (
	"bufio"
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/wirerelay/internal/config"
	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/metrics"
	"github.com/vovakirdan/wirerelay/internal/proto"
)

func startTestServer(t *testing.T) (*httptest.Server, *core.Registry) {
	t.Helper()

	m := metrics.New()
	registry := core.NewRegistry(nil, m)
	cfg := config.Default()
	cfg.RateLimitPerMinute = 0

	server := NewServer(registry, cfg, nil, m)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, registry
}

type wsClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dialWS(t *testing.T, ctx context.Context, ts *httptest.Server) *wsClient {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	netConn := websocket.NetConn(ctx, conn, websocket.MessageBinary)
	t.Cleanup(func() { _ = netConn.Close() })

	c := &wsClient{t: t, conn: netConn, reader: bufio.NewReader(netConn)}
	c.skipGreeting()
	return c
}

func (c *wsClient) send(line string) {
	c.t.Helper()
	if err := proto.WriteFrame(c.conn, line); err != nil {
		c.t.Fatalf("write frame: %v", err)
	}
}

func (c *wsClient) next() string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	line, err := proto.ReadFrame(c.reader)
	if err != nil {
		c.t.Fatalf("read frame: %v", err)
	}
	return line
}

// skipGreeting consumes the connect banner up to the end of the command list.
func (c *wsClient) skipGreeting() {
	c.t.Helper()
	for c.next() != "8. USER: Display user information" {
	}
	c.next()
}

func TestWebSocketSessionRelaysChannelMessages(t *testing.T) {
	ts, registry := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dialWS(t, ctx, ts)
	bob := dialWS(t, ctx, ts)

	alice.send("NICK alice")
	if got := alice.next(); got != "Nickname set to 'alice'" {
		t.Fatalf("unexpected reply: %q", got)
	}
	bob.send("NICK bob")
	if got := bob.next(); got != "Nickname set to 'bob'" {
		t.Fatalf("unexpected reply: %q", got)
	}

	alice.send("JOIN general")
	alice.next()
	bob.send("JOIN general")
	bob.next()

	if n := registry.Members("general"); n != 2 {
		t.Fatalf("expected 2 members, got %d", n)
	}

	alice.send("hi there")
	if got := bob.next(); got != "[alice] hi there" {
		t.Fatalf("unexpected broadcast: %q", got)
	}
	if got := alice.next(); got != "[alice] hi there" {
		t.Fatalf("sender should see its own line, got %q", got)
	}
}
