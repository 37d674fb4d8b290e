package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/wirerelay/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:9911/ws", "WebSocket address")
	nick := flag.String("nick", "tester", "nickname to register")
	channel := flag.String("channel", "general", "channel name")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	conn := websocket.NetConn(ctx, ws, websocket.MessageBinary)
	defer conn.Close()

	for _, line := range []string{"NICK " + *nick, "JOIN " + *channel, *text, "PING"} {
		if err := proto.WriteFrame(conn, line); err != nil {
			return fmt.Errorf("send %q: %w", line, err)
		}
	}

	echo := fmt.Sprintf("[%s] %s", *nick, *text)
	sawEcho := false

	r := bufio.NewReader(conn)
	for {
		line, err := proto.ReadFrame(r)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		if serverTime, ok := proto.ParsePong(line); ok {
			fmt.Printf("Ping: %dms\n", proto.Latency(serverTime, time.Now()).Milliseconds())
			if !sawEcho {
				return fmt.Errorf("no echo of %q before PONG", echo)
			}
			return proto.WriteFrame(conn, "QUIT")
		}

		fmt.Printf("Received: %s\n", line)
		if line == echo {
			sawEcho = true
		}
	}
}
