// Package client is the interactive terminal side of the relay: stdin lines
// go out as frames and every inbound frame is printed.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/proto"
)

const quitCommand = "QUIT"

// Options tune the client. Zero values select defaults.
type Options struct {
	// Color forces ANSI colors on or off regardless of the terminal.
	Color bool
	// Now is the clock used to compute PONG latency.
	Now func() time.Time
}

// Client relays between a terminal and one server connection.
type Client struct {
	conn net.Conn
	out  io.Writer
	log  *zerolog.Logger
	now  func() time.Time

	whisper *color.Color
	errLine *color.Color
	ping    *color.Color

	closeOnce sync.Once
}

// New creates a client over conn that prints to out.
func New(conn net.Conn, out io.Writer, logger *zerolog.Logger, opts Options) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Client{
		conn:    conn,
		out:     out,
		log:     logger,
		now:     opts.Now,
		whisper: color.New(color.FgMagenta),
		errLine: color.New(color.FgRed),
		ping:    color.New(color.FgCyan),
	}
	for _, col := range []*color.Color{c.whisper, c.errLine, c.ping} {
		if opts.Color {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

// Run sends each line of in as a frame and prints server frames until the
// server closes the connection or ctx is cancelled. Sending stops after QUIT
// or at the end of in.
func (c *Client) Run(ctx context.Context, in io.Reader) error {
	defer c.close()

	stop := context.AfterFunc(ctx, c.close)
	defer stop()

	go c.sendLoop(in)

	err := c.receiveLoop()
	fmt.Fprintln(c.out, "Disconnected from server")
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *Client) sendLoop(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if err := proto.WriteFrame(c.conn, line); err != nil {
			c.log.Error().Err(err).Msg("error sending message")
			c.close()
			return
		}
		if strings.EqualFold(line, quitCommand) {
			// The server answers and closes; receiveLoop sees the EOF.
			return
		}
	}
	if err := scanner.Err(); err != nil {
		c.log.Error().Err(err).Msg("read input")
	}
	c.close()
}

func (c *Client) receiveLoop() error {
	r := bufio.NewReader(c.conn)
	for {
		line, err := proto.ReadFrame(r)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}
		fmt.Fprintln(c.out, c.render(line))
	}
}

// render turns one server line into its terminal form.
func (c *Client) render(line string) string {
	if serverTime, ok := proto.ParsePong(line); ok {
		return c.ping.Sprintf("Ping: %dms", proto.Latency(serverTime, c.now()).Milliseconds())
	}
	switch {
	case strings.HasPrefix(line, "[Whisper from "):
		return c.whisper.Sprint(line)
	case strings.HasPrefix(line, "Error:"):
		return c.errLine.Sprint(line)
	default:
		return line
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.log.Debug().Err(err).Msg("close connection")
		}
	})
}
