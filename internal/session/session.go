// Package session runs one client connection: it decodes a command per
// inbound frame, keeps the per-connection nickname and channel, and calls
// into the shared core.Registry for everything other sessions can observe.
package session

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/metrics"
	"github.com/vovakirdan/wirerelay/internal/proto"
	"github.com/vovakirdan/wirerelay/internal/utils"
)

// State is the position of a session in its lifecycle.
type State int

const (
	// StateUnnamed is the initial state: no nickname yet.
	StateUnnamed State = iota
	// StateNamed has a nickname but no channel.
	StateNamed
	// StateInChannel has a nickname and exactly one channel.
	StateInChannel
	// StateTerminated is final; registry state has been released.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUnnamed:
		return "unnamed"
	case StateNamed:
		return "named"
	case StateInChannel:
		return "in_channel"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// unnamedNickname is what USER shows before NICK succeeds.
const unnamedNickname = "unknown"

const (
	defaultWriteTimeout = 10 * time.Second
	drainTimeout        = time.Second
)

var errQuit = errors.New("client quit")

// Options tune a session. Zero values select defaults.
type Options struct {
	// Transport labels metrics and logs ("tcp", "ws").
	Transport string
	// SendQueueSize bounds the outbound queue; a full queue drops broadcasts.
	SendQueueSize int
	// RateLimitPerMinute caps inbound commands; 0 disables the limit.
	RateLimitPerMinute int
	// WriteTimeout bounds a single frame write to a stalled client.
	WriteTimeout time.Duration
	// Now is the clock used for PONG and the greeting.
	Now func() time.Time
}

// Session is the server side of one connection.
type Session struct {
	id        string
	transport string

	conn     net.Conn
	reader   *bufio.Reader
	registry *core.Registry
	outbox   *core.Outbox
	log      zerolog.Logger
	metrics  *metrics.Metrics
	limiter  *rateLimiter

	now          func() time.Time
	writeTimeout time.Duration

	ctx context.Context

	mu       sync.Mutex
	nickname string
	channel  string
	state    State

	releaseOnce sync.Once
	closeOnce   sync.Once
}

// New binds a session to conn. The session owns conn from here on and
// closes it when Run returns.
func New(conn net.Conn, registry *core.Registry, logger *zerolog.Logger, m *metrics.Metrics, opts Options) *Session {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.Transport == "" {
		opts.Transport = "tcp"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}

	id := utils.NewID()
	remote := "unknown"
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}

	return &Session{
		id:           id,
		transport:    opts.Transport,
		conn:         conn,
		reader:       bufio.NewReader(conn),
		registry:     registry,
		outbox:       core.NewOutbox(id, opts.SendQueueSize),
		log:          logger.With().Str("session_id", id).Str("remote_addr", remote).Str("transport", opts.Transport).Logger(),
		metrics:      m,
		limiter:      newRateLimiter(opts.RateLimitPerMinute, time.Minute),
		now:          opts.Now,
		writeTimeout: opts.WriteTimeout,
		ctx:          context.Background(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Nickname returns the current nickname, or "" before NICK succeeds.
func (s *Session) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

// Channel returns the current channel, or "".
func (s *Session) Channel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Run serves the connection until the client quits, disconnects, fails to
// decode, or ctx is cancelled. Registry state held for the session is
// released exactly once on every exit path.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx

	s.metrics.SessionOpened(s.transport)
	defer s.metrics.SessionClosed()
	defer s.closeConn()
	defer s.release()

	s.log.Info().Msg("session started")

	readErr := make(chan error, 1)
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- s.writeLoop()
	}()
	go func() {
		readErr <- s.readLoop()
	}()

	var err error
	select {
	case err = <-readErr:
		// Reader is done: release first so nobody broadcasts to us, then
		// let the writer flush what is already queued.
		s.release()
		s.outbox.Close()
		<-writeErr
	case err = <-writeErr:
		s.outbox.Close()
		s.closeConn()
		<-readErr
	case <-ctx.Done():
		err = ctx.Err()
		s.outbox.Close()
		s.closeConn()
		<-readErr
		<-writeErr
	}

	switch {
	case errors.Is(err, errQuit):
		s.log.Info().Msg("session quit")
		return nil
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed),
		errors.Is(err, io.ErrClosedPipe), errors.Is(err, context.Canceled):
		s.log.Info().Msg("client disconnected")
		return nil
	default:
		s.log.Warn().Err(err).Msg("session closed with error")
		return err
	}
}

func (s *Session) readLoop() error {
	s.greet()

	for {
		line, err := proto.ReadFrame(s.reader)
		if err != nil {
			return err
		}
		if !s.limiter.allow(s.now()) {
			s.replyErr(core.ErrRateLimited)
			continue
		}
		if quit := s.handle(line); quit {
			return errQuit
		}
	}
}

func (s *Session) writeLoop() error {
	for {
		select {
		case line := <-s.outbox.Queue():
			if err := s.write(line, s.writeTimeout); err != nil {
				if errors.Is(err, proto.ErrFrameTooLong) {
					s.dropLine(err)
					continue
				}
				s.log.Warn().Err(err).Msg("write frame")
				return err
			}
		case <-s.outbox.Done():
			return s.drain()
		}
	}
}

// drain flushes lines queued before the outbox closed. One deadline
// covers the whole flush.
func (s *Session) drain() error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(drainTimeout)); err != nil {
		return nil
	}
	for {
		select {
		case line := <-s.outbox.Queue():
			if err := proto.WriteFrame(s.conn, line); err != nil {
				if errors.Is(err, proto.ErrFrameTooLong) {
					s.dropLine(err)
					continue
				}
				return nil
			}
		default:
			return nil
		}
	}
}

// dropLine accounts for a line that cannot be framed. The connection is fine.
func (s *Session) dropLine(err error) {
	s.metrics.DeliveryDropped()
	s.log.Warn().Err(err).Msg("outbound line dropped")
}

func (s *Session) write(line string, timeout time.Duration) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return proto.WriteFrame(s.conn, line)
}

// reply queues a line for this session only.
func (s *Session) reply(line string) {
	if err := s.outbox.Send(s.ctx, line); err != nil {
		s.log.Debug().Err(err).Str("line", line).Msg("reply dropped")
	}
}

func (s *Session) replyErr(err error) {
	var ce *core.CoreError
	if errors.As(err, &ce) {
		s.log.Debug().Str("code", ce.Code).Msg("command rejected")
		s.reply(ce.Message)
		return
	}
	s.reply(err.Error())
}

// release drops the session's channel membership and nickname.
func (s *Session) release() {
	s.releaseOnce.Do(func() {
		s.mu.Lock()
		nickname, channel := s.nickname, s.channel
		s.channel = ""
		s.state = StateTerminated
		s.mu.Unlock()

		s.registry.Leave(channel, s.outbox)
		if nickname != "" {
			s.registry.ReleaseNickname(nickname, s.outbox)
		}
		s.log.Debug().Str("nickname", nickname).Str("channel", channel).Msg("session released")
	})
}

func (s *Session) closeConn() {
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.Debug().Err(err).Msg("close connection")
		}
	})
}
