package http

import (
	"context"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/metrics"
	"github.com/vovakirdan/wirerelay/internal/proto"
	"github.com/vovakirdan/wirerelay/internal/session"
)

// WSHandler upgrades HTTP connections and runs a regular session over them.
// Binary messages carry the same length-prefixed frame stream as TCP.
type WSHandler struct {
	registry *core.Registry
	log      *zerolog.Logger
	metrics  *metrics.Metrics
	opts     session.Options
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(registry *core.Registry, logger *zerolog.Logger, m *metrics.Metrics, opts session.Options) stdhttp.Handler {
	return &WSHandler{registry: registry, log: logger, metrics: m, opts: opts}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	// One message may hold a whole frame plus its prefix.
	conn.SetReadLimit(proto.MaxFrameBytes + 2)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	netConn := websocket.NetConn(ctx, conn, websocket.MessageBinary)
	sess := session.New(netConn, h.registry, h.log, h.metrics, h.opts)
	if err := sess.Run(ctx); err != nil {
		h.log.Warn().Err(err).Str("session_id", sess.ID()).Msg("ws session ended with error")
	}
}
