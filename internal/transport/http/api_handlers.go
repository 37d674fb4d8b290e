package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/core"
)

// APIHandlers exposes read-only registry snapshots.
type APIHandlers struct {
	registry *core.Registry
	log      *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(registry *core.Registry, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		registry: registry,
		log:      logger,
	}
}

// ChannelsResponse lists channels with their member counts.
type ChannelsResponse struct {
	Channels []core.ChannelInfo `json:"channels"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListChannels returns the current channels.
// GET /api/channels
func (h *APIHandlers) ListChannels(c *gin.Context) {
	channels := h.registry.Channels()
	if channels == nil {
		channels = []core.ChannelInfo{}
	}
	c.JSON(http.StatusOK, ChannelsResponse{Channels: channels})
}

// Stats returns registry counters.
// GET /api/stats
func (h *APIHandlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Stats())
}
