package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/orunio/climate/backend/internal/aggregator"
	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/pkg/logger"
)

const writeWait = 10 * time.Second

// StreamMessage is one websocket frame
type StreamMessage struct {
	Type   string                     `json:"type"` // "entry" | "record"
	Entry  *contracts.SourceEntry     `json:"entry,omitempty"`
	Record *contracts.AggregateRecord `json:"record,omitempty"`
}

// StreamHandler pushes per-source entries while a region aggregates
type StreamHandler struct {
	regions  *RegionHandler
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewStreamHandler creates a new stream handler over the region handler's table and aggregator
func NewStreamHandler(regions *RegionHandler, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		regions: regions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// Aggregate streams one run
// GET /ws/aggregate/{name}?sources=a,b
func (h *StreamHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.regions.lookup(w, r)
	if !ok {
		return
	}
	sources, ok := h.regions.sources(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// r.Context() outlives a dropped client after Upgrade, so the read side drives cancellation
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.readLoop(conn, cancel)

	send := func(msg StreamMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg) == nil
	}

	// Progress calls are serialized, so writes from the callback do not interleave
	alive := true
	rec := h.regions.agg.Run(ctx, aggregator.Request{
		Region: reg,
		Names:  sources,
		Progress: func(e contracts.SourceEntry) {
			if alive {
				alive = send(StreamMessage{Type: "entry", Entry: &e})
			}
		},
	})

	if alive {
		send(StreamMessage{Type: "record", Record: &rec})
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(writeWait))
}

// readLoop drains client frames until the connection fails or closes
func (h *StreamHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.WithError(err).Debug("WebSocket client gone")
			}
			return
		}
	}
}
