package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/agency-dashboard/internal/store"
)

// ChangesHandler streams store change notifications to dashboards so they
// can refetch the affected collections.
type ChangesHandler struct {
	source      store.Store
	collections []string
	logger      *zap.Logger
}

// NewChangesHandler constructs handler.
func NewChangesHandler(source store.Store, logger *zap.Logger, collections ...string) *ChangesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangesHandler{source: source, collections: collections, logger: logger}
}

// Upgrade rejects plain HTTP requests to the feed.
func (h *ChangesHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Stream handles GET /ws/changes.
func (h *ChangesHandler) Stream() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *ChangesHandler) serve(conn *websocket.Conn) {
	defer conn.Close()

	changes := make(chan store.Change, 64)
	for _, collection := range h.collections {
		cancel := h.source.Subscribe(collection, func(change store.Change) {
			select {
			case changes <- change:
			default:
				h.logger.Warn("change feed client too slow; dropping notification", zap.String("collection", change.Collection))
			}
		})
		defer cancel()
	}

	// the reader only detects the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case change := <-changes:
			if err := conn.WriteJSON(change); err != nil {
				h.logger.Debug("change feed write failed", zap.Error(err))
				return
			}
		}
	}
}
