package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"grateful.app/notifier/internal/application"
	"grateful.app/notifier/internal/domain"
	"grateful.app/notifier/internal/syncbus"
)

// Handler holds all HTTP handler methods of the local view surface.
type Handler struct {
	store  *application.Store
	poller *application.Poller
	bus    *syncbus.Bus
	hub    *Hub
	now    func() time.Time
	detach []func()
}

// NewHandler creates a Handler and starts forwarding store snapshots and
// profile updates to SSE clients. Close stops the forwarding.
func NewHandler(store *application.Store, poller *application.Poller, bus *syncbus.Bus, hub *Hub) *Handler {
	h := &Handler{store: store, poller: poller, bus: bus, hub: hub, now: time.Now}
	h.detach = append(h.detach,
		store.OnChange(func(s application.Snapshot) {
			hub.Broadcast("snapshot", NewSnapshotView(s, h.now()))
		}),
		bus.Subscribe(syncbus.AnyUser, func(u domain.ProfileUpdate) {
			hub.Broadcast("profile", u)
		}),
	)
	return h
}

// Close detaches the handler from the store and the bus.
func (h *Handler) Close() {
	for _, fn := range h.detach {
		fn()
	}
	h.detach = nil
}

// --- REST Handlers ---

// ListNotifications GET /notifications
func (h *Handler) ListNotifications(c echo.Context) error {
	return c.JSON(http.StatusOK, NewSnapshotView(h.store.Snapshot(), h.now()))
}

// GetUnreadCount GET /notifications/unread-count
func (h *Handler) GetUnreadCount(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int{"count": h.store.Unread()})
}

// MarkRead POST /notifications/:id/read
func (h *Handler) MarkRead(c echo.Context) error {
	if err := h.store.MarkRead(c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"unread": h.store.Unread()})
}

// MarkAllRead POST /notifications/read-all
func (h *Handler) MarkAllRead(c echo.Context) error {
	h.store.MarkAllRead()
	return c.JSON(http.StatusOK, map[string]int{"unread": h.store.Unread()})
}

// Toggle POST /notifications/:id/toggle
// A failed children fetch is not an error for the view: the batch stays closed.
func (h *Handler) Toggle(c echo.Context) error {
	id := c.Param("id")

	open, err := h.store.Toggle(c.Request().Context(), id)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNotBatch) {
		return toHTTPError(err)
	}
	if err != nil {
		log.Debug().Err(err).Str("batch", id).Msg("expansion failed, batch stays collapsed")
	}

	resp := map[string]any{"id": id, "expanded": open}
	if open {
		kids, _ := h.store.Children(id)
		resp["children"] = toViews(kids, h.now())
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh POST /notifications/refresh
func (h *Handler) Refresh(c echo.Context) error {
	err := h.poller.Refresh(c.Request().Context())
	if errors.Is(err, application.ErrPollerStopped) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	if err != nil {
		log.Debug().Err(err).Msg("manual refresh failed, keeping previous state")
	}
	return c.JSON(http.StatusOK, map[string]any{"refreshed": err == nil, "unread": h.store.Unread()})
}

// PublishProfile POST /profiles/:userId
// The body is a partial patch; absent fields are left untouched by subscribers.
func (h *Handler) PublishProfile(c echo.Context) error {
	var patch domain.ProfilePatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid profile patch")
	}
	if err := c.Validate(&patch); err != nil {
		return err
	}
	if patch.Empty() {
		return echo.NewHTTPError(http.StatusBadRequest, "profile patch has no fields")
	}
	delivered := h.bus.Publish(c.Param("userId"), patch)
	return c.JSON(http.StatusOK, map[string]int{"delivered": delivered})
}

// --- SSE Handler ---

// Stream GET /notifications/stream (SSE)
func (h *Handler) Stream(c echo.Context) error {
	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sendCh := make(chan []byte, 32)
	client := h.hub.Register(sendCh)
	defer h.hub.Unregister(client)

	// Current state first so a new view does not wait for the next change.
	fmt.Fprint(w, string(buildSSEMessage("snapshot", NewSnapshotView(h.store.Snapshot(), h.now()))))
	w.Flush()

	log.Info().Str("client", client.id.String()).Msg("SSE stream opened")

	ctx := c.Request().Context()
	for {
		select {
		case msg, ok := <-sendCh:
			if !ok {
				return nil
			}
			if _, err := w.Write(msg); err != nil {
				return nil
			}
			w.Flush()

		case <-ctx.Done():
			log.Info().Str("client", client.id.String()).Msg("SSE stream closed by client")
			return nil
		}
	}
}

// --- Healthcheck ---

// Health GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"sse_clients": h.hub.ConnectedCount(),
		"unread":      h.store.Unread(),
	})
}

// --- Helpers ---

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotBatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.ErrInternalServerError
}
