package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/randomly-source/guided-surveys/internal/feed"
	"github.com/randomly-source/guided-surveys/internal/schema"
	"github.com/randomly-source/guided-surveys/internal/store"
	syncengine "github.com/randomly-source/guided-surveys/internal/sync"
)

// WebSocketHandler streams live session snapshots to the agent and
// customer views. Each connection runs its own sync engine: initial load,
// household merge, change-feed subscription, and polling fallback, torn
// down when the connection goes away.
type WebSocketHandler struct {
	repo          store.Repository
	hub           *feed.Hub
	pollInterval  time.Duration
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(repo store.Repository, hub *feed.Hub, pollInterval time.Duration, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		repo:          repo,
		hub:           hub,
		pollInterval:  pollInterval,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// snapshot is one full-state push to a connected view.
type snapshot struct {
	Type      string                     `json:"type"`
	Session   interface{}                `json:"session"`
	Responses map[string]json.RawMessage `json:"responses"`
	PageCount int                        `json:"page_count"`
}

// ServeHTTP upgrades the connection and streams snapshots until the client
// disconnects. Sessions are addressed by the `session` query parameter,
// the same link contract both views use.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "missing session parameter", http.StatusBadRequest)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session view closed"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	slog.Info("Session view connected", "session_id", sessionID, "ip", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	onStatus := func(status syncengine.SubscribeStatus) {
		slog.Debug("Change feed subscription status", "session_id", sessionID, "status", status)
	}

	engine := syncengine.NewEngine(sessionID, h.repo, h.hub, h.pollInterval, onStatus)
	engine.Start(ctx)
	defer engine.Stop()

	// Read loop: the views only send data over HTTP, so reads exist to
	// notice the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()

	// First paint, then one push per coalesced render signal.
	if err := h.pushSnapshot(ctx, ws, engine.Mirror()); err != nil {
		return
	}
	for {
		select {
		case <-engine.Mirror().Renders():
			if err := h.pushSnapshot(ctx, ws, engine.Mirror()); err != nil {
				slog.Debug("Snapshot push failed, closing view", "session_id", sessionID, "error", err)
				return
			}
		case <-ctx.Done():
			slog.Info("Session view disconnected", "session_id", sessionID)
			return
		}
	}
}

func (h *WebSocketHandler) pushSnapshot(ctx context.Context, ws *websocket.Conn, mirror *syncengine.Mirror) error {
	session, responses := mirror.Read()
	payload, err := json.Marshal(snapshot{
		Type:      "snapshot",
		Session:   session,
		Responses: responses,
		PageCount: schema.PageCount(),
	})
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, payload)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
