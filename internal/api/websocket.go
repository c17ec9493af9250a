// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nollvik/sidetrackd/internal/logging"
	"github.com/nollvik/sidetrackd/internal/metrics"
	ws "github.com/nollvik/sidetrackd/internal/websocket"
)

// getUpgrader builds the websocket upgrader for the feed endpoint.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkFeedOrigin,
	}
}

// checkFeedOrigin accepts non-browser clients (no Origin header), loopback
// origins, and any origin the CORS allowlist names exactly.
func (h *Handler) checkFeedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if isLoopbackOrigin(origin) {
		return true
	}
	if h.cfg != nil {
		for _, allowed := range h.cfg.API.CORSOrigins {
			if origin == allowed {
				return true
			}
		}
	}
	return false
}

// Events upgrades the request onto the presentation feed hub. The first
// queued frame is a status snapshot so clients can render before any
// event arrives.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, r, http.StatusServiceUnavailable, "FEED_UNAVAILABLE", "Feed hub not available", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own HTTP error.
		metrics.RecordWebSocketError("upgrade_failed")
		logging.CtxErr(r.Context(), err).Msg("Feed upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn)
	client.Send(ws.Message{Type: ws.MessageTypeStatus, Data: h.statusSnapshot()})
	h.hub.Register <- client
	client.Start()

	logging.CtxInfo(r.Context()).Uint64("client_id", client.ID()).Msg("Feed client upgraded")
}
