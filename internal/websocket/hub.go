// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/nollvik/sidetrackd/internal/logging"
	"github.com/nollvik/sidetrackd/internal/metrics"
)

// Feed message types.
const (
	// MessageTypeStatus carries the full daemon snapshot, sent once when a
	// client connects.
	MessageTypeStatus = "status"
	// MessageTypeLink carries a LinkUpdate on connect and disconnect.
	MessageTypeLink = "link"
	// MessageTypeOrientation carries a bus.OrientationEvent per face change.
	MessageTypeOrientation = "orientation"
	// MessageTypeBattery carries a bus.BatteryEvent.
	MessageTypeBattery = "battery"
	// MessageTypeSession carries a bus.SessionEvent on open and close.
	MessageTypeSession = "session"
	// MessageTypeReachability carries a bus.ReachabilityEvent on each edge.
	MessageTypeReachability = "reachability"
	// MessageTypeBufferDepth carries a bus.BufferDepthEvent when the offline
	// buffer grows or drains.
	MessageTypeBufferDepth = "buffer_depth"
	// MessageTypeNotification mirrors each bus.NotifyRequestEvent so feed
	// clients can render notices the desktop also shows.
	MessageTypeNotification = "notification"
	// MessageTypePing and MessageTypePong implement client keepalive.
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// Message is one frame on the feed.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub maintains the set of active clients and broadcasts feed messages to
// them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Serve runs the hub until ctx is cancelled, then closes every client and
// returns ctx.Err(). It is run under the supervision tree.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		// Shutdown wins over pending work.
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Lifecycle events settle before broadcasts so the client set is
		// stable when a message fans out.
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.TrackWebSocketConnection(true)
	logging.Info().Int("total_clients", total).Msg("Feed client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, known := h.clients[client]
	if known {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if known {
		metrics.TrackWebSocketConnection(false)
		logging.Info().Int("total_clients", total).Msg("Feed client disconnected")
	}
}

// Broadcast queues a message for every connected client. When the broadcast
// queue is full the message is dropped; the feed is best effort.
func (h *Hub) Broadcast(messageType string, data any) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("Broadcast queue full, dropping feed message")
	}
}

// broadcastToClients fans one message out in client id order. Clients whose
// send queue is full are dropped so one stalled reader cannot block the
// rest.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.TrackWebSocketConnection(false)
		logging.Warn().Uint64("client_id", client.id).Msg("Dropping slow feed client")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
		metrics.TrackWebSocketConnection(false)
	}
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.ClientCount()
	h.closeAllClients()

	reason := "context_canceled"
	if ctx.Err() == context.DeadlineExceeded {
		reason = "context_deadline"
	}

	logging.Info().
		Str("component", "websocket_hub").
		Str("reason", reason).
		Int("clients_closed", clientCount).
		Msg("Feed hub stopped")
}
