// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

// Package websocket streams cache change events to connected calendar
// clients so open views repaint without polling.
package websocket

import (
	"context"
	"net/http"
	"sort"
	"sync"

	gorilla "github.com/gorilla/websocket"

	"github.com/pistachi73/sessioncal/internal/logging"
	"github.com/pistachi73/sessioncal/internal/models"
)

// Message is the envelope written to websocket clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Message types carried over the wire.
const (
	MessageTypeCacheEvent = "cache_event"
	MessageTypePing       = "ping"
	MessageTypePong       = "pong"
)

// Hub maintains the set of active clients and fans cache events out to
// them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub. Run or RunWithContext must be called
// before clients connect.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub event loop until the context is canceled,
// then closes every connected client and returns ctx.Err(). Designed for
// suture supervision.
//
// Lifecycle events take priority over broadcasts so the client set is
// consistent before any message delivery.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

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
			h.shutdown(ctx)
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
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

func (h *Hub) shutdown(ctx context.Context) {
	count := h.ClientCount()
	h.closeAllClients()
	logging.Info().
		Str("component", "websocket-hub").
		AnErr("cause", ctx.Err()).
		Int("clients_closed", count).
		Msg("websocket hub stopped")
}

// broadcastToClients delivers a message to every connected client in
// client-id order. Clients with a full send buffer are dropped.
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
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// BroadcastCacheEvent queues a cache change event for delivery to all
// clients. The send never blocks; when the broadcast buffer is full the
// event is dropped and logged.
func (h *Hub) BroadcastCacheEvent(ev models.CacheEvent) {
	message := Message{
		Type: MessageTypeCacheEvent,
		Data: ev,
	}

	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Str("event_type", string(ev.Type)).Msg("broadcast channel full, dropping cache event")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The API is same-origin behind the app's reverse proxy.
		return true
	},
}

// ServeWS upgrades an HTTP request to a websocket connection and attaches
// the client to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(h, conn)
	h.Register <- client
	client.Start()
}
