package kds

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

// Conn is the part of *websocket.Conn the hub uses.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type client struct {
	restaurantID uint
	role         string
	sessionID    uint
}

// Hub menampung semua client websocket per restoran. Event hanya dikirim ke
// client dari restoran yang sama.
type Hub struct {
	clients map[Conn]client
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[Conn]client)}
}

// Register adds a connection. A non-zero sessionID limits the client to
// events of that session.
func (h *Hub) Register(conn Conn, restaurantID uint, role string, sessionID uint) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = client{restaurantID: restaurantID, role: role, sessionID: sessionID}
}

func (h *Hub) Unregister(conn Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *Hub) Publish(_ context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("marshal kds event")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	sent := 0
	for conn, c := range h.clients {
		if c.restaurantID != event.RestaurantID {
			continue
		}
		if c.sessionID != 0 && c.sessionID != event.SessionID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"role":  c.role,
				"event": event.Type,
			}).WithError(err).Warn("kds send failed, dropping client")
			delete(h.clients, conn)
			conn.Close()
			continue
		}
		sent++
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"event":         event.Type,
		"restaurant_id": event.RestaurantID,
		"clients":       sent,
	}).Debug("kds broadcast")
}
