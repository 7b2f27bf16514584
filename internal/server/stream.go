package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gookit/event"
	"github.com/gorilla/websocket"
	"github.com/plugward/plugward/internal/eventType"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// auditHub fans audit events out to connected websocket clients. Slow
// clients are dropped rather than allowed to stall the broadcast.
type auditHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]chan []byte
}

func newAuditHub() *auditHub {
	return &auditHub{conns: make(map[*websocket.Conn]chan []byte)}
}

func (h *auditHub) add(c *websocket.Conn) chan []byte {
	ch := make(chan []byte, 16)
	h.mu.Lock()
	h.conns[c] = ch
	h.mu.Unlock()
	return ch
}

func (h *auditHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.conns[c]; ok {
		close(ch)
		delete(h.conns, c)
	}
	h.mu.Unlock()
	c.Close()
}

func (h *auditHub) broadcast(msg []byte) {
	h.mu.Lock()
	var stale []*websocket.Conn
	for c, ch := range h.conns {
		select {
		case ch <- msg:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.Unlock()
	for _, c := range stale {
		h.remove(c)
	}
}

func registerAuditStream() {
	hub := newAuditHub()

	event.On(eventType.AuditLogged, event.ListenerFunc(func(e event.Event) error {
		payload, err := json.Marshal(e.Data())
		if err != nil {
			return nil
		}
		hub.broadcast(payload)
		return nil
	}))

	event.On(eventType.ServerInitializeStart, event.ListenerFunc(func(e event.Event) error {
		r := e.Get("engine").(*gin.Engine)
		r.GET("/api/admin/audit/stream", func(c *gin.Context) {
			conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
			if err != nil {
				slog.Warn("audit stream upgrade failed", slog.Any("error", err))
				return
			}
			ch := hub.add(conn)
			defer hub.remove(conn)

			// Reader goroutine only notices disconnects.
			go func() {
				for {
					if _, _, err := conn.ReadMessage(); err != nil {
						hub.remove(conn)
						return
					}
				}
			}()

			for msg := range ch {
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		})
		return nil
	}), event.Normal+4)
}
