package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/events"
	"github.com/gorilla/websocket"
)

const (
	wsPongWait  = 60 * time.Second
	wsWriteWait = 10 * time.Second
	wsReadLimit = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientFrame is a subscription request from a viewer.
type clientFrame struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// wsWriter serializes writes to one connection. The broadcaster's delivery
// goroutine and the read loop both write through it.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) Write(message []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.conn.WriteMessage(websocket.TextMessage, message)
}

func (w *wsWriter) Close() error {
	return w.conn.Close()
}

func (w *wsWriter) reply(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = w.Write(data)
}

// @Summary Real-time events
// @Description WebSocket. Send {"type":"join:dashboard"}, {"type":"join:machine","id":"..."} or {"type":"leave:machine","id":"..."}; events arrive as {"event","topic","data","ts"}
// @Success 101
// @Router /ws [get]
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}

	writer := &wsWriter{conn: ws}
	sub := s.Broadcaster.Attach(writer)
	defer s.Broadcaster.Detach(sub)

	ws.SetReadLimit(wsReadLimit)
	ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPongWait * 9 / 10)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					_ = ws.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var f clientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		switch f.Type {
		case "join:dashboard":
			s.Broadcaster.Subscribe(sub, events.DashboardTopic)
		case "leave:dashboard":
			s.Broadcaster.Unsubscribe(sub, events.DashboardTopic)
		case "join:machine":
			if f.ID != "" {
				s.Broadcaster.Subscribe(sub, events.MachineTopic(f.ID))
			}
		case "leave:machine":
			if f.ID != "" {
				s.Broadcaster.Unsubscribe(sub, events.MachineTopic(f.ID))
			}
		case "ping":
			writer.reply(map[string]any{"event": "pong", "topics": s.Broadcaster.Topics(sub)})
		}
	}
}
