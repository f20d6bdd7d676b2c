package httpctrl

import (
	"net/http"
	"reflect"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

// defaultWatchInterval is how often a watcher's progress is compared.
const defaultWatchInterval = 500 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleWatch streams the progress over a websocket: once on connect, then
// every time it changes, until the client goes away.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied
		s.log.Warn("websocket upgrade", "err", err)
		return
	}
	defer conn.Close()

	// Drain client frames so close and ping are handled.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	last := s.svc.Get()
	if err := s.sendProgress(conn, last); err != nil {
		return
	}

	ticker := time.NewTicker(s.watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-gone:
			return
		case <-ticker.C:
			cur := s.svc.Get()
			if reflect.DeepEqual(cur, last) {
				continue
			}
			if err := s.sendProgress(conn, cur); err != nil {
				return
			}
			last = cur
		}
	}
}

func (s *Server) sendProgress(conn *websocket.Conn, p sweep.Progress) error {
	dto := toDTO(p)
	dto.Project = s.project
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(dto)
}
