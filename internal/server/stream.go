package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/veltaworks/docintel/internal/ingest"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// stream fans ingestion results out to connected WebSocket clients. A slow
// client is dropped rather than blocking the pipeline.
type stream struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]chan ingest.IngestionResult
}

func newStream() *stream {
	return &stream{conns: make(map[*websocket.Conn]chan ingest.IngestionResult)}
}

func (st *stream) broadcast(res ingest.IngestionResult) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for conn, ch := range st.conns {
		select {
		case ch <- res:
		default:
			close(ch)
			delete(st.conns, conn)
		}
	}
}

func (st *stream) add(conn *websocket.Conn) chan ingest.IngestionResult {
	ch := make(chan ingest.IngestionResult, 64)
	st.mu.Lock()
	st.conns[conn] = ch
	st.mu.Unlock()
	return ch
}

func (st *stream) remove(conn *websocket.Conn) {
	st.mu.Lock()
	if ch, ok := st.conns[conn]; ok {
		close(ch)
		delete(st.conns, conn)
	}
	st.mu.Unlock()
}

func (st *stream) close() {
	st.mu.Lock()
	for conn, ch := range st.conns {
		close(ch)
		delete(st.conns, conn)
		conn.Close()
	}
	st.mu.Unlock()
}

func (s *Server) handleIngestStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ch := s.stream.add(conn)
	defer s.stream.remove(conn)

	// Drain client frames so pings and close messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(res); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("server: websocket write: %v", err)
				}
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
