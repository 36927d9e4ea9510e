package api

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"lbp-lab/internal/dispatch"
	"lbp-lab/internal/domain"
	"lbp-lab/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWS streams engine requests. The client sends Request JSON with a kind;
// the server answers with Response JSON. Each connection has its own id
// sequence, so a request superseded on the same connection gets no reply.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	closed := observability.WSConnected()
	defer closed()
	s.mu.Lock()
	s.wsStreams++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.wsStreams--
		s.mu.Unlock()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	d := dispatch.New(s.dispatchOp)
	var writeMu sync.Mutex
	send := func(resp *domain.Response) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Printf("ws write #%d: %v", resp.ID, err)
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("ws read: %v", err)
			}
			return
		}

		req, err := domain.DecodeRequest(data, "")
		if err != nil {
			send(&domain.Response{Type: domain.ResponseError, Error: "invalid request: " + err.Error()})
			continue
		}

		wg.Add(1)
		go func(req domain.Request) {
			defer wg.Done()
			resp, err := d.Submit(ctx, req)
			switch {
			case errors.Is(err, dispatch.ErrStaleResult):
				return
			case errors.Is(err, dispatch.ErrTimeout):
				send(resp)
			case err != nil:
				return
			default:
				send(resp)
			}
		}(req)
	}
}
