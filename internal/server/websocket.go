package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/modelfinder/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn serialises writes to a single WebSocket connection
type wsConn struct {
	conn       *websocket.Conn
	remoteAddr string
	mu         sync.Mutex
}

func (c *wsConn) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	logging.LogWebSocketMessage(c.remoteAddr, "sent", messageType, data)
	return c.conn.WriteMessage(messageType, data)
}

// handleWebSocket upgrades the connection and answers every text message
// with a LookupResponse. Lookups on one connection run concurrently, so
// replies may arrive out of order; clients match them by serial or id.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	remoteAddr := conn.RemoteAddr().String()
	s.trackConn(remoteAddr, conn)
	s.wg.Add(1)
	defer s.wg.Done()

	logging.Info("WebSocket connection opened",
		zap.String("remote_addr", remoteAddr),
		zap.String("request_id", RequestID(r.Context())),
	)

	ws := &wsConn{conn: conn, remoteAddr: remoteAddr}

	// In-flight lookups are cancelled when the connection goes away
	ctx, cancel := context.WithCancel(context.Background())
	var inflight sync.WaitGroup

	defer func() {
		cancel()
		inflight.Wait()
		_ = conn.Close()
		s.untrackConn(remoteAddr)
		logging.Info("WebSocket connection closed", zap.String("remote_addr", remoteAddr))
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go s.pingLoop(ctx, ws)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("Connection closed or error reading message",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			return
		}

		logging.LogWebSocketMessage(remoteAddr, "received", messageType, data)

		if messageType != websocket.TextMessage {
			logging.Warn("Ignoring non-text WebSocket message",
				zap.String("remote_addr", remoteAddr),
				zap.Int("message_type", messageType),
			)
			continue
		}

		inflight.Add(1)
		go func(raw string) {
			defer inflight.Done()
			s.answer(ctx, ws, raw)
		}(string(data))
	}
}

// answer runs one lookup and writes the reply
func (s *Server) answer(ctx context.Context, ws *wsConn, raw string) {
	result := s.client.Lookup(ctx, raw)
	if ctx.Err() != nil {
		// Connection is gone; nobody to answer
		return
	}

	data, err := json.Marshal(NewLookupResponse(uuid.NewString(), result))
	if err != nil {
		logging.Error("Failed to marshal lookup response", zap.Error(err))
		return
	}

	if err := ws.writeMessage(websocket.TextMessage, data); err != nil {
		logging.Warn("Failed to send lookup response",
			zap.String("remote_addr", ws.remoteAddr),
			zap.Error(err),
		)
	}
}

func (s *Server) pingLoop(ctx context.Context, ws *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ws.mu.Lock()
			err := ws.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			ws.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
