package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/openagora/agora/pkg/models"
)

// wsWriteTimeout bounds one frame write to a client. A stalled client must
// not pin a forwarder goroutine indefinitely.
const wsWriteTimeout = 5 * time.Second

// wsConn tracks one WebSocket client and its run subscriptions.
//
// subs is accessed without a lock: subscribe, unsubscribe and the deferred
// cleanup all run on the connection's read-loop goroutine. Forwarder
// goroutines never touch subs; they exit when their event channel closes.
// Entries for finished runs stay in the map until the connection closes,
// which is harmless: their cancel funcs are idempotent.
type wsConn struct {
	id       string
	conn     *websocket.Conn
	ctx      context.Context
	tenantID string
	admin    bool
	author   string
	clientIP string

	subs map[string]func()
	wg   sync.WaitGroup
}

// handleWS manages the lifecycle of a single WebSocket connection. Blocks
// until the client disconnects, the idle timeout fires, or a ping goes
// unanswered.
func (s *Server) handleWS(parentCtx context.Context, conn *websocket.Conn, tenantID string, admin bool, author, ip string) {
	ctx, cancel := context.WithCancel(parentCtx)

	wc := &wsConn{
		id:       uuid.New().String(),
		conn:     conn,
		ctx:      ctx,
		tenantID: tenantID,
		admin:    admin,
		author:   author,
		clientIP: ip,
		subs:     make(map[string]func()),
	}

	defer func() {
		for _, cancelSub := range wc.subs {
			cancelSub()
		}
		cancel()
		wc.wg.Wait()
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	pingInterval, idleTimeout := s.wsTimings()

	// Liveness pings. Ping blocks until the pong arrives, which the
	// concurrent read loop below delivers.
	wc.wg.Add(1)
	go func() {
		defer wc.wg.Done()
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, pingCancel := context.WithTimeout(ctx, wsWriteTimeout)
				err := conn.Ping(pingCtx)
				pingCancel()
				if err != nil {
					cancel()
					return
				}
			}
		}
	}()

	wc.send(&models.WSServerMessage{Type: models.WSServerAck, ID: wc.id, Message: "connected"})

	// Read loop. Each iteration gets a fresh idle deadline; any client
	// frame (including protocol-level pings) resets it.
	for {
		readCtx, readCancel := context.WithTimeout(ctx, idleTimeout)
		_, data, err := conn.Read(readCtx)
		readCancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				_ = conn.Close(websocket.StatusGoingAway, "idle timeout")
			}
			return
		}

		var msg models.WSClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Invalid WebSocket message",
				"connection_id", wc.id, "error", err)
			continue
		}

		s.handleWSMessage(wc, &msg)
	}
}

// wsTimings resolves the ping interval and idle timeout from configuration.
func (s *Server) wsTimings() (time.Duration, time.Duration) {
	pingInterval := 30 * time.Second
	idleTimeout := 60 * time.Second
	if s.cfg != nil && s.cfg.Streams != nil {
		if s.cfg.Streams.WSPingInterval > 0 {
			pingInterval = s.cfg.Streams.WSPingInterval
		}
		if s.cfg.Streams.WSIdleTimeout > 0 {
			idleTimeout = s.cfg.Streams.WSIdleTimeout
		}
	}
	return pingInterval, idleTimeout
}

// handleWSMessage dispatches one client frame.
func (s *Server) handleWSMessage(wc *wsConn, msg *models.WSClientMessage) {
	switch msg.Type {
	case models.WSClientExecute:
		if msg.AgentID == "" || msg.Input == nil {
			wc.sendError(msg.ID, "agent_id and input are required for execute")
			return
		}
		req := models.CreateJobRequest{
			AgentID:  msg.AgentID,
			TenantID: wc.tenantID,
			UserID:   wc.author,
			Input:    msg.Input,
			ClientIP: wc.clientIP,
		}
		res, events, cancelSub, err := s.orchestrator.ExecuteStreaming(wc.ctx, req)
		if err != nil {
			wc.sendError(msg.ID, err.Error())
			return
		}
		wc.subs[res.Job.ID] = cancelSub
		wc.send(&models.WSServerMessage{Type: models.WSServerAck, ID: res.Job.ID})
		wc.forward(res.Job.ID, events)

	case models.WSClientCancel:
		if msg.ID == "" {
			wc.sendError("", "id is required for cancel")
			return
		}
		if _, err := s.orchestrator.CancelJob(wc.ctx, msg.ID, wc.tenantID, wc.admin); err != nil {
			wc.sendError(msg.ID, err.Error())
			return
		}
		wc.send(&models.WSServerMessage{Type: models.WSServerAck, ID: msg.ID})

	case models.WSClientSubscribe:
		if msg.ID == "" {
			wc.sendError("", "id is required for subscribe")
			return
		}
		if _, exists := wc.subs[msg.ID]; exists {
			wc.send(&models.WSServerMessage{Type: models.WSServerAck, ID: msg.ID})
			return
		}
		events, cancelSub, err := s.orchestrator.Subscribe(wc.ctx, msg.ID, wc.tenantID, wc.admin)
		if err != nil {
			wc.sendError(msg.ID, err.Error())
			return
		}
		wc.subs[msg.ID] = cancelSub
		wc.send(&models.WSServerMessage{Type: models.WSServerAck, ID: msg.ID})
		wc.forward(msg.ID, events)

	case models.WSClientUnsubscribe:
		if msg.ID == "" {
			wc.sendError("", "id is required for unsubscribe")
			return
		}
		if cancelSub, ok := wc.subs[msg.ID]; ok {
			cancelSub()
			delete(wc.subs, msg.ID)
		}

	case models.WSClientPing:
		wc.send(&models.WSServerMessage{Type: models.WSServerPong})

	default:
		wc.sendError("", "unknown message type: "+msg.Type)
	}
}

// forward relays a run's events to the client until the channel closes.
func (wc *wsConn) forward(runID string, events <-chan models.StreamEvent) {
	wc.wg.Add(1)
	go func() {
		defer wc.wg.Done()
		for ev := range events {
			ev := ev
			wc.send(&models.WSServerMessage{Type: models.WSServerEvent, ID: runID, Payload: &ev})
		}
	}()
}

// send marshals and writes one frame. Safe for concurrent use; the
// underlying connection serializes writers.
func (wc *wsConn) send(msg *models.WSServerMessage) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Warn("Failed to marshal WebSocket message",
			"connection_id", wc.id, "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(wc.ctx, wsWriteTimeout)
	defer cancel()
	if err := wc.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		slog.Warn("Failed to send WebSocket message",
			"connection_id", wc.id, "error", err)
	}
}

func (wc *wsConn) sendError(id, message string) {
	wc.send(&models.WSServerMessage{Type: models.WSServerError, ID: id, Message: message})
}
