package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/infrastructure/push"
	"github.com/fastygo/taskhub/pkg/httpcontext"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxClientFrame = 4096
)

// SessionInfo is the first frame a client receives.
type SessionInfo struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

type PushHandler struct {
	baseHandler
	hub      *push.Hub
	commands *push.Commands
	upgrader websocket.FastHTTPUpgrader
}

func NewPushHandler(hub *push.Hub, commands *push.Commands, adapter *httpcontext.Adapter, logger *zap.Logger) *PushHandler {
	return &PushHandler{
		baseHandler: newBaseHandler(adapter, logger),
		hub:         hub,
		commands:    commands,
		upgrader: websocket.FastHTTPUpgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*fasthttp.RequestCtx) bool { return true },
		},
	}
}

// @Summary Open a push session
// @Tags push
// @Router /ws [get]
func (h *PushHandler) Connect(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	err := h.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		h.serve(conn, userID)
	})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}

func (h *PushHandler) serve(conn *websocket.Conn, userID string) {
	session := h.hub.Register()
	logger := h.logger.With(zap.String("session_id", session.ID), zap.String("user_id", userID))
	logger.Debug("push session opened")

	if frame, err := push.NewFrame(push.FrameSession, SessionInfo{SessionID: session.ID, UserID: userID}); err == nil {
		h.hub.SendTo(session.ID, frame)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(conn, session, logger)
	}()

	h.readLoop(conn, session.ID, logger)
	h.hub.Remove(session.ID)
	<-done
	_ = conn.Close()
	logger.Debug("push session closed")
}

func (h *PushHandler) readLoop(conn *websocket.Conn, sessionID string, logger *zap.Logger) {
	conn.SetReadLimit(maxClientFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("push read failed", zap.Error(err))
			}
			return
		}
		h.hub.SendTo(sessionID, h.handleFrame(sessionID, data))
	}
}

// handleFrame executes one client frame and renders the reply.
func (h *PushHandler) handleFrame(sessionID string, data []byte) []byte {
	var frame push.ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return errorFrame(domain.ErrInvalidPayload)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	event, reply, err := h.commands.Execute(ctx, sessionID, frame)
	if err != nil {
		return errorFrame(err)
	}
	out, err := push.NewFrame(event, reply)
	if err != nil {
		return errorFrame(err)
	}
	return out
}

func (h *PushHandler) writeLoop(conn *websocket.Conn, session *push.Session, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-session.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				_ = conn.Close()
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debug("push write failed", zap.Error(err))
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func errorFrame(err error) []byte {
	_, code, message := clientError(err)
	frame, _ := push.NewFrame(push.FrameError, map[string]string{
		"code":    string(code),
		"message": message,
	})
	return frame
}
