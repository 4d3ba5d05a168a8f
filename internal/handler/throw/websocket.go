package throw

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	throwService "github.com/zhouzirui/insight-dice/backend/internal/service/throw"
)

const (
	defaultReadTimeout = 60 * time.Second
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Inbound event types.
const (
	EventBegin     = "begin"
	EventCancel    = "cancel"
	EventSituation = "situation"
	EventPath      = "path"
	EventStatus    = "status"
)

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Path string `json:"path,omitempty"`
}

type outgoingMessage struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Code  string `json:"code,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		http.Error(w, "userID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	log := h.logger.With(zap.String("user_id", userID), zap.String("conn_id", connID))
	log.Info("websocket connected")

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	go pingLoop(ctx, conn)

	h.write(conn, log, outgoingMessage{
		Type: "connected",
		Data: map[string]any{"userId": userID, "connectionId": connID},
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))

		data, err := h.dispatch(ctx, userID, msg)
		// Nothing reads while dispatch runs, so pongs were not seen; re-arm before replying.
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		if err != nil {
			_, body := h.errorBody(err)
			h.write(conn, log, outgoingMessage{
				Type:  "error",
				Event: msg.Type,
				Code:  body.Code,
				Data:  map[string]string{"message": body.Error},
			})
			continue
		}
		h.write(conn, log, outgoingMessage{Type: "result", Event: msg.Type, Data: data})
	}
}

// dispatch runs one inbound event against the state machine.
func (h *Handler) dispatch(ctx context.Context, userID string, msg inboundMessage) (any, error) {
	switch msg.Type {
	case EventBegin:
		return h.svc.Begin(ctx, userID)
	case EventCancel:
		return h.svc.Cancel(ctx, userID)
	case EventSituation:
		if err := h.validate.Struct(situationRequest{Text: msg.Text}); err != nil {
			return nil, validationError(err)
		}
		return h.svc.SubmitSituation(ctx, userID, msg.Text)
	case EventPath:
		if err := h.validate.Struct(pathRequest{Path: msg.Path}); err != nil {
			return nil, validationError(err)
		}
		return h.svc.ChoosePath(ctx, userID, msg.Path)
	case EventStatus:
		return h.svc.Status(userID), nil
	default:
		return nil, &wsError{msg: "unknown event type " + msg.Type}
	}
}

type wsError struct{ msg string }

func (e *wsError) Error() string { return e.msg }
func (e *wsError) Unwrap() error { return throwService.ErrValidation }

func validationError(err error) error {
	return &wsError{msg: validationMessage(err)}
}

func (h *Handler) write(conn *websocket.Conn, log *zap.Logger, msg outgoingMessage) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		log.Warn("websocket write failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
