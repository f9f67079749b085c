package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/study-mentor/backend/internal/handler/apierror"
	"github.com/zhouzirui/study-mentor/backend/internal/middleware"
	"github.com/zhouzirui/study-mentor/backend/internal/model/chat"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second

	maxMessageBytes = 64 << 10
)

// Tutor is the part of the tutor engine the websocket transport uses.
type Tutor interface {
	Ask(ctx context.Context, sessionID, message string) (string, error)
	Transcript(sessionID string) []chat.Turn
	Profile(sessionID string) chat.Profile
}

// Handler carries chat exchanges over a websocket for the cookie session.
type Handler struct {
	tutor    Tutor
	greeting string
	upgrader websocket.Upgrader
	logger   *zap.Logger

	pongWait   time.Duration
	pingPeriod time.Duration
}

type inboundMessage struct {
	Type      string `json:"type"`
	UserInput string `json:"user_input"`
}

type outgoingMessage struct {
	Type      string        `json:"type"`
	Content   string        `json:"content,omitempty"`
	Message   string        `json:"message,omitempty"`
	Retryable *bool         `json:"retryable,omitempty"`
	Profile   *chat.Profile `json:"profile,omitempty"`
	Turns     []chat.Turn   `json:"turns,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// New creates the websocket handler. With no allowed origins only
// same-origin connections are accepted.
func New(tutor Tutor, greeting string, allowedOrigins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		tutor:    tutor,
		greeting: greeting,
		logger:   logger.Named("websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
	}
	if len(allowedOrigins) > 0 {
		allowed := make(map[string]struct{}, len(allowedOrigins))
		for _, o := range allowedOrigins {
			allowed[strings.TrimRight(o, "/")] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			_, wildcard := allowed["*"]
			return ok || wildcard
		}
	}
	return h
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())
	if sessionID == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}

	// The upgrade bypasses w, so a freshly issued session cookie has to be
	// handed to the upgrader explicitly.
	var responseHeader http.Header
	if cookies := w.Header().Values("Set-Cookie"); len(cookies) > 0 {
		responseHeader = http.Header{"Set-Cookie": cookies}
	}

	conn, err := h.upgrader.Upgrade(w, r, responseHeader)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("connection opened", zap.String("session", sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(maxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	go h.pingLoop(ctx, conn)

	profile := h.tutor.Profile(sessionID)
	h.send(conn, outgoingMessage{Type: "connected", Content: h.greeting, Profile: &profile})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("read failed", zap.String("session", sessionID), zap.Error(err))
			}
			return
		}
		h.handleMessage(ctx, conn, sessionID, msg)

		// Pongs are not read while an exchange runs.
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, sessionID string, msg inboundMessage) {
	switch msg.Type {
	case "ask":
		if strings.TrimSpace(msg.UserInput) == "" {
			h.sendError(conn, apierror.Problem{Message: apierror.MsgNoInput})
			return
		}
		reply, err := h.tutor.Ask(ctx, sessionID, msg.UserInput)
		if err != nil {
			problem := apierror.Describe(err)
			if problem.Status >= http.StatusInternalServerError {
				h.logger.Warn("exchange failed", zap.String("session", sessionID), zap.Error(err))
			}
			h.sendError(conn, problem)
			return
		}
		h.send(conn, outgoingMessage{Type: "reply", Content: reply})
	case "history":
		profile := h.tutor.Profile(sessionID)
		h.send(conn, outgoingMessage{Type: "history", Profile: &profile, Turns: h.tutor.Transcript(sessionID)})
	default:
		h.sendError(conn, apierror.Problem{Message: "unknown message type: " + msg.Type})
	}
}

func (h *Handler) send(conn *websocket.Conn, msg outgoingMessage) {
	msg.Timestamp = time.Now().Unix()
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode message failed", zap.Error(err))
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.logger.Debug("write failed", zap.Error(err))
	}
}

func (h *Handler) sendError(conn *websocket.Conn, problem apierror.Problem) {
	h.send(conn, outgoingMessage{Type: "error", Message: problem.Message, Retryable: problem.Retryable})
}

// pingLoop keeps the connection alive until ctx ends.
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
