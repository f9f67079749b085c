package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/study-mentor/backend/internal/middleware"
	"github.com/zhouzirui/study-mentor/backend/internal/model/chat"
	"github.com/zhouzirui/study-mentor/backend/internal/service/gateway"
	"github.com/zhouzirui/study-mentor/backend/internal/service/tutor"
)

type scriptedGateway struct {
	fail  bool
	delay time.Duration
}

func (g *scriptedGateway) Send(ctx context.Context, _ []chat.Turn, message string) (string, error) {
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.fail {
		return "", &gateway.Error{Kind: gateway.ErrTimeout}
	}
	return "answer", nil
}

func dial(t *testing.T, gw *scriptedGateway) *websocket.Conn {
	t.Helper()
	return dialWith(t, gw, nil)
}

func dialWith(t *testing.T, gw *scriptedGateway, configure func(*Handler)) *websocket.Conn {
	t.Helper()
	engine, err := tutor.NewEngine(tutor.Options{Gateway: gw})
	require.NoError(t, err)

	h := New(engine, "Hello, How can I help you?", nil, nil)
	if configure != nil {
		configure(h)
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithSessionID(req.Context(), "s1")))
		})
	})
	h.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello outgoingMessage
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "connected", hello.Type)
	require.Equal(t, "Hello, How can I help you?", hello.Content)
	return conn
}

func TestWebSocketAsk(t *testing.T) {
	conn := dial(t, &scriptedGateway{})

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "ask", UserInput: "What is a stack?"}))
	var reply outgoingMessage
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "reply", reply.Type)
	assert.Equal(t, "answer", reply.Content)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "history"}))
	var hist outgoingMessage
	require.NoError(t, conn.ReadJSON(&hist))
	assert.Equal(t, "history", hist.Type)
	assert.Equal(t, []chat.Turn{chat.UserTurn("What is a stack?"), chat.ModelTurn("answer")}, hist.Turns)
}

func TestWebSocketErrors(t *testing.T) {
	conn := dial(t, &scriptedGateway{fail: true})

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "ask", UserInput: " "}))
	var empty outgoingMessage
	require.NoError(t, conn.ReadJSON(&empty))
	assert.Equal(t, "error", empty.Type)
	assert.Equal(t, "No input provided", empty.Message)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "ask", UserInput: "hi"}))
	var failed outgoingMessage
	require.NoError(t, conn.ReadJSON(&failed))
	assert.Equal(t, "error", failed.Type)
	require.NotNil(t, failed.Retryable)
	assert.True(t, *failed.Retryable)

	require.NoError(t, conn.WriteJSON(inboundMessage{Type: "dance"}))
	var unknown outgoingMessage
	require.NoError(t, conn.ReadJSON(&unknown))
	assert.Contains(t, unknown.Message, "unknown message type")
}

func TestWebSocketSurvivesSlowExchange(t *testing.T) {
	conn := dialWith(t, &scriptedGateway{delay: 300 * time.Millisecond}, func(h *Handler) {
		h.pongWait = 200 * time.Millisecond
		h.pingPeriod = time.Hour
	})

	for _, question := range []string{"first", "second"} {
		require.NoError(t, conn.WriteJSON(inboundMessage{Type: "ask", UserInput: question}))
		var reply outgoingMessage
		require.NoError(t, conn.ReadJSON(&reply), "connection dropped after a slow %s exchange", question)
		assert.Equal(t, "reply", reply.Type)
		assert.Equal(t, "answer", reply.Content)
	}
}
