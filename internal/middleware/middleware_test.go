package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testSecret = []byte("test-secret")

func echoSession() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(SessionID(r.Context())))
	})
}

func TestSession_IssuesCookie(t *testing.T) {
	h := Session(SessionOptions{Secret: testSecret})(echoSession())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	id := rec.Body.String()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	parsed, err := ParseSessionToken(testSecret, cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestSession_ReusesValidCookie(t *testing.T) {
	h := Session(SessionOptions{Secret: testSecret})(echoSession())
	id := uuid.NewString()
	token, err := SignSessionToken(testSecret, id, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, id, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
}

func TestSession_RejectsForgedCookie(t *testing.T) {
	h := Session(SessionOptions{Secret: testSecret})(echoSession())
	id := uuid.NewString()
	forged, err := SignSessionToken([]byte("other-secret"), id, time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: forged})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.NotEqual(t, id, rec.Body.String())
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestParseSessionToken_RejectsNonUUID(t *testing.T) {
	token, err := SignSessionToken(testSecret, "not-a-uuid", time.Now())
	require.NoError(t, err)

	_, err = ParseSessionToken(testSecret, token)
	assert.Error(t, err)

	_, err = SignSessionToken(nil, uuid.NewString(), time.Now())
	assert.Error(t, err)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/ask", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/ask", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.EqualValues(t, 2, fields["bytes"])
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:3000"})(echoSession())

	req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	passthrough := CORS(nil)(echoSession())
	rec = httptest.NewRecorder()
	passthrough.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
