package page

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/study-mentor/backend/internal/middleware"
	"github.com/zhouzirui/study-mentor/backend/internal/model/chat"
	"github.com/zhouzirui/study-mentor/backend/internal/model/persona"
)

type profiles map[string]chat.Profile

func (p profiles) Profile(id string) chat.Profile {
	if v, ok := p[id]; ok {
		return v
	}
	return chat.DefaultProfile()
}

func render(t *testing.T, session string) *httptest.ResponseRecorder {
	t.Helper()
	h, err := New(profiles{"ada": {Name: "Ada", Age: "20"}}, persona.Mentor(), []string{"txt", "pdf"}, nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithSessionID(req.Context(), session)))
		})
	})
	h.RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	return resp
}

func TestIndexRenders(t *testing.T) {
	resp := render(t, "ada")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/html")
	body := resp.Body.String()
	assert.Contains(t, body, "Hello, How can I help you?")
	assert.Contains(t, body, `accept=".txt,.pdf"`)
	assert.Contains(t, body, `value="Ada"`)
}

func TestIndexDefaultProfileLeavesFieldsEmpty(t *testing.T) {
	resp := render(t, "anon")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotContains(t, resp.Body.String(), `value="User"`)
}
