package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmvsalud/medtour/internal/domain/entities"
)

func TestIdentityMiddleware(t *testing.T) {
	var seen *entities.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor, ok := ActorFromContext(r.Context()); ok {
			seen = &actor
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := IdentityMiddleware(next)

	t.Run("valid identity", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
		req.Header.Set(HeaderUserRole, "Admin")
		req.Header.Set(HeaderUserID, "admin-1")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, seen)
		assert.Equal(t, entities.Actor{Role: entities.RoleAdmin, UserID: "admin-1"}, *seen)
	})

	t.Run("anonymous passes through", func(t *testing.T) {
		seen = nil
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hotels", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, seen)
	})

	t.Run("unknown role is refused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
		req.Header.Set(HeaderUserRole, "nurse")
		req.Header.Set(HeaderUserID, "n-1")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
	})

	t.Run("role without user id is refused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
		req.Header.Set(HeaderUserRole, "patient")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCORSMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("listed origin is echoed", func(t *testing.T) {
		handler := CORSMiddleware([]string{"https://app.example.com", " "})(ok)
		req := httptest.NewRequest(http.MethodGet, "/api/hotels", nil)
		req.Header.Set("Origin", "https://app.example.com")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("unlisted origin gets no allow header", func(t *testing.T) {
		handler := CORSMiddleware([]string{"https://app.example.com"})(ok)
		req := httptest.NewRequest(http.MethodGet, "/api/hotels", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		handler := CORSMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("preflight reached handler")
		}))
		req := httptest.NewRequest(http.MethodOptions, "/api/quotes", nil)
		req.Header.Set("Origin", "https://any.example.com")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), HeaderUserRole)
	})
}

func TestLoggingMiddleware_TagsRequestAndActor(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside handler")
		w.WriteHeader(http.StatusAccepted)
	})
	handler := LoggingMiddleware(func(r *http.Request) string { return "GET /api/quotes" })(IdentityMiddleware(inner))

	t.Run("caller supplied id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
		req = req.WithContext(base.WithContext(context.Background()))
		req.Header.Set(HeaderRequestID, "req-42")
		req.Header.Set(HeaderUserRole, "patient")
		req.Header.Set(HeaderUserID, "patient-1")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
		out := buf.String()
		assert.Contains(t, out, `"message":"inside handler"`)
		assert.Contains(t, out, `"request_id":"req-42"`)
		assert.Contains(t, out, `"user_id":"patient-1"`)
		assert.Contains(t, out, `"status":202`)
	})

	t.Run("generated id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/api/quotes", nil)
		req = req.WithContext(base.WithContext(context.Background()))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		id := w.Header().Get(HeaderRequestID)
		assert.Len(t, id, 36)
		assert.Contains(t, buf.String(), id)
	})
}

func TestMuxRoutes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/quotes/{id}", func(w http.ResponseWriter, r *http.Request) {})
	routes := MuxRoutes(mux)

	assert.Equal(t, "GET /api/quotes/{id}", routes(httptest.NewRequest(http.MethodGet, "/api/quotes/q-1", nil)))
	assert.Equal(t, "/nowhere", routes(httptest.NewRequest(http.MethodGet, "/nowhere", nil)))
}
