package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"todocalendar/internal/auth"
	"todocalendar/internal/config"
	"todocalendar/internal/logger"
	"todocalendar/internal/repo/repotest"
	"todocalendar/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testPassword = "Sup3r-secret-pass"

func init() { gin.SetMode(gin.TestMode) }

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *repotest.Store
	redis  *miniredis.Miniredis
	ready  error
}

func testConfig(t *testing.T, redisAddr string) config.Config {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_ENV", "test")
	t.Setenv("VERSION", "1.2.3")
	t.Setenv("PG_DSN", "postgres://unused")
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_ADDR", redisAddr)
	t.Setenv("JWT_SECRET", "test-secret-0123456789")
	t.Setenv("MEDIA_ROOT", t.TempDir())
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig(t, mr.Addr())
	store := repotest.NewStore()
	s := &testServer{t: t, store: store, redis: mr}
	s.router = newRouter(cfg, logger.Discard(), deps{
		users:      store.Users(),
		categories: store.Categories(),
		todos:      store.Todos(),
		calendars:  store.Calendars(),
		events:     store.Events(),
		files:      storage.NewLocal(cfg.Media.Root, 1<<20),
		revoker:    auth.NewBlacklist(rdb),
		ready:      func(context.Context) error { return s.ready },
	})
	return s
}

func (s *testServer) do(token, method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(token, req)
}

func (s *testServer) send(token string, req *http.Request) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(token, path, filename string, content []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(s.t, err)
	_, err = fw.Write(content)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.send(token, req)
}

type session struct {
	UserID  int64
	Access  string
	Refresh string
}

// register creates an account and returns its tokens.
func (s *testServer) register(name string) session {
	s.t.Helper()
	w := s.do("", http.MethodPost, "/api/auth/register", map[string]any{
		"email":            name + "@example.com",
		"username":         name,
		"first_name":       name,
		"last_name":        "Tester",
		"password":         testPassword,
		"password_confirm": testPassword,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	body := decode[struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
		User    struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}](s.t, w)
	return session{UserID: body.User.ID, Access: body.Access, Refresh: body.Refresh}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type object = map[string]any

func errorsOf(t *testing.T, w *httptest.ResponseRecorder) map[string][]string {
	t.Helper()
	return decode[struct {
		Errors map[string][]string `json:"errors"`
	}](t, w).Errors
}

func path(format string, args ...any) string { return fmt.Sprintf(format, args...) }
