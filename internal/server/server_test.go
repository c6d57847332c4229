package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/campuscomplaint/internal/config"
	"anoa.com/campuscomplaint/internal/middleware"
	"anoa.com/campuscomplaint/internal/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t       *testing.T
	handler http.Handler
}

func newClient(t *testing.T) *client {
	t.Helper()
	return newClientWith(t, func(*Dependencies) {})
}

func newClientWith(t *testing.T, configure func(*Dependencies)) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, _ := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	deps := Dependencies{
		DB: testutil.NewTestDB(t),
		Config: &config.Config{
			AllowedOrigins:         "http://localhost:3000",
			JWTSecret:              testSecret,
			CloudinaryUploadFolder: "complaint-attachments",
			OrphanCleanupSchedule:  "@every 12h",
			OrphanUploadTTL:        24 * time.Hour,
		},
		Log: log,
	}
	configure(&deps)

	srv, err := NewServer(deps)
	require.NoError(t, err)
	return &client{t: t, handler: srv.Handler()}
}

func token(t *testing.T, sub, role, faculty, department string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Role:       role,
		Faculty:    faculty,
		Department: department,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (c *client) do(method, path, bearer string, body any) (int, envelope) {
	c.t.Helper()
	w := c.send(method, path, bearer, body)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (c *client) send(method, path, bearer string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return w
}

func TestComplaintLifecycleOverHTTP(t *testing.T) {
	c := newClient(t)
	student := token(t, "student-1", "student", "science", "Computer Science")
	admin := token(t, "admin-1", "admin", "", "")

	// admin row exists before the submission so it receives the fan-out
	code, _ := c.do(http.MethodGet, "/api/notifications", admin, nil)
	require.Equal(t, http.StatusOK, code)

	code, env := c.do(http.MethodPost, "/api/complaints", student, map[string]any{
		"title":       "Broken projector",
		"description": "The projector in LT2 has not worked for a week",
		"category":    "facility",
		"faculty":     "science",
		"department":  "Computer Science",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "pending", created.Status)

	code, env = c.do(http.MethodGet, "/api/notifications/unread-count", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "1")

	code, env = c.do(http.MethodPatch, "/api/complaints/"+created.ID+"/status", student, map[string]any{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "unauthorized", env.Error)

	code, env = c.do(http.MethodPatch, "/api/complaints/"+created.ID+"/status", admin, map[string]any{"status": "resolved", "notes": "Replaced"})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = c.do(http.MethodGet, "/api/complaints/"+created.ID+"/history", student, nil)
	require.Equal(t, http.StatusOK, code)
	var history []struct {
		FieldChanged string  `json:"field_changed"`
		OldValue     *string `json:"old_value"`
		NewValue     string  `json:"new_value"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "resolved", history[0].NewValue)
	assert.Equal(t, "created", history[1].FieldChanged)

	code, env = c.do(http.MethodGet, "/api/notifications", student, nil)
	require.Equal(t, http.StatusOK, code)
	var notes []struct {
		Title string `json:"title"`
		Type  string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, "status_change", notes[0].Type)

	code, _ = c.do(http.MethodDelete, "/api/complaints/"+created.ID, student, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = c.do(http.MethodPost, "/api/complaints/"+created.ID+"/feedback", student, map[string]any{"rating": 5})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = c.do(http.MethodPost, "/api/complaints/"+created.ID+"/feedback", student, map[string]any{"rating": 4})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", env.Error)

	code, env = c.do(http.MethodGet, "/api/stats/status", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var counts struct {
		Total    int64 `json:"total"`
		Resolved int64 `json:"resolved"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &counts))
	assert.EqualValues(t, 1, counts.Total)
	assert.EqualValues(t, 1, counts.Resolved)

	code, env = c.do(http.MethodGet, "/api/stats/series?days=7", student, nil)
	require.Equal(t, http.StatusOK, code)
	var series []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &series))
	assert.Len(t, series, 7)
}

func TestErrorEnvelope(t *testing.T) {
	c := newClient(t)
	student := token(t, "student-1", "student", "science", "Computer Science")

	code, env := c.do(http.MethodGet, "/api/complaints", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)
	assert.Equal(t, "unauthenticated", env.Error)

	code, env = c.do(http.MethodPost, "/api/complaints", student, map[string]any{"title": "No body"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", env.Error)

	code, env = c.do(http.MethodGet, "/api/complaints/not-a-uuid", student, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", env.Error)

	code, env = c.do(http.MethodGet, "/api/complaints/0190a2b4-7c1e-7000-8000-000000000000", student, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Error)

	code, env = c.do(http.MethodGet, "/api/stats/faculties", student, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "unauthorized", env.Error)

	code, env = c.do(http.MethodGet, "/api/complaints/search?q=projector", token(t, "admin-1", "admin", "", ""), nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "dependency_failure", env.Error)

	code, env = c.do(http.MethodGet, "/api/stats/series?days=abc", student, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", env.Error)
}

func TestSubmitCooldownOverHTTP(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	c := newClientWith(t, func(deps *Dependencies) {
		deps.Redis = rdb
		deps.Config.SubmitCooldown = time.Minute
	})
	student := token(t, "student-1", "student", "science", "Computer Science")
	body := map[string]any{
		"title":       "Broken projector",
		"description": "The projector in LT2 has not worked for a week",
		"category":    "facility",
		"faculty":     "science",
		"department":  "Computer Science",
	}

	code, env := c.do(http.MethodPost, "/api/complaints", student, body)
	require.Equal(t, http.StatusCreated, code, env.Message)

	w := c.send(http.MethodPost, "/api/complaints", student, body)
	require.Equal(t, http.StatusTooManyRequests, w.Code, w.Body.String())
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	var limited envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &limited))
	assert.False(t, limited.Success)
	assert.Equal(t, "rate_limited", limited.Error)
}
