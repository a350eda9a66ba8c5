package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/bizbridge-auth/pkg/apperror"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(&bytes.Buffer{})
	return l
}

func TestRateLimit(t *testing.T) {
	mr, rdb := newRedis(t)
	r := gin.New()
	r.POST("/login", RateLimit(rdb, 2, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)
	w := do()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"success":false,"message":"Too many requests, please try again later"}`, w.Body.String())

	mr.FastForward(time.Minute)
	assert.Equal(t, http.StatusOK, do().Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()
	r := gin.New()
	r.GET("/x", RateLimit(rdb, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRealIP_KeysByForwardedAddress(t *testing.T) {
	_, rdb := newRedis(t)
	r := gin.New()
	r.Use(RealIP())
	r.GET("/x", RateLimit(rdb, 1, time.Minute, KeyByIPAndPath(), nil), func(c *gin.Context) { c.String(http.StatusOK, ClientIP(c)) })

	do := func(xff string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Forwarded-For", xff)
		r.ServeHTTP(w, req)
		return w
	}
	w := do("198.51.100.1, 10.0.0.1")
	assert.Equal(t, "198.51.100.1", w.Body.String())
	assert.Equal(t, http.StatusOK, do("198.51.100.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, do("198.51.100.1").Code)
}

func TestAuth(t *testing.T) {
	mr, rdb := newRedis(t)
	jwt := helpers.NewJWTManager("a", "r", time.Hour, time.Hour)

	r := gin.New()
	r.GET("/me", Auth(rdb, jwt), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserIDKey)+"/"+c.GetString(CtxUserRoleKey))
	})
	r.GET("/admin", Auth(rdb, jwt), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	token, _, err := jwt.GenerateAccessToken("u1", "s1", "user")
	require.NoError(t, err)

	call := func(path, tok string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if tok != "" {
			req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: tok})
		}
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, call("/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call("/me", "junk").Code)
	assert.Equal(t, http.StatusUnauthorized, call("/me", token).Code, "no session yet")

	mr.HSet(helpers.SessionKey("u1"), "user_id", "u1", "role", "user", "sid", "s1")
	w := call("/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1/user", w.Body.String())
	assert.Equal(t, http.StatusForbidden, call("/admin", token).Code)

	// a newer login replaced the session
	mr.HSet(helpers.SessionKey("u1"), "sid", "s2")
	assert.Equal(t, http.StatusUnauthorized, call("/me", token).Code)

	// bearer header works as well
	mr.HSet(helpers.SessionKey("u1"), "sid", "s1", "role", "admin")
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorResponder(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), ErrorResponder(quietLogger()))
	r.GET("/app", func(c *gin.Context) { _ = c.Error(apperror.NotFound("User not found")) })
	r.GET("/foreign", func(c *gin.Context) { _ = c.Error(errors.New("dial tcp: refused")) })
	r.POST("/bind", func(c *gin.Context) {
		var body struct {
			Email string `json:"email" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(err).SetType(gin.ErrorTypeBind)
		}
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"User not found"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/foreign", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "refused")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/bind", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error":{"Email":"is required"}`)
}

func TestRequestID_PropagatesIncoming(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
