package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/reelview/internal/auth"
	"github.com/user/reelview/internal/model"
	"github.com/user/reelview/internal/session"
	"github.com/user/reelview/internal/utils"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("x"))
	require.NoError(t, err)
	return tok
}

func newGate() *auth.AccessGate {
	return auth.NewAccessGate(auth.NewValidator(func() time.Time { return now }))
}

func protected(store session.TokenStore, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	gate := newGate()
	handlers := append([]gin.HandlerFunc{RequireSession(session.Static(store), gate)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		sess, err := session.FromContext(c)
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.String(http.StatusOK, "ok:"+sess.User.Username)
	})
	r.GET("/watchlist", handlers...)
	r.GET("/api/watchlist", handlers...)
	return r
}

func htmlRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "text/html")
	return req
}

func TestRequireSessionNoToken(t *testing.T) {
	r := protected(session.NewMemoryStore("", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, htmlRequest("/watchlist?sort=title"))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirect=%2Fwatchlist%3Fsort%3Dtitle", w.Header().Get("Location"))
}

func TestRequireSessionExpiredClearsStore(t *testing.T) {
	user := &model.User{ID: "u1", Username: "alice", Role: model.RoleUser}
	store := session.NewMemoryStore(token(t, now.Add(-10*time.Second)), user)
	r := protected(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, htmlRequest("/watchlist"))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirect=%2Fwatchlist", w.Header().Get("Location"))
	assert.False(t, store.Get().HasToken())
	assert.Nil(t, store.Get().User)
}

func TestRequireSessionAPIReturns401(t *testing.T) {
	r := protected(session.NewMemoryStore("garbage", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/watchlist", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestRequireSessionValid(t *testing.T) {
	user := &model.User{ID: "u1", Username: "alice", Role: model.RoleUser}
	r := protected(session.NewMemoryStore(token(t, now.Add(time.Hour)), user))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, htmlRequest("/watchlist"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok:alice", w.Body.String())
}

func TestRequireRole(t *testing.T) {
	valid := func(role model.Role) session.TokenStore {
		return session.NewMemoryStore(token(t, now.Add(time.Hour)), &model.User{ID: "u1", Username: "bob", Role: role})
	}

	t.Run("admin passes", func(t *testing.T) {
		r := protected(valid(model.RoleAdmin), RequireRole(newGate(), model.RoleAdmin, nil))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, htmlRequest("/watchlist"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("user denied with page", func(t *testing.T) {
		called := false
		deny := func(c *gin.Context) {
			called = true
			c.String(http.StatusForbidden, "denied page")
		}
		r := protected(valid(model.RoleUser), RequireRole(newGate(), model.RoleAdmin, deny))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, htmlRequest("/watchlist"))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.True(t, called)
		assert.Equal(t, "denied page", w.Body.String())
	})

	t.Run("user denied on api", func(t *testing.T) {
		r := protected(valid(model.RoleUser), RequireRole(newGate(), model.RoleAdmin, nil))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/watchlist", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), auth.AdminOnlyMessage)
	})

	t.Run("without session in context", func(t *testing.T) {
		r := gin.New()
		r.GET("/x", RequireRole(newGate(), model.RoleAdmin, nil), func(c *gin.Context) { c.String(http.StatusOK, "ok") })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, htmlRequest("/x"))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, auth.AdminOnlyMessage, w.Body.String())
	})
}

func TestLoadSessionTreatsInvalidAsGuest(t *testing.T) {
	user := &model.User{ID: "u1", Username: "alice"}
	store := session.NewMemoryStore(token(t, now.Add(-time.Minute)), user)

	r := gin.New()
	r.GET("/", LoadSession(session.Static(store), newGate()), func(c *gin.Context) {
		sess, err := session.FromContext(c)
		require.NoError(t, err)
		if sess.User == nil {
			c.String(http.StatusOK, "guest")
			return
		}
		c.String(http.StatusOK, sess.User.Username)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, htmlRequest("/"))
	assert.Equal(t, "guest", w.Body.String())
	// 公开页面不清除登录态
	assert.True(t, store.Get().HasToken())
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimit(utils.NewRateLimiters(1, time.Minute), func(c *gin.Context) {
		c.String(http.StatusTooManyRequests, "slow down")
	}), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "slow down", w.Body.String())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger(), Security(true))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRequireSessionPostGoesToPlainLogin(t *testing.T) {
	r := gin.New()
	r.POST("/movie/:id/watchlist", RequireSession(session.Static(session.NewMemoryStore("", nil)), newGate()), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodPost, "/movie/m1/watchlist", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, auth.LoginPath, w.Header().Get("Location"))
}
