package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"layout-translator/logger"
)

type expiredRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *expiredRecorder) record(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *expiredRecorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func TestSessionReuseWithinTimeout(t *testing.T) {
	sm := NewSessionManager(time.Hour, logger.Discard())
	defer sm.Stop()

	first := sm.GetOrCreateSession("")
	require.Len(t, first.ID, 64)
	again := sm.GetOrCreateSession(first.ID)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, sm.Len())

	got, ok := sm.GetSession(first.ID)
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)

	_, ok = sm.GetSession("unknown")
	assert.False(t, ok)

	sm.DeleteSession(first.ID)
	assert.Zero(t, sm.Len())
}

func TestCleanupExpired(t *testing.T) {
	sm := NewSessionManager(100*time.Millisecond, logger.Discard())
	defer sm.Stop()
	expired := &expiredRecorder{}
	sm.OnExpire = expired.record

	old := sm.GetOrCreateSession("")
	time.Sleep(150 * time.Millisecond)
	fresh := sm.GetOrCreateSession("")

	assert.Equal(t, 1, sm.CleanupExpired())
	assert.Equal(t, []string{old.ID}, expired.list())
	assert.Equal(t, 1, sm.Len())

	_, ok := sm.GetSession(fresh.ID)
	assert.True(t, ok)
	assert.Zero(t, sm.CleanupExpired())
}

// TestExpiredSessionReplaced 过期会话被替换为新会话并触发清理
func TestExpiredSessionReplaced(t *testing.T) {
	sm := NewSessionManager(100*time.Millisecond, logger.Discard())
	defer sm.Stop()
	expired := &expiredRecorder{}
	sm.OnExpire = expired.record

	old := sm.GetOrCreateSession("")
	time.Sleep(150 * time.Millisecond)

	replaced := sm.GetOrCreateSession(old.ID)
	assert.NotEqual(t, old.ID, replaced.ID)
	assert.Equal(t, []string{old.ID}, expired.list())

	other := sm.GetOrCreateSession("")
	time.Sleep(150 * time.Millisecond)
	_, ok := sm.GetSession(other.ID)
	assert.False(t, ok)
	assert.Equal(t, []string{old.ID, other.ID}, expired.list())
}

func TestCleanupLoopStops(t *testing.T) {
	sm := NewSessionManager(time.Millisecond, logger.Discard())
	expired := &expiredRecorder{}
	sm.OnExpire = expired.record
	sm.GetOrCreateSession("")

	done := make(chan struct{})
	go func() {
		sm.cleanupLoop(5 * time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(expired.list()) == 1 }, time.Second, 5*time.Millisecond)

	sm.Stop()
	sm.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("清理协程没有退出")
	}
}

func TestMiddlewareSetsCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sm := NewSessionManager(time.Hour, logger.Discard())
	defer sm.Stop()

	r := gin.New()
	r.Use(sm.Middleware())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetSessionID(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, w.Body.String())

	// 已有会话不再下发 Cookie
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, cookies[0].Value, w.Body.String())
}
