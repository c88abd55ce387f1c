package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"layout-translator/logger"
)

const (
	SessionCookieName = "session_id"
	sessionContextKey = "sessionID"
)

type Session struct {
	ID        string
	CreatedAt time.Time
	LastSeen  time.Time
}

// SessionManager 内存会话表，每个会话的任务和文件相互隔离
type SessionManager struct {
	sessions map[string]*Session
	timeout  time.Duration
	mu       sync.RWMutex
	log      *logger.Logger
	stop     chan struct{}
	stopOnce sync.Once
	// OnExpire 会话过期时调用，用于清理会话目录
	OnExpire func(sessionID string)
}

// NewSessionManager 创建会话管理器并启动过期清理协程
func NewSessionManager(timeout time.Duration, log *logger.Logger) *SessionManager {
	if log == nil {
		log = logger.Default()
	}
	sm := &SessionManager{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		log:      log,
		stop:     make(chan struct{}),
	}
	go sm.cleanupLoop(time.Hour)
	return sm
}

// Stop 停止清理协程
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stop) })
}

// generateSessionID 生成随机会话 ID
func generateSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}

// GetOrCreateSession 获取或创建会话，过期会话会被替换
func (sm *SessionManager) GetOrCreateSession(sessionID string) *Session {
	sm.mu.Lock()
	session, expired := sm.lookupLocked(sessionID)
	if session == nil {
		now := time.Now()
		session = &Session{
			ID:        generateSessionID(),
			CreatedAt: now,
			LastSeen:  now,
		}
		sm.sessions[session.ID] = session
		sm.log.Debug("创建新会话", logger.Fields{"会话": session.ID[:8]})
	}
	sm.mu.Unlock()

	if expired {
		sm.expire([]string{sessionID})
	}
	return session
}

// GetSession 获取会话（不创建新会话）
func (sm *SessionManager) GetSession(sessionID string) (*Session, bool) {
	sm.mu.Lock()
	session, expired := sm.lookupLocked(sessionID)
	sm.mu.Unlock()

	if expired {
		sm.expire([]string{sessionID})
	}
	return session, session != nil
}

// lookupLocked 查找并续期会话，已过期的会话从表中删除
func (sm *SessionManager) lookupLocked(sessionID string) (*Session, bool) {
	if sessionID == "" {
		return nil, false
	}
	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil, false
	}
	if time.Since(session.LastSeen) >= sm.timeout {
		delete(sm.sessions, sessionID)
		return nil, true
	}
	session.LastSeen = time.Now()
	return session, false
}

func (sm *SessionManager) expire(ids []string) {
	if sm.OnExpire == nil {
		return
	}
	for _, id := range ids {
		sm.OnExpire(id)
	}
}

// DeleteSession 删除会话
func (sm *SessionManager) DeleteSession(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, sessionID)
}

// Len 当前会话数
func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CleanupExpired 删除过期会话，返回删除的数量
func (sm *SessionManager) CleanupExpired() int {
	sm.mu.Lock()
	var expired []string
	now := time.Now()
	for id, session := range sm.sessions {
		if now.Sub(session.LastSeen) >= sm.timeout {
			delete(sm.sessions, id)
			expired = append(expired, id)
		}
	}
	sm.mu.Unlock()

	sm.expire(expired)
	if len(expired) > 0 {
		sm.log.Info("清理过期会话", logger.Fields{"数量": len(expired)})
	}
	return len(expired)
}

func (sm *SessionManager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sm.stop:
			return
		case <-ticker.C:
			sm.CleanupExpired()
		}
	}
}

// Middleware Gin 中间件：确保每个请求都有会话
func (sm *SessionManager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, _ := c.Cookie(SessionCookieName)
		session := sm.GetOrCreateSession(sessionID)

		if sessionID != session.ID {
			isSecure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
			c.SetCookie(
				SessionCookieName,
				session.ID,
				int(sm.timeout.Seconds()),
				"/",
				"",
				isSecure,
				true, // httpOnly
			)
		}

		c.Set(sessionContextKey, session.ID)
		c.Next()
	}
}

// GetSessionID 从上下文获取会话 ID
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}
