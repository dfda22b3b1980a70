// Package session 封装当前客户端的登录态（token + 用户信息）。
//
// 过期校验不在这里做，由 auth.Validator 负责。
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/user/reelview/internal/model"
)

// Session 中使用的 key
const (
	TokenKey = "token"
	UserKey  = "user"
)

// Session 当前登录态
type Session struct {
	Token string
	User  *model.User
}

// HasToken 是否持有 token（不代表有效）
func (s Session) HasToken() bool {
	return s.Token != ""
}

// TokenStore 登录态存取
type TokenStore interface {
	Get() Session
	Set(token string, user model.User) error
	Clear() error
}

// Provider 根据请求取得 TokenStore，注入到各个 gate 和 handler 中
type Provider func(c *gin.Context) TokenStore

// Default 基于 gin-contrib/sessions 的默认 Provider
func Default(c *gin.Context) TokenStore {
	return NewStore(sessions.Default(c))
}

// Store 基于 gin-contrib/sessions 的实现
type Store struct {
	s sessions.Session
}

// NewStore 创建 Store
func NewStore(s sessions.Session) *Store {
	return &Store{s: s}
}

// Get 读取登录态，用户信息无法解析时视为缺失
func (st *Store) Get() Session {
	var sess Session
	if token, ok := st.s.Get(TokenKey).(string); ok {
		sess.Token = token
	}
	if raw, ok := st.s.Get(UserKey).(string); ok && raw != "" {
		var u model.User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			sess.User = &u
		}
	}
	return sess
}

// Set 保存登录态
func (st *Store) Set(token string, user model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("序列化用户信息失败: %w", err)
	}
	st.s.Set(TokenKey, token)
	st.s.Set(UserKey, string(data))
	if err := st.s.Save(); err != nil {
		return fmt.Errorf("保存 session 失败: %w", err)
	}
	return nil
}

// Clear 同时删除 token 和用户信息，一次 Save 提交
func (st *Store) Clear() error {
	st.s.Delete(TokenKey)
	st.s.Delete(UserKey)
	if err := st.s.Save(); err != nil {
		return fmt.Errorf("清除 session 失败: %w", err)
	}
	return nil
}

// MemoryStore 内存实现，用于测试和命令行场景
type MemoryStore struct {
	mu      sync.Mutex
	token   string
	user    *model.User
	SaveErr error // 非空时 Set/Clear 返回该错误
}

// NewMemoryStore 创建内存 Store
func NewMemoryStore(token string, user *model.User) *MemoryStore {
	return &MemoryStore{token: token, user: user}
}

func (m *MemoryStore) Get() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := Session{Token: m.token}
	if m.user != nil {
		u := *m.user
		sess.User = &u
	}
	return sess
}

func (m *MemoryStore) Set(token string, user model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.token = token
	m.user = &user
	return nil
}

// Clear 即使返回错误也会清空两项，避免留下半个登录态
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.user = nil
	return m.SaveErr
}

// Static 总是返回同一个 TokenStore 的 Provider
func Static(store TokenStore) Provider {
	return func(*gin.Context) TokenStore { return store }
}

// ErrNoSession 请求上下文中没有登录态
var ErrNoSession = errors.New("session: not found in context")

const contextKey = "reelview.session"

// Attach 将已校验的登录态放入 gin 上下文
func Attach(c *gin.Context, sess Session) {
	c.Set(contextKey, sess)
}

// FromContext 读取 Attach 放入的登录态
func FromContext(c *gin.Context) (Session, error) {
	v, ok := c.Get(contextKey)
	if !ok {
		return Session{}, ErrNoSession
	}
	sess, ok := v.(Session)
	if !ok {
		return Session{}, ErrNoSession
	}
	return sess, nil
}
