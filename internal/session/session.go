package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one authenticated presence. It is created at login, passed
// explicitly to every operation made on the user's behalf, and destroyed
// at logout. There is no ambient process-wide identity.
type Session struct {
	Token     string
	UserID    uint
	Username  string
	CreatedAt time.Time
}

// Manager tracks the active sessions in memory.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]Session)}
}

// Create registers a new session for the identity and returns it.
func (m *Manager) Create(userID uint, username string) Session {
	s := Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Username:  username,
		CreatedAt: time.Now(),
	}
	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()
	return s
}

// Get looks up an active session by its token.
func (m *Manager) Get(token string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	return s, ok
}

// Destroy ends a session. Unknown tokens are ignored.
func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}
