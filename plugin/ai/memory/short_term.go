package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hrygo/secretary/plugin/ai"
)

// ShortTermMemory keeps a sliding window of recent turns per tenant in front of the chat history table.
// Thread-safe for concurrent access.
type ShortTermMemory struct {
	mu       sync.RWMutex
	sessions map[string]*sessionData
	maxSize  int // Maximum messages per tenant

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type sessionData struct {
	messages   []ai.Message
	lastAccess time.Time
}

// NewShortTermMemory creates a new short-term window.
// maxSize specifies the maximum number of messages to keep per tenant (default 20).
func NewShortTermMemory(maxSize int) *ShortTermMemory {
	if maxSize <= 0 {
		maxSize = 20
	}
	ctx, cancel := context.WithCancel(context.Background())
	stm := &ShortTermMemory{
		sessions: make(map[string]*sessionData),
		maxSize:  maxSize,
		ctx:      ctx,
		cancel:   cancel,
	}
	stm.wg.Add(1)
	go stm.cleanupLoop()
	return stm
}

// Close stops the cleanup goroutine.
func (s *ShortTermMemory) Close() {
	s.cancel()
	s.wg.Wait()
}

// MaxSize returns the window size.
func (s *ShortTermMemory) MaxSize() int {
	return s.maxSize
}

// GetMessages returns up to limit newest messages. ok is false when the tenant window was never loaded.
func (s *ShortTermMemory) GetMessages(tenantID string, limit int) (msgs []ai.Message, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[tenantID]
	if !exists {
		return nil, false
	}
	session.lastAccess = time.Now()

	messages := session.messages
	if limit > 0 && limit < len(messages) {
		messages = messages[len(messages)-limit:]
	}
	result := make([]ai.Message, len(messages))
	copy(result, messages)
	return result, true
}

// Load replaces the tenant window with messages loaded from storage.
func (s *ShortTermMemory) Load(tenantID string, messages []ai.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(messages) > s.maxSize {
		messages = messages[len(messages)-s.maxSize:]
	}
	window := make([]ai.Message, len(messages), s.maxSize)
	copy(window, messages)
	s.sessions[tenantID] = &sessionData{messages: window, lastAccess: time.Now()}
}

// AddMessage appends to a loaded tenant window. Unloaded tenants are left alone
// so the next read loads the full window from storage.
func (s *ShortTermMemory) AddMessage(tenantID string, msg ai.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[tenantID]
	if !exists {
		return
	}
	session.messages = append(session.messages, msg)
	session.lastAccess = time.Now()
	if len(session.messages) > s.maxSize {
		session.messages = session.messages[len(session.messages)-s.maxSize:]
	}
}

// ClearSession drops a tenant window.
func (s *ShortTermMemory) ClearSession(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tenantID)
}

// SessionCount returns the number of loaded tenant windows.
func (s *ShortTermMemory) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// cleanupLoop periodically removes windows inactive for more than an hour.
func (s *ShortTermMemory) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for tenantID, session := range s.sessions {
				if now.Sub(session.lastAccess) > time.Hour {
					delete(s.sessions, tenantID)
				}
			}
			s.mu.Unlock()
		}
	}
}
