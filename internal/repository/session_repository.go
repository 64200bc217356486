// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"resume-chat-go/internal/model"
	"sync"
	"time"
)

// SessionRepository 定义了会话存储的操作接口。
// 会话容量有界（FIFO 淘汰最旧消息），空闲超时后过期。
type SessionRepository interface {
	// GetOrCreate 返回会话的当前快照；不存在或已过期时创建新会话。
	GetOrCreate(ctx context.Context, sessionID string) (*model.Session, error)
	// Get 返回会话快照；不存在或已过期时返回 nil，不创建、不续期。
	Get(ctx context.Context, sessionID string) (*model.Session, error)
	// AppendTurns 追加消息并按容量上限 FIFO 淘汰最旧消息。
	AppendTurns(ctx context.Context, sessionID string, turns ...model.ChatTurn) error
	// SetLanguage 缓存会话的既定语言。
	SetLanguage(ctx context.Context, sessionID string, lang string) error
	// Clear 清空会话的全部消息，但保留会话标识本身的有效性。
	Clear(ctx context.Context, sessionID string) error
	// EvictExpired 移除所有过期会话，返回移除数量。可安全并发调用。
	EvictExpired(ctx context.Context) int
}

// memorySessionRepository 是进程内的会话存储实现。
// 不同会话的操作完全并发；同一会话的变更通过 per-session 互斥串行化。
type memorySessionRepository struct {
	mu          sync.RWMutex
	sessions    map[string]*sessionEntry
	maxTurns    int
	idleTimeout time.Duration
	now         func() time.Time
}

type sessionEntry struct {
	mu      sync.Mutex
	session model.Session
}

// NewMemorySessionRepository 创建一个进程内会话存储。
func NewMemorySessionRepository(maxTurns int, idleTimeout time.Duration) SessionRepository {
	return &memorySessionRepository{
		sessions:    make(map[string]*sessionEntry),
		maxTurns:    maxTurns,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

func (r *memorySessionRepository) GetOrCreate(_ context.Context, sessionID string) (*model.Session, error) {
	entry := r.entry(sessionID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := r.now()
	// 惰性过期检查：超时的会话按新建处理
	if r.expired(entry.session.LastActivity, now) {
		entry.session = model.Session{ID: sessionID, CreatedAt: now}
	}
	entry.session.LastActivity = now
	return snapshot(&entry.session), nil
}

func (r *memorySessionRepository) Get(_ context.Context, sessionID string) (*model.Session, error) {
	r.mu.RLock()
	entry, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if r.expired(entry.session.LastActivity, r.now()) {
		return nil, nil
	}
	return snapshot(&entry.session), nil
}

func (r *memorySessionRepository) AppendTurns(_ context.Context, sessionID string, turns ...model.ChatTurn) error {
	entry := r.entry(sessionID)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := r.now()
	if r.expired(entry.session.LastActivity, now) {
		entry.session = model.Session{ID: sessionID, CreatedAt: now}
	}
	entry.session.Turns = append(entry.session.Turns, turns...)
	// FIFO：超出上限时淘汰最旧消息，保留对话的近期性
	if r.maxTurns > 0 && len(entry.session.Turns) > r.maxTurns {
		entry.session.Turns = entry.session.Turns[len(entry.session.Turns)-r.maxTurns:]
	}
	entry.session.LastActivity = now
	return nil
}

func (r *memorySessionRepository) SetLanguage(_ context.Context, sessionID string, lang string) error {
	entry := r.entry(sessionID)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.session.Language = lang
	return nil
}

func (r *memorySessionRepository) Clear(_ context.Context, sessionID string) error {
	r.mu.RLock()
	entry, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.session.Turns = nil
	entry.session.LastActivity = r.now()
	return nil
}

func (r *memorySessionRepository) EvictExpired(_ context.Context) int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, entry := range r.sessions {
		entry.mu.Lock()
		expired := r.expired(entry.session.LastActivity, now)
		entry.mu.Unlock()
		if expired {
			delete(r.sessions, id)
			evicted++
		}
	}
	return evicted
}

// entry 返回会话对应的存储单元，必要时创建。
func (r *memorySessionRepository) entry(sessionID string) *sessionEntry {
	r.mu.RLock()
	entry, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if ok {
		return entry
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok = r.sessions[sessionID]; ok {
		return entry
	}
	now := r.now()
	entry = &sessionEntry{session: model.Session{ID: sessionID, CreatedAt: now, LastActivity: now}}
	r.sessions[sessionID] = entry
	return entry
}

func (r *memorySessionRepository) expired(lastActivity time.Time, now time.Time) bool {
	if lastActivity.IsZero() {
		return false
	}
	return r.idleTimeout > 0 && now.Sub(lastActivity) > r.idleTimeout
}

// snapshot 返回会话的深拷贝，调用方读取到的状态最多落后一次在途变更。
func snapshot(s *model.Session) *model.Session {
	cp := *s
	cp.Turns = make([]model.ChatTurn, len(s.Turns))
	copy(cp.Turns, s.Turns)
	return &cp
}
