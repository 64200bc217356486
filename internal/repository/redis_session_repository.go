package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"resume-chat-go/internal/model"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// redisSessionRepository 是 Redis 版本的会话存储，适用于多实例部署。
// 过期依赖 Redis TTL：每次写入以空闲超时续期，超时未活动的键自动消失。
// 同一会话的读-改-写通过进程内按键互斥串行化。
type redisSessionRepository struct {
	redisClient *redis.Client
	maxTurns    int
	idleTimeout time.Duration
	locks       sync.Map // key: sessionID, value: *sync.Mutex
}

// NewRedisSessionRepository 创建一个 Redis 会话存储。
func NewRedisSessionRepository(redisClient *redis.Client, maxTurns int, idleTimeout time.Duration) SessionRepository {
	return &redisSessionRepository{
		redisClient: redisClient,
		maxTurns:    maxTurns,
		idleTimeout: idleTimeout,
	}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("chat:session:%s", sessionID)
}

func (r *redisSessionRepository) GetOrCreate(ctx context.Context, sessionID string) (*model.Session, error) {
	mu := r.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := r.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if sess == nil {
		sess = &model.Session{ID: sessionID, CreatedAt: now}
	}
	sess.LastActivity = now
	if err := r.store(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (r *redisSessionRepository) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	return r.load(ctx, sessionID)
}

func (r *redisSessionRepository) AppendTurns(ctx context.Context, sessionID string, turns ...model.ChatTurn) error {
	mu := r.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := r.load(ctx, sessionID)
	if err != nil {
		return err
	}
	now := time.Now()
	if sess == nil {
		sess = &model.Session{ID: sessionID, CreatedAt: now}
	}
	sess.Turns = append(sess.Turns, turns...)
	if r.maxTurns > 0 && len(sess.Turns) > r.maxTurns {
		sess.Turns = sess.Turns[len(sess.Turns)-r.maxTurns:]
	}
	sess.LastActivity = now
	return r.store(ctx, sess)
}

func (r *redisSessionRepository) SetLanguage(ctx context.Context, sessionID string, lang string) error {
	mu := r.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := r.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		sess = &model.Session{ID: sessionID, CreatedAt: time.Now(), LastActivity: time.Now()}
	}
	sess.Language = lang
	return r.store(ctx, sess)
}

func (r *redisSessionRepository) Clear(ctx context.Context, sessionID string) error {
	mu := r.lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := r.load(ctx, sessionID)
	if err != nil || sess == nil {
		return err
	}
	sess.Turns = nil
	sess.LastActivity = time.Now()
	return r.store(ctx, sess)
}

// EvictExpired 对 Redis 实现是空操作：键的 TTL 已经承担了过期职责。
func (r *redisSessionRepository) EvictExpired(_ context.Context) int {
	return 0
}

func (r *redisSessionRepository) load(ctx context.Context, sessionID string) (*model.Session, error) {
	jsonData, err := r.redisClient.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	var sess model.Session
	if err := json.Unmarshal([]byte(jsonData), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

func (r *redisSessionRepository) store(ctx context.Context, sess *model.Session) error {
	jsonData, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.redisClient.Set(ctx, sessionKey(sess.ID), jsonData, r.idleTimeout).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) lock(sessionID string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
