package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T, maxTurns int, idleTimeout time.Duration) (SessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisSessionRepository(client, maxTurns, idleTimeout), mr
}

func TestRedisAppendTurnsEvictsOldestFIFO(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisRepo(t, 5, time.Hour)

	for i := 0; i < 12; i++ {
		require.NoError(t, repo.AppendTurns(ctx, "s1", userTurn(fmt.Sprintf("msg-%d", i))))
	}

	sess, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Len(t, sess.Turns, 5)
	assert.Equal(t, "msg-7", sess.Turns[0].Content)
	assert.Equal(t, "msg-11", sess.Turns[4].Content)
}

func TestRedisConcurrentGetOrCreateDoesNotLoseAppends(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisRepo(t, 200, time.Hour)

	const appends = 50
	var wg sync.WaitGroup
	// 同一会话上交错执行读-改-写：GetOrCreate 不得用陈旧快照覆盖已追加的消息
	for i := 0; i < appends; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, repo.AppendTurns(ctx, "s1", userTurn(fmt.Sprintf("msg-%d", i))))
		}(i)
		go func() {
			defer wg.Done()
			_, err := repo.GetOrCreate(ctx, "s1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Len(t, sess.Turns, appends, "并发 GetOrCreate 不得丢失任何已追加消息")
}

func TestRedisExpiredSessionIsTreatedAsNew(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRedisRepo(t, 50, time.Hour)

	require.NoError(t, repo.AppendTurns(ctx, "s1", userTurn("hello")))

	// TTL 到期后键消失，会话按新建处理
	mr.FastForward(2 * time.Hour)
	sess, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, sess)

	sess, err = repo.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Empty(t, sess.Turns)
}

func TestRedisClearKeepsIdentifierValid(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisRepo(t, 50, time.Hour)

	require.NoError(t, repo.AppendTurns(ctx, "s1", userTurn("hello")))
	require.NoError(t, repo.Clear(ctx, "s1"))

	sess, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Empty(t, sess.Turns)
}

func TestRedisSetLanguageIsCachedOnSession(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisRepo(t, 50, time.Hour)

	_, err := repo.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, repo.SetLanguage(ctx, "s1", "ur"))

	sess, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "ur", sess.Language)
}
