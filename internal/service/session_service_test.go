package service

import (
	"context"
	"fmt"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeExistingSession(t *testing.T) {
	repo := repository.NewMemorySessionRepository(50, time.Hour)
	svc := NewSessionService(repo)
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, repo.SetLanguage(ctx, "s1", "en"))

	for i := 0; i < 4; i++ {
		intent := model.ResponseTypeDirectAnswer
		if i == 3 {
			intent = model.ResponseTypeSearchAugmented
		}
		err := repo.AppendTurns(ctx, "s1",
			model.ChatTurn{Role: "user", Content: fmt.Sprintf("question %d", i), Timestamp: time.Now()},
			model.ChatTurn{Role: "assistant", Content: fmt.Sprintf("answer %d", i), Intent: intent, Timestamp: time.Now()},
		)
		require.NoError(t, err)
	}

	summary, err := svc.Summarize(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", summary.SessionID)
	assert.Equal(t, 8, summary.TotalTurns)
	assert.Equal(t, "en", summary.Language)
	// 话题按出现顺序去重
	assert.Equal(t, []string{model.ResponseTypeDirectAnswer, model.ResponseTypeSearchAugmented}, summary.TopicsDiscussed)
	// 只返回最近五条
	require.Len(t, summary.RecentTurns, 5)
	assert.Equal(t, "answer 3", summary.RecentTurns[4].Content)
	require.NotNil(t, summary.LastActivity)
}

func TestSummarizeUnknownSession(t *testing.T) {
	repo := repository.NewMemorySessionRepository(50, time.Hour)
	svc := NewSessionService(repo)

	summary, err := svc.Summarize(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, "missing", summary.SessionID)
	assert.Zero(t, summary.TotalTurns)
	assert.Empty(t, summary.RecentTurns)
}

func TestClearSession(t *testing.T) {
	repo := repository.NewMemorySessionRepository(50, time.Hour)
	svc := NewSessionService(repo)
	ctx := context.Background()

	_, err := repo.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, repo.AppendTurns(ctx, "s1", model.ChatTurn{Role: "user", Content: "hi", Timestamp: time.Now()}))

	cleared, err := svc.Clear(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, cleared)

	sess, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, sess, "清空后会话标识仍然有效")
	assert.Empty(t, sess.Turns)

	// 空会话或不存在的会话：清空是幂等操作
	cleared, err = svc.Clear(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, cleared)
}
