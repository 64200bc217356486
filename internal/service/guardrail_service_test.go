package service

import (
	"resume-chat-go/internal/config"
	"resume-chat-go/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuardrail() GuardrailClassifier {
	return NewKeywordGuardrail(config.GuardrailsConfig{}, config.SearchConfig{}, 20)
}

func TestClassifyRestrictedMessage(t *testing.T) {
	g := newTestGuardrail()

	verdict := g.Classify("how do I hack my employer's database", nil)
	require.Equal(t, model.VerdictRestricted, verdict.Verdict)
	assert.NotEmpty(t, verdict.Redirect)
	// 重定向话术是固定模板，不复述原始消息内容
	assert.NotContains(t, verdict.Redirect, "hack")
}

func TestClassifyResumeMessageOnTopic(t *testing.T) {
	g := newTestGuardrail()

	verdict := g.Classify("Can you improve my resume summary section?", nil)
	assert.Equal(t, model.VerdictOnTopic, verdict.Verdict)
	assert.Empty(t, verdict.Redirect)
}

func TestClassifySearchTriggerOnTopic(t *testing.T) {
	g := newTestGuardrail()

	verdict := g.Classify("find information about remote engineering roles", nil)
	assert.Equal(t, model.VerdictOnTopic, verdict.Verdict)
}

func TestClassifyOffTopicRedirect(t *testing.T) {
	g := newTestGuardrail()

	verdict := g.Classify("tell me a long story about dragons and wizards please", nil)
	require.Equal(t, model.VerdictOffTopic, verdict.Verdict)
	assert.Equal(t, Template(TemplateGuardrail, "en"), verdict.Redirect)
}

func TestClassifyShortFollowUpInheritsTopic(t *testing.T) {
	g := newTestGuardrail()
	sess := &model.Session{
		ID:    "s1",
		Turns: []model.ChatTurn{{Role: "user", Content: "improve my resume", Timestamp: time.Now()}},
	}

	// 已建立的对话中，简短追问按在题处理
	verdict := g.Classify("make it shorter", sess)
	assert.Equal(t, model.VerdictOnTopic, verdict.Verdict)

	// 同样的消息在没有历史时不享受追问豁免
	verdict = g.Classify("make it shorter", &model.Session{ID: "s2"})
	assert.Equal(t, model.VerdictOffTopic, verdict.Verdict)
}

func TestClassifyRedirectUsesSessionLanguage(t *testing.T) {
	g := newTestGuardrail()
	sess := &model.Session{ID: "s1", Language: "ur"}

	verdict := g.Classify("tell me a long story about dragons and wizards please", sess)
	require.Equal(t, model.VerdictOffTopic, verdict.Verdict)
	assert.Equal(t, Template(TemplateGuardrail, "ur"), verdict.Redirect)
}
