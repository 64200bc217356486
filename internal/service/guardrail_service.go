package service

import (
	"resume-chat-go/internal/config"
	"resume-chat-go/internal/model"
	"strings"
	"unicode/utf8"
)

// GuardrailClassifier 判定消息是否在允许的话题范围内。
// 实现必须是可替换的：编排层只依赖本接口，强化版分类器可直接接入。
type GuardrailClassifier interface {
	Classify(message string, sess *model.Session) model.GuardrailVerdict
}

// 内置默认受限话题列表，配置项为空时生效。
var defaultRestrictedTopics = []string{
	"illegal activities", "harmful content", "violence", "hate speech",
	"discrimination", "personal information", "private data", "passwords",
	"financial details", "medical advice", "legal advice", "adult content",
}

// 内置默认警示关键词列表。
var defaultWarningKeywords = []string{
	"hack", "crack", "pirate", "steal", "fraud", "scam", "illegal",
	"drugs", "weapons", "violence", "suicide", "self-harm",
}

// 内置默认简历/职业关键词，用于识别在题消息。
var defaultResumeKeywords = []string{
	"resume", "cv", "curriculum vitae", "job", "career", "skills", "experience",
	"education", "interview", "application", "hiring", "employment", "work",
	"professional", "qualification", "achievement", "accomplishment", "portfolio",
	"linkedin", "networking", "salary", "promotion", "manager", "leadership",
	"teamwork", "project", "certification", "training", "internship",
}

// keywordGuardrail 是基于关键词/短语匹配的守卫实现，辅以轻量的上下文信号
// （已建立的会话里，简短追问按在题处理）。
type keywordGuardrail struct {
	restricted     []string
	warnings       []string
	resumeKeywords []string
	triggers       []string
	followUpRunes  int
}

// NewKeywordGuardrail 创建默认的关键词守卫。配置中的列表为空时使用内置默认值。
func NewKeywordGuardrail(cfg config.GuardrailsConfig, searchCfg config.SearchConfig, followUpRunes int) GuardrailClassifier {
	g := &keywordGuardrail{
		restricted:     cfg.RestrictedTopics,
		warnings:       cfg.WarningKeywords,
		resumeKeywords: cfg.ResumeKeywords,
		triggers:       searchCfg.Triggers,
		followUpRunes:  followUpRunes,
	}
	if len(g.restricted) == 0 {
		g.restricted = defaultRestrictedTopics
	}
	if len(g.warnings) == 0 {
		g.warnings = defaultWarningKeywords
	}
	if len(g.resumeKeywords) == 0 {
		g.resumeKeywords = defaultResumeKeywords
	}
	if len(g.triggers) == 0 {
		g.triggers = defaultSearchTriggers
	}
	if g.followUpRunes <= 0 {
		g.followUpRunes = 20
	}
	return g
}

// Classify 对消息做话题分类。重定向话术由模板给出，按会话语言本地化，
// 绝不拼接被拦截的原始内容。
func (g *keywordGuardrail) Classify(message string, sess *model.Session) model.GuardrailVerdict {
	lower := strings.ToLower(message)
	lang := "en"
	if sess != nil && sess.Language != "" {
		lang = sess.Language
	}

	if containsAny(lower, g.restricted) || containsAny(lower, g.warnings) {
		return model.GuardrailVerdict{
			Verdict:  model.VerdictRestricted,
			Redirect: Template(TemplateGuardrail, lang),
		}
	}

	if containsAny(lower, g.resumeKeywords) || containsAny(lower, g.triggers) {
		return model.GuardrailVerdict{Verdict: model.VerdictOnTopic}
	}

	// 已有对话的简短追问视为在题，避免把 "make it shorter" 这类消息拒之门外
	if sess != nil && len(sess.Turns) > 0 && utf8.RuneCountInString(message) <= g.followUpRunes {
		return model.GuardrailVerdict{Verdict: model.VerdictOnTopic}
	}

	return model.GuardrailVerdict{
		Verdict:  model.VerdictOffTopic,
		Redirect: Template(TemplateGuardrail, lang),
	}
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
