package service

import (
	"context"
	"resume-chat-go/internal/config"
	"resume-chat-go/internal/model"
	"resume-chat-go/internal/repository"
	"resume-chat-go/pkg/log"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
)

// Detector 是语言检测库的窄接口：文本进，ISO 639-1 代码与置信度出。
type Detector interface {
	Detect(text string) (code string, confidence float64)
}

// whatlangDetector 基于 whatlanggo 的默认实现。
type whatlangDetector struct{}

func (whatlangDetector) Detect(text string) (string, float64) {
	info := whatlanggo.Detect(text)
	return whatlanggo.LangToStringShort(info.Lang), info.Confidence
}

// NewWhatlangDetector 返回默认的语言检测实现。
func NewWhatlangDetector() Detector {
	return whatlangDetector{}
}

// 内置默认支持的语言集合。
var defaultSupportedLanguages = []string{"en", "ur", "hi", "es", "fr", "de", "ar", "zh", "ja", "ko"}

// LanguageService 负责确定消息的回复语言，并把结果缓存在会话上。
type LanguageService interface {
	// Resolve 返回本条消息应使用的语言代码，必要时更新会话的语言缓存。
	Resolve(ctx context.Context, message string, sess *model.Session) string
}

type languageService struct {
	detector   Detector
	repo       repository.SessionRepository
	supported  map[string]bool
	fallback   string
	shortRunes int
	threshold  float64
}

// NewLanguageService 创建语言解析服务。
// 策略：低于 shortRunes 的简短消息直接继承会话缓存语言（短文本检测不可靠）；
// 其余消息重新检测，置信度不足或语言不受支持时回退到缓存语言或默认语言。
func NewLanguageService(detector Detector, repo repository.SessionRepository, cfg config.ChatbotConfig) LanguageService {
	supported := cfg.SupportedLanguages
	if len(supported) == 0 {
		supported = defaultSupportedLanguages
	}
	set := make(map[string]bool, len(supported))
	for _, code := range supported {
		set[code] = true
	}

	fallback := cfg.DefaultLanguage
	if fallback == "" {
		fallback = "en"
	}
	shortRunes := cfg.ShortMessageRunes
	if shortRunes <= 0 {
		shortRunes = 20
	}
	threshold := cfg.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 0.6
	}

	return &languageService{
		detector:   detector,
		repo:       repo,
		supported:  set,
		fallback:   fallback,
		shortRunes: shortRunes,
		threshold:  threshold,
	}
}

func (s *languageService) Resolve(ctx context.Context, message string, sess *model.Session) string {
	cached := ""
	if sess != nil {
		cached = sess.Language
	}

	// 简短追问继承会话既定语言，不重新检测
	if cached != "" && utf8.RuneCountInString(message) < s.shortRunes {
		return cached
	}

	code, confidence := s.detector.Detect(message)
	if confidence < s.threshold || !s.supported[code] {
		if cached != "" {
			return cached
		}
		return s.fallback
	}

	if sess != nil && code != cached {
		if err := s.repo.SetLanguage(ctx, sess.ID, code); err != nil {
			log.Warnf("缓存会话语言失败: session=%s, lang=%s, err=%v", sess.ID, code, err)
		}
		sess.Language = code
	}
	return code
}
