// 搜索相关的业务逻辑：触发判定与搜索编排。
package service

import (
	"context"
	"net/url"
	"resume-chat-go/internal/config"
	"resume-chat-go/internal/limiter"
	"resume-chat-go/internal/model"
	"resume-chat-go/pkg/log"
	"resume-chat-go/pkg/webpage"
	"resume-chat-go/pkg/websearch"
	"strings"
	"time"
)

// 内置默认搜索触发短语：时效性、事实查询与显式搜索请求。
var defaultSearchTriggers = []string{
	"search for", "find information", "look up", "what is", "who is",
	"latest news", "current", "recent", "trending", "company info",
	"salary", "market rate", "industry trends", "job market", "hiring trends",
	"company culture", "interview questions", "skill requirements",
	"certification requirements", "course recommendations",
}

// 内置默认可信域名列表，命中之外的来源直接丢弃。
var defaultAllowedDomains = []string{
	"linkedin.com", "indeed.com", "glassdoor.com", "monster.com",
	"careerbuilder.com", "ziprecruiter.com", "stackoverflow.com",
	"github.com", "medium.com", "forbes.com", "harvard.edu",
	"coursera.org", "udemy.com", "edx.org", "wikipedia.org",
}

// 查询清洗时剔除的疑问词。
var questionWords = map[string]bool{
	"what": true, "who": true, "where": true, "when": true,
	"why": true, "how": true, "is": true, "are": true, "the": true,
}

// TriggerDetector 判定一条消息是否需要外部网页搜索。
// 关键词列表可经配置调整，无需改动接口契约。
type TriggerDetector interface {
	NeedsSearch(message string, sess *model.Session) bool
}

type keywordTriggerDetector struct {
	triggers []string
}

// NewKeywordTriggerDetector 创建基于触发短语的检测器。
func NewKeywordTriggerDetector(cfg config.SearchConfig) TriggerDetector {
	triggers := cfg.Triggers
	if len(triggers) == 0 {
		triggers = defaultSearchTriggers
	}
	return &keywordTriggerDetector{triggers: triggers}
}

// NeedsSearch 仅在消息命中触发短语时返回 true。
// 可由会话上下文回答的问题（如已有简历数据时的“improve my summary”）
// 不含触发短语，自然不会触发外部调用。
func (d *keywordTriggerDetector) NeedsSearch(message string, _ *model.Session) bool {
	lower := strings.ToLower(message)
	for _, trigger := range d.triggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// SearchService 编排一次网页搜索：配额检查、外部查询、可信域过滤与正文抽取。
type SearchService interface {
	NeedsSearch(message string, sess *model.Session) bool
	// BuildQuery 从用户消息中剥离触发短语与疑问词，得到查询串。
	BuildQuery(message string) string
	// Search 返回至多 maxResults 条可信来源的抽取结果。
	// 搜索失败或配额耗尽时返回空集，绝不向上抛错。
	Search(ctx context.Context, query string, maxResults int, clientID string) []model.SearchResult
}

type searchService struct {
	provider       websearch.Provider
	extractor      webpage.Extractor
	trigger        TriggerDetector
	limiter        *limiter.Limiter
	allowedDomains []string
	triggers       []string
	maxContentLen  int
	timeout        time.Duration
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(provider websearch.Provider, extractor webpage.Extractor, lim *limiter.Limiter, cfg config.SearchConfig) SearchService {
	allowed := cfg.AllowedDomains
	if len(allowed) == 0 {
		allowed = defaultAllowedDomains
	}
	triggers := cfg.Triggers
	if len(triggers) == 0 {
		triggers = defaultSearchTriggers
	}
	maxContentLen := cfg.MaxContentLength
	if maxContentLen <= 0 {
		maxContentLen = 1000
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &searchService{
		provider:       provider,
		extractor:      extractor,
		trigger:        NewKeywordTriggerDetector(cfg),
		limiter:        lim,
		allowedDomains: allowed,
		triggers:       triggers,
		maxContentLen:  maxContentLen,
		timeout:        timeout,
	}
}

func (s *searchService) NeedsSearch(message string, sess *model.Session) bool {
	return s.trigger.NeedsSearch(message, sess)
}

// BuildQuery 剥离触发短语并过滤疑问词；清洗后为空时退回原始消息。
func (s *searchService) BuildQuery(message string) string {
	query := strings.ToLower(message)
	for _, trigger := range s.triggers {
		query = strings.ReplaceAll(query, trigger, "")
	}

	var kept []string
	for _, word := range strings.Fields(query) {
		if !questionWords[strings.Trim(word, "?.,!")] {
			kept = append(kept, word)
		}
	}

	cleaned := strings.TrimSpace(strings.Join(kept, " "))
	if cleaned == "" {
		return message
	}
	return cleaned
}

// Search 执行一次受配额与超时约束的搜索。
// 单条结果抽取失败只跳过该条；整体失败返回空集，由上层降级为无来源作答。
func (s *searchService) Search(ctx context.Context, query string, maxResults int, clientID string) []model.SearchResult {
	// 先扣搜索配额：耗尽时立即返回空集，不调外部服务
	if s.limiter != nil && !s.limiter.Allow(clientID, limiter.KindSearch) {
		log.Warnf("搜索配额已耗尽，跳过外部搜索: client=%s", clientID)
		return nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	hits, err := s.provider.Search(searchCtx, query, maxResults)
	if err != nil {
		log.Warnf("外部搜索失败，降级为无来源作答: query=%q, err=%v", query, err)
		return nil
	}

	var results []model.SearchResult
	for _, hit := range hits {
		score := s.trustScore(hit.URL)
		if score <= 0 {
			// 不可信域直接丢弃，而不是降权
			continue
		}

		result := model.SearchResult{
			URL:        hit.URL,
			Title:      hit.Title,
			Content:    hit.Content,
			TrustScore: score,
		}

		page, err := s.extractPage(ctx, hit.URL)
		if err != nil {
			log.Warnf("抽取页面内容失败，保留搜索摘要: url=%s, err=%v", hit.URL, err)
		} else {
			if page.Title != "" {
				result.Title = page.Title
			}
			if page.Text != "" {
				result.Content = page.Text
			}
		}
		if runes := []rune(result.Content); len(runes) > s.maxContentLen {
			result.Content = string(runes[:s.maxContentLen])
		}

		results = append(results, result)
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
	}
	return results
}

func (s *searchService) extractPage(ctx context.Context, pageURL string) (*webpage.Page, error) {
	extractCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.extractor.Extract(extractCtx, pageURL)
}

// trustScore 基于可信域名列表打分：命中返回 1.0，其余 0。
func (s *searchService) trustScore(rawURL string) float64 {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return 0
	}
	host := strings.ToLower(parsed.Hostname())
	for _, domain := range s.allowedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return 1.0
		}
	}
	return 0
}
