package service

import (
	"context"
	"errors"
	"resume-chat-go/internal/config"
	"resume-chat-go/internal/limiter"
	"resume-chat-go/pkg/webpage"
	"resume-chat-go/pkg/websearch"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider 返回预置的搜索命中并记录调用次数。
type stubProvider struct {
	results []websearch.Result
	err     error
	calls   int
}

func (p *stubProvider) Search(_ context.Context, _ string, _ int) ([]websearch.Result, error) {
	p.calls++
	return p.results, p.err
}

// stubExtractor 返回预置的抽取结果。
type stubExtractor struct {
	page *webpage.Page
	err  error
}

func (e *stubExtractor) Extract(_ context.Context, _ string) (*webpage.Page, error) {
	return e.page, e.err
}

func newTestSearchService(p websearch.Provider, e webpage.Extractor, lim *limiter.Limiter) SearchService {
	return NewSearchService(p, e, lim, config.SearchConfig{
		MaxResults:       3,
		TimeoutSeconds:   10,
		MaxContentLength: 1000,
	})
}

func TestNeedsSearchOnTriggerPhrases(t *testing.T) {
	svc := newTestSearchService(&stubProvider{}, &stubExtractor{}, nil)

	assert.True(t, svc.NeedsSearch("What are the latest news on hiring?", nil))
	assert.True(t, svc.NeedsSearch("search for golang developer salary in Berlin", nil))
	assert.False(t, svc.NeedsSearch("please rewrite my summary section", nil))
}

func TestBuildQueryStripsTriggersAndQuestionWords(t *testing.T) {
	svc := newTestSearchService(&stubProvider{}, &stubExtractor{}, nil)

	query := svc.BuildQuery("search for golang developer jobs in Berlin")
	assert.Equal(t, "golang developer jobs in berlin", query)

	// 触发短语与疑问词都被剥离，只剩实义词
	query = svc.BuildQuery("What is the job market like?")
	assert.Equal(t, "like?", query)

	// 清洗后为空时退回原始消息
	query = svc.BuildQuery("what is current")
	assert.Equal(t, "what is current", query)
}

func TestSearchFiltersUntrustedDomains(t *testing.T) {
	provider := &stubProvider{results: []websearch.Result{
		{Title: "A", URL: "https://www.linkedin.com/pulse/a", Content: "a"},
		{Title: "B", URL: "https://evil.example.com/b", Content: "b"},
		{Title: "C", URL: "https://gist.github.com/c", Content: "c"},
	}}
	svc := newTestSearchService(provider, &stubExtractor{err: errors.New("fetch failed")}, nil)

	results := svc.Search(context.Background(), "golang jobs", 3, "client-1")
	require.Len(t, results, 2, "不可信域名的结果必须被丢弃")
	assert.Equal(t, "https://www.linkedin.com/pulse/a", results[0].URL)
	assert.Equal(t, "https://gist.github.com/c", results[1].URL)
	for _, r := range results {
		assert.Equal(t, 1.0, r.TrustScore)
	}
}

func TestSearchCapsResultCount(t *testing.T) {
	provider := &stubProvider{results: []websearch.Result{
		{Title: "A", URL: "https://github.com/a", Content: "a"},
		{Title: "B", URL: "https://github.com/b", Content: "b"},
		{Title: "C", URL: "https://github.com/c", Content: "c"},
		{Title: "D", URL: "https://github.com/d", Content: "d"},
	}}
	svc := newTestSearchService(provider, &stubExtractor{err: errors.New("fetch failed")}, nil)

	results := svc.Search(context.Background(), "q", 2, "client-1")
	assert.Len(t, results, 2)
}

func TestSearchQuotaExhaustedSkipsProvider(t *testing.T) {
	provider := &stubProvider{results: []websearch.Result{
		{Title: "A", URL: "https://github.com/a", Content: "a"},
	}}
	lim := limiter.New(limiter.Limits{SearchesPerHour: 1})
	svc := newTestSearchService(provider, &stubExtractor{err: errors.New("fetch failed")}, lim)

	first := svc.Search(context.Background(), "q", 3, "client-1")
	require.Len(t, first, 1)
	require.Equal(t, 1, provider.calls)

	// 配额耗尽：返回空集且不再调用外部服务
	second := svc.Search(context.Background(), "q", 3, "client-1")
	assert.Empty(t, second)
	assert.Equal(t, 1, provider.calls)
}

func TestSearchProviderErrorDegradesToEmpty(t *testing.T) {
	provider := &stubProvider{err: errors.New("connection refused")}
	svc := newTestSearchService(provider, &stubExtractor{}, nil)

	results := svc.Search(context.Background(), "q", 3, "client-1")
	assert.Empty(t, results)
}

func TestSearchExtractionEnrichesResult(t *testing.T) {
	provider := &stubProvider{results: []websearch.Result{
		{Title: "snippet title", URL: "https://medium.com/post", Content: "snippet"},
	}}
	extractor := &stubExtractor{page: &webpage.Page{Title: "Full Title", Text: "full article body"}}
	svc := newTestSearchService(provider, extractor, nil)

	results := svc.Search(context.Background(), "q", 3, "client-1")
	require.Len(t, results, 1)
	assert.Equal(t, "Full Title", results[0].Title)
	assert.Equal(t, "full article body", results[0].Content)
}

func TestSearchContentCappedAtLimit(t *testing.T) {
	long := strings.Repeat("x", 5000)
	provider := &stubProvider{results: []websearch.Result{
		{Title: "A", URL: "https://github.com/a", Content: long},
	}}
	svc := newTestSearchService(provider, &stubExtractor{err: errors.New("fetch failed")}, nil)

	results := svc.Search(context.Background(), "q", 3, "client-1")
	require.Len(t, results, 1)
	assert.Len(t, []rune(results[0].Content), 1000)
}
