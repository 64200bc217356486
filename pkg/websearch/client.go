// Package websearch 提供了一个与外部网页搜索服务交互的客户端。
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"resume-chat-go/internal/config"
)

// Result 是搜索服务返回的单条命中（排序后的链接）。
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Provider defines the interface for an external web search provider.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

type httpProvider struct {
	providerURL string
	apiKey      string
	client      *http.Client
}

// NewClient 创建一个新的搜索客户端实例。目标服务需要暴露
// SearxNG 风格的 JSON 接口：GET {provider_url}?q=...&format=json。
func NewClient(cfg config.SearchConfig) Provider {
	return &httpProvider{
		providerURL: cfg.ProviderURL,
		apiKey:      cfg.APIKey,
		client:      &http.Client{},
	}
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Search 向搜索服务发起查询，最多返回 maxResults 条结果。
func (p *httpProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	reqURL := fmt.Sprintf("%s?q=%s&format=json", p.providerURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call search provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search provider returned non-200 status: %s, body: %s", resp.Status, string(body))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	if maxResults > 0 && len(parsed.Results) > maxResults {
		parsed.Results = parsed.Results[:maxResults]
	}
	return parsed.Results, nil
}
