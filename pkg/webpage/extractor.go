// Package webpage 提供了网页正文抽取功能。
package webpage

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page 是一次网页抽取的结果：标题与限长后的正文文本。
type Page struct {
	Title string
	Text  string
}

// Extractor defines the interface for fetching and extracting page content.
type Extractor interface {
	Extract(ctx context.Context, pageURL string) (*Page, error)
}

type httpExtractor struct {
	client    *http.Client
	userAgent string
	maxLen    int
}

// NewExtractor 创建一个新的网页抽取器。maxLen 限制正文的最大字符数，
// 防止下游 prompt 无界膨胀。
func NewExtractor(userAgent string, maxLen int) Extractor {
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &httpExtractor{
		client:    &http.Client{},
		userAgent: userAgent,
		maxLen:    maxLen,
	}
}

// Extract 抓取页面并抽取标题与正文。脚本与样式节点会被剔除，
// 正文做空白归一化后按 maxLen 截断。
func (e *httpExtractor) Extract(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create page request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned non-200 status: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page html: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := normalizeWhitespace(doc.Find("body").Text())
	if runes := []rune(text); len(runes) > e.maxLen {
		text = string(runes[:e.maxLen])
	}

	return &Page{Title: title, Text: text}, nil
}

// normalizeWhitespace 将连续空白压缩为单个空格。
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
