package webpage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStripsScriptsAndNormalizesText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title> Salary Guide </title>
			<script>alert("x")</script><style>body{}</style></head>
			<body><p>Average   salary
			is rising.</p><noscript>enable js</noscript></body></html>`))
	}))
	defer server.Close()

	e := NewExtractor("test-agent", 1000)
	page, err := e.Extract(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Salary Guide", page.Title)
	assert.Equal(t, "Average salary is rising.", page.Text)
}

func TestExtractCapsTextLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>" + strings.Repeat("word ", 500) + "</body></html>"))
	}))
	defer server.Close()

	e := NewExtractor("", 100)
	page, err := e.Extract(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Len(t, []rune(page.Text), 100)
}

func TestExtractNon200Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	e := NewExtractor("", 1000)
	_, err := e.Extract(context.Background(), server.URL)
	assert.Error(t, err)
}
