package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string

	// State
	requestCount atomic.Int64
	mu           sync.Mutex
	lastRequest  *ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      time.Millisecond,
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.lastRequest = req
	c.mu.Unlock()

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
	}

	if c.ShouldFail {
		result.ErrorType = "mock_failure"
		result.ErrorMessage = "mock client configured to fail"
		return result, fmt.Errorf("mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		result.ErrorType = "mock_failure"
		result.ErrorMessage = fmt.Sprintf("mock client failed after %d requests", c.FailAfter)
		return result, fmt.Errorf("mock client failed after %d requests", c.FailAfter)
	}

	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		result.ErrorType = "context_cancelled"
		result.ErrorMessage = ctx.Err().Error()
		return result, ctx.Err()
	}

	result.Success = true
	result.Content = c.ResponseText
	result.ExecutionTime = time.Since(start)

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(c.ResponseText) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens

	return result, nil
}

// LastRequest returns the most recent request, or nil.
func (c *MockClient) LastRequest() *ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRequest
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Reset resets the request counter.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)

// MockOCRProvider is an OCRProvider for testing.
// By default every page of a submitted document yields "Page N: ResponseText".
type MockOCRProvider struct {
	ProviderName string
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int
	ResponseText string
	RPS          float64

	// PageText overrides the text returned for a source page number.
	PageText func(page int) string

	// Handler, when set, replaces the default behavior entirely.
	Handler func(ctx context.Context, doc *Document) (*OCRResult, error)

	requestCount atomic.Int64
	mu           sync.Mutex
	documents    []Document
}

// NewMockOCRProvider creates a new mock OCR provider.
func NewMockOCRProvider() *MockOCRProvider {
	return &MockOCRProvider{
		ProviderName: "mock-ocr",
		Latency:      time.Millisecond,
		ResponseText: "mock OCR text",
		RPS:          10.0,
	}
}

// Name returns the provider identifier.
func (p *MockOCRProvider) Name() string {
	return p.ProviderName
}

// RequestsPerSecond returns the rate limit.
func (p *MockOCRProvider) RequestsPerSecond() float64 {
	return p.RPS
}

// ProcessDocument returns one page per entry of doc.Pages.
func (p *MockOCRProvider) ProcessDocument(ctx context.Context, doc *Document) (*OCRResult, error) {
	start := time.Now()
	count := p.requestCount.Add(1)

	p.mu.Lock()
	p.documents = append(p.documents, Document{Name: doc.Name, Pages: append([]int(nil), doc.Pages...)})
	p.mu.Unlock()

	if p.Handler != nil {
		return p.Handler(ctx, doc)
	}

	result := &OCRResult{}

	if p.ShouldFail {
		result.ErrorMessage = "mock OCR provider configured to fail"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock OCR provider configured to fail")
	}
	if p.FailAfter > 0 && int(count) > p.FailAfter {
		result.ErrorMessage = fmt.Sprintf("mock OCR provider failed after %d requests", p.FailAfter)
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock OCR provider failed after %d requests", p.FailAfter)
	}

	select {
	case <-time.After(p.Latency):
	case <-ctx.Done():
		result.ErrorMessage = ctx.Err().Error()
		result.ExecutionTime = time.Since(start)
		return result, ctx.Err()
	}

	result.Success = true
	for i, page := range doc.Pages {
		text := fmt.Sprintf("Page %d: %s", page, p.ResponseText)
		if p.PageText != nil {
			text = p.PageText(page)
		}
		result.Pages = append(result.Pages, OCRPage{Index: i, Markdown: text})
	}
	result.ExecutionTime = time.Since(start)
	result.CostUSD = 0.001
	result.Metadata = map[string]any{
		"provider": p.ProviderName,
		"document": doc.Name,
		"bytes":    len(doc.Data),
	}

	return result, nil
}

// Documents returns the documents received so far (without their data).
func (p *MockOCRProvider) Documents() []Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Document, len(p.documents))
	copy(out, p.documents)
	return out
}

// RequestCount returns the number of requests made.
func (p *MockOCRProvider) RequestCount() int64 {
	return p.requestCount.Load()
}

// Reset resets the request counter.
func (p *MockOCRProvider) Reset() {
	p.requestCount.Store(0)
	p.mu.Lock()
	p.documents = nil
	p.mu.Unlock()
}

// Verify interface
var _ OCRProvider = (*MockOCRProvider)(nil)
