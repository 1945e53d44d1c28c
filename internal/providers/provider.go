package providers

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrUnavailable marks failures where the provider cannot be reached or
// refuses the credentials. Callers treat it as fatal; any other provider
// error only affects the request that produced it.
var ErrUnavailable = errors.New("provider unavailable")

// LLMClient is the interface for chat/completion requests.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openai").
	Name() string
}

// OCRProvider extracts per-page text from a document chunk.
type OCRProvider interface {
	// Name returns the provider identifier (e.g., "mistral-ocr").
	Name() string

	// ProcessDocument OCRs every page of doc.
	ProcessDocument(ctx context.Context, doc *Document) (*OCRResult, error)

	// RequestsPerSecond is the pacing applied between requests.
	RequestsPerSecond() float64
}

// Document is a PDF chunk submitted for OCR.
type Document struct {
	Name  string // file name, e.g. chunk_1_to_10.pdf
	Data  []byte
	Pages []int // 1-based page numbers of the source document covered by Data
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// ChatResult is the complete response from an LLM call.
type ChatResult struct {
	Content string `json:"content"`

	// Token counts
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	ExecutionTime time.Duration `json:"execution_time"`

	// Provider info
	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`
	RequestID string `json:"request_id"`

	// Success/error
	Success      bool   `json:"success"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// OCRPage is the markdown of one page of an OCR'd document.
type OCRPage struct {
	Index    int    `json:"index"` // 0-based within the submitted document
	Markdown string `json:"markdown"`
}

// OCRResult is the response from an OCR provider.
type OCRResult struct {
	Success bool      `json:"success"`
	Pages   []OCRPage `json:"pages"`

	// Metadata from provider (model, usage, etc.)
	Metadata map[string]any `json:"metadata,omitempty"`

	CostUSD       float64       `json:"cost_usd"`
	ExecutionTime time.Duration `json:"execution_time"`
	RequestID     string        `json:"request_id"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// Text joins the page markdown in page index order.
func (r *OCRResult) Text() string {
	if r == nil || len(r.Pages) == 0 {
		return ""
	}
	pages := make([]OCRPage, len(r.Pages))
	copy(pages, r.Pages)
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = p.Markdown
	}
	return strings.Join(parts, "\n")
}
