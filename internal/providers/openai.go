package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName         = "openai"
	OpenAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for the OpenAI chat client.
// BaseURL may point at any OpenAI-compatible endpoint (OpenRouter, a local
// gateway, a test server).
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int          // Retry attempts for SDK transport
	HTTPClient   *http.Client // Optional (tests)
}

// OpenAIClient implements LLMClient using the official OpenAI SDK.
type OpenAIClient struct {
	defaultModel string
	client       openai.Client
}

// NewOpenAIClient creates a new OpenAI chat client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = OpenAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		defaultModel: cfg.DefaultModel,
		client:       openai.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Model returns the configured default model.
func (c *OpenAIClient) Model() string {
	return c.defaultModel
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  OpenAIName,
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		err = mapOpenAIError(err)
		result.ErrorType = "http_error"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	if len(completion.Choices) == 0 {
		result.ErrorType = "empty_response"
		result.ErrorMessage = "no choices in response"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("no choices in response")
	}

	result.Success = true
	result.Content = strings.TrimSpace(completion.Choices[0].Message.Content)
	result.ModelUsed = completion.Model
	result.PromptTokens = int(completion.Usage.PromptTokens)
	result.CompletionTokens = int(completion.Usage.CompletionTokens)
	result.TotalTokens = int(completion.Usage.TotalTokens)
	result.ExecutionTime = time.Since(start)

	return result, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("OpenAI error (status %d)", apiErr.StatusCode)
		if apiErr.Message != "" {
			msg = fmt.Sprintf("OpenAI error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %s", ErrUnavailable, msg)
		}
		return errors.New(msg)
	}
	return err
}

// Verify interface
var _ LLMClient = (*OpenAIClient)(nil)
