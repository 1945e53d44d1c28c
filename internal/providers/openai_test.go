package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOpenAIClient_Chat(t *testing.T) {
	t.Run("successful chat", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}

			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode request: %v", err)
				return
			}
			if body["model"] != "gpt-4o-mini" {
				t.Errorf("model = %v", body["model"])
			}
			if body["temperature"] != 0.1 {
				t.Errorf("temperature = %v", body["temperature"])
			}
			msgs, _ := body["messages"].([]any)
			if len(msgs) != 2 {
				t.Errorf("expected 2 messages, got %d", len(msgs))
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"id": "chatcmpl-1",
				"object": "chat.completion",
				"created": 1700000000,
				"model": "gpt-4o-mini-2024-07-18",
				"choices": [{
					"index": 0,
					"finish_reason": "stop",
					"message": {"role": "assistant", "content": "  Front: chat\nBack: cat  "}
				}],
				"usage": {"prompt_tokens": 12, "completion_tokens": 6, "total_tokens": 18}
			}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "system", Content: "split"},
				{Role: "user", Content: "chat cat"},
			},
			Temperature: 0.1,
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Error("expected Success = true")
		}
		if result.Content != "Front: chat\nBack: cat" {
			t.Errorf("Content = %q", result.Content)
		}
		if result.TotalTokens != 18 {
			t.Errorf("TotalTokens = %d, want 18", result.TotalTokens)
		}
		if result.ModelUsed != "gpt-4o-mini-2024-07-18" {
			t.Errorf("ModelUsed = %q", result.ModelUsed)
		}
		if result.RequestID == "" {
			t.Error("expected request id")
		}
	})

	t.Run("unauthorized is unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "bad", BaseURL: server.URL, MaxRetries: 1})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "x"}},
		})
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
		if result.Success {
			t.Error("expected Success = false")
		}
	})

	t.Run("bad request is not fatal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"context too long"}}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL, Timeout: 5 * time.Second})

		_, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "x"}},
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if errors.Is(err, ErrUnavailable) {
			t.Error("400 must not be reported as unavailable")
		}
	})

	t.Run("empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"x","object":"chat.completion","model":"m","choices":[]}`))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})

		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "x"}},
		})
		if err == nil {
			t.Error("expected error for empty choices")
		}
		if result.ErrorType != "empty_response" {
			t.Errorf("ErrorType = %q", result.ErrorType)
		}
	})
}

func TestOpenAIClient_Defaults(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{APIKey: "k"})
	if client.Name() != OpenAIName {
		t.Errorf("Name() = %q", client.Name())
	}
	if client.Model() != OpenAIDefaultModel {
		t.Errorf("Model() = %q", client.Model())
	}
}
