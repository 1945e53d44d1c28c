package align

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/jackzampolin/rectoverso/internal/cards"
	"github.com/jackzampolin/rectoverso/internal/providers"
)

func TestSemanticSplitter_Split(t *testing.T) {
	t.Run("parses markers", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "Front: chat\nBack: cat\nFront: chien\nBack: dog"

		s := NewSemanticSplitter(mock, "gpt-4o-mini", nil)
		pairs := s.Split(context.Background(), "chat cat chien dog")

		want := []cards.Pair{{Front: "chat", Back: "cat"}, {Front: "chien", Back: "dog"}}
		if !reflect.DeepEqual(pairs, want) {
			t.Errorf("Split() = %+v, want %+v", pairs, want)
		}

		req := mock.LastRequest()
		if req == nil {
			t.Fatal("expected a request")
		}
		if req.Temperature != SemanticTemperature {
			t.Errorf("Temperature = %f", req.Temperature)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("Model = %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[1].Content != "chat cat chien dog" {
			t.Errorf("Messages = %+v", req.Messages)
		}
	})

	t.Run("failure yields nothing", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ShouldFail = true

		s := NewSemanticSplitter(mock, "", nil)
		if pairs := s.Split(context.Background(), "text"); len(pairs) != 0 {
			t.Errorf("Split() = %+v, want empty", pairs)
		}
	})

	t.Run("empty content yields nothing", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = ""

		s := NewSemanticSplitter(mock, "", nil)
		if pairs := s.Split(context.Background(), "text"); len(pairs) != 0 {
			t.Errorf("Split() = %+v, want empty", pairs)
		}
	})

	t.Run("no client", func(t *testing.T) {
		s := NewSemanticSplitter(nil, "", nil)
		if pairs := s.Split(context.Background(), "text"); len(pairs) != 0 {
			t.Errorf("Split() = %+v, want empty", pairs)
		}
	})
}

func TestSemanticSplitter_PairDocuments(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "Here is the matching:\n1 chat|cat\n2 chien|dog\n"

	s := NewSemanticSplitter(mock, "", nil)
	pairs := s.PairDocuments(context.Background(), "1. chat\n2. chien", "1. cat\n2. dog")

	want := []cards.Pair{
		{Ordinal: "1", Front: "chat", Back: "cat"},
		{Ordinal: "2", Front: "chien", Back: "dog"},
	}
	if !reflect.DeepEqual(pairs, want) {
		t.Errorf("PairDocuments() = %+v, want %+v", pairs, want)
	}

	input := mock.LastRequest().Messages[1].Content
	if !strings.Contains(input, "FRONT TEXT:\n1. chat") || !strings.Contains(input, "BACK TEXT:\n1. cat") {
		t.Errorf("unexpected prompt input: %q", input)
	}
}
