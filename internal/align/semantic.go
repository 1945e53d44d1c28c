package align

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/rectoverso/internal/cards"
	"github.com/jackzampolin/rectoverso/internal/providers"
)

const (
	// SemanticTemperature keeps the formatting output close to deterministic.
	SemanticTemperature = 0.1

	splitPrompt = `You receive OCR text from a study sheet that mixes questions and their answers.
Rewrite it as flashcards. For every card output exactly two lines:
Front: <question or term>
Back: <answer or translation>
Do not number the cards. Do not add commentary, headings or blank fronts.`

	pairPrompt = `You receive two OCR texts. The first holds the front side of a set of flashcards,
the second the back side, usually in the same order and often numbered.
Match every front entry with its back entry. Output one card per line as:
N front|back
where N is the entry number (1-based if the source has none).
Output nothing else.`
)

// SemanticSplitter delegates pairing to an LLM. Every failure is logged and
// produces no pairs; it never aborts the caller.
type SemanticSplitter struct {
	client providers.LLMClient
	model  string
	logger *slog.Logger
}

// NewSemanticSplitter creates a splitter. An empty model uses the client default.
func NewSemanticSplitter(client providers.LLMClient, model string, logger *slog.Logger) *SemanticSplitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SemanticSplitter{client: client, model: model, logger: logger}
}

// Split asks the model to rewrite text as Front:/Back: lines and parses them.
func (s *SemanticSplitter) Split(ctx context.Context, text string) []cards.Pair {
	content, ok := s.complete(ctx, "split", splitPrompt, text)
	if !ok {
		return nil
	}
	pairs := ParseMarkers(content)
	s.logger.Debug("semantic split parsed", "pairs", len(pairs))
	return pairs
}

// PairDocuments asks the model to match two texts and parses its
// "N front|back" lines.
func (s *SemanticSplitter) PairDocuments(ctx context.Context, front, back string) []cards.Pair {
	input := fmt.Sprintf("FRONT TEXT:\n%s\n\nBACK TEXT:\n%s", front, back)
	content, ok := s.complete(ctx, "pair", pairPrompt, input)
	if !ok {
		return nil
	}
	pairs := ParsePipe(PipeLines(content))
	s.logger.Debug("semantic pairing parsed", "pairs", len(pairs))
	return pairs
}

func (s *SemanticSplitter) complete(ctx context.Context, op, instruction, input string) (string, bool) {
	if s.client == nil {
		s.logger.Warn("semantic alignment skipped: no LLM client configured", "op", op)
		return "", false
	}

	result, err := s.client.Chat(ctx, &providers.ChatRequest{
		Model:       s.model,
		Temperature: SemanticTemperature,
		Messages: []providers.Message{
			{Role: "system", Content: instruction},
			{Role: "user", Content: input},
		},
	})
	if err != nil {
		s.logger.Warn("semantic alignment failed", "op", op, "provider", s.client.Name(), "error", err)
		return "", false
	}
	if result == nil || !result.Success || result.Content == "" {
		msg := "empty response"
		if result != nil && result.ErrorMessage != "" {
			msg = result.ErrorMessage
		}
		s.logger.Warn("semantic alignment returned nothing", "op", op, "provider", s.client.Name(), "error", msg)
		return "", false
	}

	s.logger.Debug("semantic alignment completed",
		"op", op,
		"provider", s.client.Name(),
		"model", result.ModelUsed,
		"tokens", result.TotalTokens,
		"duration", result.ExecutionTime)
	return result.Content, true
}
