package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/jackzampolin/rectoverso/internal/align"
	"github.com/jackzampolin/rectoverso/internal/cards"
)

func noopAlign(context.Context, Input, *align.SemanticSplitter) ([]cards.Pair, align.Report) {
	return nil, align.Report{}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	s := Strategy{Name: "test", Mode: ModeCombined, Align: noopAlign}
	if err := r.Register(s); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Duplicate registration should fail
	if err := r.Register(s); !errors.Is(err, ErrStrategyAlreadyRegistered) {
		t.Fatalf("expected ErrStrategyAlreadyRegistered, got %v", err)
	}

	// Same name in another mode is fine
	s.Mode = ModeRectoVerso
	if err := r.Register(s); err != nil {
		t.Fatalf("Register in other mode failed: %v", err)
	}

	if err := r.Register(Strategy{Name: "nofunc", Mode: ModeCombined}); err == nil {
		t.Error("expected error for strategy without align func")
	}
}

func TestRegistry_Defaults(t *testing.T) {
	r := NewRegistry()
	r.Register(Strategy{Name: "first", Mode: ModeCombined, Align: noopAlign})
	r.Register(Strategy{Name: "second", Mode: ModeCombined, Align: noopAlign})

	if got := r.Default(ModeCombined); got != "first" {
		t.Errorf("Default() = %q, want first", got)
	}
	if err := r.SetDefault(ModeCombined, "second"); err != nil {
		t.Fatal(err)
	}
	if got := r.Default(ModeCombined); got != "second" {
		t.Errorf("Default() = %q, want second", got)
	}
	if err := r.SetDefault(ModeCombined, "missing"); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		mode    Mode
		name    string
		want    string
		wantErr bool
	}{
		{ModeRectoVerso, "", StrategyAnchor, false},
		{ModeRectoVerso, "Positional", StrategyPositional, false},
		{ModeRectoVerso, "llm", StrategyLLM, false},
		{ModeRectoVerso, "interleave", "", true},
		{ModeCombined, "", StrategyInterleave, false},
		{ModeCombined, " pipe ", StrategyPipe, false},
		{ModeCombined, "colon", StrategyColon, false},
		{ModeCombined, "anchor", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode)+"/"+tt.name, func(t *testing.T) {
			s, err := r.Resolve(tt.mode, tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownStrategy) {
					t.Fatalf("expected ErrUnknownStrategy, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if s.Name != tt.want || s.Mode != tt.mode {
				t.Errorf("Resolve() = %s/%s, want %s/%s", s.Mode, s.Name, tt.mode, tt.want)
			}
		})
	}
}

func TestDefaultRegistry_Names(t *testing.T) {
	r := DefaultRegistry()

	if got := r.Names(ModeRectoVerso); !slices.Equal(got, []string{"anchor", "positional", "llm"}) {
		t.Errorf("recto-verso names = %v", got)
	}
	if got := r.Names(ModeCombined); !slices.Equal(got, []string{"interleave", "llm", "pipe", "colon"}) {
		t.Errorf("combined names = %v", got)
	}

	for _, s := range r.List(ModeCombined) {
		if s.NeedsLLM != (s.Name == StrategyLLM) {
			t.Errorf("%s: NeedsLLM = %v", s.Name, s.NeedsLLM)
		}
		if s.Description == "" {
			t.Errorf("%s: missing description", s.Name)
		}
	}
}

func TestBuiltinStrategies_Align(t *testing.T) {
	r := DefaultRegistry()
	ctx := context.Background()

	t.Run("pipe keeps lines without a delimiter", func(t *testing.T) {
		s, _ := r.Resolve(ModeCombined, StrategyPipe)
		pairs, report := s.Align(ctx, Input{Lines: []string{"1. chat|cat", "orphan"}}, nil)
		if len(pairs) != 2 || pairs[0].Ordinal != "1" || pairs[1].Back != "" {
			t.Errorf("pairs = %+v", pairs)
		}
		if report.Paired != 2 {
			t.Errorf("report = %+v", report)
		}
	})

	t.Run("colon", func(t *testing.T) {
		s, _ := r.Resolve(ModeCombined, StrategyColon)
		pairs, _ := s.Align(ctx, Input{Lines: []string{"chat: cat", "no delimiter"}}, nil)
		if len(pairs) != 1 || pairs[0].Front != "chat" || pairs[0].Back != "cat" {
			t.Errorf("pairs = %+v", pairs)
		}
	})

	t.Run("anchor", func(t *testing.T) {
		s, _ := r.Resolve(ModeRectoVerso, "")
		pairs, report := s.Align(ctx, Input{
			Front: []string{"1. chat", "2. chien"},
			Back:  []string{"1. cat", "2. dog"},
		}, nil)
		if len(pairs) != 2 || report.Mismatched() {
			t.Errorf("pairs = %+v, report = %+v", pairs, report)
		}
	})
}
