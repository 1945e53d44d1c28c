package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackzampolin/rectoverso/internal/align"
	"github.com/jackzampolin/rectoverso/internal/cards"
)

// Sentinel errors for strategy lookup.
var (
	// ErrStrategyAlreadyRegistered is returned when registering a duplicate strategy.
	ErrStrategyAlreadyRegistered = errors.New("strategy already registered")

	// ErrUnknownStrategy is returned when a strategy name is not registered for a mode.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// Mode is the shape of the input: two documents or one.
type Mode string

const (
	ModeRectoVerso Mode = "recto-verso"
	ModeCombined   Mode = "combined"
)

// Strategy names.
const (
	StrategyPositional = "positional"
	StrategyAnchor     = "anchor"
	StrategyLLM        = "llm"
	StrategyInterleave = "interleave"
	StrategyPipe       = "pipe"
	StrategyColon      = "colon"
)

// Input is the cleaned text handed to a strategy. Front and Back are set in
// recto-verso mode, Lines in combined mode.
type Input struct {
	Front []string
	Back  []string
	Lines []string
}

// AlignFunc turns cleaned lines into pairs. semantic is nil unless the
// runner has an LLM client.
type AlignFunc func(ctx context.Context, in Input, semantic *align.SemanticSplitter) ([]cards.Pair, align.Report)

// Strategy is a named way of pairing lines for one mode.
type Strategy struct {
	Name        string
	Mode        Mode
	Description string
	NeedsLLM    bool
	Align       AlignFunc
}

// Registry holds the strategies available to a Runner, per mode.
type Registry struct {
	mu         sync.RWMutex
	strategies map[Mode]map[string]Strategy
	order      map[Mode][]string // registration order
	defaults   map[Mode]string
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[Mode]map[string]Strategy),
		order:      make(map[Mode][]string),
		defaults:   make(map[Mode]string),
	}
}

// Register adds a strategy. The first strategy registered for a mode
// becomes its default until SetDefault is called.
func (r *Registry) Register(s Strategy) error {
	if s.Name == "" || s.Align == nil {
		return fmt.Errorf("strategy needs a name and an align func")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.strategies[s.Mode]
	if !ok {
		byName = make(map[string]Strategy)
		r.strategies[s.Mode] = byName
	}
	if _, exists := byName[s.Name]; exists {
		return fmt.Errorf("%w: %s/%s", ErrStrategyAlreadyRegistered, s.Mode, s.Name)
	}

	byName[s.Name] = s
	r.order[s.Mode] = append(r.order[s.Mode], s.Name)
	if r.defaults[s.Mode] == "" {
		r.defaults[s.Mode] = s.Name
	}
	return nil
}

// SetDefault selects the strategy used when a request names none.
func (r *Registry) SetDefault(mode Mode, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.strategies[mode][name]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownStrategy, mode, name)
	}
	r.defaults[mode] = name
	return nil
}

// Default returns the default strategy name for mode.
func (r *Registry) Default(mode Mode) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[mode]
}

// Get returns a strategy by mode and name.
func (r *Registry) Get(mode Mode, name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[mode][name]
	return s, ok
}

// Resolve returns the named strategy, or the mode default when name is empty.
// Names are matched case-insensitively.
func (r *Registry) Resolve(mode Mode, name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = r.Default(mode)
	}
	s, ok := r.Get(mode, name)
	if !ok {
		return Strategy{}, fmt.Errorf("%w: %q for %s (available: %s)",
			ErrUnknownStrategy, name, mode, strings.Join(r.Names(mode), ", "))
	}
	return s, nil
}

// List returns the strategies of mode in registration order.
func (r *Registry) List(mode Mode) []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Strategy, 0, len(r.order[mode]))
	for _, name := range r.order[mode] {
		out = append(out, r.strategies[mode][name])
	}
	return out
}

// Names returns the strategy names of mode in registration order.
func (r *Registry) Names(mode Mode) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order[mode]))
	copy(names, r.order[mode])
	return names
}

// DefaultRegistry returns a registry with the built-in strategies:
// anchor (default), positional and llm for recto-verso, interleave
// (default), llm, pipe and colon for combined input.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range builtinStrategies() {
		// Built-in names are unique per mode.
		_ = r.Register(s)
	}
	return r
}

func builtinStrategies() []Strategy {
	return []Strategy{
		{
			Name:        StrategyAnchor,
			Mode:        ModeRectoVerso,
			Description: "pair lines by position, resynchronizing on leading numbers",
			Align: func(_ context.Context, in Input, _ *align.SemanticSplitter) ([]cards.Pair, align.Report) {
				return align.Anchored(in.Front, in.Back)
			},
		},
		{
			Name:        StrategyPositional,
			Mode:        ModeRectoVerso,
			Description: "pair the i-th front line with the i-th back line",
			Align: func(_ context.Context, in Input, _ *align.SemanticSplitter) ([]cards.Pair, align.Report) {
				return align.Positional(in.Front, in.Back)
			},
		},
		{
			Name:        StrategyLLM,
			Mode:        ModeRectoVerso,
			Description: "ask the LLM to match front and back entries",
			NeedsLLM:    true,
			Align: func(ctx context.Context, in Input, semantic *align.SemanticSplitter) ([]cards.Pair, align.Report) {
				pairs := semantic.PairDocuments(ctx, strings.Join(in.Front, "\n"), strings.Join(in.Back, "\n"))
				return pairs, countReport(len(in.Front), len(in.Back), pairs)
			},
		},
		{
			Name:        StrategyInterleave,
			Mode:        ModeCombined,
			Description: "alternate lines: front, back, front, back",
			Align: func(_ context.Context, in Input, _ *align.SemanticSplitter) ([]cards.Pair, align.Report) {
				return align.Interleave(in.Lines)
			},
		},
		{
			Name:        StrategyLLM,
			Mode:        ModeCombined,
			Description: "ask the LLM to split the text into Front:/Back: cards",
			NeedsLLM:    true,
			Align: func(ctx context.Context, in Input, semantic *align.SemanticSplitter) ([]cards.Pair, align.Report) {
				pairs := semantic.Split(ctx, strings.Join(in.Lines, "\n"))
				return pairs, countReport(len(in.Lines), len(in.Lines), pairs)
			},
		},
		{
			Name:        StrategyPipe,
			Mode:        ModeCombined,
			Description: "pre-paired \"N front|back\" lines",
			Align: func(_ context.Context, in Input, _ *align.SemanticSplitter) ([]cards.Pair, align.Report) {
				pairs := align.ParsePipe(in.Lines)
				return pairs, countReport(len(in.Lines), len(in.Lines), pairs)
			},
		},
		{
			Name:        StrategyColon,
			Mode:        ModeCombined,
			Description: "\"front: back\" lines",
			Align: func(_ context.Context, in Input, _ *align.SemanticSplitter) ([]cards.Pair, align.Report) {
				pairs := align.ParseColon(in.Lines)
				return pairs, countReport(len(in.Lines), len(in.Lines), pairs)
			},
		},
	}
}

// countReport summarizes strategies that do not align line by line.
func countReport(front, back int, pairs []cards.Pair) align.Report {
	return align.Report{
		FrontCount: front,
		BackCount:  back,
		Paired:     len(pairs),
	}
}
