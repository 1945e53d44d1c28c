// Package anki pushes flashcards into Anki through the AnkiConnect add-on.
package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/rectoverso/internal/cards"
)

const (
	DefaultURL        = "http://localhost:8765"
	DefaultDeck       = "RectoVerso"
	DefaultModel      = "Basic"
	DefaultFieldFront = "Recto"
	DefaultFieldBack  = "Verso"
	DefaultTag        = "auto_import"

	apiVersion = 6
)

// ErrUnreachable is returned when AnkiConnect does not answer the version probe.
var ErrUnreachable = errors.New("AnkiConnect is not responding: make sure Anki is running with the AnkiConnect add-on installed")

// ErrInvalidTarget is returned by Target.Validate.
var ErrInvalidTarget = errors.New("invalid anki target")

// Config holds configuration for the AnkiConnect client.
type Config struct {
	URL          string
	Timeout      time.Duration
	ProbeRetries uint          // version probe attempts (default 3)
	ProbeDelay   time.Duration // delay between probe attempts (default 500ms)
	Logger       *slog.Logger
}

// Client talks to AnkiConnect.
type Client struct {
	url          string
	probeRetries uint
	probeDelay   time.Duration
	client       *http.Client
	logger       *slog.Logger
}

// NewClient creates an AnkiConnect client.
func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ProbeRetries == 0 {
		cfg.ProbeRetries = 3
	}
	if cfg.ProbeDelay == 0 {
		cfg.ProbeDelay = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		url:          cfg.URL,
		probeRetries: cfg.ProbeRetries,
		probeDelay:   cfg.ProbeDelay,
		client:       &http.Client{Timeout: cfg.Timeout},
		logger:       cfg.Logger,
	}
}

// Target selects where notes are created.
type Target struct {
	Deck       string   `json:"deck" yaml:"deck"`
	Model      string   `json:"model" yaml:"model"`
	FieldFront string   `json:"field_front" yaml:"field_front"`
	FieldBack  string   `json:"field_back" yaml:"field_back"`
	Tags       []string `json:"tags" yaml:"tags"`
}

// WithDefaults fills empty fields with the AnkiConnect defaults.
func (t Target) WithDefaults() Target {
	if t.Deck == "" {
		t.Deck = DefaultDeck
	}
	if t.Model == "" {
		t.Model = DefaultModel
	}
	if t.FieldFront == "" {
		t.FieldFront = DefaultFieldFront
	}
	if t.FieldBack == "" {
		t.FieldBack = DefaultFieldBack
	}
	if len(t.Tags) == 0 {
		t.Tags = []string{DefaultTag}
	}
	return t
}

// Validate rejects a target whose front and back map to the same note field.
// Anki field names are compared case-insensitively.
func (t Target) Validate() error {
	if t.FieldFront == "" || t.FieldBack == "" {
		return fmt.Errorf("%w: front and back fields must be set", ErrInvalidTarget)
	}
	if strings.EqualFold(t.FieldFront, t.FieldBack) {
		return fmt.Errorf("%w: front and back both map to field %q", ErrInvalidTarget, t.FieldBack)
	}
	return nil
}

// Note is one note to add.
type Note struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Tags      []string          `json:"tags,omitempty"`
}

// NoteFor builds the note of a pair for target.
func NoteFor(p cards.Pair, target Target) Note {
	return Note{
		DeckName:  target.Deck,
		ModelName: target.Model,
		Fields: map[string]string{
			target.FieldFront: p.Front,
			target.FieldBack:  p.Back,
		},
		Tags: target.Tags,
	}
}

// SyncResult counts what Sync did.
type SyncResult struct {
	Deck    string   `json:"deck" yaml:"deck"`
	Added   int      `json:"added" yaml:"added"`
	Skipped int      `json:"skipped" yaml:"skipped"` // pairs with an empty side
	Failed  int      `json:"failed" yaml:"failed"`   // rejected by AnkiConnect (duplicates, bad model)
	Errors  []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Version probes AnkiConnect and returns its API version. Connection
// failures are retried briefly before ErrUnreachable is returned.
func (c *Client) Version(ctx context.Context) (int, error) {
	var version int
	err := retry.Do(
		func() error {
			return c.invoke(ctx, "version", nil, &version)
		},
		retry.Context(ctx),
		retry.Attempts(c.probeRetries),
		retry.Delay(c.probeDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("AnkiConnect probe failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("%w (%s): %v", ErrUnreachable, c.url, err)
	}
	return version, nil
}

// CreateDeck creates a deck. Creating an existing deck is a no-op.
func (c *Client) CreateDeck(ctx context.Context, name string) error {
	var id int64
	if err := c.invoke(ctx, "createDeck", map[string]any{"deck": name}, &id); err != nil {
		return fmt.Errorf("create deck %q: %w", name, err)
	}
	return nil
}

// AddNote adds a note and returns its id.
func (c *Client) AddNote(ctx context.Context, note Note) (int64, error) {
	var id int64
	if err := c.invoke(ctx, "addNote", map[string]any{"note": note}, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// Sync probes AnkiConnect, ensures the deck exists and adds one note per
// complete pair. Individual note failures are counted, not returned.
func (c *Client) Sync(ctx context.Context, pairs []cards.Pair, target Target) (*SyncResult, error) {
	target = target.WithDefaults()
	if err := target.Validate(); err != nil {
		return nil, err
	}

	version, err := c.Version(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("AnkiConnect reachable", "url", c.url, "version", version)

	if err := c.CreateDeck(ctx, target.Deck); err != nil {
		return nil, err
	}

	result := &SyncResult{Deck: target.Deck}
	for _, p := range pairs {
		if !p.Complete() {
			result.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := c.AddNote(ctx, NoteFor(p, target)); err != nil {
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				return result, fmt.Errorf("add note %q: %w", p.Front, err)
			}
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", p.Front, apiErr.Message))
			c.logger.Debug("note rejected", "front", p.Front, "error", apiErr.Message)
			continue
		}
		result.Added++
	}

	c.logger.Info("anki sync complete",
		"deck", target.Deck,
		"added", result.Added,
		"skipped", result.Skipped,
		"failed", result.Failed)
	return result, nil
}

// APIError is an error reported by AnkiConnect in its response payload.
type APIError struct {
	Action  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("AnkiConnect %s: %s", e.Action, e.Message)
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// invoke performs one AnkiConnect action and decodes its result into out.
func (c *Client) invoke(ctx context.Context, action string, params, out any) error {
	body, err := json.Marshal(request{Action: action, Version: apiVersion, Params: params})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("AnkiConnect error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var r response
	if err := json.Unmarshal(respBody, &r); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if r.Error != nil {
		return &APIError{Action: action, Message: *r.Error}
	}
	if out != nil && len(r.Result) > 0 && string(r.Result) != "null" {
		if err := json.Unmarshal(r.Result, out); err != nil {
			return fmt.Errorf("failed to unmarshal %s result: %w", action, err)
		}
	}
	return nil
}
