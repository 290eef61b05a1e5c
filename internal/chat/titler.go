package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shoal-chat/shoal/internal/llm"
	"github.com/shoal-chat/shoal/internal/store"
)

const (
	// PlaceholderTitle is visible (and persisted by the first create)
	// until title derivation resolves.
	PlaceholderTitle = "Untitled Conversation"
	// DefaultTitle is the last-resort title when even the fallback has
	// nothing to work with.
	DefaultTitle = "New Conversation"

	maxTitleRunes       = 50
	truncatedTitleRunes = 47
	fallbackTitleRunes  = 30
)

const titlePrompt = "Generate a concise title of at most six words for the conversation below. Respond with only the title, without quotes or punctuation around it."

// Titler runs the one-shot title derivation for a conversation and
// reconciles its result with the conversation record, which is created
// concurrently. Whichever of the two finishes second performs the save
// that attaches the title to the record.
type Titler struct {
	provider llm.Provider
	syncer   *Syncer
	timeout  time.Duration
	logger   zerolog.Logger

	// onTitle receives the placeholder and then the derived title. Set
	// once before first use; called without mu held.
	onTitle func(title string)

	mu        sync.Mutex
	gen       uint64
	started   bool
	generated bool
	awaiting  bool
	value     string
}

// NewTitler creates a title coordinator. Derivation runs on the same
// provider as chat, with a small token cap.
func NewTitler(provider llm.Provider, syncer *Syncer, timeout time.Duration, logger zerolog.Logger) *Titler {
	return &Titler{
		provider: provider,
		syncer:   syncer,
		timeout:  timeout,
		logger:   logger.With().Str("component", "titler").Logger(),
	}
}

// Started reports whether derivation has been triggered.
func (t *Titler) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

// MarkTitled records that the conversation already carries a real title,
// typically after a resume, so derivation never runs for it.
func (t *Titler) MarkTitled(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.started = true
	t.generated = true
	t.awaiting = false
	t.value = title
}

// Reset clears all state for a fresh conversation. An in-flight
// derivation from the old conversation is orphaned by the generation
// bump; its result is discarded when it lands.
func (t *Titler) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	t.started = false
	t.generated = false
	t.awaiting = false
	t.value = ""
}

// Start triggers title derivation exactly once per conversation. The
// placeholder is applied synchronously before returning, so a save
// scheduled right after already carries it. Subsequent calls are no-ops.
func (t *Titler) Start(userContent, assistantContent string, messages []store.Message) bool {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return false
	}
	t.started = true
	t.awaiting = true
	gen := t.gen
	t.mu.Unlock()

	t.onTitle(PlaceholderTitle)

	go t.generate(gen, userContent, assistantContent, messages)
	return true
}

// ReconcileWithID runs when the store assigns the conversation identifier.
// If derivation already finished, this side is the second finisher and owns
// the save that attaches the title.
func (t *Titler) ReconcileWithID(messages []store.Message) {
	if !t.claim() {
		return
	}
	t.mu.Lock()
	title := t.value
	t.mu.Unlock()
	t.syncer.Schedule(&title, messages)
}

func (t *Titler) generate(gen uint64, userContent, assistantContent string, messages []store.Message) {
	done := t.syncer.Track(opTitle)
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	title, err := t.derive(ctx, userContent, assistantContent)
	if err != nil || title == "" {
		if err != nil {
			t.logger.Warn().Err(err).Msg("title generation failed, using fallback")
		}
		title = FallbackTitle(userContent)
	}
	title = TruncateTitle(title)

	t.mu.Lock()
	if gen != t.gen {
		// The conversation was reset, renamed, or replaced while the
		// derivation was in flight; discard the result.
		t.mu.Unlock()
		return
	}
	t.generated = true
	t.value = title
	t.mu.Unlock()

	t.onTitle(title)

	if t.claim() {
		// The identifier arrived first; derivation is the second finisher
		// and owns the reconciling save.
		t.syncer.Schedule(&title, messages)
		return
	}

	// No record yet. Park the title in the pending slot; the create (or
	// the follow-up flush after it) carries it, and the fingerprint keeps
	// a later reconcile from repeating the same write.
	t.syncer.StashTitle(title)
}

// claim atomically checks and clears the awaiting flag. It succeeds for
// exactly one caller, and only once both the derived title and the
// assigned identifier exist.
func (t *Titler) claim() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.awaiting || !t.generated || t.syncer.ConversationID() == "" {
		return false
	}
	t.awaiting = false
	return true
}

func (t *Titler) derive(ctx context.Context, userContent, assistantContent string) (string, error) {
	resp, err := t.provider.Generate(ctx, llm.GenerateRequest{
		SystemPrompt: titlePrompt,
		Messages: []llm.Message{{
			Role:    store.RoleUser,
			Content: fmt.Sprintf("User: %s\n\nAssistant: %s", userContent, assistantContent),
		}},
		MaxTokens: 20,
	}, nil)
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(resp.Content)
	title = strings.Trim(title, `"'`)
	return strings.TrimSpace(title), nil
}

// FallbackTitle derives a title from the first user message when
// generation fails or returns nothing.
func FallbackTitle(userContent string) string {
	trimmed := strings.TrimSpace(userContent)
	if trimmed == "" {
		return DefaultTitle
	}
	runes := []rune(trimmed)
	if len(runes) <= fallbackTitleRunes {
		return trimmed
	}
	return strings.TrimSpace(string(runes[:fallbackTitleRunes])) + "..."
}

// TruncateTitle enforces the maximum display length, counting runes so
// multibyte titles are not split mid-character.
func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleRunes {
		return title
	}
	return strings.TrimSpace(string(runes[:truncatedTitleRunes])) + "..."
}
