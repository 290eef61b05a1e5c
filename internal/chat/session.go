// Package chat coordinates the three asynchronous processes behind a
// conversation: interruptible response streaming, debounced persistence,
// and one-shot title derivation. A Session is the single entry point; the
// Streamer, Syncer, and Titler behind it share no state except through it.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shoal-chat/shoal/internal/llm"
	"github.com/shoal-chat/shoal/internal/store"
)

// InterruptedMarker is appended to a partial assistant message kept after
// the user cancels a stream.
const InterruptedMarker = " [interrupted]"

// Options tunes a Session's coordinators.
type Options struct {
	MaxTokens     int
	StreamTimeout time.Duration
	StoreTimeout  time.Duration
	TitleTimeout  time.Duration
	Debounce      time.Duration
	Logger        zerolog.Logger
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		MaxTokens:     500,
		StreamTimeout: 5 * time.Minute,
		StoreTimeout:  15 * time.Second,
		TitleTimeout:  30 * time.Second,
		Debounce:      300 * time.Millisecond,
		Logger:        zerolog.Nop(),
	}
}

// Snapshot is a consistent view of session state for rendering.
type Snapshot struct {
	ConversationID string
	Title          string
	Messages       []store.Message
	Draft          string
	Partial        string
	Streaming      bool
	Saving         bool
}

// Session holds one conversation's state and drives the coordinators.
// All methods are safe for concurrent use.
type Session struct {
	st           Store
	streamer     *Streamer
	syncer       *Syncer
	titler       *Titler
	storeTimeout time.Duration
	logger       zerolog.Logger

	mu       sync.Mutex
	messages []store.Message
	title    string
	draft    string
	subs     map[string]func(Snapshot)
}

// NewSession wires a session around a model provider and a conversation
// store.
func NewSession(provider llm.Provider, st Store, opts Options) *Session {
	logger := opts.Logger.With().Str("component", "session").Logger()

	s := &Session{
		st:           st,
		storeTimeout: opts.StoreTimeout,
		logger:       logger,
		subs:         make(map[string]func(Snapshot)),
	}
	s.streamer = NewStreamer(provider, opts.MaxTokens, opts.StreamTimeout, opts.Logger)
	s.syncer = NewSyncer(st, opts.Debounce, opts.StoreTimeout, opts.Logger)
	s.titler = NewTitler(provider, s.syncer, opts.TitleTimeout, opts.Logger)

	s.streamer.onDelta = func(string) { s.notify() }
	s.syncer.onNotify = s.notify
	s.syncer.onIDAssigned = func(string) {
		s.titler.ReconcileWithID(s.Messages())
		s.notify()
	}
	s.titler.onTitle = s.setTitle

	return s
}

// Send appends the user message, streams the assistant response, and
// schedules persistence of the result. It blocks until the stream
// resolves; drive it from a goroutine when rendering a UI. An empty input
// or a send during a live stream is a no-op.
func (s *Session) Send(ctx context.Context, text string) StreamResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return StreamResult{Outcome: StreamSkipped}
	}
	if s.streamer.Loading() {
		// At most one live stream; later sends are dropped, not queued.
		return StreamResult{Outcome: StreamSkipped}
	}

	s.mu.Lock()
	s.messages = append(s.messages, store.Message{Role: store.RoleUser, Content: text})
	s.draft = ""
	msgs := s.copyMessagesLocked()
	s.mu.Unlock()
	s.notify()

	res := s.streamer.Send(ctx, msgs)
	if res.Outcome == StreamSkipped {
		return res
	}

	content := res.Text
	if res.Outcome == StreamInterrupted && content != "" {
		content += InterruptedMarker
	}

	s.mu.Lock()
	if content != "" {
		s.messages = append(s.messages, store.Message{Role: store.RoleAssistant, Content: content})
	}
	msgs = s.copyMessagesLocked()
	s.mu.Unlock()
	s.notify()

	// The placeholder title must land before the save is scheduled so the
	// created record carries it. A harvested cancel leaves content empty;
	// CancelStream started the titler with the partial in that case.
	if content != "" && len(msgs) >= 2 && msgs[len(msgs)-1].Role == store.RoleAssistant {
		s.titler.Start(text, content, msgs)
	}
	s.syncer.Schedule(nil, msgs)

	return res
}

// CancelStream interrupts the live stream, if any. The partial response is
// appended as a marked assistant message here, synchronously: the blocked
// Send may stay inside the provider call long after the cancellation, and
// a new exchange started in that window must land below the partial, not
// above it.
func (s *Session) CancelStream() {
	partial, ok := s.streamer.Cancel()
	if !ok || partial == "" {
		return
	}
	content := partial + InterruptedMarker

	s.mu.Lock()
	s.messages = append(s.messages, store.Message{Role: store.RoleAssistant, Content: content})
	msgs := s.copyMessagesLocked()
	s.mu.Unlock()
	s.notify()

	if len(msgs) >= 2 {
		s.titler.Start(msgs[len(msgs)-2].Content, content, msgs)
	}
	s.syncer.Schedule(nil, msgs)
}

// Load replaces the session state with a stored conversation.
func (s *Session) Load(ctx context.Context, id string) error {
	done := s.syncer.Track(opLoad)
	defer done()

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	conv, err := s.st.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load conversation %s: %w", id, err)
	}

	s.streamer.Cancel()
	s.syncer.Adopt(conv)
	if conv.Title != "" && conv.Title != PlaceholderTitle {
		s.titler.MarkTitled(conv.Title)
	} else {
		s.titler.Reset()
	}

	s.mu.Lock()
	s.messages = append([]store.Message(nil), conv.Messages...)
	s.title = conv.Title
	s.draft = ""
	s.mu.Unlock()
	s.notify()

	s.logger.Debug().Str("conversation_id", id).Int("messages", len(conv.Messages)).Msg("conversation loaded")
	return nil
}

// Reset detaches from the current conversation and starts a fresh one.
// Any live stream is cancelled; an in-flight create is orphaned.
func (s *Session) Reset() {
	s.streamer.Cancel()
	s.syncer.Reset()
	s.titler.Reset()

	s.mu.Lock()
	s.messages = nil
	s.title = ""
	s.draft = ""
	s.mu.Unlock()
	s.notify()
}

// Rename sets the title explicitly and schedules a save carrying it.
// A user-assigned title wins over any later derivation result because the
// titler is marked as resolved.
func (s *Session) Rename(title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	title = TruncateTitle(title)

	s.titler.MarkTitled(title)
	s.setTitle(title)

	s.mu.Lock()
	msgs := s.copyMessagesLocked()
	s.mu.Unlock()
	if len(msgs) > 0 {
		s.syncer.Schedule(&title, msgs)
	}
}

// SetDraft stores the unsent input text so UI reloads do not lose it.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
}

// Draft returns the unsent input text.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []store.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyMessagesLocked()
}

// Snapshot returns a consistent view for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Title:    s.title,
		Messages: s.copyMessagesLocked(),
		Draft:    s.draft,
	}
	s.mu.Unlock()

	snap.ConversationID = s.syncer.ConversationID()
	snap.Streaming = s.streamer.Loading()
	snap.Partial = s.streamer.Partial()
	snap.Saving = s.syncer.Saving()
	return snap
}

// Subscribe registers a state-change callback and returns its
// unsubscribe func. Callbacks run synchronously on the mutating
// goroutine; keep them cheap.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	id := uuid.NewString()
	s.mu.Lock()
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Saving reports whether any persistence or title work is in flight.
func (s *Session) Saving() bool {
	return s.syncer.Saving()
}

// ConversationID returns the persisted record's identifier, or "".
func (s *Session) ConversationID() string {
	return s.syncer.ConversationID()
}

// Close interrupts any live stream, keeps its partial text, and pushes out
// a pending save without waiting for the debounce window.
func (s *Session) Close() {
	s.CancelStream()
	s.syncer.Flush()
}

func (s *Session) setTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
	s.notify()
}

func (s *Session) notify() {
	snap := s.Snapshot()

	s.mu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Session) copyMessagesLocked() []store.Message {
	return append([]store.Message(nil), s.messages...)
}
