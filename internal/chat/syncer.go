package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"github.com/shoal-chat/shoal/internal/store"
)

// Store is the subset of the conversation store the coordinators need.
type Store interface {
	Create(ctx context.Context, req store.CreateRequest) (*store.Conversation, error)
	Update(ctx context.Context, id string, req store.UpdateRequest) (*store.Conversation, error)
	Get(ctx context.Context, id string) (*store.Conversation, error)
}

// In-flight operation tags. The saving indicator is on while any tagged
// operation is running.
const (
	opLoad   = "load"
	opCreate = "create"
	opUpdate = "update"
	opTitle  = "title"
)

// savePayload is the latest-wins pending slot. Newer schedules overwrite
// the messages; a title set by an earlier merge survives until flushed.
type savePayload struct {
	title    *string
	messages []store.Message
}

// Syncer debounces conversation persistence. The first save creates the
// record immediately; subsequent saves coalesce behind a quiet window.
// A single pending slot plus in-flight flags keep writes ordered without
// a queue: content scheduled during an in-flight save is absorbed and
// flushed after it completes.
type Syncer struct {
	store    Store
	debounce time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	// onNotify fires after every observable state change (saving flag,
	// identifier assignment). onIDAssigned fires once per created record.
	// Both are set once before first use and called without mu held.
	onNotify     func()
	onIDAssigned func(id string)

	mu           sync.Mutex
	gen          uint64
	convID       string
	pending      *savePayload
	timer        *time.Timer
	creating     bool
	updating     bool
	inflight     map[string]int
	lastHash     uint64
	lastMessages []store.Message
}

// NewSyncer creates a persistence coordinator writing through st.
func NewSyncer(st Store, debounce, timeout time.Duration, logger zerolog.Logger) *Syncer {
	return &Syncer{
		store:    st,
		debounce: debounce,
		timeout:  timeout,
		logger:   logger.With().Str("component", "syncer").Logger(),
		inflight: make(map[string]int),
	}
}

// ConversationID returns the persisted record's identifier, or "" before
// the first create resolves.
func (s *Syncer) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convID
}

// Saving reports whether any tagged store or title operation is running.
func (s *Syncer) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight) > 0
}

// Track registers a named in-flight operation and returns its completion
// func. Both edges fire the notify hook so observers see the saving
// indicator change.
func (s *Syncer) Track(tag string) func() {
	s.mu.Lock()
	s.inflight[tag]++
	s.mu.Unlock()
	s.notify()

	return func() {
		s.mu.Lock()
		s.inflight[tag]--
		if s.inflight[tag] <= 0 {
			delete(s.inflight, tag)
		}
		s.mu.Unlock()
		s.notify()
	}
}

// Schedule records a mutation for persistence. Empty message lists are
// rejected: an accidental save must never wipe a stored conversation.
// A nil title leaves any previously merged title in place.
func (s *Syncer) Schedule(title *string, messages []store.Message) {
	if len(messages) == 0 {
		s.logger.Warn().Msg("refusing to save conversation with no messages")
		return
	}
	msgs := append([]store.Message(nil), messages...)

	s.mu.Lock()
	s.lastMessages = msgs
	if s.pending == nil {
		s.pending = &savePayload{}
	}
	s.pending.messages = msgs
	if title != nil {
		s.pending.title = title
	}

	if s.convID == "" {
		if s.creating {
			// Absorbed: the in-flight create re-reads the slot when it
			// resolves and follows up with the newer content.
			s.mu.Unlock()
			return
		}
		s.creating = true
		gen := s.gen
		s.mu.Unlock()
		go s.runCreate(gen)
		return
	}

	s.rearmLocked()
	s.mu.Unlock()
}

// StashTitle merges a generated title into the pending slot so the next
// create or update carries it. If the record already exists and nothing
// else is in flight, the debounce timer is armed to push it out.
func (s *Syncer) StashTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		s.pending = &savePayload{messages: s.lastMessages}
	}
	s.pending.title = &title
	if s.convID != "" && !s.creating {
		s.rearmLocked()
	}
}

// Flush forces any pending payload out without waiting for the debounce
// window. Used on session teardown.
func (s *Syncer) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.flush()
}

// Adopt points the coordinator at an existing record, typically after a
// resume. The fingerprint is primed so re-saving identical content is a
// no-op.
func (s *Syncer) Adopt(conv *store.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.convID = conv.ID
	s.pending = nil
	s.creating = false
	s.lastMessages = append([]store.Message(nil), conv.Messages...)
	s.lastHash = fingerprint(&savePayload{messages: conv.Messages})
}

// Reset detaches from the current record for a fresh conversation. An
// in-flight create from the old conversation is orphaned by the
// generation bump; its result is discarded when it lands.
func (s *Syncer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.convID = ""
	s.pending = nil
	s.creating = false
	s.lastHash = 0
	s.lastMessages = nil
}

// rearmLocked (re)starts the debounce timer. Caller holds mu.
func (s *Syncer) rearmLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.flush)
}

func (s *Syncer) runCreate(gen uint64) {
	done := s.Track(opCreate)
	defer done()

	s.mu.Lock()
	p := s.pending
	s.pending = nil
	s.mu.Unlock()
	if p == nil {
		s.mu.Lock()
		s.creating = false
		s.mu.Unlock()
		return
	}

	title := PlaceholderTitle
	if p.title != nil {
		title = *p.title
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	conv, err := s.store.Create(ctx, store.CreateRequest{Title: title, Messages: p.messages})

	s.mu.Lock()
	if gen != s.gen {
		// The session moved on while the create was in flight; the
		// orphaned record stays in the store but is not adopted here.
		s.mu.Unlock()
		s.logger.Debug().Msg("discarding create result from a reset conversation")
		return
	}
	s.creating = false
	if err != nil {
		// Keep the payload so the next mutation retries the create with
		// at least this much content.
		if s.pending == nil {
			s.pending = p
		}
		s.mu.Unlock()
		s.logger.Error().Err(err).Msg("failed to create conversation")
		return
	}
	s.convID = conv.ID
	s.lastHash = fingerprint(p)
	hasNewer := s.pending != nil
	s.mu.Unlock()

	s.logger.Debug().Str("conversation_id", conv.ID).Msg("conversation created")
	if s.onIDAssigned != nil {
		s.onIDAssigned(conv.ID)
	}
	if hasNewer {
		// Content accumulated while the create was in flight; follow up
		// immediately rather than waiting out a quiet window.
		s.flush()
	}
}

func (s *Syncer) flush() {
	s.mu.Lock()
	if s.convID == "" || s.updating {
		// The create path owns the first save; an in-flight update
		// re-flushes the dirty slot when it completes.
		s.mu.Unlock()
		return
	}
	p := s.pending
	s.pending = nil
	if p == nil {
		s.mu.Unlock()
		return
	}
	h := fingerprint(p)
	if h == s.lastHash {
		// Identical to the last persisted state; skip the round trip.
		s.mu.Unlock()
		return
	}
	s.updating = true
	id := s.convID
	s.mu.Unlock()

	done := s.Track(opUpdate)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	_, err := s.store.Update(ctx, id, store.UpdateRequest{Title: p.title, Messages: p.messages})
	cancel()

	s.mu.Lock()
	s.updating = false
	if err == nil {
		s.lastHash = h
	} else if s.pending == nil {
		// Abandon the attempt but keep the content (and any title riding
		// on it); the next mutation triggers a fresh save.
		s.pending = p
	}
	dirty := err == nil && s.pending != nil
	s.mu.Unlock()
	done()

	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", id).Msg("failed to update conversation")
		return
	}
	if dirty {
		s.mu.Lock()
		s.rearmLocked()
		s.mu.Unlock()
	}
}

func (s *Syncer) notify() {
	if s.onNotify != nil {
		s.onNotify()
	}
}

// fingerprint hashes a payload so unchanged content can skip the wire.
func fingerprint(p *savePayload) uint64 {
	h := xxh3.New()
	if p.title != nil {
		_, _ = h.WriteString(*p.title)
	}
	_, _ = h.WriteString("\x1f")
	for _, m := range p.messages {
		_, _ = h.WriteString(m.Role)
		_, _ = h.WriteString("\x1f")
		_, _ = h.WriteString(m.Content)
		_, _ = h.WriteString("\x1e")
	}
	return h.Sum64()
}
