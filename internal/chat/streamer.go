package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shoal-chat/shoal/internal/llm"
	"github.com/shoal-chat/shoal/internal/store"
)

// FallbackReply is shown in place of an assistant turn when the provider
// or transport fails. Errors never propagate past the coordinator.
const FallbackReply = "Sorry, something went wrong while generating a response. Please try again."

// StreamOutcome classifies how a stream ended.
type StreamOutcome int

const (
	// StreamSkipped means Send was a no-op because a stream was already
	// live, or the input was empty. Nothing ran.
	StreamSkipped StreamOutcome = iota
	// StreamCompleted means the full response arrived.
	StreamCompleted
	// StreamInterrupted means the stream was cancelled mid-flight. When
	// the cancellation came through Cancel the partial text was harvested
	// there and Text is empty; a parent context cancellation leaves the
	// partial in Text.
	StreamInterrupted
	// StreamFailed means the provider or transport errored; Text holds
	// the fixed fallback reply.
	StreamFailed
)

// StreamResult is the outcome of one model stream.
type StreamResult struct {
	Text    string
	Outcome StreamOutcome
}

// streamSession is the transient state of one in-flight model request.
// At most one exists per Streamer; it is destroyed on completion,
// cancellation, or superseding by a new send.
type streamSession struct {
	id     string
	cancel context.CancelFunc
	buf    strings.Builder

	// harvested marks that Cancel already handed the partial text to the
	// caller, so the unwinding Send must not report it a second time.
	harvested bool
}

// Streamer owns the single in-flight model request, turning a token stream
// into incremental partials and a final string.
//
// State machine: Idle -> Streaming -> {Completed|Cancelled|Failed} -> Idle,
// strictly sequential per instance.
type Streamer struct {
	provider  llm.Provider
	maxTokens int
	timeout   time.Duration
	logger    zerolog.Logger

	// onDelta receives the accumulated partial text after every chunk.
	// Set once before first use.
	onDelta func(partial string)

	mu      sync.Mutex
	active  *streamSession
	loading bool
}

// NewStreamer creates a stream coordinator for the given provider.
// timeout is the hard cap on one streaming response; zero means no cap.
func NewStreamer(provider llm.Provider, maxTokens int, timeout time.Duration, logger zerolog.Logger) *Streamer {
	return &Streamer{
		provider:  provider,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger.With().Str("component", "streamer").Logger(),
	}
}

// Loading reports whether a stream is live.
func (s *Streamer) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Partial returns the accumulated text of the live stream, or "".
func (s *Streamer) Partial() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ""
	}
	return s.active.buf.String()
}

// Send issues one model request and blocks until it resolves. While already
// loading it is an idempotent no-op returning StreamSkipped; a session left
// registered by a cancel that has not unwound yet is cancelled before the
// new request is issued, so no two streams ever overlap.
func (s *Streamer) Send(ctx context.Context, messages []store.Message) StreamResult {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return StreamResult{Outcome: StreamSkipped}
	}
	if s.active != nil {
		s.active.cancel()
	}

	if s.timeout > 0 {
		var cancelCap context.CancelFunc
		ctx, cancelCap = context.WithTimeout(ctx, s.timeout)
		defer cancelCap()
	}
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := &streamSession{id: uuid.NewString(), cancel: cancel}
	s.active = sess
	s.loading = true
	s.mu.Unlock()

	req := llm.GenerateRequest{
		Messages:  toLLMMessages(messages),
		MaxTokens: s.maxTokens,
		Stream:    true,
	}

	resp, err := s.provider.Generate(streamCtx, req, func(chunk string) error {
		// Observe cancellation between token arrivals.
		if err := streamCtx.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		sess.buf.WriteString(chunk)
		partial := sess.buf.String()
		s.mu.Unlock()
		if s.onDelta != nil {
			s.onDelta(partial)
		}
		return nil
	})

	s.mu.Lock()
	partial := sess.buf.String()
	harvested := sess.harvested
	if s.active == sess {
		s.active = nil
		s.loading = false
	}
	s.mu.Unlock()

	switch {
	case errors.Is(streamCtx.Err(), context.Canceled):
		// Cooperative cancellation is not an error.
		s.logger.Debug().Str("session_id", sess.id).Int("partial_len", len(partial)).Msg("stream cancelled")
		if harvested {
			// Cancel already returned the partial to its caller.
			return StreamResult{Outcome: StreamInterrupted}
		}
		return StreamResult{Text: partial, Outcome: StreamInterrupted}
	case err != nil:
		s.logger.Error().Err(err).Str("session_id", sess.id).Msg("stream failed")
		return StreamResult{Text: FallbackReply, Outcome: StreamFailed}
	default:
		text := resp.Content
		if text == "" {
			text = partial
		}
		return StreamResult{Text: text, Outcome: StreamCompleted}
	}
}

// Cancel stops the live stream and returns the accumulated partial text.
// Both the loading flag flip and the harvest happen synchronously, so the
// caller can place the partial in history before any later send runs; the
// provider call may keep the blocked Send occupied well past this point,
// and that late unwind then carries no text. Reports false when no stream
// was live.
func (s *Streamer) Cancel() (string, bool) {
	s.mu.Lock()
	sess := s.active
	if sess == nil || !s.loading {
		s.loading = false
		s.mu.Unlock()
		return "", false
	}
	s.loading = false
	sess.harvested = true
	text := sess.buf.String()
	s.mu.Unlock()

	sess.cancel()
	return text, true
}

func toLLMMessages(messages []store.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
