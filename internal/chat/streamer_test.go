package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoal-chat/shoal/internal/llm"
	"github.com/shoal-chat/shoal/internal/store"
	"github.com/shoal-chat/shoal/internal/testutil"
)

func userMsgs(texts ...string) []store.Message {
	out := make([]store.Message, 0, len(texts))
	for _, t := range texts {
		out = append(out, store.Message{Role: store.RoleUser, Content: t})
	}
	return out
}

func TestStreamer_CompletedWithDeltas(t *testing.T) {
	provider := &testutil.ScriptedProvider{Reply: "Hello there world"}
	s := NewStreamer(provider, 100, 0, testutil.NewTestLogger(t))

	var partials []string
	s.onDelta = func(partial string) { partials = append(partials, partial) }

	res := s.Send(context.Background(), userMsgs("hi"))

	require.Equal(t, StreamCompleted, res.Outcome)
	assert.Equal(t, "Hello there world", res.Text)
	require.NotEmpty(t, partials)
	assert.Equal(t, "Hello ", partials[0])
	assert.Equal(t, "Hello there world", partials[len(partials)-1])
	assert.False(t, s.Loading())
}

func TestStreamer_SecondSendSkippedWhileStreaming(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	provider := &testutil.ScriptedProvider{
		Script: func(ctx context.Context, req llm.GenerateRequest, cb llm.StreamCallback) (*llm.GenerateResponse, error) {
			close(started)
			<-release
			return &llm.GenerateResponse{Content: "done"}, nil
		},
	}
	s := NewStreamer(provider, 100, 0, testutil.NewTestLogger(t))

	var first StreamResult
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = s.Send(context.Background(), userMsgs("hi"))
	}()
	<-started

	assert.True(t, s.Loading())
	second := s.Send(context.Background(), userMsgs("again"))
	assert.Equal(t, StreamSkipped, second.Outcome)
	assert.Equal(t, 1, provider.CallCount())

	close(release)
	wg.Wait()

	assert.Equal(t, StreamCompleted, first.Outcome)
	assert.Equal(t, "done", first.Text)
}

func TestStreamer_CancelKeepsPartial(t *testing.T) {
	delivered := make(chan struct{})
	provider := &testutil.ScriptedProvider{
		Script: func(ctx context.Context, req llm.GenerateRequest, cb llm.StreamCallback) (*llm.GenerateResponse, error) {
			if err := cb("Once upon "); err != nil {
				return nil, err
			}
			if err := cb("a time"); err != nil {
				return nil, err
			}
			close(delivered)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	s := NewStreamer(provider, 100, 0, testutil.NewTestLogger(t))

	var res StreamResult
	done := make(chan struct{})
	go func() {
		res = s.Send(context.Background(), userMsgs("tell me a story"))
		close(done)
	}()
	<-delivered

	assert.Equal(t, "Once upon a time", s.Partial())
	partial, ok := s.Cancel()
	require.True(t, ok)
	assert.Equal(t, "Once upon a time", partial)
	// The loading flag flips synchronously, before Send unwinds.
	assert.False(t, s.Loading())

	<-done
	assert.Equal(t, StreamInterrupted, res.Outcome)
	// Cancel harvested the partial; the unwound Send carries no text.
	assert.Empty(t, res.Text)
}

func TestStreamer_CancelBeforeFirstToken(t *testing.T) {
	started := make(chan struct{})
	provider := &testutil.ScriptedProvider{
		Script: func(ctx context.Context, req llm.GenerateRequest, cb llm.StreamCallback) (*llm.GenerateResponse, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	s := NewStreamer(provider, 100, 0, testutil.NewTestLogger(t))

	var res StreamResult
	done := make(chan struct{})
	go func() {
		res = s.Send(context.Background(), userMsgs("hi"))
		close(done)
	}()
	<-started

	partial, ok := s.Cancel()
	require.True(t, ok)
	assert.Empty(t, partial)
	<-done

	assert.Equal(t, StreamInterrupted, res.Outcome)
	assert.Empty(t, res.Text)
}

func TestStreamer_CancelHarvestsBeforeSlowUnwind(t *testing.T) {
	delivered := make(chan struct{})
	release := make(chan struct{})
	provider := &testutil.ScriptedProvider{
		Script: func(ctx context.Context, req llm.GenerateRequest, cb llm.StreamCallback) (*llm.GenerateResponse, error) {
			if len(req.Messages) == 1 {
				if err := cb("partial"); err != nil {
					return nil, err
				}
				close(delivered)
				<-ctx.Done()
				// A slow transport hangs on well past the cancellation.
				<-release
				return nil, ctx.Err()
			}
			return &llm.GenerateResponse{Content: "fresh answer"}, nil
		},
	}
	s := NewStreamer(provider, 100, 0, testutil.NewTestLogger(t))

	var first StreamResult
	done := make(chan struct{})
	go func() {
		first = s.Send(context.Background(), userMsgs("one"))
		close(done)
	}()
	<-delivered

	partial, ok := s.Cancel()
	require.True(t, ok)
	assert.Equal(t, "partial", partial)

	// A new stream may start while the old request is still unwinding.
	second := s.Send(context.Background(), userMsgs("one", "two"))
	require.Equal(t, StreamCompleted, second.Outcome)
	assert.Equal(t, "fresh answer", second.Text)

	close(release)
	<-done
	assert.Equal(t, StreamInterrupted, first.Outcome)
	assert.Empty(t, first.Text)
	assert.False(t, s.Loading())
}

func TestStreamer_ProviderErrorYieldsFallback(t *testing.T) {
	provider := &testutil.ScriptedProvider{
		Script: func(ctx context.Context, req llm.GenerateRequest, cb llm.StreamCallback) (*llm.GenerateResponse, error) {
			return nil, errors.New("boom")
		},
	}
	s := NewStreamer(provider, 100, 0, testutil.NewTestLogger(t))

	res := s.Send(context.Background(), userMsgs("hi"))

	assert.Equal(t, StreamFailed, res.Outcome)
	assert.Equal(t, FallbackReply, res.Text)
	assert.False(t, s.Loading())
}

func TestStreamer_SequentialSendsAfterCancel(t *testing.T) {
	provider := &testutil.ScriptedProvider{Reply: "second answer"}
	s := NewStreamer(provider, 100, 0, testutil.NewTestLogger(t))

	// Cancel with nothing live is a no-op.
	_, ok := s.Cancel()
	assert.False(t, ok)

	res := s.Send(context.Background(), userMsgs("hi"))
	require.Equal(t, StreamCompleted, res.Outcome)
	assert.Equal(t, "second answer", res.Text)
}
