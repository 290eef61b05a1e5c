package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/shoal-chat/shoal/internal/llm"
)

// ScriptedProvider implements llm.Provider with a per-request script
// function, letting tests gate token delivery on channels to force
// specific interleavings.
type ScriptedProvider struct {
	// Script handles each Generate call. When nil, the provider streams
	// the words of Reply and returns it.
	Script func(ctx context.Context, req llm.GenerateRequest, cb llm.StreamCallback) (*llm.GenerateResponse, error)
	Reply  string

	mu    sync.Mutex
	calls []llm.GenerateRequest
}

func (p *ScriptedProvider) Name() string { return "scripted" }

func (p *ScriptedProvider) Generate(ctx context.Context, req llm.GenerateRequest, cb llm.StreamCallback) (*llm.GenerateResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	if p.Script != nil {
		return p.Script(ctx, req, cb)
	}

	reply := p.Reply
	if reply == "" {
		reply = "ok"
	}
	if cb != nil && req.Stream {
		words := strings.SplitAfter(reply, " ")
		for _, w := range words {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := cb(w); err != nil {
				return nil, err
			}
		}
	}
	return &llm.GenerateResponse{Content: reply, FinishReason: "stop"}, nil
}

// Calls returns a copy of every request seen so far.
func (p *ScriptedProvider) Calls() []llm.GenerateRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.GenerateRequest(nil), p.calls...)
}

// CallCount returns the number of Generate calls seen so far.
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
