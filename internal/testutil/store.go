package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shoal-chat/shoal/internal/store"
)

// FakeStore is an in-memory conversation store for coordinator tests. It
// records every create and update, can fail on demand, and can block
// creates on a gate channel so tests control when the identifier lands.
type FakeStore struct {
	// CreateGate, when set, blocks each Create until the channel is
	// closed or receives.
	CreateGate <-chan struct{}

	mu          sync.Mutex
	failCreate  bool
	failUpdate  bool
	convs       map[string]*store.Conversation
	createCalls []store.CreateRequest
	updateCalls []store.UpdateRequest
}

// NewFakeStore creates an empty in-memory store.
func NewFakeStore() *FakeStore {
	return &FakeStore{convs: make(map[string]*store.Conversation)}
}

func (f *FakeStore) Create(ctx context.Context, req store.CreateRequest) (*store.Conversation, error) {
	if f.CreateGate != nil {
		select {
		case <-f.CreateGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, req)

	if f.failCreate {
		return nil, errors.New("fake store: create failed")
	}

	now := time.Now().UTC()
	conv := &store.Conversation{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Messages:  append([]store.Message(nil), req.Messages...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.convs[conv.ID] = conv
	return cloneConversation(conv), nil
}

func (f *FakeStore) Update(ctx context.Context, id string, req store.UpdateRequest) (*store.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls = append(f.updateCalls, req)

	if f.failUpdate {
		return nil, errors.New("fake store: update failed")
	}

	conv, ok := f.convs[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, store.ErrNotFound)
	}
	if req.Title != nil {
		conv.Title = *req.Title
	}
	conv.Messages = append([]store.Message(nil), req.Messages...)
	conv.UpdatedAt = time.Now().UTC()
	return cloneConversation(conv), nil
}

func (f *FakeStore) Get(ctx context.Context, id string) (*store.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.convs[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, store.ErrNotFound)
	}
	return cloneConversation(conv), nil
}

// SetFailCreate makes subsequent Create calls return an error.
func (f *FakeStore) SetFailCreate(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCreate = fail
}

// SetFailUpdate makes subsequent Update calls return an error.
func (f *FakeStore) SetFailUpdate(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failUpdate = fail
}

// Seed inserts a conversation directly, bypassing the call counters.
func (f *FakeStore) Seed(conv *store.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convs[conv.ID] = cloneConversation(conv)
}

// CreateCalls returns a copy of every create request seen so far.
func (f *FakeStore) CreateCalls() []store.CreateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.CreateRequest(nil), f.createCalls...)
}

// UpdateCalls returns a copy of every update request seen so far.
func (f *FakeStore) UpdateCalls() []store.UpdateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.UpdateRequest(nil), f.updateCalls...)
}

// Stored returns the current state of a conversation, or nil.
func (f *FakeStore) Stored(id string) *store.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return nil
	}
	return cloneConversation(conv)
}

func cloneConversation(conv *store.Conversation) *store.Conversation {
	out := *conv
	out.Messages = append([]store.Message(nil), conv.Messages...)
	return &out
}
