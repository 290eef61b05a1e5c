// Package store provides the REST client for the conversation store.
package store

import "time"

// Message roles. Ordering of messages within a conversation is append-only
// and significant.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single conversation turn. Immutable once appended.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the server-side record of a chat. ID is assigned by the
// store on create and never changes afterwards.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest is the POST /conversations payload.
type CreateRequest struct {
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// UpdateRequest is the PUT /conversations/{id} payload. A nil Title means
// "do not overwrite the remote title this round".
type UpdateRequest struct {
	Title    *string   `json:"title,omitempty"`
	Messages []Message `json:"messages"`
}

// DeleteResponse is the DELETE /conversations/{id} result.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
