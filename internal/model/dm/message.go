// Package dm holds the stable conversation data model. Everything here is
// produced by normalizing upstream responses; nothing is persisted.
package dm

import "time"

// Kind classifies a message payload.
type Kind string

const (
	KindText  Kind = "text"
	KindMedia Kind = "media"
	KindOther Kind = "other"
)

// Message is a single direct message. Within a thread, messages are ordered
// newest first, matching upstream cursor pagination.
type Message struct {
	ID             string    `json:"id"`
	SenderPK       string    `json:"sender_pk"`
	Timestamp      time.Time `json:"timestamp"`
	Kind           Kind      `json:"kind"`
	ItemType       string    `json:"item_type"`
	Text           string    `json:"text,omitempty"`
	IsSentByViewer bool      `json:"is_sent_by_viewer"`

	// Populated for media and link items.
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	LinkURL   string `json:"link_url,omitempty"`
	LinkTitle string `json:"link_title,omitempty"`
}

// Conversation is an inbox entry: thread identity plus a last-message
// preview. Read-only to clients and always refetched from upstream.
type Conversation struct {
	ThreadID       string        `json:"thread_id"`
	PK             string        `json:"pk"`
	Title          string        `json:"title"`
	Participants   []Participant `json:"participants"`
	LastActivityAt time.Time     `json:"last_activity_at"`
	IsGroup        bool          `json:"is_group"`
	HasUnread      bool          `json:"has_unread"`

	LastMessageText string `json:"last_message_text,omitempty"`
	LastMessageKind Kind   `json:"last_message_kind,omitempty"`
}

// Thread is a conversation with its message page.
type Thread struct {
	Conversation
	Messages []Message `json:"messages"`
}
