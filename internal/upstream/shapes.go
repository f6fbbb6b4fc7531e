package upstream

import (
	"encoding/json"
	"time"

	"igdm/internal/model/dm"
)

// Raw provider shapes. These mirror what the upstream private API actually
// returns; the sync engine maps them into the stable model and nothing
// outside internal/ ever sees them.

type rawEnvelope struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Challenge *struct {
		URL string `json:"url"`
	} `json:"challenge,omitempty"`
}

// RawUser is the provider's user shape.
type RawUser struct {
	PK            json.Number `json:"pk"`
	Username      string      `json:"username"`
	FullName      string      `json:"full_name"`
	ProfilePicURL string      `json:"profile_pic_url"`
	IsPrivate     bool        `json:"is_private"`
	IsVerified    bool        `json:"is_verified"`
}

// Model converts the provider user into the stable shape.
func (u RawUser) Model() dm.User {
	return dm.User{
		PK:         u.PK.String(),
		Username:   u.Username,
		FullName:   u.FullName,
		IsPrivate:  u.IsPrivate,
		IsVerified: u.IsVerified,
	}
}

// RawMedia and RawLink are the payload fragments attached to non-text items.
type RawMedia struct {
	ThumbnailURL string `json:"thumbnail_url"`
	VideoURL     string `json:"video_url"`
}

type RawLink struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// RawItem is one message in a thread. Timestamp is microseconds since epoch.
type RawItem struct {
	ItemID        string      `json:"item_id"`
	UserID        json.Number `json:"user_id"`
	Timestamp     int64       `json:"timestamp"`
	ItemType      string      `json:"item_type"`
	Text          string      `json:"text"`
	ClientContext string      `json:"client_context"`
	ThreadID      string      `json:"thread_id"`
	Media         *RawMedia   `json:"media,omitempty"`
	Link          *RawLink    `json:"link,omitempty"`
}

// Time converts the provider's microsecond timestamp.
func (i RawItem) Time() time.Time {
	return time.UnixMicro(i.Timestamp).UTC()
}

// RawThread is one conversation, with a page of items newest first.
type RawThread struct {
	ThreadID       string      `json:"thread_id"`
	PK             json.Number `json:"pk"`
	ThreadTitle    string      `json:"thread_title"`
	Users          []RawUser   `json:"users"`
	LastActivityAt int64       `json:"last_activity_at"`
	IsGroup        bool        `json:"is_group"`
	Muted          bool        `json:"muted"`
	HasNewer       bool        `json:"has_newer"`
	Items          []RawItem   `json:"items"`
	OldestCursor   string      `json:"oldest_cursor"`
	HasOlder       bool        `json:"has_older"`
}

// RawInbox is the inbox page envelope.
type RawInbox struct {
	Threads      []RawThread `json:"threads"`
	OldestCursor string      `json:"oldest_cursor"`
	HasOlder     bool        `json:"has_older"`
}

type loginResponse struct {
	rawEnvelope
	LoggedInUser *RawUser `json:"logged_in_user"`
}

type inboxResponse struct {
	rawEnvelope
	Inbox *RawInbox `json:"inbox"`
}

type threadResponse struct {
	rawEnvelope
	Thread *RawThread `json:"thread"`
}

type sendResponse struct {
	rawEnvelope
	Payload *RawItem `json:"payload"`
}

type userResponse struct {
	rawEnvelope
	User *RawUser `json:"user"`
}
