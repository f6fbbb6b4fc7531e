// Package dm is the sync engine between the provider's conversation shapes
// and the stable model served to clients: inbox listing, thread reads,
// handle resolution, and validated sends.
package dm

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"igdm/internal/errs"
	model "igdm/internal/model/dm"
	"igdm/internal/upstream"
)

const (
	// DefaultLimit and MaxLimit bound inbox and thread pages.
	DefaultLimit = 20
	MaxLimit     = 100

	// maxMessageLen is the upstream's text size bound, enforced before any
	// network call.
	maxMessageLen = 1000
)

// Upstream is the gateway slice the engine consumes.
type Upstream interface {
	Inbox(ctx context.Context, cursor string, limit int) (upstream.RawInbox, error)
	Thread(ctx context.Context, threadID, cursor string, limit int) (upstream.RawThread, error)
	SendToThread(ctx context.Context, threadID, text string) (upstream.RawItem, error)
	SendToUser(ctx context.Context, userPK, text string) (upstream.RawItem, error)
	UserByUsername(ctx context.Context, handle string) (upstream.RawUser, error)
}

// Service is the thread sync engine.
type Service struct {
	up  Upstream
	log *zap.Logger
}

// NewService wires the engine to a gateway.
func NewService(up Upstream, log *zap.Logger) *Service {
	return &Service{up: up, log: log}
}

// ListInbox returns one bounded page of conversation summaries, newest
// activity first as given by upstream. unreadOnly filters after translation.
func (s *Service) ListInbox(ctx context.Context, limit int, unreadOnly bool) ([]model.Conversation, error) {
	limit = clampLimit(limit)

	inbox, err := s.up.Inbox(ctx, "", limit)
	if err != nil {
		return nil, err
	}

	conversations := make([]model.Conversation, 0, len(inbox.Threads))
	for _, t := range inbox.Threads {
		conv, err := normalizeConversation(t)
		if err != nil {
			return nil, err
		}
		if unreadOnly && !conv.HasUnread {
			continue
		}
		conversations = append(conversations, conv)
		if len(conversations) == limit {
			break
		}
	}
	return conversations, nil
}

// Messages returns up to limit messages for a thread, newest first. The
// page is assembled by walking upstream cursors from the most recent
// message backward; repeated calls are stable while no new messages arrive.
func (s *Service) Messages(ctx context.Context, viewerPK, threadID string, limit int) (model.Thread, error) {
	limit = clampLimit(limit)

	var (
		out    model.Thread
		cursor string
	)
	for {
		raw, err := s.up.Thread(ctx, threadID, cursor, limit-len(out.Messages))
		if err != nil {
			return model.Thread{}, err
		}
		if out.ThreadID == "" {
			conv, err := normalizeConversation(raw)
			if err != nil {
				return model.Thread{}, err
			}
			out.Conversation = conv
		}
		for _, item := range raw.Items {
			msg, err := normalizeMessage(item, viewerPK)
			if err != nil {
				return model.Thread{}, err
			}
			out.Messages = append(out.Messages, msg)
			if len(out.Messages) == limit {
				return out, nil
			}
		}
		if !raw.HasOlder || raw.OldestCursor == "" || raw.OldestCursor == cursor || len(raw.Items) == 0 {
			return out, nil
		}
		cursor = raw.OldestCursor
	}
}

// ResolveThread accepts a thread identifier or an account handle and
// returns the thread identifier. A handle resolves to the existing 1:1
// thread; when no conversation exists yet it reports NotFound (sending to
// the handle is what creates one).
func (s *Service) ResolveThread(ctx context.Context, target string) (string, error) {
	handle, isHandle := asHandle(target)
	if !isHandle {
		return target, nil
	}

	user, err := s.up.UserByUsername(ctx, handle)
	if err != nil {
		return "", err
	}
	pk := user.PK.String()

	inbox, err := s.up.Inbox(ctx, "", MaxLimit)
	if err != nil {
		return "", err
	}
	for _, t := range inbox.Threads {
		if t.IsGroup || len(t.Users) != 1 {
			continue
		}
		if t.Users[0].PK.String() == pk {
			return t.ThreadID, nil
		}
	}
	return "", errs.Newf(errs.KindNotFound, "no conversation with @%s yet", handle)
}

// SendToThread validates and posts text to an existing thread.
func (s *Service) SendToThread(ctx context.Context, viewerPK, threadID, text string) (model.Message, error) {
	if err := validateText(text); err != nil {
		return model.Message{}, err
	}
	item, err := s.up.SendToThread(ctx, threadID, text)
	if err != nil {
		return model.Message{}, err
	}
	return sentMessage(item, viewerPK, text)
}

// SendToUser resolves a handle and posts text to the 1:1 thread, creating
// it upstream if absent.
func (s *Service) SendToUser(ctx context.Context, viewerPK, handle, text string) (model.Message, error) {
	if err := validateText(text); err != nil {
		return model.Message{}, err
	}

	handle = strings.TrimPrefix(handle, "@")
	user, err := s.up.UserByUsername(ctx, handle)
	if err != nil {
		return model.Message{}, err
	}

	item, err := s.up.SendToUser(ctx, user.PK.String(), text)
	if err != nil {
		return model.Message{}, err
	}
	return sentMessage(item, viewerPK, text)
}

// User looks up a profile by handle.
func (s *Service) User(ctx context.Context, handle string) (model.User, error) {
	raw, err := s.up.UserByUsername(ctx, strings.TrimPrefix(handle, "@"))
	if err != nil {
		return model.User{}, err
	}
	return raw.Model(), nil
}

// sentMessage normalizes the send echo. The provider's payload omits the
// text, so it is filled back in from the request.
func sentMessage(item upstream.RawItem, viewerPK, text string) (model.Message, error) {
	if item.ItemType == "" {
		item.ItemType = "text"
	}
	if item.UserID.String() == "" || item.UserID.String() == "0" {
		// Broadcast payloads do not repeat the sender.
		msg, err := normalizeMessage(item, "")
		if err != nil {
			return model.Message{}, err
		}
		msg.SenderPK = viewerPK
		msg.IsSentByViewer = true
		msg.Text = text
		return msg, nil
	}
	msg, err := normalizeMessage(item, viewerPK)
	if err != nil {
		return model.Message{}, err
	}
	if msg.Text == "" {
		msg.Text = text
	}
	return msg, nil
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errs.New(errs.KindValidation, "message text is empty")
	}
	if len(text) > maxMessageLen {
		return errs.Newf(errs.KindValidation, "message text exceeds %d bytes", maxMessageLen)
	}
	return nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// asHandle reports whether target names an account rather than a thread.
// Handles are either @-prefixed or non-numeric.
func asHandle(target string) (string, bool) {
	if strings.HasPrefix(target, "@") {
		return strings.TrimPrefix(target, "@"), true
	}
	for _, r := range target {
		if r < '0' || r > '9' {
			return target, true
		}
	}
	return "", false
}
