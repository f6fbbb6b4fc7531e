package dm

import (
	"strings"
	"time"

	"igdm/internal/errs"
	model "igdm/internal/model/dm"
	"igdm/internal/upstream"
)

// previewText substitutes a readable placeholder for non-text last messages
// in inbox listings.
var previewText = map[string]string{
	"media":          "Photo",
	"video":          "Video",
	"reel_share":     "Shared Reel",
	"story_share":    "Shared Story",
	"media_share":    "Shared Post",
	"voice_media":    "Voice Message",
	"animated_media": "GIF",
	"link":           "Link",
	"like":           "Liked",
}

// kindOf collapses provider item types into the stable kind set.
func kindOf(itemType string) model.Kind {
	switch itemType {
	case "text":
		return model.KindText
	case "media", "video", "voice_media", "animated_media", "media_share":
		return model.KindMedia
	default:
		return model.KindOther
	}
}

// normalizeMessage maps a provider item. Fails closed on items missing
// their identity rather than passing a half-formed message through.
func normalizeMessage(item upstream.RawItem, viewerPK string) (model.Message, error) {
	if item.ItemID == "" {
		return model.Message{}, errs.New(errs.KindFatal, "upstream message in unrecognized shape")
	}

	itemType := item.ItemType
	if itemType == "" {
		itemType = "unknown"
	}

	msg := model.Message{
		ID:             item.ItemID,
		SenderPK:       item.UserID.String(),
		Timestamp:      item.Time(),
		Kind:           kindOf(itemType),
		ItemType:       itemType,
		Text:           item.Text,
		IsSentByViewer: viewerPK != "" && item.UserID.String() == viewerPK,
	}
	if item.Media != nil {
		if item.Media.VideoURL != "" {
			msg.MediaType = "video"
			msg.MediaURL = item.Media.VideoURL
		} else {
			msg.MediaType = "photo"
			msg.MediaURL = item.Media.ThumbnailURL
		}
	}
	if item.Link != nil {
		msg.LinkURL = item.Link.URL
		msg.LinkTitle = item.Link.Title
	}
	return msg, nil
}

// normalizeConversation maps a provider thread into an inbox summary.
func normalizeConversation(t upstream.RawThread) (model.Conversation, error) {
	if t.ThreadID == "" {
		return model.Conversation{}, errs.New(errs.KindFatal, "upstream thread in unrecognized shape")
	}

	participants := make([]model.Participant, 0, len(t.Users))
	for _, u := range t.Users {
		participants = append(participants, model.Participant{
			PK:       u.PK.String(),
			Username: u.Username,
			FullName: u.FullName,
		})
	}

	conv := model.Conversation{
		ThreadID:       t.ThreadID,
		PK:             t.PK.String(),
		Title:          threadTitle(t.ThreadTitle, participants),
		Participants:   participants,
		LastActivityAt: time.UnixMicro(t.LastActivityAt).UTC(),
		IsGroup:        t.IsGroup || len(participants) > 1,
		HasUnread:      t.HasNewer,
	}

	if len(t.Items) > 0 {
		last := t.Items[0]
		itemType := last.ItemType
		if itemType == "" {
			itemType = "unknown"
		}
		conv.LastMessageKind = kindOf(itemType)
		if last.Text != "" {
			conv.LastMessageText = last.Text
		} else if preview, ok := previewText[itemType]; ok {
			conv.LastMessageText = preview
		} else {
			conv.LastMessageText = "[" + itemType + "]"
		}
		if conv.LastActivityAt.IsZero() || t.LastActivityAt == 0 {
			conv.LastActivityAt = last.Time()
		}
	}
	return conv, nil
}

// threadTitle falls back to comma-joined participant handles when the
// provider has no explicit title.
func threadTitle(title string, participants []model.Participant) string {
	if title != "" {
		return title
	}
	handles := make([]string, 0, len(participants))
	for _, p := range participants {
		handles = append(handles, p.Username)
	}
	return strings.Join(handles, ", ")
}
