package dm

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"igdm/internal/errs"
	model "igdm/internal/model/dm"
	"igdm/internal/upstream"
)

// fakeUpstream scripts gateway responses and counts calls.
type fakeUpstream struct {
	inboxFn      func(cursor string, limit int) (upstream.RawInbox, error)
	threadFn     func(threadID, cursor string, limit int) (upstream.RawThread, error)
	sendThreadFn func(threadID, text string) (upstream.RawItem, error)
	sendUserFn   func(userPK, text string) (upstream.RawItem, error)
	userFn       func(handle string) (upstream.RawUser, error)

	inboxCalls, threadCalls, sendCalls, userCalls int
}

func (f *fakeUpstream) Inbox(_ context.Context, cursor string, limit int) (upstream.RawInbox, error) {
	f.inboxCalls++
	return f.inboxFn(cursor, limit)
}

func (f *fakeUpstream) Thread(_ context.Context, threadID, cursor string, limit int) (upstream.RawThread, error) {
	f.threadCalls++
	return f.threadFn(threadID, cursor, limit)
}

func (f *fakeUpstream) SendToThread(_ context.Context, threadID, text string) (upstream.RawItem, error) {
	f.sendCalls++
	return f.sendThreadFn(threadID, text)
}

func (f *fakeUpstream) SendToUser(_ context.Context, userPK, text string) (upstream.RawItem, error) {
	f.sendCalls++
	return f.sendUserFn(userPK, text)
}

func (f *fakeUpstream) UserByUsername(_ context.Context, handle string) (upstream.RawUser, error) {
	f.userCalls++
	return f.userFn(handle)
}

func rawThread(id string, unread bool, users ...upstream.RawUser) upstream.RawThread {
	return upstream.RawThread{
		ThreadID:       id,
		Users:          users,
		HasNewer:       unread,
		LastActivityAt: 1700000000000000,
	}
}

func rawUser(pk, username string) upstream.RawUser {
	return upstream.RawUser{PK: json.Number(pk), Username: username}
}

func textItem(id, userPK, text string, ts int64) upstream.RawItem {
	return upstream.RawItem{
		ItemID:    id,
		UserID:    json.Number(userPK),
		Timestamp: ts,
		ItemType:  "text",
		Text:      text,
	}
}

func TestListInboxClampsLimit(t *testing.T) {
	var gotLimit int
	up := &fakeUpstream{
		inboxFn: func(_ string, limit int) (upstream.RawInbox, error) {
			gotLimit = limit
			return upstream.RawInbox{}, nil
		},
	}
	s := NewService(up, zap.NewNop())

	_, err := s.ListInbox(context.Background(), 0, false)
	require.NoError(t, err)
	require.Equal(t, DefaultLimit, gotLimit)

	_, err = s.ListInbox(context.Background(), 500, false)
	require.NoError(t, err)
	require.Equal(t, MaxLimit, gotLimit)

	_, err = s.ListInbox(context.Background(), 5, false)
	require.NoError(t, err)
	require.Equal(t, 5, gotLimit)
}

func TestListInboxUnreadOnly(t *testing.T) {
	up := &fakeUpstream{
		inboxFn: func(_ string, _ int) (upstream.RawInbox, error) {
			return upstream.RawInbox{Threads: []upstream.RawThread{
				rawThread("t1", true, rawUser("1", "a")),
				rawThread("t2", false, rawUser("2", "b")),
				rawThread("t3", true, rawUser("3", "c")),
			}}, nil
		},
	}
	s := NewService(up, zap.NewNop())

	all, err := s.ListInbox(context.Background(), 10, false)
	require.NoError(t, err)
	require.Len(t, all, 3)

	unread, err := s.ListInbox(context.Background(), 10, true)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	require.Equal(t, "t1", unread[0].ThreadID)
	require.Equal(t, "t3", unread[1].ThreadID)
}

func TestMessagesWalksCursors(t *testing.T) {
	pages := map[string]upstream.RawThread{
		"": {
			ThreadID:     "t1",
			Users:        []upstream.RawUser{rawUser("2", "bob")},
			Items:        []upstream.RawItem{textItem("m3", "2", "newest", 3_000_000), textItem("m2", "1", "mid", 2_000_000)},
			HasOlder:     true,
			OldestCursor: "c1",
		},
		"c1": {
			ThreadID: "t1",
			Items:    []upstream.RawItem{textItem("m1", "1", "oldest", 1_000_000)},
			HasOlder: false,
		},
	}
	up := &fakeUpstream{
		threadFn: func(_, cursor string, _ int) (upstream.RawThread, error) {
			return pages[cursor], nil
		},
	}
	s := NewService(up, zap.NewNop())

	thread, err := s.Messages(context.Background(), "1", "t1", 10)
	require.NoError(t, err)
	require.Equal(t, "t1", thread.ThreadID)
	require.Len(t, thread.Messages, 3)
	require.Equal(t, []string{"m3", "m2", "m1"},
		[]string{thread.Messages[0].ID, thread.Messages[1].ID, thread.Messages[2].ID})
	require.False(t, thread.Messages[0].IsSentByViewer)
	require.True(t, thread.Messages[1].IsSentByViewer)
	require.Equal(t, 2, up.threadCalls)
}

func TestMessagesStopsAtLimit(t *testing.T) {
	up := &fakeUpstream{
		threadFn: func(_, _ string, _ int) (upstream.RawThread, error) {
			return upstream.RawThread{
				ThreadID:     "t1",
				Items:        []upstream.RawItem{textItem("m2", "1", "b", 2), textItem("m1", "1", "a", 1)},
				HasOlder:     true,
				OldestCursor: "c1",
			}, nil
		},
	}
	s := NewService(up, zap.NewNop())

	thread, err := s.Messages(context.Background(), "1", "t1", 2)
	require.NoError(t, err)
	require.Len(t, thread.Messages, 2)
	require.Equal(t, 1, up.threadCalls)
}

func TestMessagesStopsOnStuckCursor(t *testing.T) {
	// A provider that claims more history but keeps returning the same
	// cursor must not loop.
	calls := 0
	up := &fakeUpstream{
		threadFn: func(_, _ string, _ int) (upstream.RawThread, error) {
			calls++
			return upstream.RawThread{
				ThreadID:     "t1",
				Items:        []upstream.RawItem{textItem("m1", "1", "a", 1)},
				HasOlder:     true,
				OldestCursor: "c1",
			}, nil
		},
	}
	s := NewService(up, zap.NewNop())

	_, err := s.Messages(context.Background(), "1", "t1", 50)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestResolveThreadPassesIDThrough(t *testing.T) {
	s := NewService(&fakeUpstream{}, zap.NewNop())
	id, err := s.ResolveThread(context.Background(), "340282366841710300949128")
	require.NoError(t, err)
	require.Equal(t, "340282366841710300949128", id)
}

func TestResolveThreadByHandle(t *testing.T) {
	up := &fakeUpstream{
		userFn: func(handle string) (upstream.RawUser, error) {
			require.Equal(t, "bob", handle)
			return rawUser("7", "bob"), nil
		},
		inboxFn: func(_ string, limit int) (upstream.RawInbox, error) {
			require.Equal(t, MaxLimit, limit)
			return upstream.RawInbox{Threads: []upstream.RawThread{
				{ThreadID: "g1", IsGroup: true, Users: []upstream.RawUser{rawUser("7", "bob"), rawUser("8", "c")}},
				rawThread("t7", false, rawUser("7", "bob")),
			}}, nil
		},
	}
	s := NewService(up, zap.NewNop())

	id, err := s.ResolveThread(context.Background(), "@bob")
	require.NoError(t, err)
	require.Equal(t, "t7", id)
}

func TestResolveThreadNoConversationYet(t *testing.T) {
	up := &fakeUpstream{
		userFn: func(string) (upstream.RawUser, error) { return rawUser("7", "bob"), nil },
		inboxFn: func(string, int) (upstream.RawInbox, error) {
			return upstream.RawInbox{}, nil
		},
	}
	s := NewService(up, zap.NewNop())

	_, err := s.ResolveThread(context.Background(), "bob")
	require.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestResolveThreadUnknownUser(t *testing.T) {
	up := &fakeUpstream{
		userFn: func(string) (upstream.RawUser, error) {
			return upstream.RawUser{}, errs.New(errs.KindUserNotFound, "user not found")
		},
	}
	s := NewService(up, zap.NewNop())

	_, err := s.ResolveThread(context.Background(), "@ghost")
	require.Equal(t, errs.KindUserNotFound, errs.KindOf(err))
}

func TestSendRejectsInvalidTextBeforeUpstream(t *testing.T) {
	up := &fakeUpstream{}
	s := NewService(up, zap.NewNop())

	_, err := s.SendToThread(context.Background(), "1", "t1", "   ")
	require.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = s.SendToUser(context.Background(), "1", "bob", strings.Repeat("x", maxMessageLen+1))
	require.Equal(t, errs.KindValidation, errs.KindOf(err))

	require.Zero(t, up.sendCalls)
	require.Zero(t, up.userCalls)
}

func TestSendToThreadNormalizesEcho(t *testing.T) {
	up := &fakeUpstream{
		sendThreadFn: func(threadID, text string) (upstream.RawItem, error) {
			require.Equal(t, "t1", threadID)
			// Broadcast payloads omit sender and text.
			return upstream.RawItem{ItemID: "m5", Timestamp: 1700000000000000}, nil
		},
	}
	s := NewService(up, zap.NewNop())

	msg, err := s.SendToThread(context.Background(), "42", "t1", "hello")
	require.NoError(t, err)
	require.Equal(t, "m5", msg.ID)
	require.Equal(t, "42", msg.SenderPK)
	require.True(t, msg.IsSentByViewer)
	require.Equal(t, "hello", msg.Text)
	require.Equal(t, model.KindText, msg.Kind)
}

func TestSendToUserResolvesHandle(t *testing.T) {
	var sentPK string
	up := &fakeUpstream{
		userFn: func(handle string) (upstream.RawUser, error) {
			require.Equal(t, "bob", handle)
			return rawUser("7", "bob"), nil
		},
		sendUserFn: func(userPK, text string) (upstream.RawItem, error) {
			sentPK = userPK
			return textItem("m6", "42", text, 1700000000000000), nil
		},
	}
	s := NewService(up, zap.NewNop())

	msg, err := s.SendToUser(context.Background(), "42", "@bob", "hi")
	require.NoError(t, err)
	require.Equal(t, "7", sentPK)
	require.Equal(t, "hi", msg.Text)
	require.True(t, msg.IsSentByViewer)
}

func TestUserStripsAtPrefix(t *testing.T) {
	up := &fakeUpstream{
		userFn: func(handle string) (upstream.RawUser, error) {
			require.Equal(t, "bob", handle)
			return upstream.RawUser{PK: json.Number("7"), Username: "bob", FullName: "Bob B", IsVerified: true}, nil
		},
	}
	s := NewService(up, zap.NewNop())

	user, err := s.User(context.Background(), "@bob")
	require.NoError(t, err)
	require.Equal(t, model.User{PK: "7", Username: "bob", FullName: "Bob B", IsVerified: true}, user)
}

func TestNormalizeMessageShapes(t *testing.T) {
	t.Parallel()

	t.Run("fails closed without identity", func(t *testing.T) {
		t.Parallel()
		_, err := normalizeMessage(upstream.RawItem{Text: "x"}, "1")
		require.Equal(t, errs.KindFatal, errs.KindOf(err))
	})

	t.Run("video media", func(t *testing.T) {
		t.Parallel()
		msg, err := normalizeMessage(upstream.RawItem{
			ItemID:   "m1",
			UserID:   json.Number("2"),
			ItemType: "media",
			Media:    &upstream.RawMedia{ThumbnailURL: "https://t", VideoURL: "https://v"},
		}, "1")
		require.NoError(t, err)
		require.Equal(t, model.KindMedia, msg.Kind)
		require.Equal(t, "video", msg.MediaType)
		require.Equal(t, "https://v", msg.MediaURL)
	})

	t.Run("photo media", func(t *testing.T) {
		t.Parallel()
		msg, err := normalizeMessage(upstream.RawItem{
			ItemID:   "m2",
			UserID:   json.Number("2"),
			ItemType: "media",
			Media:    &upstream.RawMedia{ThumbnailURL: "https://t"},
		}, "1")
		require.NoError(t, err)
		require.Equal(t, "photo", msg.MediaType)
		require.Equal(t, "https://t", msg.MediaURL)
	})

	t.Run("link", func(t *testing.T) {
		t.Parallel()
		msg, err := normalizeMessage(upstream.RawItem{
			ItemID:   "m3",
			UserID:   json.Number("1"),
			ItemType: "link",
			Link:     &upstream.RawLink{URL: "https://x", Title: "X"},
		}, "1")
		require.NoError(t, err)
		require.Equal(t, model.KindOther, msg.Kind)
		require.Equal(t, "https://x", msg.LinkURL)
		require.Equal(t, "X", msg.LinkTitle)
		require.True(t, msg.IsSentByViewer)
	})

	t.Run("microsecond timestamps", func(t *testing.T) {
		t.Parallel()
		msg, err := normalizeMessage(textItem("m4", "2", "hi", 1700000000000000), "1")
		require.NoError(t, err)
		require.Equal(t, time.UnixMicro(1700000000000000).UTC(), msg.Timestamp)
	})
}

func TestNormalizeConversationPreview(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		item     upstream.RawItem
		wantText string
		wantKind model.Kind
	}{
		{
			name:     "text passes through",
			item:     textItem("m1", "2", "see you there", 1),
			wantText: "see you there",
			wantKind: model.KindText,
		},
		{
			name:     "photo placeholder",
			item:     upstream.RawItem{ItemID: "m2", ItemType: "media"},
			wantText: "Photo",
			wantKind: model.KindMedia,
		},
		{
			name:     "voice placeholder",
			item:     upstream.RawItem{ItemID: "m3", ItemType: "voice_media"},
			wantText: "Voice Message",
			wantKind: model.KindMedia,
		},
		{
			name:     "reel placeholder",
			item:     upstream.RawItem{ItemID: "m4", ItemType: "reel_share"},
			wantText: "Shared Reel",
			wantKind: model.KindOther,
		},
		{
			name:     "unknown type bracketed",
			item:     upstream.RawItem{ItemID: "m5", ItemType: "placeholder"},
			wantText: "[placeholder]",
			wantKind: model.KindOther,
		},
		{
			name:     "empty type bracketed",
			item:     upstream.RawItem{ItemID: "m6"},
			wantText: "[unknown]",
			wantKind: model.KindOther,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raw := rawThread("t1", false, rawUser("2", "bob"))
			raw.Items = []upstream.RawItem{tt.item}
			conv, err := normalizeConversation(raw)
			require.NoError(t, err)
			require.Equal(t, tt.wantText, conv.LastMessageText)
			require.Equal(t, tt.wantKind, conv.LastMessageKind)
		})
	}
}

func TestNormalizeConversationTitleAndGrouping(t *testing.T) {
	raw := rawThread("t1", false, rawUser("2", "bob"), rawUser("3", "carol"))
	conv, err := normalizeConversation(raw)
	require.NoError(t, err)
	require.Equal(t, "bob, carol", conv.Title)
	require.True(t, conv.IsGroup)

	raw.ThreadTitle = "weekend plans"
	conv, err = normalizeConversation(raw)
	require.NoError(t, err)
	require.Equal(t, "weekend plans", conv.Title)

	oneOnOne := rawThread("t2", false, rawUser("2", "bob"))
	conv, err = normalizeConversation(oneOnOne)
	require.NoError(t, err)
	require.False(t, conv.IsGroup)
	require.Equal(t, "bob", conv.Title)
}

func TestNormalizeConversationFailsClosed(t *testing.T) {
	_, err := normalizeConversation(upstream.RawThread{})
	require.Equal(t, errs.KindFatal, errs.KindOf(err))
}

func TestNormalizeConversationActivityFallback(t *testing.T) {
	raw := upstream.RawThread{
		ThreadID: "t1",
		Items:    []upstream.RawItem{textItem("m1", "2", "hi", 1700000000000000)},
	}
	conv, err := normalizeConversation(raw)
	require.NoError(t, err)
	require.Equal(t, time.UnixMicro(1700000000000000).UTC(), conv.LastActivityAt)
}
