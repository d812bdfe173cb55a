package eventchat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var localUser = Participant{ID: "7", FirstName: "Mia"}

func openTestRoom(t *testing.T, srv *chatServer) *Room {
	t.Helper()
	room, err := Open(context.Background(), testConfig(srv.wsURL()), "evt-1", localUser)
	require.NoError(t, err)
	t.Cleanup(func() { room.Close() })
	return room
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, baseTimeout, 10*time.Millisecond, msg)
}

func TestRoomHistorySeedsLog(t *testing.T) {
	srv := newChatServer(t, nil)
	room := openTestRoom(t, srv)
	conn := srv.awaitConn()

	ava := testParticipant("42", "Ava")
	srv.push(conn, frameChatHistory, HistoryPayload{Messages: []Message{
		testMessage(1, ava, "first"),
		testMessage(2, ava, "second"),
		testMessage(3, ava, "third"),
	}})

	eventually(t, func() bool { return len(room.Messages()) == 3 }, "history replay")
	msgs := room.Messages()
	assert.Equal(t, int64(1), msgs[0].ID)
	assert.Equal(t, int64(2), msgs[1].ID)
	assert.Equal(t, int64(3), msgs[2].ID)
	assert.Equal(t, 0, room.Unread(), "replayed history never counts as unread")
}

func TestRoomDuplicateDelivery(t *testing.T) {
	srv := newChatServer(t, nil)
	room := openTestRoom(t, srv)
	conn := srv.awaitConn()

	ava := testParticipant("42", "Ava")
	dup := testMessage(5, ava, "hello")
	srv.push(conn, frameChatMessage, dup)
	srv.push(conn, frameChatMessage, dup)
	// Sentinel message so the test can tell when both pushes are processed.
	srv.push(conn, frameChatMessage, testMessage(6, ava, "later"))

	eventually(t, func() bool {
		msgs := room.Messages()
		return len(msgs) > 0 && msgs[len(msgs)-1].ID == 6
	}, "sentinel processed")

	assert.Equal(t, 2, len(room.Messages()), "duplicate id appended once")
	assert.Equal(t, 2, room.Unread(), "duplicate id counted once")
}

func TestRoomExpandResetsUnread(t *testing.T) {
	srv := newChatServer(t, nil)
	room := openTestRoom(t, srv)
	conn := srv.awaitConn()

	ava := testParticipant("42", "Ava")
	for i := int64(1); i <= 5; i++ {
		srv.push(conn, frameChatMessage, testMessage(i, ava, "msg"))
	}
	eventually(t, func() bool { return room.Unread() == 5 }, "unread accrues while collapsed")

	room.SetExpanded(true)
	assert.Equal(t, 0, room.Unread())

	srv.push(conn, frameChatMessage, testMessage(100, ava, "while expanded"))
	eventually(t, func() bool { return len(room.Messages()) == 6 }, "message while expanded lands in log")
	assert.Equal(t, 0, room.Unread(), "no accrual while expanded")
}

func TestRoomLocalSenderNeverCountsUnread(t *testing.T) {
	srv := newChatServer(t, nil)
	room := openTestRoom(t, srv)
	conn := srv.awaitConn()

	srv.push(conn, frameChatMessage, testMessage(1, localUser, "my own echo"))
	eventually(t, func() bool { return len(room.Messages()) == 1 }, "echo lands in log")
	assert.Equal(t, 0, room.Unread())
}

func TestRoomSendMessage(t *testing.T) {
	srv := newChatServer(t, nil)
	room := openTestRoom(t, srv)
	srv.awaitConn()
	ctx := context.Background()

	// Whitespace-only body is a silent no-op.
	require.NoError(t, room.SendMessage(ctx, "   "))

	// Body is trimmed on the wire.
	require.NoError(t, room.SendMessage(ctx, "  hi  "))

	eventually(t, func() bool { return len(srv.frames()) == 1 }, "one frame on the wire")
	frames := srv.frames()
	require.Equal(t, frameChatMessage, frames[0].Type)
	data, ok := frames[0].Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hi", data["body"])
}

func TestRoomSendAfterCloseReturnsClosed(t *testing.T) {
	srv := newChatServer(t, nil)
	room := openTestRoom(t, srv)
	srv.awaitConn()

	require.NoError(t, room.Close())

	err := room.SendMessage(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, room.SignalTyping(context.Background()), ErrClosed)
}

func TestRoomCloseStopsTypingSweeper(t *testing.T) {
	srv := newChatServer(t, nil)

	first, err := Open(context.Background(), testConfig(srv.wsURL()), "evt-1", localUser)
	require.NoError(t, err)
	srv.awaitConn()

	second, err := Open(context.Background(), testConfig(srv.wsURL()), "evt-2", localUser)
	require.NoError(t, err)
	conn2 := srv.awaitConn()
	t.Cleanup(func() { second.Close() })

	eventually(t, func() bool {
		return goroutinesIn("eventchat.(*Room).sweepTyping") == 2
	}, "one sweeper per open room")

	require.NoError(t, first.Close())

	eventually(t, func() bool {
		return goroutinesIn("eventchat.(*Room).sweepTyping") == 1
	}, "closed room's sweeper stopped")

	// The sibling room is untouched.
	srv.push(conn2, frameUserTyping, testParticipant("42", "Ava"))
	eventually(t, func() bool {
		return len(second.Snapshot().TypingNames) == 1
	}, "sibling room keeps sweeping and dispatching")
}

func TestRoomPresenceFlow(t *testing.T) {
	srv := newChatServer(t, nil)
	room := openTestRoom(t, srv)
	conn := srv.awaitConn()

	srv.push(conn, frameUserJoin, testParticipant("42", "Ava"))
	srv.push(conn, frameUserJoin, testParticipant("42", "Ava"))
	srv.push(conn, frameUserJoin, testParticipant("43", "Ben"))

	eventually(t, func() bool { return room.OnlineCount() == 2 }, "two online after idempotent joins")

	srv.push(conn, frameUserLeave, LeavePayload{ID: "42"})
	eventually(t, func() bool { return room.OnlineCount() == 1 }, "leave shrinks the set")
}

func TestRoomTypingIndicator(t *testing.T) {
	srv := newChatServer(t, nil)
	room := openTestRoom(t, srv)
	conn := srv.awaitConn()

	srv.push(conn, frameUserTyping, testParticipant("42", "Ava"))

	eventually(t, func() bool {
		names := room.Snapshot().TypingNames
		return len(names) == 1 && names[0] == "Ava"
	}, "typing indicator visible")
}

func TestRoomIgnoresUnrecognizedFrames(t *testing.T) {
	srv := newChatServer(t, nil)
	room := openTestRoom(t, srv)
	conn := srv.awaitConn()

	srv.push(conn, "server_announcement", map[string]any{"text": "maintenance at noon"})
	srv.push(conn, frameChatMessage, testMessage(1, testParticipant("42", "Ava"), "still alive"))

	eventually(t, func() bool { return len(room.Messages()) == 1 }, "connection survives unknown frame")
	assert.Equal(t, StateConnected, room.State())
}

func TestRoomSignalTypingOnWire(t *testing.T) {
	srv := newChatServer(t, nil)
	room := openTestRoom(t, srv)
	srv.awaitConn()

	require.NoError(t, room.SignalTyping(context.Background()))

	eventually(t, func() bool {
		frames := srv.frames()
		return len(frames) == 1 && frames[0].Type == frameTyping
	}, "typing frame on the wire")
}

func TestRoomSnapshot(t *testing.T) {
	srv := newChatServer(t, nil)
	room := openTestRoom(t, srv)
	conn := srv.awaitConn()

	srv.push(conn, frameChatHistory, HistoryPayload{Messages: []Message{
		testMessage(1, testParticipant("42", "Ava"), "hello"),
	}})
	srv.push(conn, frameUserJoin, testParticipant("42", "Ava"))

	eventually(t, func() bool {
		snap := room.Snapshot()
		return len(snap.Messages) == 1 && snap.OnlineCount == 1
	}, "snapshot reflects state")

	snap := room.Snapshot()
	assert.Equal(t, "evt-1", snap.RoomID)
	assert.Equal(t, StateConnected, snap.State)
	assert.False(t, snap.Expanded)
	assert.Equal(t, "", snap.UnreadBadge)
}
