// internal/messenger/directory_test.go

package messenger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giit-community/futurenet-backend/internal/common/logger"
	"github.com/giit-community/futurenet-backend/internal/store"
)

func newTestDirectory(t *testing.T) (*Directory, *store.Store) {
	t.Helper()
	st := store.New(store.NewMemoryKV(), logger.Nop())
	return NewDirectory(context.Background(), st, logger.Nop()), st
}

func TestFindOrCreatePrivateChatIsIdempotent(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	first, created, err := d.FindOrCreatePrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, ChatTypePrivate, first.Type)

	// Same pair, either order, resolves to the same chat.
	again, created, err := d.FindOrCreatePrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	reversed, created, err := d.FindOrCreatePrivateChat(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, reversed.ID)
}

func TestFindOrCreatePrivateChatRejectsSelfAndEmpty(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	_, _, err := d.FindOrCreatePrivateChat(ctx, "alice", "alice")
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = d.FindOrCreatePrivateChat(ctx, "", "bob")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateGroupChatIncludesCreator(t *testing.T) {
	d, _ := newTestDirectory(t)

	chat, err := d.CreateGroupChat(context.Background(), "Go Study Group", []string{"bob", "carol"}, "alice")
	require.NoError(t, err)

	assert.Equal(t, ChatTypeGroup, chat.Type)
	assert.True(t, chat.HasParticipant("alice"))
	assert.True(t, chat.HasParticipant("bob"))
	assert.True(t, chat.HasParticipant("carol"))
}

func TestCreateGroupChatValidationLeavesNoResidue(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	_, err := d.CreateGroupChat(ctx, "", []string{"bob", "carol"}, "alice")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = d.CreateGroupChat(ctx, "Lonely", nil, "alice")
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, d.ListChats("alice"))
}

func TestFindOrCreateAIChatOnePerUser(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	first, created, err := d.FindOrCreateAIChat(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, ChatTypeAI, first.Type)
	assert.True(t, first.HasParticipant(AssistantUserID))

	again, created, err := d.FindOrCreateAIChat(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	// A different user gets their own assistant conversation.
	other, created, err := d.FindOrCreateAIChat(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestUnreadAccounting(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	chat, _, err := d.FindOrCreatePrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	unread := func() int {
		got, err := d.GetChat(chat.ID)
		require.NoError(t, err)
		return got.UnreadCount
	}

	// Outgoing messages never count as unread.
	require.NoError(t, d.RecordOutgoing(ctx, NewTextMessage(chat.ID, "alice", "hi bob")))
	assert.Equal(t, 0, unread())

	// An incoming reply counts while no recipient is viewing.
	require.NoError(t, d.RecordIncoming(ctx, NewTextMessage(chat.ID, "bob", "hey")))
	assert.Equal(t, 1, unread())

	// With alice viewing the chat, bob's messages land already-read.
	require.NoError(t, d.SetActive(ctx, "alice", chat.ID))
	assert.Equal(t, 0, unread())
	require.NoError(t, d.RecordIncoming(ctx, NewTextMessage(chat.ID, "bob", "still there?")))
	assert.Equal(t, 0, unread())

	// Deselecting resumes counting.
	require.NoError(t, d.SetActive(ctx, "alice", ""))
	require.NoError(t, d.RecordIncoming(ctx, NewTextMessage(chat.ID, "bob", "hello?")))
	assert.Equal(t, 1, unread())

	require.NoError(t, d.MarkRead(ctx, chat.ID))
	assert.Equal(t, 0, unread())
}

func TestRecordUpdatesLastMessageAndClearsTyping(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	chat, _, err := d.FindOrCreatePrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	require.NoError(t, d.SetTyping(ctx, chat.ID, TypingIndicator{UserID: "bob", UserName: "Bob"}, true))
	got, err := d.GetChat(chat.ID)
	require.NoError(t, err)
	require.Len(t, got.Typing, 1)

	msg := NewTextMessage(chat.ID, "bob", "done typing")
	require.NoError(t, d.RecordIncoming(ctx, msg))

	got, err = d.GetChat(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.LastMessage.ID)
	assert.Empty(t, got.Typing, "sending clears the sender's typing indicator")
}

func TestAccessorsReturnSnapshots(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	chat, _, err := d.FindOrCreatePrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	// Scribbling on a returned record must not reach the directory.
	chat.UnreadCount = 99
	chat.Name = "hijacked"
	chat.Typing = append(chat.Typing, TypingIndicator{UserID: "mallory"})

	got, err := d.GetChat(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCount)
	assert.Empty(t, got.Name)
	assert.Empty(t, got.Typing)

	// And a snapshot taken before a mutation stays as it was.
	before, err := d.GetChat(chat.ID)
	require.NoError(t, err)
	require.NoError(t, d.RecordIncoming(ctx, NewTextMessage(chat.ID, "bob", "new state")))
	assert.Nil(t, before.LastMessage)
	assert.Equal(t, 0, before.UnreadCount)
}

func TestListChatsOrdersByRecency(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	older, _, err := d.FindOrCreatePrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)
	newer, _, err := d.FindOrCreatePrivateChat(ctx, "alice", "carol")
	require.NoError(t, err)
	silent, _, err := d.FindOrCreatePrivateChat(ctx, "alice", "dave")
	require.NoError(t, err)

	base := Now()
	require.NoError(t, d.RecordOutgoing(ctx, msgAt(older.ID, "alice", "old", base)))
	require.NoError(t, d.RecordOutgoing(ctx, msgAt(newer.ID, "alice", "new", base.Add(time.Minute))))

	got := d.ListChats("alice")
	require.Len(t, got, 3)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
	// Chats with no messages sort last.
	assert.Equal(t, silent.ID, got[2].ID)
}

func TestListChatsFiltersByParticipant(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	_, _, err := d.FindOrCreatePrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)
	_, _, err = d.FindOrCreatePrivateChat(ctx, "carol", "dave")
	require.NoError(t, err)

	assert.Len(t, d.ListChats("alice"), 1)
	assert.Len(t, d.ListChats("carol"), 1)
	assert.Empty(t, d.ListChats("mallory"))
}

func TestDirectorySurvivesRestart(t *testing.T) {
	st := store.New(store.NewMemoryKV(), logger.Nop())
	ctx := context.Background()

	d := NewDirectory(ctx, st, logger.Nop())
	chat, _, err := d.FindOrCreatePrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NoError(t, d.RecordOutgoing(ctx, NewTextMessage(chat.ID, "alice", "persist me")))

	// A fresh directory over the same store sees the same state.
	reloaded := NewDirectory(ctx, st, logger.Nop())
	got, err := reloaded.GetChat(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, got.ID)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, "persist me", got.LastMessage.Text)

	msgs := reloaded.MessagesFor(chat.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, "persist me", msgs[0].Text)
}

func TestGetChatNotFound(t *testing.T) {
	d, _ := newTestDirectory(t)
	_, err := d.GetChat("missing")
	assert.ErrorIs(t, err, ErrChatNotFound)
}
