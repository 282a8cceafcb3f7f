// internal/messenger/service_test.go

package messenger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giit-community/futurenet-backend/internal/assistant"
	"github.com/giit-community/futurenet-backend/internal/common/logger"
)

// fakeUsers resolves a fixed set of user ids, naming each "Name <id>".
type fakeUsers struct {
	known map[string]bool
}

func newFakeUsers(ids ...string) *fakeUsers {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	return &fakeUsers{known: known}
}

func (f *fakeUsers) Info(ctx context.Context, userID string) (*UserInfo, error) {
	if userID == AssistantUserID {
		return &UserInfo{ID: AssistantUserID, Name: "GiiT Assistant", IsOnline: true}, nil
	}
	if !f.known[userID] {
		return nil, context.Canceled
	}
	return &UserInfo{ID: userID, Name: "Name " + userID}, nil
}

// fakeAssistant returns a fixed reply, or a fixed error.
type fakeAssistant struct {
	reply *assistant.Reply
	err   error
}

func (f *fakeAssistant) GenerateReply(ctx context.Context, prompt string, history []assistant.Turn) (*assistant.Reply, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func newTestService(t *testing.T, ai AssistantClient, userIDs ...string) (*Service, *Directory) {
	t.Helper()
	d, _ := newTestDirectory(t)
	users := newFakeUsers(userIDs...)
	sim := NewSimulator(d, users, time.Millisecond, 2*time.Millisecond, logger.Nop())
	svc := NewService(d, users, sim, ai, logger.Nop())
	t.Cleanup(svc.Shutdown)
	return svc, d
}

func TestSendMessageRejectsInvalidPayload(t *testing.T) {
	svc, _ := newTestService(t, nil, "alice", "bob")
	ctx := context.Background()

	view, err := svc.StartPrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	// Empty payload.
	_, err = svc.SendMessage(ctx, "alice", &SendMessageRequest{ChatID: view.ID})
	assert.ErrorIs(t, err, ErrValidation)

	// Two payload fields at once.
	_, err = svc.SendMessage(ctx, "alice", &SendMessageRequest{
		ChatID: view.ID,
		Payload: Payload{
			Text:     "hi",
			ImageURL: "https://example.com/pic.png",
		},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	svc, _ := newTestService(t, nil, "alice", "bob", "mallory")
	ctx := context.Background()

	view, err := svc.StartPrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "mallory", &SendMessageRequest{
		ChatID:  view.ID,
		Payload: Payload{Text: "let me in"},
	})
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestSendMessageTriggersMockReply(t *testing.T) {
	svc, d := newTestService(t, nil, "alice", "bob")
	ctx := context.Background()

	view, err := svc.StartPrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	sent, err := svc.SendMessage(ctx, "alice", &SendMessageRequest{
		ChatID:  view.ID,
		Payload: Payload{Text: "anyone around?"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSent, sent.Status)

	// The simulated counterpart answers after its delay.
	require.Eventually(t, func() bool {
		return len(d.MessagesFor(view.ID)) == 2
	}, 2*time.Second, 5*time.Millisecond)

	reply := d.MessagesFor(view.ID)[1]
	assert.Equal(t, "bob", reply.SenderID)
	assert.Equal(t, StatusDelivered, reply.Status)
}

func TestAssistantChatGeneratesReply(t *testing.T) {
	ai := &fakeAssistant{reply: &assistant.Reply{Text: "Go is a statically typed language."}}
	svc, d := newTestService(t, ai, "alice")
	ctx := context.Background()

	view, err := svc.StartAssistantChat(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, ChatTypeAI, view.Type)

	_, err = svc.SendMessage(ctx, "alice", &SendMessageRequest{
		ChatID:  view.ID,
		Payload: Payload{Text: "what is Go?"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(d.MessagesFor(view.ID)) == 2
	}, 2*time.Second, 5*time.Millisecond)

	reply := d.MessagesFor(view.ID)[1]
	assert.True(t, reply.IsAIMessage)
	assert.Equal(t, AssistantUserID, reply.SenderID)
	assert.Equal(t, "Go is a statically typed language.", reply.Text)
}

func TestAssistantReplyIncludesSources(t *testing.T) {
	ai := &fakeAssistant{reply: &assistant.Reply{
		Text: "According to the docs.",
		Sources: []assistant.Source{
			{Title: "Go spec", URI: "https://go.dev/ref/spec"},
		},
	}}
	svc, d := newTestService(t, ai, "alice")
	ctx := context.Background()

	view, err := svc.StartAssistantChat(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "alice", &SendMessageRequest{
		ChatID:  view.ID,
		Payload: Payload{Text: "cite something"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(d.MessagesFor(view.ID)) == 2
	}, 2*time.Second, 5*time.Millisecond)

	reply := d.MessagesFor(view.ID)[1]
	assert.Contains(t, reply.Text, "Sources:")
	assert.Contains(t, reply.Text, "https://go.dev/ref/spec")
}

func TestAssistantFailureFallsBackInChat(t *testing.T) {
	ai := &fakeAssistant{err: assistant.ErrRateLimited}
	svc, d := newTestService(t, ai, "alice")
	ctx := context.Background()

	view, err := svc.StartAssistantChat(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "alice", &SendMessageRequest{
		ChatID:  view.ID,
		Payload: Payload{Text: "hello?"},
	})
	require.NoError(t, err)

	// The failure surfaces as an in-chat message, not an error.
	require.Eventually(t, func() bool {
		return len(d.MessagesFor(view.ID)) == 2
	}, 2*time.Second, 5*time.Millisecond)

	reply := d.MessagesFor(view.ID)[1]
	assert.True(t, reply.IsAIMessage)
	assert.Contains(t, reply.Text, "too many requests")
}

func TestAssistantDisabledFallsBackInChat(t *testing.T) {
	svc, d := newTestService(t, nil, "alice")
	ctx := context.Background()

	view, err := svc.StartAssistantChat(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "alice", &SendMessageRequest{
		ChatID:  view.ID,
		Payload: Payload{Text: "anyone home?"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(d.MessagesFor(view.ID)) == 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.Contains(t, d.MessagesFor(view.ID)[1].Text, "not available")
}

func TestStartPrivateChatRequiresKnownUser(t *testing.T) {
	svc, _ := newTestService(t, nil, "alice")

	_, err := svc.StartPrivateChat(context.Background(), "alice", "nobody")
	assert.Error(t, err)
}

func TestMessagesRequiresParticipant(t *testing.T) {
	svc, _ := newTestService(t, nil, "alice", "bob", "mallory")
	ctx := context.Background()

	view, err := svc.StartPrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = svc.Messages(ctx, view.ID, "mallory")
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestChatViewsConcurrentWithIncomingReplies(t *testing.T) {
	svc, d := newTestService(t, nil, "alice", "bob")
	ctx := context.Background()

	view, err := svc.StartPrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	// Readers projecting views while replies land must never observe a
	// half-written chat record.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			svc.ChatViews(ctx, "alice")
		}
	}()
	for i := 0; i < 200; i++ {
		require.NoError(t, d.RecordIncoming(ctx, NewTextMessage(view.ID, "bob", "ping")))
	}
	wg.Wait()

	got, err := d.GetChat(view.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, got.UnreadCount)
	assert.Len(t, d.MessagesFor(view.ID), 200)
}

func TestChatViewsResolveParticipants(t *testing.T) {
	svc, _ := newTestService(t, nil, "alice", "bob")
	ctx := context.Background()

	_, err := svc.StartPrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	views := svc.ChatViews(ctx, "alice")
	require.Len(t, views, 1)
	require.Len(t, views[0].Participants, 2)

	names := []string{views[0].Participants[0].Name, views[0].Participants[1].Name}
	assert.Contains(t, names, "Name alice")
	assert.Contains(t, names, "Name bob")
}
