// internal/messenger/simulator_test.go

package messenger

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giit-community/futurenet-backend/internal/common/logger"
)

func TestSimulatorDeliversReply(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	chat, _, err := d.FindOrCreatePrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NoError(t, d.RecordOutgoing(ctx, NewTextMessage(chat.ID, "alice", "hello bob")))

	sim := NewSimulator(d, newFakeUsers("alice", "bob"), time.Millisecond, 2*time.Millisecond, logger.Nop())
	defer sim.Shutdown()

	sim.ScheduleReply(chat.ID, "alice", "hello bob")

	require.Eventually(t, func() bool {
		return len(d.MessagesFor(chat.ID)) == 2
	}, 2*time.Second, 5*time.Millisecond)

	msgs := d.MessagesFor(chat.ID)
	reply := msgs[1]
	assert.Equal(t, "bob", reply.SenderID)
	assert.Equal(t, StatusDelivered, reply.Status)
	assert.Contains(t, reply.Text, "Got it!")

	got, err := d.GetChat(chat.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Typing, "indicator clears when the reply lands")
}

func TestSimulatorCancelChat(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	chat, _, err := d.FindOrCreatePrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	// A delay long enough that only cancellation can end the task.
	sim := NewSimulator(d, newFakeUsers("alice", "bob"), time.Hour, 2*time.Hour, logger.Nop())
	defer sim.Shutdown()

	sim.ScheduleReply(chat.ID, "alice", "never answered")
	pending, err := d.GetChat(chat.ID)
	require.NoError(t, err)
	require.Len(t, pending.Typing, 1)

	sim.CancelChat(chat.ID)

	require.Eventually(t, func() bool {
		got, err := d.GetChat(chat.ID)
		return err == nil && len(got.Typing) == 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, d.MessagesFor(chat.ID), "cancelled reply never lands")
}

func TestSimulatorShutdownStopsPendingTasks(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	chat, _, err := d.FindOrCreatePrivateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	sim := NewSimulator(d, newFakeUsers("alice", "bob"), time.Hour, 2*time.Hour, logger.Nop())
	sim.ScheduleReply(chat.ID, "alice", "shutting down")
	sim.Shutdown()

	assert.Empty(t, d.MessagesFor(chat.ID))

	// No new tasks are accepted after shutdown.
	sim.ScheduleReply(chat.ID, "alice", "too late")
	got, err := d.GetChat(chat.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Typing)
}

func TestSimulatorSkipsAssistantChats(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	chat, _, err := d.FindOrCreateAIChat(ctx, "alice")
	require.NoError(t, err)

	sim := NewSimulator(d, newFakeUsers("alice"), time.Millisecond, 2*time.Millisecond, logger.Nop())
	defer sim.Shutdown()

	sim.ScheduleReply(chat.ID, "alice", "assistant handles this")
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, d.MessagesFor(chat.ID))
}

func TestCannedReplyTruncatesPreview(t *testing.T) {
	long := "this message is definitely longer than twenty characters"
	got := cannedReply(long)
	assert.Contains(t, got, long[:20])
	assert.NotContains(t, got, long)

	short := cannedReply("hi")
	assert.Contains(t, short, "hi")
}

func TestCannedReplyKeepsRuneBoundaries(t *testing.T) {
	text := strings.Repeat("é", 30)
	got := cannedReply(text)

	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, strings.Repeat("é", 20))
	assert.NotContains(t, got, strings.Repeat("é", 21))
}
