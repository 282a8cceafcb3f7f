// internal/messenger/simulator.go
// Mock real-time simulator: fabricates a counterpart's typing and reply
// behavior on a timer, with no real transport behind it. Unlike the
// original bare timers, every scheduled reply is a cancellable task keyed
// by chat id, so removing a chat or shutting the service down cannot leave
// a timer mutating shared state afterwards.

package messenger

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Simulator struct {
	dir   *Directory
	users ParticipantDirectory
	hub   Broadcaster
	log   *zap.SugaredLogger

	minDelay time.Duration
	maxDelay time.Duration

	mu      sync.Mutex
	tasks   map[string]map[int64]context.CancelFunc // chat id -> task id -> cancel
	nextID  int64
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool
}

func NewSimulator(dir *Directory, users ParticipantDirectory, minDelay, maxDelay time.Duration, log *zap.SugaredLogger) *Simulator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Simulator{
		dir:      dir,
		users:    users,
		log:      log,
		minDelay: minDelay,
		maxDelay: maxDelay,
		tasks:    make(map[string]map[int64]context.CancelFunc),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetBroadcaster wires the hub after construction to avoid a circular
// dependency during bootstrap.
func (s *Simulator) SetBroadcaster(hub Broadcaster) {
	s.hub = hub
}

// ScheduleReply picks one counterpart of senderID in the chat, marks them
// typing, and delivers a canned reply after a randomized delay. No-op for
// chats with no other participants.
func (s *Simulator) ScheduleReply(chatID, senderID, sourceText string) {
	chat, err := s.dir.GetChat(chatID)
	if err != nil {
		return
	}
	others := chat.OtherParticipants(senderID)
	if len(others) == 0 || chat.Type == ChatTypeAI {
		return
	}

	replierID := others[rand.Intn(len(others))]
	ind := TypingIndicator{UserID: replierID, UserName: s.displayName(replierID)}

	if err := s.dir.SetTyping(s.ctx, chatID, ind, true); err != nil {
		return
	}
	s.broadcastTyping(chat, ind, true)

	taskCtx, taskID, ok := s.register(chatID)
	if !ok {
		// Shutting down; undo the typing mark.
		s.dir.SetTyping(context.Background(), chatID, ind, false)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.unregister(chatID, taskID)

		timer := time.NewTimer(s.delay())
		defer timer.Stop()

		select {
		case <-taskCtx.Done():
			// Cancelled mid-delay: clear the indicator, touch nothing else.
			s.dir.SetTyping(context.Background(), chatID, ind, false)
			s.broadcastTyping(chat, ind, false)
			RecordMockReplyCancelled()
			return
		case <-timer.C:
		}

		reply := &Message{
			ID:        uuid.NewString(),
			ChatID:    chatID,
			SenderID:  replierID,
			Text:      cannedReply(sourceText),
			Timestamp: Now(),
			Status:    StatusDelivered,
		}
		if err := s.dir.RecordIncoming(s.ctx, reply); err != nil {
			s.log.Warnw("mock reply dropped", "chatId", chatID, "error", err)
			return
		}
		RecordMockReply()
		s.broadcastMessage(chat, reply)
	}()
}

// CancelChat aborts every pending reply for one chat.
func (s *Simulator) CancelChat(chatID string) {
	s.mu.Lock()
	cancels := s.tasks[chatID]
	delete(s.tasks, chatID)
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Shutdown cancels all pending replies and waits for tasks to unwind.
func (s *Simulator) Shutdown() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Simulator) register(chatID string) (context.Context, int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, 0, false
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.nextID++
	id := s.nextID
	if s.tasks[chatID] == nil {
		s.tasks[chatID] = make(map[int64]context.CancelFunc)
	}
	s.tasks[chatID][id] = cancel
	return ctx, id, true
}

func (s *Simulator) unregister(chatID string, taskID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancels, ok := s.tasks[chatID]; ok {
		if cancel, ok := cancels[taskID]; ok {
			cancel()
			delete(cancels, taskID)
		}
		if len(cancels) == 0 {
			delete(s.tasks, chatID)
		}
	}
}

func (s *Simulator) delay() time.Duration {
	if s.maxDelay <= s.minDelay {
		return s.minDelay
	}
	return s.minDelay + time.Duration(rand.Int63n(int64(s.maxDelay-s.minDelay)))
}

func (s *Simulator) displayName(userID string) string {
	if s.users == nil {
		return userID
	}
	info, err := s.users.Info(context.Background(), userID)
	if err != nil || info == nil {
		return userID
	}
	return info.Name
}

func (s *Simulator) broadcastTyping(chat *Chat, ind TypingIndicator, typing bool) {
	if s.hub == nil {
		return
	}
	eventType := WSTypeTyping
	if !typing {
		eventType = WSTypeStopTyping
	}
	s.hub.BroadcastToChat(chat, NewWSMessage(eventType, map[string]interface{}{
		"chatId":   chat.ID,
		"userId":   ind.UserID,
		"userName": ind.UserName,
	}), ind.UserID)
}

func (s *Simulator) broadcastMessage(chat *Chat, msg *Message) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToChat(chat, NewWSMessage(WSTypeMessage, msg), msg.SenderID)
}

// cannedReply echoes the start of the message it answers. Truncation is
// by rune so a multi-byte character is never split.
func cannedReply(sourceText string) string {
	preview := sourceText
	if runes := []rune(preview); len(runes) > 20 {
		preview = string(runes[:20])
	}
	return fmt.Sprintf("Got it! %q...", preview)
}
