// internal/messenger/service.go
// Conversation view controller: message projection, sending, and the
// assistant/mock-reply side effects. All state changes funnel into the
// Directory; this layer adds validation, participant resolution, event
// broadcast, and the collaborator calls.

package messenger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/giit-community/futurenet-backend/internal/assistant"
)

// assistantTimeout bounds one generate call.
const assistantTimeout = 40 * time.Second

// AssistantClient is the external reply generator for assistant chats.
// A nil client means the assistant is disabled; assistant chats then get
// a fixed fallback reply instead of a generated one.
type AssistantClient interface {
	GenerateReply(ctx context.Context, prompt string, history []assistant.Turn) (*assistant.Reply, error)
}

type Service struct {
	dir   *Directory
	users ParticipantDirectory
	sim   *Simulator
	ai    AssistantClient
	hub   Broadcaster
	log   *zap.SugaredLogger

	// At most one assistant call in flight per chat. A second send while
	// a reply is pending skips the collaborator instead of racing it.
	aiMu   sync.Mutex
	aiBusy map[string]bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewService(dir *Directory, users ParticipantDirectory, sim *Simulator, ai AssistantClient, log *zap.SugaredLogger) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		dir:    dir,
		users:  users,
		sim:    sim,
		ai:     ai,
		log:    log,
		aiBusy: make(map[string]bool),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetBroadcaster wires the hub after initialization to avoid a circular
// dependency.
func (s *Service) SetBroadcaster(hub Broadcaster) {
	s.hub = hub
	if s.sim != nil {
		s.sim.SetBroadcaster(hub)
	}
}

// Shutdown stops pending simulator tasks and waits for in-flight
// assistant calls to unwind.
func (s *Service) Shutdown() {
	s.cancel()
	if s.sim != nil {
		s.sim.Shutdown()
	}
	s.wg.Wait()
}

// ChatViews lists the user's chats, most recent first, with participants
// resolved to live user records.
func (s *Service) ChatViews(ctx context.Context, userID string) []*ChatView {
	chats := s.dir.ListChats(userID)
	views := make([]*ChatView, 0, len(chats))
	for _, c := range chats {
		views = append(views, s.view(ctx, c))
	}
	return views
}

// Messages projects the ordered message sequence of one chat. The caller
// must be a participant.
func (s *Service) Messages(ctx context.Context, chatID, userID string) ([]*Message, error) {
	chat, err := s.dir.GetChat(chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return s.dir.MessagesFor(chatID), nil
}

// SendMessage validates the payload, appends the message, keeps the chat
// summary in sync, and kicks off the counterpart reply: the assistant for
// ai chats, the simulator otherwise.
func (s *Service) SendMessage(ctx context.Context, senderID string, req *SendMessageRequest) (*Message, error) {
	chat, err := s.dir.GetChat(req.ChatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}
	if req.Payload.fieldCount() != 1 {
		// Exactly one of text/image/audio/doc carries the payload.
		return nil, ErrValidation
	}

	msg := &Message{
		ID:        newMessageID(),
		ChatID:    chat.ID,
		SenderID:  senderID,
		Text:      req.Payload.Text,
		ImageURL:  req.Payload.ImageURL,
		AudioURL:  req.Payload.AudioURL,
		DocURL:    req.Payload.DocURL,
		DocName:   req.Payload.DocName,
		Timestamp: Now(),
		Status:    StatusSent,
	}
	if err := s.dir.RecordOutgoing(ctx, msg); err != nil {
		return nil, err
	}
	RecordMessageSent(chat.Type)
	s.broadcastMessage(chat, msg)

	switch {
	case chat.Type == ChatTypeAI:
		s.spawnAssistantReply(chat, senderID, msg.Text)
	case len(chat.OtherParticipants(senderID)) > 0:
		if s.sim != nil {
			s.sim.ScheduleReply(chat.ID, senderID, msg.Text)
		}
	}

	return msg, nil
}

// StartPrivateChat finds or creates the DM between the two users.
func (s *Service) StartPrivateChat(ctx context.Context, userID, otherUserID string) (*ChatView, error) {
	if _, err := s.users.Info(ctx, otherUserID); err != nil {
		return nil, err
	}
	chat, _, err := s.dir.FindOrCreatePrivateChat(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, chat), nil
}

// CreateGroupChat creates a group conversation owned by creatorID.
func (s *Service) CreateGroupChat(ctx context.Context, creatorID string, req *CreateGroupChatRequest) (*ChatView, error) {
	chat, err := s.dir.CreateGroupChat(ctx, req.Name, req.ParticipantIDs, creatorID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, chat), nil
}

// StartAssistantChat finds or creates the user's assistant conversation.
func (s *Service) StartAssistantChat(ctx context.Context, userID string) (*ChatView, error) {
	chat, _, err := s.dir.FindOrCreateAIChat(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, chat), nil
}

// MarkRead resets the chat's unread counter.
func (s *Service) MarkRead(ctx context.Context, chatID, userID string) error {
	chat, err := s.dir.GetChat(chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return ErrNotParticipant
	}
	return s.dir.MarkRead(ctx, chatID)
}

// SetActive marks the chat the user is viewing; empty deselects.
func (s *Service) SetActive(ctx context.Context, userID, chatID string) error {
	return s.dir.SetActive(ctx, userID, chatID)
}

// Typing toggles the user's typing indicator on a chat.
func (s *Service) Typing(ctx context.Context, userID string, req *TypingRequest) error {
	chat, err := s.dir.GetChat(req.ChatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(userID) {
		return ErrNotParticipant
	}

	ind := TypingIndicator{UserID: userID, UserName: userID}
	if info, err := s.users.Info(ctx, userID); err == nil && info != nil {
		ind.UserName = info.Name
	}
	if err := s.dir.SetTyping(ctx, req.ChatID, ind, req.IsTyping); err != nil {
		return err
	}

	if s.hub != nil {
		eventType := WSTypeTyping
		if !req.IsTyping {
			eventType = WSTypeStopTyping
		}
		s.hub.BroadcastToChat(chat, NewWSMessage(eventType, map[string]interface{}{
			"chatId":   chat.ID,
			"userId":   ind.UserID,
			"userName": ind.UserName,
		}), userID)
	}
	return nil
}

// RemoveChatTasks cancels pending simulated replies for a chat.
func (s *Service) RemoveChatTasks(chatID string) {
	if s.sim != nil {
		s.sim.CancelChat(chatID)
	}
}

// spawnAssistantReply runs the collaborator call off the request path.
func (s *Service) spawnAssistantReply(chat *Chat, userID, prompt string) {
	s.aiMu.Lock()
	if s.aiBusy[chat.ID] {
		s.aiMu.Unlock()
		// A reply for this chat is already pending; don't start a second
		// outstanding request that could land out of order.
		RecordAIRequest("skipped_in_flight")
		return
	}
	s.aiBusy[chat.ID] = true
	s.aiMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.aiMu.Lock()
			delete(s.aiBusy, chat.ID)
			s.aiMu.Unlock()
		}()
		s.generateAssistantReply(chat, userID, prompt)
	}()
}

func (s *Service) generateAssistantReply(chat *Chat, userID, prompt string) {
	if s.ai == nil {
		RecordAIRequest("disabled")
		s.appendAssistantMessage(chat, "The GiiT assistant is not available right now. Please ask a community admin to configure it.")
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, assistantTimeout)
	defer cancel()

	history := s.assistantHistory(chat.ID, prompt)
	reply, err := s.ai.GenerateReply(ctx, prompt, history)
	if err != nil {
		RecordAIRequest(assistantOutcome(err))
		s.log.Warnw("assistant call failed", "chatId", chat.ID, "error", err)
		s.appendAssistantMessage(chat, assistantFallbackText(err))
		return
	}

	RecordAIRequest("ok")
	s.appendAssistantMessage(chat, formatAssistantReply(reply))
}

// assistantHistory converts the chat's prior text messages into turns,
// excluding the prompt itself (it was just appended to the ledger).
func (s *Service) assistantHistory(chatID, prompt string) []assistant.Turn {
	msgs := s.dir.MessagesFor(chatID)
	turns := make([]assistant.Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.Text == "" {
			continue
		}
		role := "user"
		if m.IsAIMessage {
			role = "model"
		}
		turns = append(turns, assistant.Turn{Role: role, Text: m.Text})
	}
	if n := len(turns); n > 0 && turns[n-1].Role == "user" && turns[n-1].Text == prompt {
		turns = turns[:n-1]
	}
	return turns
}

func (s *Service) appendAssistantMessage(chat *Chat, text string) {
	msg := &Message{
		ID:          newMessageID(),
		ChatID:      chat.ID,
		SenderID:    AssistantUserID,
		Text:        text,
		Timestamp:   Now(),
		Status:      StatusDelivered,
		IsAIMessage: true,
	}
	if err := s.dir.RecordIncoming(context.Background(), msg); err != nil {
		s.log.Warnw("assistant message dropped", "chatId", chat.ID, "error", err)
		return
	}
	s.broadcastMessage(chat, msg)
}

func (s *Service) broadcastMessage(chat *Chat, msg *Message) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToChat(chat, NewWSMessage(WSTypeMessage, msg), msg.SenderID)
}

func (s *Service) view(ctx context.Context, chat *Chat) *ChatView {
	v := &ChatView{Chat: *chat, Participants: make([]*UserInfo, 0, len(chat.ParticipantIDs))}
	for _, id := range chat.ParticipantIDs {
		info, err := s.users.Info(ctx, id)
		if err != nil || info == nil {
			// Unresolvable participant: keep the id visible rather than
			// dropping them from the roster.
			info = &UserInfo{ID: id, Name: id}
		}
		v.Participants = append(v.Participants, info)
	}
	return v
}

// assistantFallbackText converts a categorized collaborator failure into
// the in-chat system-style message shown to the user.
func assistantFallbackText(err error) string {
	switch {
	case errors.Is(err, assistant.ErrInvalidCredential):
		return "The assistant's API credential was rejected. Please ask a community admin to check the configuration."
	case errors.Is(err, assistant.ErrRateLimited):
		return "The assistant is handling too many requests right now. Please try again in a moment."
	default:
		return "Sorry, I couldn't come up with a reply just now. Please try again."
	}
}

func assistantOutcome(err error) string {
	switch {
	case errors.Is(err, assistant.ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, assistant.ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}

// formatAssistantReply renders the reply text with cited sources, when
// the model grounded its answer.
func formatAssistantReply(reply *assistant.Reply) string {
	if len(reply.Sources) == 0 {
		return reply.Text
	}
	var sb strings.Builder
	sb.WriteString(reply.Text)
	sb.WriteString("\n\nSources:")
	for _, src := range reply.Sources {
		sb.WriteString("\n- ")
		if src.Title != "" {
			sb.WriteString(src.Title)
			sb.WriteString(" - ")
		}
		sb.WriteString(src.URI)
	}
	return sb.String()
}
