// internal/messenger/models.go

package messenger

import (
	"context"
	"encoding/json"
	"time"
)

// ChatType classifies a conversation.
type ChatType string

const (
	ChatTypePrivate ChatType = "private" // exactly two participants
	ChatTypeGroup   ChatType = "group"   // two or more participants
	ChatTypeAI      ChatType = "ai"      // single participant: the assistant
)

// MessageStatus tracks outbound delivery state. It is only meaningful on
// messages sent by the current user; inbound messages are display-only.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// AssistantUserID is the reserved participant id for assistant chats.
const AssistantUserID = "giit-assistant"

// TypingIndicator marks a participant as typing in a chat.
type TypingIndicator struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// Chat is a conversation record. Participants are stored as ids and
// resolved through the user directory at query time, so a renamed user
// never leaves a stale snapshot behind.
type Chat struct {
	ID             string            `json:"id"`
	Type           ChatType          `json:"type"`
	Name           string            `json:"name,omitempty"`
	ParticipantIDs []string          `json:"participantIds"`
	LastMessage    *Message          `json:"lastMessage,omitempty"`
	UnreadCount    int               `json:"unreadCount"`
	AvatarURL      string            `json:"avatarUrl,omitempty"`
	Typing         []TypingIndicator `json:"typing,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// HasParticipant reports whether userID is a member of the chat.
func (c *Chat) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// clone returns a copy safe to read outside the directory lock.
// ParticipantIDs never change after creation and ledger messages are
// never edited, so sharing those is fine; Typing is copied.
func (c *Chat) clone() *Chat {
	out := *c
	out.Typing = append([]TypingIndicator(nil), c.Typing...)
	return &out
}

// OtherParticipants returns every participant id except userID.
func (c *Chat) OtherParticipants(userID string) []string {
	others := make([]string, 0, len(c.ParticipantIDs))
	for _, id := range c.ParticipantIDs {
		if id != userID {
			others = append(others, id)
		}
	}
	return others
}

// Message is a single entry in the message ledger. Exactly one of
// Text/ImageURL/AudioURL/DocURL carries the payload.
type Message struct {
	ID          string        `json:"id"`
	ChatID      string        `json:"chatId"`
	SenderID    string        `json:"senderId"`
	Text        string        `json:"text,omitempty"`
	ImageURL    string        `json:"imageUrl,omitempty"`
	AudioURL    string        `json:"audioUrl,omitempty"`
	DocURL      string        `json:"docUrl,omitempty"`
	DocName     string        `json:"docName,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	Status      MessageStatus `json:"status,omitempty"`
	IsAIMessage bool          `json:"isAIMessage,omitempty"`
}

// Payload is the content of an outgoing message before it becomes a
// ledger entry.
type Payload struct {
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"imageUrl,omitempty" validate:"omitempty,url"`
	AudioURL string `json:"audioUrl,omitempty" validate:"omitempty,url"`
	DocURL   string `json:"docUrl,omitempty" validate:"omitempty,url"`
	DocName  string `json:"docName,omitempty"`
}

// fieldCount reports how many payload fields are set.
func (p Payload) fieldCount() int {
	n := 0
	for _, v := range []string{p.Text, p.ImageURL, p.AudioURL, p.DocURL} {
		if v != "" {
			n++
		}
	}
	return n
}

// UserInfo is the resolved participant snapshot used on the wire.
type UserInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	AvatarURL string     `json:"avatarUrl,omitempty"`
	IsOnline  bool       `json:"isOnline,omitempty"`
	LastSeen  *time.Time `json:"lastSeen,omitempty"`
}

// ParticipantDirectory resolves participant ids to live user records.
// Implemented by the users service.
type ParticipantDirectory interface {
	Info(ctx context.Context, userID string) (*UserInfo, error)
}

// ChatView is a chat with participants resolved for display.
type ChatView struct {
	Chat
	Participants []*UserInfo `json:"participants"`
}

// Request DTOs

type SendMessageRequest struct {
	ChatID  string  `json:"chatId" validate:"required"`
	Payload Payload `json:"payload"`
}

type CreateGroupChatRequest struct {
	Name           string   `json:"name" validate:"required,min=1,max=100"`
	ParticipantIDs []string `json:"participantIds" validate:"required,min=2"`
}

type TypingRequest struct {
	ChatID   string `json:"chatId" validate:"required"`
	IsTyping bool   `json:"isTyping"`
}

// WebSocket event envelope, broadcast to chat participants.
type WSMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

const (
	WSTypeMessage    = "message"
	WSTypeTyping     = "typing"
	WSTypeStopTyping = "stop_typing"
	WSTypePresence   = "presence"
)

// Now returns the ledger clock: UTC, millisecond precision. Persisted
// timestamps round-trip exactly at this precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
