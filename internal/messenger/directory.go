// internal/messenger/directory.go
// Chat Directory: the in-memory state container owning every chat record
// and the message ledger, with write-through persistence to the blob
// store. All mutation goes through here under one lock, which is what
// keeps the denormalized LastMessage cache in sync with the ledger.
// Chat records never leave the lock live: every accessor returns a
// snapshot, so callers can read concurrently with the simulator and
// assistant writers.

package messenger

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/giit-community/futurenet-backend/internal/store"
)

var (
	ErrChatNotFound   = errors.New("chat not found")
	ErrNotParticipant = errors.New("not a participant in this chat")
	ErrValidation     = errors.New("validation failed")
)

type Directory struct {
	mu     sync.RWMutex
	chats  []*Chat
	byID   map[string]*Chat
	ledger *Ledger

	// activeByUser tracks which chat each user is currently viewing.
	// Unread accounting consults it: a message landing in a chat some
	// recipient is viewing does not count as unread.
	activeByUser map[string]string

	st  *store.Store
	log *zap.SugaredLogger
}

// NewDirectory loads the chat and message blobs, falling back to empty
// collections when either is missing or corrupt.
func NewDirectory(ctx context.Context, st *store.Store, log *zap.SugaredLogger) *Directory {
	chats, res := store.Load(ctx, st, store.KeyChats, []*Chat{})
	if res == store.LoadCorrupt {
		log.Warnw("chat blob unreadable, starting with empty directory")
	}
	messages, res := store.Load(ctx, st, store.KeyMessages, []*Message{})
	if res == store.LoadCorrupt {
		log.Warnw("message blob unreadable, starting with empty ledger")
	}

	d := &Directory{
		chats:        chats,
		byID:         make(map[string]*Chat, len(chats)),
		ledger:       NewLedger(messages),
		activeByUser: make(map[string]string),
		st:           st,
		log:          log,
	}
	for _, c := range chats {
		d.byID[c.ID] = c
	}
	return d
}

// ListChats returns snapshots of the chats userID participates in, most
// recent conversation first. Chats without messages sort last, keeping
// their insertion order among themselves.
func (d *Directory) ListChats(userID string) []*Chat {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*Chat, 0, len(d.chats))
	for _, c := range d.chats {
		if c.HasParticipant(userID) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := out[i].LastMessage, out[j].LastMessage
		switch {
		case li != nil && lj != nil:
			return li.Timestamp.After(lj.Timestamp)
		case li != nil:
			return true
		default:
			return false
		}
	})
	for i, c := range out {
		out[i] = c.clone()
	}
	return out
}

// GetChat looks up a chat by id and returns a snapshot.
func (d *Directory) GetChat(chatID string) (*Chat, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.byID[chatID]
	if !ok {
		return nil, ErrChatNotFound
	}
	return c.clone(), nil
}

// MessagesFor projects the ordered message sequence for one chat. The
// projection is re-derived on every call, never cached.
func (d *Directory) MessagesFor(chatID string) []*Message {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ledger.For(chatID)
}

// FindOrCreatePrivateChat returns the existing private chat between the
// two users, or creates one. Idempotent: the same unordered pair always
// resolves to the same chat.
func (d *Directory) FindOrCreatePrivateChat(ctx context.Context, currentUserID, otherUserID string) (*Chat, bool, error) {
	if currentUserID == "" || otherUserID == "" || currentUserID == otherUserID {
		return nil, false, ErrValidation
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range d.chats {
		if c.Type == ChatTypePrivate &&
			len(c.ParticipantIDs) == 2 &&
			c.HasParticipant(currentUserID) &&
			c.HasParticipant(otherUserID) {
			return c.clone(), false, nil
		}
	}

	chat := &Chat{
		ID:             uuid.NewString(),
		Type:           ChatTypePrivate,
		ParticipantIDs: []string{currentUserID, otherUserID},
		UnreadCount:    0,
		CreatedAt:      Now(),
	}
	d.insert(ctx, chat)
	return chat.clone(), true, nil
}

// CreateGroupChat creates a group conversation. The creator is always a
// member; a missing name or fewer than two members is rejected without
// touching the directory.
func (d *Directory) CreateGroupChat(ctx context.Context, name string, participantIDs []string, creatorID string) (*Chat, error) {
	members := participantIDs
	if !contains(members, creatorID) {
		members = append(append([]string{}, participantIDs...), creatorID)
	}
	if name == "" || len(members) < 2 {
		return nil, ErrValidation
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	chat := &Chat{
		ID:             uuid.NewString(),
		Type:           ChatTypeGroup,
		Name:           name,
		ParticipantIDs: members,
		UnreadCount:    0,
		CreatedAt:      Now(),
	}
	d.insert(ctx, chat)
	return chat.clone(), nil
}

// FindOrCreateAIChat returns the user's assistant conversation, creating
// it on first use. Each user has exactly one.
func (d *Directory) FindOrCreateAIChat(ctx context.Context, userID string) (*Chat, bool, error) {
	if userID == "" {
		return nil, false, ErrValidation
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range d.chats {
		if c.Type == ChatTypeAI && c.HasParticipant(userID) {
			return c.clone(), false, nil
		}
	}

	chat := &Chat{
		ID:             uuid.NewString(),
		Type:           ChatTypeAI,
		Name:           "GiiT Assistant",
		ParticipantIDs: []string{userID, AssistantUserID},
		UnreadCount:    0,
		CreatedAt:      Now(),
	}
	d.insert(ctx, chat)
	return chat.clone(), true, nil
}

// MarkRead resets the chat's unread counter to zero.
func (d *Directory) MarkRead(ctx context.Context, chatID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.byID[chatID]
	if !ok {
		return ErrChatNotFound
	}
	c.UnreadCount = 0
	d.persistChats(ctx)
	return nil
}

// SetActive records which chat the user is viewing and clears its unread
// counter. An empty chatID deselects.
func (d *Directory) SetActive(ctx context.Context, userID, chatID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if chatID == "" {
		delete(d.activeByUser, userID)
		return nil
	}
	c, ok := d.byID[chatID]
	if !ok {
		return ErrChatNotFound
	}
	d.activeByUser[userID] = chatID
	c.UnreadCount = 0
	d.persistChats(ctx)
	return nil
}

// RecordOutgoing appends a message sent by a participant: ledger append,
// LastMessage update, and the sender's typing entry cleared, all in one
// critical section. Unread is untouched: the sender has obviously seen
// their own message.
func (d *Directory) RecordOutgoing(ctx context.Context, msg *Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(ctx, msg, false)
}

// RecordIncoming appends a message produced on behalf of a counterpart
// (mock reply, assistant reply). The unread counter increments unless a
// recipient currently has the chat open.
func (d *Directory) RecordIncoming(ctx context.Context, msg *Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(ctx, msg, true)
}

func (d *Directory) record(ctx context.Context, msg *Message, countUnread bool) error {
	c, ok := d.byID[msg.ChatID]
	if !ok {
		return ErrChatNotFound
	}

	d.ledger.Append(msg)
	c.LastMessage = msg
	c.Typing = removeTyping(c.Typing, msg.SenderID)
	if countUnread && !d.viewedByRecipient(c, msg.SenderID) {
		c.UnreadCount++
	}

	d.persistMessages(ctx)
	d.persistChats(ctx)
	return nil
}

// SetTyping adds or removes a typing indicator on a chat.
func (d *Directory) SetTyping(ctx context.Context, chatID string, ind TypingIndicator, typing bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.byID[chatID]
	if !ok {
		return ErrChatNotFound
	}
	c.Typing = removeTyping(c.Typing, ind.UserID)
	if typing {
		c.Typing = append(c.Typing, ind)
	}
	d.persistChats(ctx)
	return nil
}

// LedgerLen reports the total number of messages across all chats.
func (d *Directory) LedgerLen() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ledger.Len()
}

// insert registers a new chat. Caller holds the lock.
func (d *Directory) insert(ctx context.Context, chat *Chat) {
	d.chats = append(d.chats, chat)
	d.byID[chat.ID] = chat
	d.persistChats(ctx)
}

// viewedByRecipient reports whether any participant other than senderID
// currently has the chat open. Caller holds the lock.
func (d *Directory) viewedByRecipient(c *Chat, senderID string) bool {
	for _, id := range c.ParticipantIDs {
		if id != senderID && d.activeByUser[id] == c.ID {
			return true
		}
	}
	return false
}

// persistChats and persistMessages snapshot whole collections, matching
// the original write-through model. Caller holds the lock.
func (d *Directory) persistChats(ctx context.Context) {
	d.st.Save(ctx, store.KeyChats, d.chats)
}

func (d *Directory) persistMessages(ctx context.Context) {
	d.st.Save(ctx, store.KeyMessages, d.ledger.All())
}

// removeTyping filters into a fresh slice; the old backing array may
// still be visible through a snapshot.
func removeTyping(list []TypingIndicator, userID string) []TypingIndicator {
	out := make([]TypingIndicator, 0, len(list))
	for _, t := range list {
		if t.UserID != userID {
			out = append(out, t)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func newMessageID() string {
	return uuid.NewString()
}

// NewTextMessage builds a sent text message with the ledger clock.
func NewTextMessage(chatID, senderID, text string) *Message {
	return &Message{
		ID:        newMessageID(),
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		Timestamp: Now(),
		Status:    StatusSent,
	}
}
