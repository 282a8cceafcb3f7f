// internal/messenger/ledger.go

package messenger

import "sort"

// Ledger is the flat, append-only collection of all messages across all
// chats. On disk it is one JSON blob with no ordering guarantee; per-chat
// order is derived at read time. The ledger carries no lock of its own;
// the owning Directory serializes access.
type Ledger struct {
	messages []*Message
}

func NewLedger(messages []*Message) *Ledger {
	return &Ledger{messages: messages}
}

// Append adds a message. Messages are never edited or deleted.
func (l *Ledger) Append(msg *Message) {
	l.messages = append(l.messages, msg)
}

// For projects the messages of one chat, sorted ascending by timestamp.
// Insertion order breaks ties, so the projection is stable regardless of
// the order replies landed in the ledger.
func (l *Ledger) For(chatID string) []*Message {
	out := make([]*Message, 0)
	for _, m := range l.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// All returns the raw ledger contents, used for persistence snapshots.
func (l *Ledger) All() []*Message {
	return l.messages
}

func (l *Ledger) Len() int {
	return len(l.messages)
}
