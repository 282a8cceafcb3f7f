// internal/store/keys.go

package store

// Well-known blob keys. The layout mirrors the original client storage:
// one blob per collection, rewritten whole on every mutation.
const (
	KeyChats           = "messenger:chats"
	KeyMessages        = "messenger:messages"
	KeyCurrentUser     = "user:current"
	KeyRegisteredUsers = "users:registered"
	KeySettings        = "settings"
)
