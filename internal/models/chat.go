package models

import "time"

// SessionState describes where a chat session is in its lifecycle.
type SessionState string

const (
	// SessionCreated is a session with no successful message yet.
	SessionCreated SessionState = "created"
	// SessionActive is a session with at least one successful message.
	SessionActive SessionState = "active"
)

// ChatSession binds a chat id to exactly one asset id.
type ChatSession struct {
	ID        string    `json:"chat_id" db:"id"`
	AssetID   string    `json:"asset_id" db:"asset_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HistoryEntry is one (user message, bot response) exchange of a chat.
type HistoryEntry struct {
	ChatID    string    `json:"-" db:"chat_id"`
	User      string    `json:"user" db:"user_message"`
	Bot       string    `json:"bot" db:"bot_response"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StateOf derives a session state from the number of history entries.
func StateOf(historyLen int) SessionState {
	if historyLen > 0 {
		return SessionActive
	}
	return SessionCreated
}

// Reply is the result of a successful chat message.
type Reply struct {
	ChatID   string    `json:"chat_id"`
	Response string    `json:"response"`
	Context  []Passage `json:"context,omitempty"`
}

// Stats summarizes the contents of the stores and the similarity index.
type Stats struct {
	Assets          int64 `json:"assets"`
	Sessions        int64 `json:"sessions"`
	HistoryEntries  int64 `json:"history_entries"`
	IndexedPassages int   `json:"indexed_passages"`
}
