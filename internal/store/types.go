package store

import "github.com/matheus3301/chatdock/internal/chat"

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message chat.Message
	Snippet string
}
