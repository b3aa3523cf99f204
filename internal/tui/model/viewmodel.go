package model

import (
	"context"
	"strings"
	"sync"

	"github.com/matheus3301/chatdock/internal/bus"
	"github.com/matheus3301/chatdock/internal/chat"
	"github.com/matheus3301/chatdock/internal/rpc"
	"github.com/matheus3301/chatdock/internal/store"
	"github.com/matheus3301/chatdock/internal/unread"
	"github.com/matheus3301/chatdock/internal/windows"
)

// Client is the daemon API the view model drives.
type Client interface {
	GetStatus(ctx context.Context) (*rpc.StatusResponse, error)
	ListConversations(ctx context.Context) (*rpc.ConversationsResponse, error)
	ListWindows(ctx context.Context) (*rpc.WindowsResponse, error)
	GetUnread(ctx context.Context) (*rpc.UnreadResponse, error)
	OpenConversation(ctx context.Context, id string) (*rpc.WindowsResponse, error)
	StartChat(ctx context.Context, recipientID string) (*rpc.ConversationResponse, error)
	CloseWindow(ctx context.Context, id string) (*rpc.WindowsResponse, error)
	MinimizeWindow(ctx context.Context, id string) (*rpc.WindowsResponse, error)
	RestoreWindow(ctx context.Context, id string) (*rpc.WindowsResponse, error)
	SendMessage(ctx context.Context, id, content string) (*rpc.MessageResponse, error)
	SetTyping(ctx context.Context, id string, typing bool) error
	MarkConversationRead(ctx context.Context, id string) (*rpc.UnreadResponse, error)
	MarkAllRead(ctx context.Context) (*rpc.UnreadResponse, error)
	SearchMessages(ctx context.Context, req *rpc.SearchRequest) (*rpc.SearchResponse, error)
}

// Scope names the parts of the view model a refresh reloads.
type Scope uint8

const (
	ScopeStatus Scope = 1 << iota
	ScopeConversations
	ScopeWindows
	ScopeUnread

	ScopeAll = ScopeStatus | ScopeConversations | ScopeWindows | ScopeUnread
)

// ScopeFor maps a daemon event kind to the state it invalidates.
func ScopeFor(kind string) Scope {
	switch {
	case strings.HasPrefix(kind, "session."):
		return ScopeStatus | ScopeWindows | ScopeConversations | ScopeUnread
	case strings.HasPrefix(kind, "window."), kind == bus.MessageAppended, kind == bus.HistoryLoaded, kind == bus.TypingChanged:
		return ScopeWindows
	case kind == bus.ConversationsSynced, kind == bus.MessageReceived, kind == bus.MessageSent:
		return ScopeConversations
	case strings.HasPrefix(kind, "unread."):
		return ScopeUnread | ScopeConversations
	default:
		return 0
	}
}

// State is a consistent copy of the view model.
type State struct {
	Status        rpc.StatusResponse
	Conversations []chat.Conversation
	Windows       []windows.Window
	Unread        unread.Snapshot
	Active        string
}

// ActiveWindow returns the window shown in the thread view.
func (s State) ActiveWindow() (windows.Window, bool) {
	for _, w := range s.Windows {
		if w.ConversationID == s.Active {
			return w, true
		}
	}
	return windows.Window{}, false
}

// ViewModel caches daemon state for the views.
type ViewModel struct {
	mu     sync.RWMutex
	client Client
	state  State
}

// NewViewModel creates a new view model connected to the daemon client.
func NewViewModel(c Client) *ViewModel {
	return &ViewModel{client: c}
}

// State returns a copy of the current state.
func (vm *ViewModel) State() State {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.state
}

// Refresh reloads the parts named by scope. Unread and windows are only
// fetched while logged in.
func (vm *ViewModel) Refresh(ctx context.Context, scope Scope) error {
	if scope&ScopeStatus != 0 {
		st, err := vm.client.GetStatus(ctx)
		if err != nil {
			return err
		}
		vm.mu.Lock()
		vm.state.Status = *st
		vm.mu.Unlock()
	}
	if !vm.State().Status.LoggedIn {
		vm.mu.Lock()
		vm.state.Conversations = nil
		vm.state.Windows = nil
		vm.state.Unread = unread.Snapshot{}
		vm.state.Active = ""
		vm.mu.Unlock()
		return nil
	}
	if scope&ScopeConversations != 0 {
		resp, err := vm.client.ListConversations(ctx)
		if err != nil {
			return err
		}
		vm.mu.Lock()
		vm.state.Conversations = resp.Conversations
		vm.mu.Unlock()
	}
	if scope&ScopeUnread != 0 {
		resp, err := vm.client.GetUnread(ctx)
		if err != nil {
			return err
		}
		vm.setUnread(resp)
	}
	if scope&ScopeWindows != 0 {
		resp, err := vm.client.ListWindows(ctx)
		if err != nil {
			return err
		}
		vm.setWindows(resp.Windows)
	}
	return nil
}

// Open opens a conversation window and makes it active.
func (vm *ViewModel) Open(ctx context.Context, id string) error {
	resp, err := vm.client.OpenConversation(ctx, id)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.state.Active = id
	vm.mu.Unlock()
	vm.setWindows(resp.Windows)
	return nil
}

// StartChat opens the conversation with recipientID.
func (vm *ViewModel) StartChat(ctx context.Context, recipientID string) error {
	resp, err := vm.client.StartChat(ctx, recipientID)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.state.Active = resp.Conversation.ID
	vm.mu.Unlock()
	return vm.Refresh(ctx, ScopeWindows)
}

// Close closes the active window.
func (vm *ViewModel) Close(ctx context.Context) error {
	return vm.activeOp(ctx, vm.client.CloseWindow)
}

// Minimize minimizes the active window.
func (vm *ViewModel) Minimize(ctx context.Context) error {
	return vm.activeOp(ctx, vm.client.MinimizeWindow)
}

// Restore expands a window and makes it active.
func (vm *ViewModel) Restore(ctx context.Context, id string) error {
	resp, err := vm.client.RestoreWindow(ctx, id)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.state.Active = id
	vm.mu.Unlock()
	vm.setWindows(resp.Windows)
	return nil
}

// Send posts content in the active window.
func (vm *ViewModel) Send(ctx context.Context, content string) error {
	id := vm.State().Active
	if id == "" {
		return windows.ErrWindowNotFound
	}
	_, err := vm.client.SendMessage(ctx, id, content)
	return err
}

// SetTyping reports typing state for the active window.
func (vm *ViewModel) SetTyping(ctx context.Context, typing bool) error {
	id := vm.State().Active
	if id == "" {
		return nil
	}
	return vm.client.SetTyping(ctx, id, typing)
}

// MarkAllRead clears every unread count.
func (vm *ViewModel) MarkAllRead(ctx context.Context) error {
	resp, err := vm.client.MarkAllRead(ctx)
	if err != nil {
		return err
	}
	vm.setUnread(resp)
	return nil
}

// MarkRead clears one conversation's unread count.
func (vm *ViewModel) MarkRead(ctx context.Context, id string) error {
	resp, err := vm.client.MarkConversationRead(ctx, id)
	if err != nil {
		return err
	}
	vm.setUnread(resp)
	return nil
}

// Search queries the archive.
func (vm *ViewModel) Search(ctx context.Context, query string) ([]store.SearchResult, error) {
	resp, err := vm.client.SearchMessages(ctx, &rpc.SearchRequest{Query: query, Limit: 50})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Cycle moves the active window by delta through the expanded windows.
func (vm *ViewModel) Cycle(delta int) string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	var ids []string
	cur := -1
	for _, w := range vm.state.Windows {
		if w.IsMinimized {
			continue
		}
		if w.ConversationID == vm.state.Active {
			cur = len(ids)
		}
		ids = append(ids, w.ConversationID)
	}
	if len(ids) == 0 {
		return ""
	}
	next := (cur + delta + len(ids)) % len(ids)
	if cur < 0 {
		next = 0
	}
	vm.state.Active = ids[next]
	return vm.state.Active
}

func (vm *ViewModel) activeOp(ctx context.Context, op func(context.Context, string) (*rpc.WindowsResponse, error)) error {
	id := vm.State().Active
	if id == "" {
		return windows.ErrWindowNotFound
	}
	resp, err := op(ctx, id)
	if err != nil {
		return err
	}
	vm.setWindows(resp.Windows)
	return nil
}

func (vm *ViewModel) setUnread(resp *rpc.UnreadResponse) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Unread = resp.Snapshot
	vm.state.Status.Bell = resp.Bell
	for i := range vm.state.Conversations {
		vm.state.Conversations[i].UnreadCount = resp.PerConversation[vm.state.Conversations[i].ID]
	}
}

// setWindows stores ws and keeps Active on an expanded window when the
// current one was closed or minimized.
func (vm *ViewModel) setWindows(ws []windows.Window) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Windows = ws
	for _, w := range ws {
		if w.ConversationID == vm.state.Active && !w.IsMinimized {
			return
		}
	}
	vm.state.Active = ""
	for i := len(ws) - 1; i >= 0; i-- {
		if !ws[i].IsMinimized {
			vm.state.Active = ws[i].ConversationID
			return
		}
	}
}
