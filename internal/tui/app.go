package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/matheus3301/chatdock/internal/bus"
	"github.com/matheus3301/chatdock/internal/chat"
	"github.com/matheus3301/chatdock/internal/intent"
	"github.com/matheus3301/chatdock/internal/rpc"
	"github.com/matheus3301/chatdock/internal/tui/keys"
	"github.com/matheus3301/chatdock/internal/tui/model"
	"github.com/matheus3301/chatdock/internal/tui/ui"
	"github.com/matheus3301/chatdock/internal/tui/views"
)

const (
	callTimeout   = 10 * time.Second
	statusRefresh = 30 * time.Second
	watchBackoff  = time.Second
	watchMaxWait  = 15 * time.Second
)

var errNothingToOpen = errors.New("no conversation to open")

// Client is the daemon API the TUI needs.
type Client interface {
	model.Client
	Watch(ctx context.Context, prefix string) (grpc.ServerStreamingClient[rpc.EventEnvelope], error)
}

// Options configures the TUI.
type Options struct {
	Client  Client
	Session string
	Logger  *zap.Logger
	// OpenOnStart asks for the bell conversation as soon as the
	// conversation list is ready.
	OpenOnStart bool
}

// App is the main TUI application shell.
type App struct {
	app     *tview.Application
	ctx     context.Context
	cancel  context.CancelFunc
	client  Client
	session string
	logger  *zap.Logger

	vm       *model.ViewModel
	intents  *intent.Queue
	registry *keys.Registry
	flash    *ui.Flash
	theme    *ui.Theme

	root      *tview.Flex
	pages     *ui.Pages
	prompt    *ui.Prompt
	panel     *ui.SessionPanel
	menu      *ui.Menu
	crumbs    *ui.Crumbs
	flashBar  *ui.FlashBar
	dock      *views.WindowDock
	statusBar *views.StatusBar

	list   *views.ConversationList
	thread *views.MessageThread
	search *views.SearchView
	help   *views.HelpView
	login  *views.LoginView

	mu      sync.Mutex
	pending model.Scope
	dirty   chan struct{}
	mounted bool
}

// NewApp builds the TUI. Nothing talks to the daemon until Run.
func NewApp(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		ctx:       ctx,
		cancel:    cancel,
		client:    opts.Client,
		session:   opts.Session,
		logger:    logger,
		vm:        model.NewViewModel(opts.Client),
		intents:   intent.New(logger.Named("intent")),
		registry:  keys.NewRegistry(),
		flash:     ui.NewFlash(),
		theme:     theme,
		pages:     ui.NewPages(),
		prompt:    ui.NewPrompt(theme),
		panel:     ui.NewSessionPanel(theme),
		menu:      ui.NewMenu(theme),
		crumbs:    ui.NewCrumbs(theme),
		flashBar:  ui.NewFlashBar(theme),
		dock:      views.NewWindowDock(theme),
		statusBar: views.NewStatusBar(theme),
		list:      views.NewConversationList(theme),
		thread:    views.NewMessageThread(theme),
		search:    views.NewSearchView(theme),
		help:      views.NewHelpView(theme),
		login:     views.NewLoginView(theme),
		dirty:     make(chan struct{}, 1),
	}
	if opts.OpenOnStart {
		a.intents.RequestOpen()
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	global := func(name string, key tcell.Key, r rune, desc string, fn func()) {
		a.registry.AddGlobal(name, &keys.Action{Key: key, Rune: r, Description: desc, Visible: desc != "", Handler: fn})
	}
	view := func(page, name string, r rune, fn func()) {
		a.registry.AddView(page, name, &keys.Action{Key: tcell.KeyRune, Rune: r, Handler: fn})
	}

	global("command", tcell.KeyRune, ':', "::Command", func() { a.activatePrompt(ui.PromptCommand) })
	global("bell", tcell.KeyRune, 'b', "b:Bell", a.intents.RequestOpen)
	global("read-all", tcell.KeyRune, 'R', "R:Read all", func() { a.async("mark all read", a.vm.MarkAllRead) })
	global("help", tcell.KeyRune, '?', "?:Help", func() { a.pages.Push(a.help) })
	global("next", tcell.KeyTab, 0, "", func() { a.cycle(1) })
	global("prev", tcell.KeyBacktab, 0, "", func() { a.cycle(-1) })

	view(a.list.Name(), "filter", '/', func() { a.activatePrompt(ui.PromptFilter) })
	view(a.list.Name(), "read", 'r', func() {
		if id := a.list.Selected(); id != "" {
			a.async("mark read", func(ctx context.Context) error { return a.vm.MarkRead(ctx, id) })
		}
	})
	for n := 1; n <= 9; n++ {
		view(a.list.Name(), fmt.Sprintf("jump-%d", n), rune('0'+n), func() {
			if id := a.list.ByIndex(n); id != "" {
				a.openConversation(id)
			}
		})
	}

	view(a.thread.Name(), "compose", 'i', func() { a.app.SetFocus(a.thread.Composer()) })
	view(a.thread.Name(), "minimize", 'm', func() { a.async("minimize", a.vm.Minimize) })
	view(a.thread.Name(), "close", 'x', func() { a.async("close", a.vm.Close) })
}

func (a *App) setupCallbacks() {
	a.list.SetSelectedFunc(func(int, int) {
		if id := a.list.Selected(); id != "" {
			a.openConversation(id)
		}
	})
	a.thread.SetOnSend(func(text string) {
		a.async("send", func(ctx context.Context) error { return a.vm.Send(ctx, text) })
	})
	a.thread.SetOnTyping(func(typing bool) {
		a.async("", func(ctx context.Context) error { return a.vm.SetTyping(ctx, typing) })
	})
	a.search.SetOnQuery(a.runSearch)
	a.search.Results().SetSelectedFunc(func(int, int) {
		if id := a.search.Selected(); id != "" {
			a.openConversation(id)
		}
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.closePrompt()
		if mode == ui.PromptFilter {
			a.list.SetFilter(text)
			return
		}
		a.execute(ParseCommand(text))
	})
	a.prompt.SetOnCancel(a.closePrompt)

	a.pages.SetOnChange(func(top ui.Component, names []string) {
		a.crumbs.Update(names)
		a.menu.Update(a.hints(top))
		a.app.SetFocus(top)
	})
}

func (a *App) setupLayout() {
	for _, c := range []ui.Component{a.list, a.thread, a.search, a.help, a.login} {
		a.pages.Add(c)
	}

	header := tview.NewFlex().
		AddItem(a.panel, 40, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 16, 0, false)

	a.root = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.dock, 1, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.capture)
	a.pages.Reset(a.login)
}

func (a *App) capture(ev *tcell.EventKey) *tcell.EventKey {
	top := a.pages.Top()
	focus := a.app.GetFocus()

	if ev.Key() == tcell.KeyEscape {
		switch {
		case focus == a.prompt.InputField:
			return ev
		case focus == a.thread.Composer():
			a.app.SetFocus(a.thread.Messages())
			return nil
		case top == a.list && a.list.Filter() != "":
			a.list.SetFilter("")
			return nil
		case a.pages.Pop():
			return nil
		}
		return ev
	}

	if top == a.search && ev.Key() == tcell.KeyTab {
		if focus == a.search.Results() {
			a.app.SetFocus(a.search.Input())
		} else {
			a.app.SetFocus(a.search.Results())
		}
		return nil
	}

	if _, ok := focus.(*tview.InputField); ok {
		return ev
	}
	if top == a.login && ev.Rune() != ':' {
		if ev.Key() == tcell.KeyCtrlC {
			return ev
		}
		return nil
	}
	if a.registry.HandleEvent(top.Name(), ev) {
		return nil
	}
	return ev
}

// Run loads the initial state, starts the event watcher and blocks until
// the UI exits.
func (a *App) Run() error {
	a.intents.SetAuthenticated(false)
	a.invalidate(model.ScopeAll)
	go a.refreshLoop()
	go a.watchLoop()
	go a.tick()
	go a.drainFlash()
	defer a.cancel()
	return a.app.Run()
}

// Stop shuts the UI down.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

// invalidate schedules a refresh of s. Bursts of events coalesce into one
// round of calls.
func (a *App) invalidate(s model.Scope) {
	if s == 0 {
		return
	}
	a.mu.Lock()
	a.pending |= s
	a.mu.Unlock()
	select {
	case a.dirty <- struct{}{}:
	default:
	}
}

func (a *App) refreshLoop() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.dirty:
		}
		a.mu.Lock()
		scope := a.pending
		a.pending = 0
		a.mu.Unlock()

		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		err := a.vm.Refresh(ctx, scope)
		cancel()
		if err != nil {
			if a.ctx.Err() == nil {
				a.flash.Err(fmt.Errorf("refresh: %w", err))
			}
			continue
		}
		a.draw()
		a.syncIntents()
	}
}

// syncIntents keeps the open-intent queue in step with the daemon
// session. The conversation list counts as mounted once it has been
// loaded while logged in.
func (a *App) syncIntents() {
	loggedIn := a.vm.State().Status.LoggedIn
	a.mu.Lock()
	changed := a.mounted != loggedIn
	a.mounted = loggedIn
	a.mu.Unlock()

	if !changed {
		return
	}
	if loggedIn {
		a.intents.SetAuthenticated(true)
		a.intents.Mount(a.toggleBell, func() error {
			ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
			defer cancel()
			return a.openBell(ctx)
		})
		return
	}
	a.intents.Unmount()
	a.intents.SetAuthenticated(false)
}

func (a *App) watchLoop() {
	wait := watchBackoff
	for a.ctx.Err() == nil {
		stream, err := a.client.Watch(a.ctx, "")
		if err == nil {
			wait = watchBackoff
			a.invalidate(model.ScopeAll)
			err = a.consume(stream)
		}
		if a.ctx.Err() != nil {
			return
		}
		a.logger.Warn("event stream ended", zap.Error(err), zap.Duration("retry_in", wait))
		a.flash.Warn("lost daemon event stream, retrying")
		select {
		case <-a.ctx.Done():
			return
		case <-time.After(wait):
		}
		wait = min(wait*2, watchMaxWait)
	}
}

func (a *App) consume(stream grpc.ServerStreamingClient[rpc.EventEnvelope]) error {
	for {
		evt, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
		a.notify(evt)
		a.invalidate(model.ScopeFor(evt.Kind))
	}
}

// notify flashes push notifications and messages for conversations that
// are not on screen.
func (a *App) notify(evt *rpc.EventEnvelope) {
	switch evt.Kind {
	case bus.NotificationReceived:
		var n chat.Notification
		if json.Unmarshal(evt.Payload, &n) == nil && n.Message != "" {
			a.flash.Noticef("%s", n.Message)
		}
	case bus.MessageReceived:
		var m chat.Message
		if json.Unmarshal(evt.Payload, &m) != nil || m.ConversationID == a.vm.State().Active {
			return
		}
		from := m.Sender.Name
		if from == "" {
			from = m.SenderID
		}
		a.flash.Noticef("new message from %s, press b to open", from)
	}
}

func (a *App) tick() {
	t := time.NewTicker(statusRefresh)
	defer t.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-t.C:
			a.invalidate(model.ScopeStatus)
		}
	}
}

func (a *App) drainFlash() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.flash.Changes():
			a.app.QueueUpdateDraw(func() { a.flashBar.Show(a.flash.Current()) })
		}
	}
}

// async runs fn off the UI goroutine and redraws afterwards. A non-empty
// label prefixes failures in the flash bar.
func (a *App) async(label string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			if label != "" {
				a.flash.Err(fmt.Errorf("%s: %w", label, err))
			}
			a.logger.Debug("call failed", zap.String("op", label), zap.Error(err))
		}
		a.draw()
	}()
}

func (a *App) openConversation(id string) {
	a.async("open", func(ctx context.Context) error {
		if err := a.vm.Open(ctx, id); err != nil {
			return err
		}
		a.app.QueueUpdateDraw(func() { a.pages.Push(a.thread) })
		return nil
	})
}

// toggleBell runs on the UI goroutine: it leaves an open thread, or opens
// the bell conversation.
func (a *App) toggleBell() {
	if a.pages.Top() == a.thread {
		a.pages.Pop()
		return
	}
	a.async("bell", a.openBell)
}

func (a *App) openBell(ctx context.Context) error {
	id := bellTarget(a.vm.State())
	if id == "" {
		a.flash.Info("nothing unread")
		return errNothingToOpen
	}
	if err := a.vm.Open(ctx, id); err != nil {
		return err
	}
	a.app.QueueUpdateDraw(func() { a.pages.Push(a.thread) })
	return nil
}

// bellTarget picks the most recent conversation with unread messages,
// then the active window, then the most recent conversation.
func bellTarget(st model.State) string {
	var best *chat.Conversation
	for i, c := range st.Conversations {
		if st.Unread.PerConversation[c.ID] == 0 {
			continue
		}
		if best == nil || c.LastMessageAt.After(best.LastMessageAt) {
			best = &st.Conversations[i]
		}
	}
	if best != nil {
		return best.ID
	}
	if st.Active != "" {
		return st.Active
	}
	for i, c := range st.Conversations {
		if best == nil || c.LastMessageAt.After(best.LastMessageAt) {
			best = &st.Conversations[i]
		}
	}
	if best != nil {
		return best.ID
	}
	return ""
}

func (a *App) cycle(delta int) {
	if a.vm.Cycle(delta) == "" {
		return
	}
	a.pages.Push(a.thread)
	a.render()
}

func (a *App) runSearch(query string) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		hits, err := a.vm.Search(ctx, query)
		if err != nil {
			a.flash.Err(fmt.Errorf("search: %w", err))
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.search.Update(query, hits)
			a.app.SetFocus(a.search.Results())
		})
	}()
}

func (a *App) execute(cmd Command) {
	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.pages.Push(a.help)
	case "bell":
		a.intents.RequestOpen()
	case "search":
		a.pages.Push(a.search)
		if cmd.Args != "" {
			a.search.SetQuery(cmd.Args)
			a.runSearch(cmd.Args)
		}
	case "chat":
		if cmd.Args == "" {
			a.flash.Warn("usage: chat <user-id>")
			return
		}
		a.async("chat", func(ctx context.Context) error {
			if err := a.vm.StartChat(ctx, cmd.Args); err != nil {
				return err
			}
			a.app.QueueUpdateDraw(func() { a.pages.Push(a.thread) })
			return nil
		})
	case "open":
		if cmd.Args == "" {
			a.flash.Warn("usage: open <conversation-id>")
			return
		}
		a.openConversation(cmd.Args)
	case "close":
		a.async("close", a.vm.Close)
	case "minimize":
		a.async("minimize", a.vm.Minimize)
	case "restore":
		id := cmd.Args
		if id == "" {
			id = firstMinimized(a.vm.State())
		}
		if id == "" {
			a.flash.Info("no minimized windows")
			return
		}
		a.async("restore", func(ctx context.Context) error {
			if err := a.vm.Restore(ctx, id); err != nil {
				return err
			}
			a.app.QueueUpdateDraw(func() { a.pages.Push(a.thread) })
			return nil
		})
	case "read-all":
		a.async("mark all read", a.vm.MarkAllRead)
	default:
		a.flash.Warn(fmt.Sprintf("unknown command %q", cmd.Name))
	}
}

func firstMinimized(st model.State) string {
	for _, w := range st.Windows {
		if w.IsMinimized {
			return w.ConversationID
		}
	}
	return ""
}

func (a *App) activatePrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) closePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	if top := a.pages.Top(); top != nil {
		a.app.SetFocus(top)
	}
}

func (a *App) draw() {
	a.app.QueueUpdateDraw(a.render)
}

// render copies the view model into every view. Runs on the UI goroutine.
func (a *App) render() {
	st := a.vm.State()
	s := st.Status

	switch top := a.pages.Top(); {
	case !s.LoggedIn && top != a.login:
		a.pages.Reset(a.login)
	case s.LoggedIn && top == a.login:
		a.pages.Reset(a.list)
	}
	if !s.LoggedIn {
		a.login.Update(a.session, s.LastError)
	}

	minimized := 0
	for _, w := range st.Windows {
		if w.IsMinimized {
			minimized++
		}
	}
	a.panel.Update(ui.HeaderData{
		Session:   a.session,
		UserID:    s.UserID,
		State:     s.State,
		LastError: s.LastError,
		Bell:      s.Bell,
		Windows:   len(st.Windows),
		Minimized: minimized,
		Uptime:    time.Duration(s.UptimeMs) * time.Millisecond,
	})
	a.statusBar.Update(a.session, s.State, s.Bell, len(st.Windows))
	a.dock.Update(st.Windows, st.Active, st.Unread.PerConversation)
	a.list.Update(st.Conversations, s.UserID)

	if w, ok := st.ActiveWindow(); ok {
		a.thread.Update(w, s.UserID)
	} else if a.pages.Top() == a.thread {
		a.pages.Pop()
	}
	if top := a.pages.Top(); top != nil {
		a.menu.Update(a.hints(top))
	}
	a.flashBar.Show(a.flash.Current())
}

// hints lists the page's keys, then the global ones. The bell hint is
// accented while anything is unread.
func (a *App) hints(top ui.Component) []ui.MenuHint {
	hints := append([]ui.MenuHint(nil), top.Hints()...)
	bell := a.vm.State().Status.Bell
	for _, desc := range a.registry.Hints("") {
		key, label, ok := strings.Cut(desc, ":")
		if key == "" && ok {
			key, label, _ = strings.Cut(label, ":")
			key = ":"
		}
		h := ui.MenuHint{Key: key, Description: label}
		if key == "b" && bell > 0 {
			h.Description = fmt.Sprintf("%s (%d)", label, bell)
			h.Accent = true
		}
		hints = append(hints, h)
	}
	return hints
}
