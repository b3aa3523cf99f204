package views

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/chatdock/internal/store"
	"github.com/matheus3301/chatdock/internal/tui/ui"
)

// SearchView runs archive searches and lists the hits.
type SearchView struct {
	*tview.Flex
	theme   *ui.Theme
	input   *tview.InputField
	results *tview.Table
	hits    []store.SearchResult
	onQuery func(string)
	now     func() time.Time
}

func NewSearchView(theme *ui.Theme) *SearchView {
	input := tview.NewInputField().SetLabel(" Search: ").SetFieldWidth(0)
	input.SetBackgroundColor(theme.Bg)
	input.SetFieldBackgroundColor(theme.Bg)
	input.SetFieldTextColor(theme.Fg)
	input.SetLabelColor(theme.Accent)

	results := tview.NewTable().SetSelectable(true, false).SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.Border)
	results.SetBackgroundColor(theme.Bg)
	results.SetTitle(" Results ")
	results.SetTitleColor(theme.Title)
	results.SetSelectedStyle(tcell.StyleDefault.Foreground(theme.CursorFg).Background(theme.CursorBg))

	sv := &SearchView{
		Flex: tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(input, 1, 0, true).
			AddItem(results, 0, 1, false),
		theme:   theme,
		input:   input,
		results: results,
		now:     time.Now,
	}
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && sv.onQuery != nil && sv.input.GetText() != "" {
			sv.onQuery(sv.input.GetText())
		}
	})
	return sv
}

func (sv *SearchView) Name() string { return "search" }

func (sv *SearchView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "enter", Description: "Search / Open"},
		{Key: "tab", Description: "Results"},
		{Key: "esc", Description: "Back"},
	}
}

func (sv *SearchView) SetOnQuery(fn func(string)) { sv.onQuery = fn }

func (sv *SearchView) Input() *tview.InputField { return sv.input }
func (sv *SearchView) Results() *tview.Table    { return sv.results }

// SetQuery fills the input, used by the :search command.
func (sv *SearchView) SetQuery(q string) { sv.input.SetText(q) }

// Update lists hits.
func (sv *SearchView) Update(query string, hits []store.SearchResult) {
	sv.hits = hits
	sv.results.Clear()
	sv.results.SetTitle(fmt.Sprintf(" Results for %q [%s](%d)[-] ", tview.Escape(query), ui.Tag(sv.theme.Counter), len(hits)))
	for col, h := range []string{"FROM", "SNIPPET", "TIME"} {
		sv.results.SetCell(0, col, tview.NewTableCell(" "+h).
			SetSelectable(false).
			SetTextColor(sv.theme.HeaderFg).
			SetAttributes(tcell.AttrBold))
	}
	now := sv.now()
	for i, r := range hits {
		from := r.Message.Sender.Name
		if from == "" {
			from = r.Message.SenderID
		}
		sv.results.SetCell(i+1, 0, tview.NewTableCell(" "+tview.Escape(clean(from, true))).SetMaxWidth(24).SetTextColor(sv.theme.Peer))
		sv.results.SetCell(i+1, 1, tview.NewTableCell(" "+tview.Escape(clean(r.Snippet, true))).SetExpansion(1).SetTextColor(sv.theme.Fg))
		sv.results.SetCell(i+1, 2, tview.NewTableCell(" "+stamp(r.Message.CreatedAt, now)).SetTextColor(sv.theme.Fg))
	}
}

// Selected returns the conversation of the highlighted hit.
func (sv *SearchView) Selected() string {
	row, _ := sv.results.GetSelection()
	if row < 1 || row > len(sv.hits) {
		return ""
	}
	return sv.hits[row-1].Message.ConversationID
}
