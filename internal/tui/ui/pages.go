package ui

import "github.com/rivo/tview"

// Pages keeps a stack of named components on top of tview.Pages.
type Pages struct {
	*tview.Pages
	stack    []Component
	onChange func(top Component, names []string)
}

func NewPages() *Pages {
	return &Pages{Pages: tview.NewPages()}
}

// SetOnChange registers fn to run after every stack change.
func (p *Pages) SetOnChange(fn func(top Component, names []string)) {
	p.onChange = fn
}

// Add registers c without showing it.
func (p *Pages) Add(c Component) {
	p.AddPage(c.Name(), c, true, false)
}

// Push shows c above the current page. Pushing the page already on top
// is a no-op.
func (p *Pages) Push(c Component) {
	if top := p.Top(); top != nil {
		if top.Name() == c.Name() {
			return
		}
		p.HidePage(top.Name())
	}
	p.stack = append(p.stack, c)
	p.show(c)
}

// Pop returns to the previous page. The root page is never popped.
func (p *Pages) Pop() bool {
	if len(p.stack) < 2 {
		return false
	}
	p.HidePage(p.Top().Name())
	p.stack = p.stack[:len(p.stack)-1]
	p.show(p.Top())
	return true
}

// Reset makes c the only page on the stack.
func (p *Pages) Reset(c Component) {
	for _, old := range p.stack {
		p.HidePage(old.Name())
	}
	p.stack = []Component{c}
	p.show(c)
}

// Top returns the visible component.
func (p *Pages) Top() Component {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *Pages) show(c Component) {
	p.ShowPage(c.Name())
	p.SendToFront(c.Name())
	if p.onChange == nil {
		return
	}
	names := make([]string, len(p.stack))
	for i, s := range p.stack {
		names[i] = s.Name()
	}
	p.onChange(c, names)
}
