package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode selects what a submitted prompt line means.
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
)

// Prompt is the one-line input shown above the page area.
type Prompt struct {
	*tview.InputField
	mode     PromptMode
	onSubmit func(PromptMode, string)
	onCancel func()
}

func NewPrompt(theme *Theme) *Prompt {
	in := tview.NewInputField()
	in.SetBorder(true)
	in.SetBorderColor(theme.Border)
	in.SetBackgroundColor(theme.Bg)
	in.SetFieldBackgroundColor(theme.Bg)
	in.SetFieldTextColor(theme.Fg)
	in.SetLabelColor(theme.Accent)

	p := &Prompt{InputField: in}
	in.SetDoneFunc(p.done)
	return p
}

func (p *Prompt) done(key tcell.Key) {
	text := p.GetText()
	p.SetText("")
	switch key {
	case tcell.KeyEnter:
		if text != "" && p.onSubmit != nil {
			p.onSubmit(p.mode, text)
			return
		}
		if p.onCancel != nil {
			p.onCancel()
		}
	case tcell.KeyEscape:
		if p.onCancel != nil {
			p.onCancel()
		}
	}
}

func (p *Prompt) SetOnSubmit(fn func(PromptMode, string)) { p.onSubmit = fn }
func (p *Prompt) SetOnCancel(fn func())                   { p.onCancel = fn }

// Activate clears the field and switches to mode.
func (p *Prompt) Activate(mode PromptMode) {
	p.mode = mode
	p.SetText("")
	if mode == PromptFilter {
		p.SetLabel("/")
		p.SetTitle(" Filter ")
		return
	}
	p.SetLabel(":")
	p.SetTitle(" Command ")
}
