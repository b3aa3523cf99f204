package ui

import "github.com/rivo/tview"

// MenuHint is a key shown in the header menu.
type MenuHint struct {
	Key         string
	Description string
	Accent      bool // drawn in the accent color, used for the bell
}

// Component is a page the app can push onto the stack.
type Component interface {
	tview.Primitive
	Name() string
	Hints() []MenuHint
}
