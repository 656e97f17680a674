package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Composer is the text input for drafting and sending messages.
type Composer struct {
	*tview.InputField
	onSend   func(text string)
	onChange func(text string)
}

// NewComposer creates a new message composer.
func NewComposer() *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)

	c := &Composer{InputField: input}

	input.SetChangedFunc(func(text string) {
		if c.onChange != nil {
			c.onChange(text)
		}
	})

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && c.onSend != nil {
			text := c.GetText()
			if text != "" {
				c.onSend(text)
				c.SetText("")
			}
		}
	})

	return c
}

// SetOnSend sets the callback invoked when Enter is pressed.
func (c *Composer) SetOnSend(fn func(text string)) {
	c.onSend = fn
}

// SetTextSilently replaces the field content without firing the change
// callback. Used when restoring a draft, which is not a keystroke.
func (c *Composer) SetTextSilently(text string) {
	fn := c.onChange
	c.onChange = nil
	c.SetText(text)
	c.onChange = fn
}

// SetOnChange sets the callback invoked on every draft edit.
func (c *Composer) SetOnChange(fn func(text string)) {
	c.onChange = fn
}
