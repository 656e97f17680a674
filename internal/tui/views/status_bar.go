package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// StatusBar displays the link state, counterpart presence, the typing
// indicator and transient flash messages on a single line.
type StatusBar struct {
	*tview.TextView
	session    string
	receiverID string
	link       string
	online     bool
	typing     bool
	flash      string
}

// NewStatusBar creates the status bar for a conversation.
func NewStatusBar(session, receiverID string) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	sb := &StatusBar{TextView: tv, session: session, receiverID: receiverID, link: "disconnected"}
	sb.render()
	return sb
}

// SetLink updates the push-channel state display.
func (sb *StatusBar) SetLink(state string) {
	sb.link = strings.ToLower(state)
	sb.render()
}

// SetOnline updates the counterpart presence indicator.
func (sb *StatusBar) SetOnline(online bool) {
	sb.online = online
	sb.render()
}

// SetTyping toggles the counterpart typing indicator.
func (sb *StatusBar) SetTyping(typing bool) {
	sb.typing = typing
	sb.render()
}

// SetFlash sets a transient message. Empty clears it.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	presence := "[gray]offline[-]"
	if sb.online {
		presence = "[green]online[-]"
	}

	link := sb.link
	if link == "connected" {
		link = "[green]connected[-]"
	}

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s %s | link: %s", sb.session, sb.receiverID, presence, link)
	if sb.typing {
		line += fmt.Sprintf(" | [aqua]%s is typing...[-]", sb.receiverID)
	}
	if sb.flash != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", sb.flash)
	}

	_, _ = fmt.Fprint(sb, line)
}
