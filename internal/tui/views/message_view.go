package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/pairchat/internal/store"
	"github.com/rivo/tview"
)

// MessageView displays the conversation transcript, oldest first.
type MessageView struct {
	*tview.TextView
	selfID string
}

// NewMessageView creates the transcript view for the given local user.
func NewMessageView(selfID string) *MessageView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(" Messages ")

	return &MessageView{TextView: tv, selfID: selfID}
}

// SetCounterpart updates the title with the counterpart's ID.
func (mv *MessageView) SetCounterpart(receiverID string) {
	mv.SetTitle(fmt.Sprintf(" %s ", receiverID))
}

// Update redraws the transcript.
func (mv *MessageView) Update(msgs []store.Message) {
	mv.Clear()

	if len(msgs) == 0 {
		_, _ = fmt.Fprint(mv, "\n [::d]No messages yet. Say hi![-:-:-]\n")
		return
	}

	for _, m := range msgs {
		sender := m.SenderID
		if m.SenderID == mv.selfID {
			sender = "You"
		}
		ts := formatTimestamp(m.CreatedAt)
		line := fmt.Sprintf("[::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n", sender, ts, m.Text)
		_, _ = fmt.Fprint(mv, line)
	}

	mv.ScrollToEnd()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
