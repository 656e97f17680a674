package tui

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/pairchat/internal/bus"
	"github.com/matheus3301/pairchat/internal/presence"
	"github.com/matheus3301/pairchat/internal/send"
	"github.com/matheus3301/pairchat/internal/status"
	"github.com/matheus3301/pairchat/internal/store"
	chatsync "github.com/matheus3301/pairchat/internal/sync"
	"github.com/matheus3301/pairchat/internal/tui/views"
	"github.com/matheus3301/pairchat/internal/typing"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const flashDuration = 5 * time.Second

// App is the conversation TUI shell. It subscribes to the session bus and
// repaints through QueueUpdateDraw; it never touches the store or the
// coordinators from the draw goroutine.
type App struct {
	app       *tview.Application
	msgView   *views.MessageView
	composer  *views.Composer
	statusBar *views.StatusBar

	bus      *bus.Bus
	store    *store.Store
	pipeline *send.Pipeline
	typing   *typing.Coordinator
	history  *chatsync.History
	presence *presence.Tracker
	logger   *zap.Logger

	conv       string
	receiverID string

	ctx        context.Context
	cancel     context.CancelFunc
	flashTimer *time.Timer
}

// NewApp builds the TUI for one conversation.
func NewApp(
	sessionName, userID, receiverID string,
	b *bus.Bus,
	st *store.Store,
	pipeline *send.Pipeline,
	ty *typing.Coordinator,
	hist *chatsync.History,
	pr *presence.Tracker,
	logger *zap.Logger,
) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:        tview.NewApplication(),
		msgView:    views.NewMessageView(userID),
		composer:   views.NewComposer(),
		statusBar:  views.NewStatusBar(sessionName, receiverID),
		bus:        b,
		store:      st,
		pipeline:   pipeline,
		typing:     ty,
		history:    hist,
		presence:   pr,
		logger:     logger,
		conv:       store.PairKey(userID, receiverID),
		receiverID: receiverID,
		ctx:        ctx,
		cancel:     cancel,
	}

	a.msgView.SetCounterpart(receiverID)
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupCallbacks() {
	a.composer.SetOnChange(func(text string) {
		a.typing.SetDraft(text)
	})

	a.composer.SetOnSend(func(text string) {
		go func() {
			err := a.pipeline.Send(a.ctx, text)
			if err == nil || errors.Is(err, send.ErrEmptyMessage) {
				return
			}
			// The pipeline restored the draft; put it back in the field so
			// pressing Enter retries.
			a.app.QueueUpdateDraw(func() {
				a.composer.SetTextSilently(a.typing.Draft())
				a.flash("Send failed. Press Enter to retry.")
			})
		}()
	})
}

func (a *App) setupLayout() {
	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.msgView, 0, 1, false).
		AddItem(a.composer, 1, 0, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlR:
			go func() {
				if err := a.history.Refresh(a.ctx); err != nil {
					a.logger.Warn("history refresh failed", zap.Error(err))
				}
			}()
			return nil
		case tcell.KeyEscape:
			a.app.Stop()
			return nil
		}
		return event
	})
}

// eventLoop routes session events into widget updates.
func (a *App) eventLoop() {
	events, unsub := a.bus.Subscribe("", 128)
	defer unsub()

	for {
		select {
		case <-a.ctx.Done():
			return
		case ev := <-events:
			a.handle(ev)
		}
	}
}

func (a *App) handle(ev bus.Event) {
	switch ev.Kind {
	case bus.KindMessageAppended, bus.KindHistoryLoaded:
		msgs := a.store.All(a.conv)
		a.app.QueueUpdateDraw(func() {
			a.msgView.Update(msgs)
		})
	case bus.KindHistoryFailed:
		a.app.QueueUpdateDraw(func() {
			a.flash("Failed to load messages. Press Ctrl+R to retry.")
		})
	case bus.KindSendFailed:
		a.app.QueueUpdateDraw(func() {
			a.flash("Send failed. Press Enter to retry.")
		})
	case bus.KindRemoteTyping:
		isTyping, _ := ev.Payload.(bool)
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetTyping(isTyping)
		})
	case bus.KindPresenceChanged:
		online := a.presence.Online(a.receiverID)
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetOnline(online)
		})
	case bus.KindLinkStatus:
		change, ok := ev.Payload.(status.StatusChange)
		if !ok {
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetLink(string(change.To))
		})
	}
}

// flash shows a transient status-bar message. Must run on the draw goroutine.
func (a *App) flash(msg string) {
	a.statusBar.SetFlash(msg)
	if a.flashTimer != nil {
		a.flashTimer.Stop()
	}
	a.flashTimer = time.AfterFunc(flashDuration, func() {
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetFlash("")
		})
	})
}

// Run starts the event loop and blocks on the terminal UI.
func (a *App) Run() error {
	go a.eventLoop()
	a.msgView.Update(a.store.All(a.conv))
	return a.app.Run()
}

// Stop tears the UI down. Safe to call more than once.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
