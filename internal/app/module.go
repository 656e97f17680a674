package app

import (
	"context"

	"github.com/matheus3301/pairchat/internal/api"
	"github.com/matheus3301/pairchat/internal/bus"
	"github.com/matheus3301/pairchat/internal/logging"
	"github.com/matheus3301/pairchat/internal/presence"
	"github.com/matheus3301/pairchat/internal/push"
	"github.com/matheus3301/pairchat/internal/send"
	"github.com/matheus3301/pairchat/internal/session"
	"github.com/matheus3301/pairchat/internal/status"
	"github.com/matheus3301/pairchat/internal/store"
	chatsync "github.com/matheus3301/pairchat/internal/sync"
	"github.com/matheus3301/pairchat/internal/tui"
	"github.com/matheus3301/pairchat/internal/typing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved conversation configuration passed to the fx module.
type Params struct {
	SessionName string
	UserID      string
	ReceiverID  string
	APIURL      string
	PushURL     string
}

// Module returns the fx module for a chat session, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("app",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideStore,
			provideAPIClient,
			providePushManager,
			provideTyping,
			providePresence,
			provideHistory,
			providePipeline,
			provideSession,
			provideTUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	// The TUI owns the terminal, so logs go to the session file only.
	return logging.NewFileOnly(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideStore() *store.Store {
	return store.New()
}

func provideAPIClient(p Params, logger *zap.Logger) *api.Client {
	return api.NewClient(p.APIURL, logger)
}

func providePushManager(p Params, b *bus.Bus, machine *status.Machine, logger *zap.Logger) *push.Manager {
	return push.NewManager(p.PushURL, p.UserID, b, machine, logger)
}

func provideTyping(p Params, conn *push.Manager, b *bus.Bus, logger *zap.Logger) *typing.Coordinator {
	return typing.NewCoordinator(conn, b, p.UserID, p.ReceiverID, logger)
}

func providePresence(b *bus.Bus) *presence.Tracker {
	return presence.NewTracker(b)
}

func provideHistory(p Params, client *api.Client, st *store.Store, b *bus.Bus, logger *zap.Logger) *chatsync.History {
	return chatsync.NewHistory(client, st, b, p.UserID, p.ReceiverID, logger)
}

func providePipeline(p Params, client *api.Client, conn *push.Manager, ty *typing.Coordinator, st *store.Store, b *bus.Bus, logger *zap.Logger) *send.Pipeline {
	return send.NewPipeline(client, conn, ty, st, b, p.UserID, p.ReceiverID, logger)
}

func provideSession(
	p Params,
	b *bus.Bus,
	st *store.Store,
	conn *push.Manager,
	ty *typing.Coordinator,
	pr *presence.Tracker,
	hist *chatsync.History,
	logger *zap.Logger,
) *session.Session {
	return session.New(p.SessionName, p.UserID, p.ReceiverID, b, st, conn, ty, pr, hist, logger)
}

func provideTUI(
	p Params,
	b *bus.Bus,
	st *store.Store,
	pipeline *send.Pipeline,
	ty *typing.Coordinator,
	hist *chatsync.History,
	pr *presence.Tracker,
	logger *zap.Logger,
) *tui.App {
	return tui.NewApp(p.SessionName, p.UserID, p.ReceiverID, b, st, pipeline, ty, hist, pr, logger)
}

func registerLifecycle(lc fx.Lifecycle, sess *session.Session, ui *tui.App, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// The session owns the conversation lock, the push connection
			// loop and the initial history load.
			return sess.Start(context.Background())
		},
		OnStop: func(_ context.Context) error {
			ui.Stop()
			sess.Close()
			logger.Info("session shut down")
			return nil
		},
	})
}
