package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/pairchat/internal/app"
	"github.com/matheus3301/pairchat/internal/config"
	"github.com/matheus3301/pairchat/internal/lock"
	"github.com/matheus3301/pairchat/internal/session"
	"github.com/matheus3301/pairchat/internal/tui"
	"go.uber.org/fx"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	receiverFlag := flag.String("receiver", "", "counterpart user id")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", session.ConfigPath(), err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	receiverID := *receiverFlag
	if receiverID == "" {
		fmt.Fprintln(os.Stderr, "error: --receiver is required")
		os.Exit(1)
	}
	if receiverID == cfg.UserID {
		fmt.Fprintln(os.Stderr, "error: receiver must be a different user")
		os.Exit(1)
	}

	var ui *tui.App
	fxApp := fx.New(
		app.Module(app.Params{
			SessionName: sessionName,
			UserID:      cfg.UserID,
			ReceiverID:  receiverID,
			APIURL:      cfg.APIURL,
			PushURL:     cfg.PushURL,
		}),
		fx.Populate(&ui),
		// The TUI owns the terminal; fx event output goes nowhere.
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		var held *lock.LockHeldError
		if errors.As(err, &held) {
			fmt.Fprintf(os.Stderr, "conversation already open in another process (pid %d)\n", held.PID)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}

	runErr := ui.Run()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := fxApp.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}
