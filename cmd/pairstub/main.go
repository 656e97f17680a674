package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/matheus3301/pairchat/internal/stub"
	"go.uber.org/zap"
)

// pairstub serves the in-memory collaborator backend: the message history
// REST API and the websocket push channel. Useful for local development and
// demos where the real backend is not running.
func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           stub.New(logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("pairstub listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("serve", zap.Error(err))
	}
}
