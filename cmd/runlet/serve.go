package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/runlet/internal/config"
	"github.com/michaelbrown/runlet/internal/engine"
	"github.com/michaelbrown/runlet/internal/server"
	"github.com/michaelbrown/runlet/internal/session"
	"github.com/michaelbrown/runlet/internal/storage/sqlite"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the runlet chat server",
	Long: `Start the runlet HTTP server with the WebSocket chat endpoint and the
run-history API.

Examples:
  runlet serve
  runlet serve --port 9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	profile, err := cfg.Profile()
	if err != nil {
		return err
	}
	log.Printf("Interpreter: %s (%v)", profile.Name, profile.Command)

	// Open run-history storage
	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	coord := session.NewCoordinator(engine.New(profile), store)

	// Determine port
	port := cfg.Server.Port
	if portFlag > 0 {
		port = portFlag
	}

	// Create and start server
	srv := server.New(store, coord)

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		srv.Shutdown(context.Background())
	}()

	return srv.Start(port)
}
