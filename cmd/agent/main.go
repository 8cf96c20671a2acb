package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crowguard/internal/monitor"
	"crowguard/internal/shared/logger"
)

// The agent runs the session-side monitor against a local state
// mirror. In production the game embeds the monitor package directly;
// this binary exists for soak testing the detection/report path
// against a running verification service.
func main() {
	var (
		userID    = flag.String("user", "", "external user id")
		serverURL = flag.String("server", "http://localhost:8080", "verification service base URL")
		version   = flag.String("version", "1.0.0", "game version to report")
		devMode   = flag.Bool("dev", true, "human-readable logs")
	)
	flag.Parse()

	if *userID == "" {
		fmt.Println("FATAL: -user is required")
		os.Exit(1)
	}

	baseLogger := logger.New(*devMode)

	session := monitor.NewSessionState(*userID, *version)
	queue := monitor.NewReportQueue(64, &baseLogger)
	sink := monitor.NewHTTPSink(*serverURL, 5*time.Second, &baseLogger)

	mon := monitor.New(session, session, queue, sink, monitor.DefaultConfig(), &baseLogger)

	ctx, cancel := context.WithCancel(context.Background())
	go mon.Run(ctx)
	baseLogger.Info().Str("user_id", *userID).Str("server", *serverURL).Msg("Agent monitor running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	queue.Close()
	baseLogger.Info().Msg("Agent stopped")
}
