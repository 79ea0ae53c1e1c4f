// Package cmd provides the cpxbuddy CLI commands.
//
// Commands:
//   - serve: HTTP API server (chat, sessions, deposit webhooks)
//   - sessions: list persisted sessions
//
// Signal handling and graceful shutdown run via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Execute is the main entry point for the cpxbuddy CLI.
func Execute() error {
	// A local .env is a convenience for development; absence is fine.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		return runServe()
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "sessions":
		return runSessions()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("cpxbuddy - conversational assistant for the Copperx payout platform")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  cpxbuddy serve [addr]  Start the HTTP API server (default: 127.0.0.1:3000)")
	fmt.Println("  cpxbuddy sessions      List persisted sessions")
	fmt.Println("  cpxbuddy --version     Show version information")
	fmt.Println("  cpxbuddy --help        Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  COPPERX_API_KEY        Required: Copperx platform API key")
	fmt.Println("  GEMINI_API_KEY         Required: Gemini API key")
	fmt.Println("  COPPERX_API_URL        Optional: platform base URL")
	fmt.Println("  CPXBUDDY_SESSIONS_DIR  Optional: session spool directory")
	fmt.Println("  PUSHER_APP_ID/KEY/SECRET/CLUSTER")
	fmt.Println("                         Optional: enable deposit notifications")
	fmt.Println("  DEBUG                  Optional: enable debug logging")
}
