package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/cpxbuddy/cpxbuddy/internal/log"
	"github.com/cpxbuddy/cpxbuddy/internal/session"
)

// runSessions lists persisted sessions without requiring API keys, so
// it works on a machine that only holds the session spool.
func runSessions() error {
	dir, err := sessionsDir()
	if err != nil {
		return err
	}

	store, err := session.New(dir, log.NewNop())
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}

	sessions := store.All()
	if len(sessions) == 0 {
		fmt.Println("No sessions found in", dir)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tSESSION\tAUTH\tLAST ACCESSED")
	for _, s := range sessions {
		auth := "-"
		if s.Authenticated() {
			auth = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			s.Email, s.ID, auth, s.LastAccessed.Format(time.RFC3339))
	}
	return w.Flush()
}

// sessionsDir resolves the spool directory the same way config does,
// minus the validation that needs API credentials.
func sessionsDir() (string, error) {
	if dir := os.Getenv("CPXBUDDY_SESSIONS_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	return filepath.Join(home, ".cpxbuddy", "sessions"), nil
}
