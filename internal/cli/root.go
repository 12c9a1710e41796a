// Package cli wires the commands. It owns exit-code mapping and user-facing
// output; the packages underneath only classify and report.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/wordpusher/internal/config"
	"github.com/example/wordpusher/internal/notify"
	"github.com/example/wordpusher/internal/push"
	"github.com/example/wordpusher/internal/review"
	"github.com/example/wordpusher/internal/store"
)

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wordpusher",
		Short:         "Spaced-repetition word review over a flat CSV file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newPushCmd(),
		newAddCmd(),
		newListCmd(),
		newServeCmd(),
		newImportCmd(),
		newWebCmd(),
		newHealthCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Println("Error:", err)
		return 1
	}
	return 0
}

// newPusher constructs the per-invocation collaborators; there is no shared
// global store handler.
func newPusher(cfg *config.Config) (*push.Pusher, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("NTFY_TOPIC is not configured")
	}
	st := store.New(cfg.StorePath)
	sched := review.NewScheduler()
	sched.BatchSize = cfg.WordsPerPush
	disp := notify.New(cfg.ServerURL, cfg.Topic, cfg.FailLogPath())
	return push.New(st, sched, disp), nil
}
