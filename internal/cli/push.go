package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/wordpusher/internal/config"
	"github.com/example/wordpusher/internal/notify"
)

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Run one review cycle: select due words, deliver, advance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			pusher, err := newPusher(cfg)
			if err != nil {
				return err
			}

			res, err := pusher.Run(cmd.Context())
			if errors.Is(err, notify.ErrDeliveryFailed) {
				// No review was recorded this run; the batch is in the
				// failure log for manual recovery.
				return fmt.Errorf("delivery failed for %d words, see %s", res.Selected, cfg.FailLogPath())
			}
			if err != nil {
				return err
			}

			if res.Selected == 0 {
				fmt.Println("No words due today.")
				return nil
			}
			fmt.Printf("Pushed %d words, advanced %d.\n", res.Selected, res.Advanced)
			if res.Malformed > 0 {
				fmt.Printf("Skipped %d malformed rows.\n", res.Malformed)
			}
			return nil
		},
	}
}
