package cli

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/wordpusher/internal/bot"
	"github.com/example/wordpusher/internal/config"
	"github.com/example/wordpusher/internal/database"
	"github.com/example/wordpusher/internal/health"
	"github.com/example/wordpusher/internal/scheduler"
	"github.com/example/wordpusher/internal/store"
	"github.com/example/wordpusher/internal/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the hourly push scheduler and, if configured, the Telegram bot",
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

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// With a bot configured, delivered batches also trigger
			// per-subscriber Telegram reminders at each chat's chosen hour.
			var subs *database.SubscriberRepository
			var notifier scheduler.Notifier
			if cfg.BotToken != "" {
				db, err := database.Connect(cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer db.Close()

				subs = database.NewSubscriberRepository(db)
				b, err := bot.New(cfg.BotToken, pusher.Store, pusher.Scheduler, pusher, subs, cfg.AdminChatID)
				if err != nil {
					return err
				}
				notifier = b
				go func() {
					if err := b.Start(ctx); err != nil && err != context.Canceled {
						log.Printf("serve: bot stopped: %v", err)
					}
				}()
			} else {
				log.Printf("serve: TELEGRAM_BOT_TOKEN not set, bot disabled")
			}

			var source scheduler.SubscriberSource
			if subs != nil {
				source = subs
			}
			sched := scheduler.New(pusher, source, notifier, cfg.NotifyStartHour, cfg.NotifyEndHour)
			sched.Start()
			defer sched.Stop()
			log.Printf("serve: hourly push checks between %d:00 and %d:00",
				cfg.NotifyStartHour, cfg.NotifyEndHour)

			<-ctx.Done()
			log.Println("serve: shutting down")
			return nil
		},
	}
}

func newWebCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "web",
		Short: "Run the add-word web form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.WebPassword == "" {
				return fmt.Errorf("GRE_PASSWORD is not configured")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := web.New(cfg.WebAddr, cfg.WebPassword, cfg.WebSecret, store.New(cfg.StorePath))
			log.Printf("web: listening on %s", cfg.WebAddr)
			return srv.ListenAndServe(ctx)
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run self-diagnostics over the word file and push endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			checker := health.NewChecker(store.New(cfg.StorePath), cfg.ServerURL)
			report := checker.Run(cmd.Context())
			fmt.Print(report.Render())
			if !report.Healthy() {
				return fmt.Errorf("health check failed")
			}
			return nil
		},
	}
}
