package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prescripto-auth/internal/session"

	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the session resolved, reconnecting while the server is down",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			e.manager.Subscribe(func(ev session.Event) {
				fmt.Printf("%s  %s\n", time.Now().Format(time.TimeOnly), describe(ev.Snapshot))
			})

			snap, err := e.settle(ctx)
			if err != nil {
				return err
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				if snap.Status == session.LoggedOut {
					return errors.New("not logged in")
				}
				if snap.Status == session.Degraded && snap.Classification == session.ClassUnreachable {
					if err := e.manager.Reconnect(ctx); err != nil && !errors.Is(err, context.Canceled) {
						fmt.Fprintln(os.Stderr, err)
					}
				}

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}

				if _, err := e.manager.Refresh(ctx); err != nil && !errors.Is(err, session.ErrSuperseded) {
					if errors.Is(err, session.ErrNoCredential) {
						return errors.New("not logged in")
					}
					return err
				}
				snap = e.manager.Snapshot()
			}
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Minute, "How often to re-check the session")

	return cmd
}
