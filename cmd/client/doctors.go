package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"prescripto-auth/internal/session"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func doctorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctors [speciality]",
		Short: "List doctors, optionally filtered by speciality",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			// the listing needs no credential, so it loads alongside the
			// session instead of after it
			var snap session.Snapshot
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				snap, err = e.settle(gctx)
				return err
			})
			g.Go(func() error {
				// failure is already surfaced as a notice; show an empty list
				_ = e.catalog.Refresh(gctx)
				return nil
			})
			if err := g.Wait(); err != nil {
				return err
			}

			var speciality string
			if len(args) == 1 {
				speciality = args[0]
			}

			fmt.Println(describe(snap))
			fmt.Println()

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSPECIALITY\tFEES\tAVAILABLE")
			for _, d := range e.catalog.Filter(speciality) {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%t\n", d.Name, d.Speciality, d.Fees, d.Available)
			}
			return tw.Flush()
		},
	}
}
