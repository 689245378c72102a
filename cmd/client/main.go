package main

import (
	"fmt"
	"os"

	"prescripto-auth/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	logger.Init()

	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "prescripto",
		Short: "Command-line client for the Prescripto API",
		Long: `prescripto keeps a login session against a Prescripto backend.

The credential is stored in a file (TOKEN_FILE, default ~/.prescripto/token)
or in Redis when REDIS_ADDR is set. BACKEND_URL selects the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel("debug")
			} else {
				logger.SetLevel("warn")
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log session activity")

	rootCmd.AddCommand(
		loginCmd(),
		registerCmd(),
		logoutCmd(),
		whoamiCmd(),
		doctorsCmd(),
		watchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
