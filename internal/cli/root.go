package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const asciiLogo = ` ___  ___ __  __ ___  ___  ___  ___    ___  ___
|_ _|| __|\ \/ /| _ )| _ \|_ _||   \  / __|| __|
 | | | _|  >  < | _ \|   / | | | |) || (_ || _|
|___||_|  /_/\_\|___/|_|_\|___||___/  \___||___|`

var rootCmd = &cobra.Command{
	Use:   "ifxbridge",
	Short: "Resilient connection manager for remote databases",
	Long: asciiLogo + `

ifxbridge keeps a single database connection alive across flaky networks.
It caches one connection per target, validates it before reuse, and
re-establishes it with bounded exponential backoff when the server drops it.

Connection settings resolve in precedence order:
  flags > IFX_* environment variables > ifxbridge.yaml > defaults

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Database connection failed
  12 - User denied overwrite approval
  13 - SQL execution failed
  14 - Server unavailable after all retry attempts
  15 - Timed out waiting for a connection`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("help", false, "Help for ifxbridge")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
