package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/openifx/ifxbridge/internal/config"
	"github.com/openifx/ifxbridge/pkg/ifxbridge"
)

// completeDialects provides shell completion for --dialect values from the
// dialect registry.
func completeDialects(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var matches []string
	for _, name := range ifxbridge.DialectNames() {
		if strings.HasPrefix(name, toComplete) {
			matches = append(matches, name)
		}
	}
	return matches, cobra.ShellCompDirectiveNoFileComp
}

// completeAuthMethods provides shell completion for --auth values.
func completeAuthMethods(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var matches []string
	for _, token := range config.AuthMethodTokens() {
		if strings.HasPrefix(token, toComplete) {
			matches = append(matches, token)
		}
	}
	return matches, cobra.ShellCompDirectiveNoFileComp
}

// completeIsolationLevels provides shell completion for --isolation values.
func completeIsolationLevels(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var matches []string
	for _, token := range config.IsolationTokens() {
		if strings.HasPrefix(token, toComplete) {
			matches = append(matches, token)
		}
	}
	return matches, cobra.ShellCompDirectiveNoFileComp
}

// completeDirectories provides shell completion for directory paths.
func completeDirectories(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	// Let the shell handle directory completion
	return nil, cobra.ShellCompDirectiveFilterDirs
}

// registerConnectionCompletions wires value completion onto the shared
// connection flags. Registration only fails for unknown flag names.
func registerConnectionCompletions(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("dialect", completeDialects)
	_ = cmd.RegisterFlagCompletionFunc("auth", completeAuthMethods)
	_ = cmd.RegisterFlagCompletionFunc("isolation", completeIsolationLevels)
}
