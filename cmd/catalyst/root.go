// Command catalyst is the core CLI (§6.6): serve, init and run, plus a
// status inspector. Restructured from the teacher's flag.Parse block
// (cmd/factory/main.go) onto cobra subcommands, following the pack's own
// one-file-per-subcommand layout (tim-coutinho-agentops's cmd/ao).
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	flagRepoRoot string
	flagDBPath   string
	flagConfig   string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "catalyst",
	Short: "Catalyst pipeline coordinator",
	Long: `catalyst drives an informal goal through Parse, Research,
Architect/Critic, Atomize, Taskmaster, Draft, Build and Merge, producing
verified code changes on isolated branches.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRepoRoot, "repo", ".", "repository root")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", ".catalyst/catalyst.db", "sqlite database path")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", ".catalyst/config.json", "config.json path (optional)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")
}

func banner() string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return ""
	}
	return `
  ____ _  _ _____ _   _   _ ____ _____
 / ___| || |_   _| | | | | / ___|_   _|
| |   | || |_| | | |_| | | \___ \ | |
| |___|__   _| | |  _  | |_ ___) || |
 \____|  |_| |_| |_| |_(_)____/ |_|

 pipeline coordinator
`
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "catalyst:", err)
		os.Exit(exitCodeFor(err))
	}
}
