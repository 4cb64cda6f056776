package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	serveDev  bool
	servePort string
)

// serveCmd starts the housekeeping loop and blocks for SIGINT/SIGTERM,
// the process-lifetime half of §6.6's serve|init|run triad. The HTTP
// surface named by --port is an explicit non-goal (out of scope per
// the collaborators list); the flag is accepted for CLI-shape parity
// with that eventual surface and is otherwise unused: nothing listens on it.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background reaper and worktree sweep",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "verbose dev-mode logging")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "reserved for the HTTP surface (not implemented)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Print(banner())
	if serveDev {
		flagVerbose = true
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	go a.dispatcher.Run(ctx)
	defer a.dispatcher.Stop()
	a.housekeeper.Run(ctx)

	a.logger.Info("catalyst serving", "repo_root", a.cfg.RepoRoot, "db", flagDBPath)
	<-ctx.Done()
	a.logger.Info("shutting down")
	return nil
}
