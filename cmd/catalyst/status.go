package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project phase, feature stages and pending interactions",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.store.GetProjectState()
	if err != nil {
		return err
	}
	fmt.Println("=== catalyst status ===")
	if phase, ok := state["phase"]; ok {
		fmt.Println("phase:", phase)
	} else {
		fmt.Println("phase: (uninitialized — run 'catalyst init')")
	}
	fmt.Println()

	features, err := a.store.ListFeatures()
	if err != nil {
		return err
	}
	fmt.Printf("features (%d):\n", len(features))
	for _, f := range features {
		fmt.Printf("  [%s] %s - %s (updated %s)\n", f.ID, f.Title, f.Stage, humanize.Time(f.UpdatedAt))
		if f.Error != "" {
			fmt.Printf("      error: %s\n", f.Error)
		}
	}
	fmt.Println()

	pending, err := a.inbox.ListPending()
	if err != nil {
		return err
	}
	fmt.Printf("pending interactions (%d):\n", len(pending))
	for _, in := range pending {
		fmt.Printf("  [%s] %s (asked %s)\n", in.ID, in.Title, humanize.Time(in.CreatedAt))
	}
	fmt.Println()

	fmt.Println("providers:")
	usage := a.providers.AllUsage()
	for _, p := range a.providers.AllStatus() {
		state := "unavailable"
		if p.Available {
			state = "available"
		}
		line := fmt.Sprintf("  %-10s %s", p.Name, state)
		if u, ok := usage[p.Name]; ok && u.TotalRequests > 0 {
			line += fmt.Sprintf(" (%d requests, %d in / %d out tokens)", u.TotalRequests, u.InputTokens, u.OutputTokens)
		}
		fmt.Println(line)
	}
	return nil
}
