package main

import (
	"fmt"

	"github.com/madhatter5501/catalyst/config"
	"github.com/spf13/cobra"
)

var (
	initName        string
	initDescription string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new catalyst project",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "project name")
	initCmd.Flags().StringVar(&initDescription, "description", "", "project description")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	fmt.Print(banner())

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.store.GetProjectState()
	if err != nil {
		return err
	}
	if _, seeded := state["phase"]; seeded {
		fmt.Println("project already initialized, skipping")
		return nil
	}

	state["phase"] = "idea"
	state["name"] = initName
	state["description"] = initDescription
	if err := a.store.SetProjectState(state); err != nil {
		return err
	}
	if err := config.Save(flagConfig, a.cfg); err != nil {
		return err
	}

	fmt.Println("initialized", flagDBPath)
	fmt.Println("config written to", flagConfig)
	fmt.Println()
	fmt.Println("next: catalyst run \"<goal>\"")
	return nil
}
