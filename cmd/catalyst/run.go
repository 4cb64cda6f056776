package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/madhatter5501/catalyst/domain"
	"github.com/madhatter5501/catalyst/inbox"
	"github.com/spf13/cobra"
)

var runMode string

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Run a goal through the pipeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runGoal,
}

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", string(domain.ModeLab), "lab, speed_run or fortress")
	rootCmd.AddCommand(runCmd)
}

func runGoal(cmd *cobra.Command, args []string) error {
	fmt.Print(banner())

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

	commands := make(chan inbox.Command, 1)
	go approvalPrompt(ctx, a, commands)

	featureID := "feat-" + uuid.NewString()[:8]
	goalText := args[0]
	mode := domain.Mode(runMode)

	feature := domain.Feature{
		ID:          featureID,
		Title:       goalText,
		Stage:       domain.StageParsing,
		Description: goalText,
		Mode:        mode,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := a.store.CreateFeature(feature); err != nil {
		return err
	}

	goal := domain.Goal{FeatureID: featureID, Text: goalText, CreatedAt: time.Now().UTC()}
	result, err := a.coordinator.Run(ctx, goal, mode, commands)
	if err != nil {
		return err
	}
	if !result.Success {
		feature.Stage = domain.StageFailed
		_ = a.store.UpdateFeature(feature)
		return fmt.Errorf("pipeline did not reach execution_ready: %d decisions, %d verdicts", len(result.Decisions), len(result.Verdicts))
	}

	fmt.Printf("parsed: %d unknown(s) resolved\n", len(result.Unknowns))

	atomization, mission, err := a.coordinator.PlanExecution(ctx, featureID, goalText, goalText, result.Decisions)
	if err != nil {
		return err
	}
	fmt.Printf("atomized: %d module(s), %d task(s)\n", len(atomization.Modules), len(mission.Tasks))

	feature.Stage = domain.StageArchitecting
	if err := a.store.UpdateFeature(feature); err != nil {
		return err
	}

	if len(mission.DraftingMissions) > 0 {
		worktreePath, _, err := a.worktree.CreateFeatureWorktree(featureID)
		if err != nil {
			return err
		}
		draftResult, err := a.coordinator.Draft(ctx, mission.DraftingMissions, worktreePath)
		if err != nil {
			return err
		}
		fmt.Printf("drafted: %d file(s) written, %d error(s)\n", draftResult.FilesWritten, len(draftResult.Errors))
	}

	results := a.pool.Run(ctx, []string{featureID}, commands)
	outcome := results[0]
	if !outcome.Success {
		return fmt.Errorf("build failed: %s", outcome.Error)
	}

	fmt.Println("merged:", featureID)
	return nil
}

// approvalPrompt is the CLI's interactive stand-in for the approval
// channel named in §6.4: on InteractionRequired it prompts on stdin and
// resumes the coordinator with the typed response.
func approvalPrompt(ctx context.Context, a *app, commands chan<- inbox.Command) {
	sub := a.bus.Subscribe()
	defer sub.Unsubscribe()
	reader := bufio.NewReader(os.Stdin)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if ev.Kind != domain.EventInteractionRequired {
				continue
			}
			id, _ := ev.Data["interaction_id"].(string)
			title, _ := ev.Data["title"].(string)
			fmt.Printf("\n[approval needed] %s\n> ", title)
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			response := strings.TrimSpace(line)
			if err := a.inbox.Resolve(id, response); err != nil {
				fmt.Fprintln(os.Stderr, "catalyst: resolve interaction:", err)
				continue
			}
			commands <- inbox.Command{Kind: inbox.CommandResume, ID: id}
		}
	}
}
