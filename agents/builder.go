package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/madhatter5501/catalyst/agents/tools"
	"github.com/madhatter5501/catalyst/domain"
)

// maxBuilderIterations bounds the Builder's internal tool-calling loop
// (§4.6: "executes until build+tests pass or iteration budget
// exhausted"). Reported back to the caller as BuildResult.Iterations.
const maxBuilderIterations = 8

// Builder wraps the Builder adapter (§4.6): drives a tool-calling loop
// over the fixed Builder tool surface (§6.2) scoped to one worktree,
// until the model reports done or the iteration budget runs out.
type Builder struct {
	registry *Registry
	limits   tools.ConstraintLimits
}

// NewBuilder builds a Builder adapter. limits bounds the "Rule of 100"
// validator ScanConstraints runs over every file the Builder writes.
func NewBuilder(registry *Registry, limits tools.ConstraintLimits) *Builder {
	return &Builder{registry: registry, limits: limits}
}

type builderToolCall struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

type builderStep struct {
	ToolCall *builderToolCall `json:"tool_call,omitempty"`
	Done     bool             `json:"done,omitempty"`
}

// Run drives mission to completion inside worktreePath, returning the
// accumulated BuildResult.
func (b *Builder) Run(ctx context.Context, mission domain.Mission, worktreePath string) (domain.BuildResult, error) {
	toolset := tools.NewBuilder(worktreePath)
	changed := map[string]*domain.FileChange{}

	missionJSON, err := json.Marshal(mission)
	if err != nil {
		return domain.BuildResult{}, domain.NewError(domain.KindConfiguration, "builder: encode mission", err)
	}

	transcript := "Mission (JSON):\n" + string(missionJSON) + "\n\n" +
		"You have access to these tools: read_file{path}, write_file{path,content}, " +
		"list_dir{path?,ignore?}, run_build{}, run_check{}, run_test{}.\n" +
		"At each step, respond with exactly one JSON object: either " +
		`{"tool_call": {"tool": "<name>", "args": {...}}}` + " to call a tool, or " +
		`{"done": true}` + " once the build and tests pass (or you are stuck and should stop).\n" +
		"Start by listing the directory and reading any files relevant to the mission."

	var result domain.BuildResult
	var reports []domain.ConstraintReport
	iterations := 0
	for i := 0; i < maxBuilderIterations; i++ {
		iterations = i + 1
		var step builderStep
		if err := b.registry.callStructured(ctx, "builder", "builder", transcript, &step); err != nil {
			return domain.BuildResult{}, err
		}
		if step.Done || step.ToolCall == nil {
			break
		}

		output, toolErr := b.invoke(ctx, toolset, *step.ToolCall, changed, &reports)
		if toolErr != nil {
			transcript += fmt.Sprintf("\n\nTool %s failed: %s\nContinue: call another tool, or respond with {\"done\": true}.", step.ToolCall.Tool, toolErr.Error())
			continue
		}
		outputJSON, _ := json.Marshal(output)
		transcript += fmt.Sprintf("\n\nTool %s result:\n%s\nContinue: call another tool, or respond with {\"done\": true}.", step.ToolCall.Tool, string(outputJSON))

		if cmd, ok := output.(tools.CommandResult); ok {
			switch step.ToolCall.Tool {
			case "run_build", "run_check":
				result.BuildPassed = cmd.Success
				result.ErrorCount = cmd.ErrorCount
			case "run_test":
				result.TestsPassed = cmd.Success
			}
		}
	}

	result.Iterations = iterations
	result.Success = result.BuildPassed && result.TestsPassed
	result.ConstraintReports = reports
	for _, fc := range changed {
		result.Files = append(result.Files, *fc)
	}
	return result, nil
}

func (b *Builder) invoke(ctx context.Context, toolset *tools.Builder, call builderToolCall, changed map[string]*domain.FileChange, reports *[]domain.ConstraintReport) (any, error) {
	switch call.Tool {
	case "read_file":
		var args struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(call.Args, &args); err != nil {
			return nil, domain.NewError(domain.KindSchemaViolation, "read_file args", err)
		}
		return toolset.ReadFile(args.Path)

	case "write_file":
		var args struct {
			Path    string `json:"path"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(call.Args, &args); err != nil {
			return nil, domain.NewError(domain.KindSchemaViolation, "write_file args", err)
		}
		countLines := func(s string) int {
			if s == "" {
				return 0
			}
			return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
		}
		action := "modified"
		oldLines := 0
		if existing, readErr := toolset.ReadFile(args.Path); readErr == nil {
			oldLines = countLines(existing.Content)
		} else {
			action = "created"
		}
		out, err := toolset.WriteFile(args.Path, args.Content)
		if err != nil {
			return nil, err
		}
		newLines := countLines(args.Content)
		changed[args.Path] = &domain.FileChange{Path: args.Path, Action: action, LinesDelta: newLines - oldLines}
		*reports = append(*reports, tools.ScanConstraints(args.Path, args.Content, b.limits)...)
		return out, nil

	case "list_dir":
		var args struct {
			Path   string   `json:"path"`
			Ignore []string `json:"ignore"`
		}
		if err := json.Unmarshal(call.Args, &args); err != nil {
			return nil, domain.NewError(domain.KindSchemaViolation, "list_dir args", err)
		}
		return toolset.ListDir(args.Path, args.Ignore)

	case "run_build":
		return toolset.RunBuild(ctx)
	case "run_check":
		return toolset.RunCheck(ctx)
	case "run_test":
		return toolset.RunTest(ctx)

	default:
		return nil, domain.NewError(domain.KindNotAllowed, "unknown builder tool: "+call.Tool, nil)
	}
}
