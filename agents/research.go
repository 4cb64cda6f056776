package agents

import (
	"context"
	"encoding/json"

	"github.com/madhatter5501/catalyst/agents/tools"
	"github.com/madhatter5501/catalyst/domain"
)

// maxResearchToolRounds bounds the tool-calling loop before the adapter
// forces a final answer without further tool access.
const maxResearchToolRounds = 3

// Research wraps the Research adapter (§4.6): it may call search_crates
// and search_web during its loop before producing a ResearchResult. It
// satisfies research.Adapter.
type Research struct {
	registry *Registry
	search   *tools.WebSearcher
}

// NewResearch builds a Research adapter. searxngEndpoint may be empty.
func NewResearch(registry *Registry, searxngEndpoint string) *Research {
	return &Research{registry: registry, search: tools.NewWebSearcher(searxngEndpoint)}
}

type researchToolCall struct {
	Tool       string `json:"tool"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type researchStep struct {
	ToolCall *researchToolCall      `json:"tool_call,omitempty"`
	Result   *domain.ResearchResult `json:"result,omitempty"`
}

// Research implements research.Adapter.
func (a *Research) Research(ctx context.Context, unknownID, question, researchContext string) (domain.ResearchResult, error) {
	transcript := "Unknown id: " + unknownID + "\nQuestion: " + question + "\nContext: " + researchContext +
		"\n\nYou may call tools before answering. Respond with JSON: either " +
		`{"tool_call": {"tool": "search_crates"|"search_web", "query": "...", "max_results": 5}}` +
		" or the final " + `{"result": {"unknown_id": "...", "options": [...], "recommended": "...", "summary": "..."}}.`

	for round := 0; round < maxResearchToolRounds; round++ {
		var step researchStep
		if err := a.registry.callStructured(ctx, "research", "research", transcript, &step); err != nil {
			return domain.ResearchResult{}, err
		}

		if step.Result != nil {
			step.Result.UnknownID = unknownID
			return *step.Result, nil
		}
		if step.ToolCall == nil {
			return domain.ResearchResult{}, domain.NewError(domain.KindSchemaViolation, "research: neither tool_call nor result present", nil)
		}

		results := a.invokeTool(ctx, *step.ToolCall)
		encoded, _ := json.Marshal(results)
		transcript += "\n\nTool " + step.ToolCall.Tool + " result:\n" + string(encoded) +
			"\n\nContinue: call another tool, or respond with the final {\"result\": {...}}."
	}

	var final domain.ResearchResult
	if err := a.registry.callStructured(ctx, "research", "research",
		transcript+"\n\nTool budget exhausted. Respond now with ONLY the final {\"result\": {...}}.", &struct {
			Result *domain.ResearchResult `json:"result"`
		}{Result: &final}); err != nil {
		return domain.ResearchResult{}, err
	}
	final.UnknownID = unknownID
	return final, nil
}

func (a *Research) invokeTool(ctx context.Context, call researchToolCall) []tools.SearchResult {
	maxResults := call.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	switch call.Tool {
	case "search_crates":
		return tools.SearchCrates(ctx, call.Query, maxResults)
	case "search_web":
		return a.search.SearchWeb(ctx, call.Query, maxResults)
	default:
		return nil
	}
}
