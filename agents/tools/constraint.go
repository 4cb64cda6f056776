package tools

import (
	"strings"

	"github.com/madhatter5501/catalyst/domain"
)

// ConstraintLimits configures ScanConstraints, sourced from
// config.Config's MaxModuleLines/MaxFunctionLines/ForbiddenCalls (§9,
// Open Questions 1-2: "Rule of 100", populated from real measurements).
type ConstraintLimits struct {
	MaxModuleLines   int
	MaxFunctionLines int
	ForbiddenCalls   []string
}

// ScanConstraints measures a single written file against limits and
// returns one ConstraintReport per violation found. A clean file
// produces no reports — actual/limit are never both left at zero, per
// the resolution of the "actual=0, limit=0" open question.
func ScanConstraints(path, content string, limits ConstraintLimits) []domain.ConstraintReport {
	var reports []domain.ConstraintReport
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	total := len(lines)

	if limits.MaxModuleLines > 0 && total > limits.MaxModuleLines {
		reports = append(reports, domain.ConstraintReport{
			Rule:     "module_too_long",
			File:     path,
			Actual:   total,
			Limit:    limits.MaxModuleLines,
			Severity: domain.ConstraintBlocking,
		})
	}

	for _, fn := range scanFunctions(lines) {
		if limits.MaxFunctionLines > 0 && fn.length > limits.MaxFunctionLines {
			reports = append(reports, domain.ConstraintReport{
				Rule:     "function_too_long",
				File:     path,
				Actual:   fn.length,
				Limit:    limits.MaxFunctionLines,
				Severity: domain.ConstraintAdvisory,
			})
		}
	}

	for _, call := range limits.ForbiddenCalls {
		if call == "" {
			continue
		}
		if count := strings.Count(content, call); count > 0 {
			reports = append(reports, domain.ConstraintReport{
				Rule:     "forbidden_call:" + call,
				File:     path,
				Actual:   count,
				Limit:    0,
				Severity: domain.ConstraintBlocking,
			})
		}
	}

	return reports
}

type functionSpan struct {
	length int
}

// scanFunctions is a brace-depth heuristic, the Go-native stand-in for
// original_source's syn-based function boundaries (the target worktree
// may hold Go, Rust, or JS/TS, so a real AST walk isn't one-size-fits
// all here): a span starts the first time depth rises from 0 to 1 and
// ends when depth returns to 0, and its line count is compared against
// MaxFunctionLines. Braces inside string/rune literals are not excluded,
// so this is advisory-grade, not exact.
func scanFunctions(lines []string) []functionSpan {
	var spans []functionSpan
	depth := 0
	start := -1
	for i, line := range lines {
		for _, r := range line {
			switch r {
			case '{':
				if depth == 0 {
					start = i
				}
				depth++
			case '}':
				if depth > 0 {
					depth--
					if depth == 0 && start >= 0 {
						spans = append(spans, functionSpan{length: i - start + 1})
						start = -1
					}
				}
			}
		}
	}
	return spans
}
