// Package config is the ambient layered configuration surface: flag
// defaults and a persisted config.json (§6.1). Provider credentials are
// not part of it; the agents/provider constructors read them from the
// environment. Reworked from the teacher's flag block in
// cmd/factory/main.go and original_source's swarm::CoordinatorConfig.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/madhatter5501/catalyst/domain"
)

// Config is the coordinator/pool's full set of tunables, persisted as
// .catalyst/config.json (§6.1) and editable live via Watch.
type Config struct {
	RepoRoot    string `json:"repo_root"`
	WorktreeDir string `json:"worktree_dir"`
	MainBranch  string `json:"main_branch"`

	Mode domain.Mode `json:"mode"`

	MaxRejections            int  `json:"max_rejections"`
	MaxConcurrentFeatures    int  `json:"max_concurrent_features"`
	MaxModuleLines           int      `json:"max_module_lines"`
	MaxFunctionLines         int      `json:"max_function_lines"`
	ForbiddenCalls           []string `json:"forbidden_calls,omitempty"`
	RequireArchitectApproval bool     `json:"require_architect_approval"`
	RequireCriticApproval    bool     `json:"require_critic_approval"`

	AgentTimeout time.Duration `json:"agent_timeout"`

	GlobalProvider    string            `json:"global_provider"`
	GlobalModel       string            `json:"global_model,omitempty"`
	BaseURL           string            `json:"base_url,omitempty"`
	PerAgentModels    map[string]string `json:"per_agent_models,omitempty"`
	PerAgentProviders map[string]string `json:"per_agent_providers,omitempty"`
	ScraperModel      string            `json:"scraper_model,omitempty"`
	SearxngURL        string            `json:"searxng_url,omitempty"`

	DraftingConcurrency int `json:"drafting_concurrency"`
}

// Default returns the spec's stated defaults (mode=lab, max_rejections=3,
// max_concurrent_features=3), matching original_source's CoordinatorConfig
// defaults and the teacher's flag defaults where the two overlap.
func Default() Config {
	return Config{
		RepoRoot:                 ".",
		WorktreeDir:              "worktrees",
		MainBranch:               "main",
		Mode:                     domain.ModeLab,
		MaxRejections:            3,
		MaxConcurrentFeatures:    3,
		MaxModuleLines:           150,
		MaxFunctionLines:         30,
		ForbiddenCalls:           []string{"unsafe.Pointer(", "os.Exit(", "panic("},
		RequireArchitectApproval: false,
		RequireCriticApproval:    false,
		AgentTimeout:             30 * time.Minute,
		GlobalProvider:           "anthropic",
		DraftingConcurrency:      4,
	}
}

// Load reads config.json at path, falling back to Default() for every
// field a missing or partial file doesn't set. A missing file is not an
// error (§6.1: config.json is optional).
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, domain.NewError(domain.KindConfiguration, "read config.json", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, domain.NewError(domain.KindConfiguration, "parse config.json", err)
	}
	return cfg, nil
}

// Save persists cfg to path, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return domain.NewError(domain.KindConfiguration, "mkdir for config.json", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return domain.NewError(domain.KindConfiguration, "encode config.json", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.NewError(domain.KindConfiguration, "write config.json", err)
	}
	return nil
}

// Watch starts an fsnotify watch on path and invokes onChange with the
// freshly-reloaded Config every time the file is written. A reload that
// fails to read or parse is skipped without being reported, and
// onChange is not called for it.
func Watch(path string, onChange func(Config)) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, domain.NewError(domain.KindConfiguration, "start config watcher", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, domain.NewError(domain.KindConfiguration, "watch config directory", err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					continue
				}
				onChange(cfg)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher, nil
}
