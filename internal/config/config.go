// Package config parses the daemon's on-disk YAML configuration into the
// typed knob surface spec.md §6 names. Parsing is the only ambient concern
// spec.md explicitly places out of scope for the core — but the shape of the
// Config struct is exercised directly by every in-scope component, so it
// lives here rather than behind an interface.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of the on-disk configuration file.
type Config struct {
	DataDir    string           `yaml:"data_dir"`
	LLM        LLMConfig        `yaml:"llm"`
	Persona    PersonaConfig    `yaml:"persona"`
	Memory     MemoryConfig     `yaml:"memory"`
	Autonomy   AutonomyConfig   `yaml:"autonomy"`
	Cryostasis CryostasisConfig `yaml:"cryostasis"`
	Emotion    EmotionConfig    `yaml:"emotion"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LLMConfig configures the LLM endpoint (spec.md §6: llm.{url,model,timeout_s,retries}).
type LLMConfig struct {
	Provider string        `yaml:"provider"` // "anthropic" | "openai"
	URL      string        `yaml:"url"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	TimeoutS int           `yaml:"timeout_s"`
	Retries  int           `yaml:"retries"`
	Timeout  time.Duration `yaml:"-"`
}

// PersonaConfig configures Speak-stage behavior and initial emotion
// (spec.md §6: persona.{name,system_prompt,temperature,stop_tokens,max_output_tokens,examples,default_pad}).
type PersonaConfig struct {
	Name            string   `yaml:"name"`
	SystemPrompt    string   `yaml:"system_prompt"`
	Temperature     float64  `yaml:"temperature"`
	StopTokens      []string `yaml:"stop_tokens"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
	Examples        []string `yaml:"examples"`
	DefaultPAD      PAD      `yaml:"default_pad"`
}

// PAD is the three-axis emotional state tuple used as a default/seed value.
type PAD struct {
	Pleasure  float64 `yaml:"pleasure"`
	Arousal   float64 `yaml:"arousal"`
	Dominance float64 `yaml:"dominance"`
}

// MemoryConfig configures memory sizing
// (spec.md §6: memory.{buffer_size,consolidation_threshold,importance_threshold,semantic_search_limit,auto_snapshot_interval_h}).
type MemoryConfig struct {
	BufferSize             int     `yaml:"buffer_size"`
	ConsolidationThreshold int     `yaml:"consolidation_threshold"`
	ImportanceThreshold    float64 `yaml:"importance_threshold"`
	SemanticSearchLimit    int     `yaml:"semantic_search_limit"`
	AutoSnapshotIntervalH  float64 `yaml:"auto_snapshot_interval_h"`
	WorkingSize            int     `yaml:"working_size"`
	PreserveTail           int     `yaml:"preserve_tail"`
	ContextTokenBudget     int     `yaml:"context_token_budget"`
}

// AutonomyConfig configures BDI pacing
// (spec.md §6: autonomy.{enabled,min_interval_minutes,check_interval_seconds,trigger_probability}).
type AutonomyConfig struct {
	Enabled              bool    `yaml:"enabled"`
	MinIntervalMinutes   float64 `yaml:"min_interval_minutes"`
	CheckIntervalSeconds float64 `yaml:"check_interval_seconds"`
	TriggerProbability   float64 `yaml:"trigger_probability"`
}

// CryostasisConfig configures resource gating
// (spec.md §6: cryostasis.{enabled,poll_s,gpu_pct,cpu_pct,vram_mb,blacklist,wake_cooldown_s}).
type CryostasisConfig struct {
	Enabled        bool     `yaml:"enabled"`
	PollS          float64  `yaml:"poll_s"`
	GPUPct         float64  `yaml:"gpu_pct"`
	CPUPct         float64  `yaml:"cpu_pct"`
	VRAMMb         float64  `yaml:"vram_mb"`
	Blacklist      []string `yaml:"blacklist"`
	WakeCooldownS  float64  `yaml:"wake_cooldown_s"`
}

// EmotionConfig configures PAD decay and circadian modulation
// (spec.md §6: emotion.{pad_decay_rate,decay_interval_s,enable_circadian}).
type EmotionConfig struct {
	PADDecayRate    float64 `yaml:"pad_decay_rate"`
	DecayIntervalS  float64 `yaml:"decay_interval_s"`
	EnableCircadian bool    `yaml:"enable_circadian"`
}

// LoggingConfig controls the ghostlog sink.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Console     bool   `yaml:"console"`
	MetricsPath string `yaml:"metrics_path"`
}

// Default returns the configuration's documented defaults, matching spec.md's
// named defaults wherever one is given.
func Default() Config {
	return Config{
		DataDir: "data",
		LLM: LLMConfig{
			Provider: "anthropic",
			Model:    "claude-sonnet-4-5",
			TimeoutS: 60,
			Retries:  3,
		},
		Persona: PersonaConfig{
			Name:            "Nova",
			Temperature:     0.8,
			MaxOutputTokens: 512,
			DefaultPAD:      PAD{Pleasure: 0.1, Arousal: 0.0, Dominance: 0.0},
		},
		Memory: MemoryConfig{
			BufferSize:             50,
			ConsolidationThreshold: 40,
			ImportanceThreshold:    0.4,
			SemanticSearchLimit:    6,
			AutoSnapshotIntervalH:  6,
			WorkingSize:            10,
			PreserveTail:           10,
			ContextTokenBudget:     2000,
		},
		Autonomy: AutonomyConfig{
			Enabled:              true,
			MinIntervalMinutes:   60,
			CheckIntervalSeconds: 60,
			TriggerProbability:   1.0,
		},
		Cryostasis: CryostasisConfig{
			Enabled:       true,
			PollS:         15,
			GPUPct:        90,
			CPUPct:        90,
			VRAMMb:        0,
			WakeCooldownS: 10,
		},
		Emotion: EmotionConfig{
			PADDecayRate:    0.05,
			DecayIntervalS:  300,
			EnableCircadian: true,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Console:     true,
			MetricsPath: "data/logs/metrics.jsonl",
		},
	}
}

// Load reads and parses a YAML config file, applying defaults for anything the
// file omits. A missing file is not an error: the defaults are returned as-is,
// matching spec.md's "configuration error is fatal" clause (a missing file is
// a valid "use defaults" state, a malformed one is not).
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.LLM.Timeout = time.Duration(cfg.LLM.TimeoutS) * time.Second
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate enforces the invariants the rest of the system assumes hold.
// Failures here are fatal-at-startup configuration errors (spec.md §7).
func (c Config) Validate() error {
	var errs []string
	if c.Memory.ConsolidationThreshold >= c.Memory.BufferSize {
		errs = append(errs, "memory.consolidation_threshold must be strictly less than memory.buffer_size")
	}
	if c.Memory.ImportanceThreshold < 0 || c.Memory.ImportanceThreshold > 1 {
		errs = append(errs, "memory.importance_threshold must be in [0,1]")
	}
	if c.LLM.Retries < 0 {
		errs = append(errs, "llm.retries must be >= 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %v", errs)
	}
	return nil
}
