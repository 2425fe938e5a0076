// Package config loads SAG session/agent configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SessionConfig configures one runtime session: which agents exist, their
// LLM provider, and each agent's knowledge/schema settings.
type SessionConfig struct {
	Name     string         `yaml:"name"`
	Provider ProviderConfig `yaml:"provider"`
	Agents   []AgentConfig  `yaml:"agents"`
	Logging  LogConfig      `yaml:"logging"`
}

// ProviderConfig selects and configures an LLM backend.
type ProviderConfig struct {
	Type    string `yaml:"type"` // "openai" or "gemini"
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// AgentConfig describes one agent's identity and engine settings.
type AgentConfig struct {
	AgentID         string   `yaml:"agent_id"`
	Role            string   `yaml:"role"`
	ParentID        string   `yaml:"parent_id"`
	SchemaProfile   string   `yaml:"schema_profile"`
	KnowledgeBudget int      `yaml:"knowledge_budget"`
	AllowedDests    []string `yaml:"allowed_destinations"`
}

// LogConfig configures log verbosity and destination.
type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// LoadConfig reads and parses a SessionConfig from a YAML file at path.
func LoadConfig(path string) (*SessionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg SessionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *SessionConfig) validate() error {
	if c.Name == "" {
		return fmt.Errorf("session name is required")
	}
	seen := map[string]bool{}
	for _, a := range c.Agents {
		if a.AgentID == "" {
			return fmt.Errorf("agent config missing agent_id")
		}
		if seen[a.AgentID] {
			return fmt.Errorf("duplicate agent_id %q", a.AgentID)
		}
		seen[a.AgentID] = true
	}
	for _, a := range c.Agents {
		if a.ParentID != "" && !seen[a.ParentID] {
			return fmt.Errorf("agent %q references unknown parent_id %q", a.AgentID, a.ParentID)
		}
	}
	return nil
}
