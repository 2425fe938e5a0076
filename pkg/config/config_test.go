package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoadConfigValid(t *testing.T) {
	path := writeConfig(t, `
name: deploy-session
provider:
  type: openai
  model: gpt-4o-mini
agents:
  - agent_id: planner
    role: lead
  - agent_id: executor
    role: worker
    parent_id: planner
    knowledge_budget: 100
    allowed_destinations: ["planner"]
logging:
  level: info
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "deploy-session" {
		t.Fatalf("unexpected name %q", cfg.Name)
	}
	if len(cfg.Agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(cfg.Agents))
	}
	if cfg.Agents[1].ParentID != "planner" {
		t.Fatalf("expected executor's parent to be planner, got %q", cfg.Agents[1].ParentID)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestLoadConfigRejectsMissingName(t *testing.T) {
	path := writeConfig(t, `
agents:
  - agent_id: planner
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected an error for a missing session name")
	}
}

func TestLoadConfigRejectsDuplicateAgentID(t *testing.T) {
	path := writeConfig(t, `
name: s
agents:
  - agent_id: a
  - agent_id: a
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected an error for a duplicate agent_id")
	}
}

func TestLoadConfigRejectsUnknownParent(t *testing.T) {
	path := writeConfig(t, `
name: s
agents:
  - agent_id: a
    parent_id: ghost
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected an error for an unresolved parent_id")
	}
}
