package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"grader/internal/config"
	appErr "grader/pkg/errors"
)

func writeManifest(t *testing.T, root, taskID, content string) {
	t.Helper()
	dir := filepath.Join(root, "tasks", taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir task: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestLoadManifest(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "sum", `{
  "time_limit": 1.5,
  "memory_limit": 256,
  "checker": "wcmp",
  "skip": true,
  "subtasks": [
    {"full_score": 40, "num_testcases": 2},
    {"full_score": 60, "num_testcases": 3}
  ]
}`)

	m, err := config.LoadManifest(root, "sum")
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if m.TimeLimit != 1.5 {
		t.Fatalf("time limit = %v, want 1.5", m.TimeLimit)
	}
	if !m.Skip {
		t.Fatalf("skip = false, want true")
	}
	if len(m.Subtasks) != 2 || m.Subtasks[1].FullScore != 60 {
		t.Fatalf("subtasks = %+v", m.Subtasks)
	}
}

func TestMemoryLimitScaling(t *testing.T) {
	m := config.TaskManifest{MemoryLimit: 256}
	if got := m.MemoryLimitKB(); got != 256000 {
		t.Fatalf("memory limit kb = %d, want 256000", got)
	}
}

func TestTotalTestcases(t *testing.T) {
	flat := config.TaskManifest{NumTestcases: 7}
	if got := flat.TotalTestcases(); got != 7 {
		t.Fatalf("flat total = %d, want 7", got)
	}

	grouped := config.TaskManifest{
		NumTestcases: 99, // ignored when subtasks are present
		Subtasks: []config.Subtask{
			{NumTestcases: 2},
			{NumTestcases: 3},
		},
	}
	if got := grouped.TotalTestcases(); got != 5 {
		t.Fatalf("grouped total = %d, want 5", got)
	}
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := config.LoadManifest(t.TempDir(), "nope")
	if appErr.GetCode(err) != appErr.TaskNotFound {
		t.Fatalf("code = %d, want TaskNotFound", appErr.GetCode(err))
	}
}
