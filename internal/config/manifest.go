package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	appErr "grader/pkg/errors"
)

// Subtask defines one all-or-nothing scoring group.
type Subtask struct {
	FullScore    uint64 `json:"full_score"`
	NumTestcases uint64 `json:"num_testcases"`
}

// TaskManifest is the per-task judging configuration stored at
// tasks/<task_id>/manifest.json.
type TaskManifest struct {
	TimeLimit    float64   `json:"time_limit"`
	MemoryLimit  uint64    `json:"memory_limit"`
	Checker      string    `json:"checker"`
	Skip         bool      `json:"skip"`
	FullScore    uint64    `json:"full_score"`
	NumTestcases uint64    `json:"num_testcases"`
	Subtasks     []Subtask `json:"subtasks"`
}

// LoadManifest parses tasks/<taskID>/manifest.json under root.
func LoadManifest(root, taskID string) (TaskManifest, error) {
	path := filepath.Join(root, "tasks", taskID, "manifest.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return TaskManifest{}, appErr.Wrapf(err, appErr.TaskNotFound, "read manifest failed")
	}
	var m TaskManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return TaskManifest{}, appErr.Wrapf(err, appErr.ManifestInvalid, "parse manifest failed")
	}
	return m, nil
}

// MemoryLimitKB returns the sandbox memory limit in kilobytes.
// The manifest stores the limit in thousands of kilobytes; the
// decimal scaling is load-bearing for existing task data.
func (m TaskManifest) MemoryLimitKB() uint64 {
	return m.MemoryLimit * 1000
}

// TotalTestcases returns the number of tests across all subtasks,
// or the flat testcase count when no subtasks are defined.
func (m TaskManifest) TotalTestcases() uint64 {
	if len(m.Subtasks) == 0 {
		return m.NumTestcases
	}
	var total uint64
	for _, st := range m.Subtasks {
		total += st.NumTestcases
	}
	return total
}
