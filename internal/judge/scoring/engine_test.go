package scoring_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"grader/internal/config"
	"grader/internal/judge/model"
	"grader/internal/judge/scoring"
)

type fakeBox struct {
	initErr    error
	compileRes model.IsolateResult
	compileErr error
	runResults map[uint64]model.IsolateResult
	rejected   map[uint64]bool

	initCalls    int
	cleanupCalls int
	runs         []uint64
	checks       []uint64
}

func (f *fakeBox) Init(ctx context.Context) error {
	f.initCalls++
	return f.initErr
}

func (f *fakeBox) Compile(ctx context.Context) (model.IsolateResult, error) {
	if f.compileErr != nil {
		return model.IsolateResult{}, f.compileErr
	}
	if f.compileRes.Status == "" {
		return model.IsolateResult{Status: model.VerdictOK}, nil
	}
	return f.compileRes, nil
}

func (f *fakeBox) Run(ctx context.Context, testIndex uint64) (model.IsolateResult, error) {
	f.runs = append(f.runs, testIndex)
	if res, ok := f.runResults[testIndex]; ok {
		return res, nil
	}
	return model.IsolateResult{Status: model.VerdictOK, TimeSec: 0.1, MemoryKB: 1000}, nil
}

func (f *fakeBox) Check(ctx context.Context, testIndex uint64) (bool, error) {
	f.checks = append(f.checks, testIndex)
	return !f.rejected[testIndex], nil
}

func (f *fakeBox) Cleanup(ctx context.Context) error {
	f.cleanupCalls++
	return nil
}

func writeTestcases(t *testing.T, root, taskID string, total uint64) {
	t.Helper()
	dir := filepath.Join(root, "tasks", taskID, "testcases")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir testcases: %v", err)
	}
	for i := uint64(1); i <= total; i++ {
		index := strconv.FormatUint(i, 10)
		if err := os.WriteFile(filepath.Join(dir, index+".in"), []byte("in\n"), 0o644); err != nil {
			t.Fatalf("write input %d: %v", i, err)
		}
		if err := os.WriteFile(filepath.Join(dir, index+".sol"), []byte("sol\n"), 0o644); err != nil {
			t.Fatalf("write solution %d: %v", i, err)
		}
	}
}

func TestJudgeMissingTestcases(t *testing.T) {
	root := t.TempDir()
	writeTestcases(t, root, "sum", 2)
	// 3.sol is missing entirely, 3.in exists.
	dir := filepath.Join(root, "tasks", "sum", "testcases")
	if err := os.WriteFile(filepath.Join(dir, "3.in"), []byte("in\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	box := &fakeBox{}
	engine := scoring.NewEngine(root)
	res, err := engine.Judge(context.Background(), box, "sum", config.TaskManifest{
		FullScore:    100,
		NumTestcases: 3,
	})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Status != model.StatusTestcasesError {
		t.Fatalf("status = %q, want %q", res.Status, model.StatusTestcasesError)
	}
	if len(res.Result) != 0 {
		t.Fatalf("expected empty result, got %d entries", len(res.Result))
	}
	if box.initCalls != 0 {
		t.Fatalf("box was initialized despite missing testcases")
	}
}

func TestJudgeInitFailureCleansUpBox(t *testing.T) {
	root := t.TempDir()
	writeTestcases(t, root, "sum", 2)

	// Init may fail after the box is provisioned (source write or
	// testcase copy); the box must still be torn down.
	box := &fakeBox{initErr: errors.New("copy testcase failed")}
	engine := scoring.NewEngine(root)
	_, err := engine.Judge(context.Background(), box, "sum", config.TaskManifest{
		FullScore:    100,
		NumTestcases: 2,
	})
	if err == nil {
		t.Fatalf("expected error from failed init")
	}
	if box.cleanupCalls != 1 {
		t.Fatalf("cleanup calls = %d, want 1", box.cleanupCalls)
	}
}

func TestJudgeCompilationError(t *testing.T) {
	root := t.TempDir()
	writeTestcases(t, root, "sum", 2)

	box := &fakeBox{compileRes: model.IsolateResult{Status: model.VerdictCE}}
	engine := scoring.NewEngine(root)
	res, err := engine.Judge(context.Background(), box, "sum", config.TaskManifest{
		FullScore:    100,
		NumTestcases: 2,
	})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Status != model.StatusCompilationError {
		t.Fatalf("status = %q, want %q", res.Status, model.StatusCompilationError)
	}
	if len(box.runs) != 0 {
		t.Fatalf("tests were run after compilation error")
	}
	if box.cleanupCalls != 1 {
		t.Fatalf("cleanup calls = %d, want 1", box.cleanupCalls)
	}
}

func TestJudgeFlatAllAccepted(t *testing.T) {
	root := t.TempDir()
	writeTestcases(t, root, "sum", 4)

	box := &fakeBox{}
	engine := scoring.NewEngine(root)
	res, err := engine.Judge(context.Background(), box, "sum", config.TaskManifest{
		FullScore:    100,
		NumTestcases: 4,
	})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Status != model.StatusCompleted {
		t.Fatalf("status = %q, want %q", res.Status, model.StatusCompleted)
	}
	if res.Score != 100 {
		t.Fatalf("score = %d, want 100", res.Score)
	}
	if len(res.Result) != 4 {
		t.Fatalf("results = %d, want 4", len(res.Result))
	}
	for i, r := range res.Result {
		if r.TestIndex != uint64(i+1) {
			t.Fatalf("test index %d = %d, want %d", i, r.TestIndex, i+1)
		}
		if r.Status != model.StatusAccepted || r.Score != 25 {
			t.Fatalf("result %d = %+v, want Accepted/25", i, r)
		}
	}
	if box.cleanupCalls != 1 {
		t.Fatalf("cleanup calls = %d, want 1", box.cleanupCalls)
	}
}

func TestJudgeFlatRejectedTest(t *testing.T) {
	root := t.TempDir()
	writeTestcases(t, root, "sum", 4)

	box := &fakeBox{rejected: map[uint64]bool{2: true}}
	engine := scoring.NewEngine(root)
	res, err := engine.Judge(context.Background(), box, "sum", config.TaskManifest{
		FullScore:    100,
		NumTestcases: 4,
	})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Score != 75 {
		t.Fatalf("score = %d, want 75", res.Score)
	}
	if res.Result[1].Status != model.StatusWrongAnswer || res.Result[1].Score != 0 {
		t.Fatalf("result 2 = %+v, want Wrong Answer/0", res.Result[1])
	}
}

func TestJudgeFlatRunVerdictStatus(t *testing.T) {
	root := t.TempDir()
	writeTestcases(t, root, "sum", 3)

	box := &fakeBox{runResults: map[uint64]model.IsolateResult{
		2: {Status: model.VerdictTLE, TimeSec: 2.0},
		3: {Status: model.VerdictRE, TimeSec: 0.05},
	}}
	engine := scoring.NewEngine(root)
	res, err := engine.Judge(context.Background(), box, "sum", config.TaskManifest{
		FullScore:    90,
		NumTestcases: 3,
	})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Score != 30 {
		t.Fatalf("score = %d, want 30", res.Score)
	}
	if res.Result[1].Status != model.StatusTimeLimit {
		t.Fatalf("result 2 status = %q, want %q", res.Result[1].Status, model.StatusTimeLimit)
	}
	if res.Result[2].Status != model.StatusRuntimeError {
		t.Fatalf("result 3 status = %q, want %q", res.Result[2].Status, model.StatusRuntimeError)
	}
	// The checker must not run for tests with a non-OK run verdict.
	if len(box.checks) != 1 || box.checks[0] != 1 {
		t.Fatalf("checks = %v, want [1]", box.checks)
	}
}

func TestJudgeSubtasksAllOrNothing(t *testing.T) {
	root := t.TempDir()
	writeTestcases(t, root, "sum", 4)

	// Test 4 is the second test of subtask 2; its accepted sibling
	// (test 3) must be rewritten to zero.
	box := &fakeBox{rejected: map[uint64]bool{4: true}}
	engine := scoring.NewEngine(root)
	res, err := engine.Judge(context.Background(), box, "sum", config.TaskManifest{
		Subtasks: []config.Subtask{
			{FullScore: 40, NumTestcases: 2},
			{FullScore: 60, NumTestcases: 2},
		},
	})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Score != 40 {
		t.Fatalf("score = %d, want 40", res.Score)
	}
	if res.Result[2].Status != model.StatusAccepted {
		t.Fatalf("result 3 status = %q, want Accepted", res.Result[2].Status)
	}
	if res.Result[2].Score != 0 || res.Result[3].Score != 0 {
		t.Fatalf("failed subtask scores = %d/%d, want 0/0", res.Result[2].Score, res.Result[3].Score)
	}
	if res.Result[0].Score != 20 || res.Result[1].Score != 20 {
		t.Fatalf("passing subtask scores = %d/%d, want 20/20", res.Result[0].Score, res.Result[1].Score)
	}
	for i, r := range res.Result {
		if r.TestIndex != uint64(i+1) {
			t.Fatalf("test index %d = %d, want %d", i, r.TestIndex, i+1)
		}
	}
	if res.Result[0].SubtaskIndex != 1 || res.Result[3].SubtaskIndex != 2 {
		t.Fatalf("subtask indices = %d/%d, want 1/2", res.Result[0].SubtaskIndex, res.Result[3].SubtaskIndex)
	}
}

func TestJudgeSubtasksSkip(t *testing.T) {
	root := t.TempDir()
	writeTestcases(t, root, "sum", 5)

	box := &fakeBox{rejected: map[uint64]bool{3: true}}
	engine := scoring.NewEngine(root)
	res, err := engine.Judge(context.Background(), box, "sum", config.TaskManifest{
		Skip: true,
		Subtasks: []config.Subtask{
			{FullScore: 40, NumTestcases: 2},
			{FullScore: 60, NumTestcases: 3},
		},
	})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.Score != 40 {
		t.Fatalf("score = %d, want 40", res.Score)
	}
	if len(res.Result) != 5 {
		t.Fatalf("results = %d, want 5", len(res.Result))
	}
	for _, i := range []int{3, 4} {
		r := res.Result[i]
		if r.Status != model.StatusSkipped || r.Score != 0 {
			t.Fatalf("result %d = %+v, want Skipped/0", i+1, r)
		}
		if r.TestIndex != uint64(i+1) || r.SubtaskIndex != 2 {
			t.Fatalf("result %d indices = %d/%d, want %d/2", i+1, r.TestIndex, r.SubtaskIndex, i+1)
		}
	}
	// Tests after the failure in the subtask must never reach the box.
	want := []uint64{1, 2, 3}
	if len(box.runs) != len(want) {
		t.Fatalf("runs = %v, want %v", box.runs, want)
	}
	for i, idx := range want {
		if box.runs[i] != idx {
			t.Fatalf("runs = %v, want %v", box.runs, want)
		}
	}
}

func TestJudgeAggregates(t *testing.T) {
	root := t.TempDir()
	writeTestcases(t, root, "sum", 2)

	box := &fakeBox{runResults: map[uint64]model.IsolateResult{
		1: {Status: model.VerdictOK, TimeSec: 0.5, MemoryKB: 9000},
		2: {Status: model.VerdictOK, TimeSec: 1.2345, MemoryKB: 4000},
	}}
	engine := scoring.NewEngine(root)
	res, err := engine.Judge(context.Background(), box, "sum", config.TaskManifest{
		FullScore:    100,
		NumTestcases: 2,
	})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if res.TimeMs != 1234 {
		t.Fatalf("time_ms = %d, want 1234", res.TimeMs)
	}
	if res.MemoryKB != 9000 {
		t.Fatalf("memory = %d, want 9000", res.MemoryKB)
	}
}
