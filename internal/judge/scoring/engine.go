// Package scoring drives per-test and per-subtask scoring for one
// submission and aggregates the final judge result.
package scoring

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"grader/internal/config"
	"grader/internal/judge/model"
	"grader/internal/judge/sandbox"
	"grader/pkg/utils/logger"
)

// Engine judges submissions against the testcase bank under root.
type Engine struct {
	root string
}

// NewEngine creates a scoring engine rooted at the working directory
// that holds tasks/ and checker/.
func NewEngine(root string) *Engine {
	return &Engine{root: root}
}

// Judge runs the full workflow for one submission: testcase
// pre-flight, box init, compile, per-test run/check and aggregation.
// A returned error means the submission could not be judged at all;
// per-test failures are recorded in the result instead.
func (e *Engine) Judge(ctx context.Context, box sandbox.Box, taskID string, manifest config.TaskManifest) (model.JudgeResult, error) {
	taskPath := filepath.Join(e.root, "tasks", taskID, "testcases")
	if !testcasesComplete(taskPath, manifest.TotalTestcases()) {
		return model.JudgeResult{
			Result: []model.RunResult{},
			Status: model.StatusTestcasesError,
		}, nil
	}

	// Cleanup is registered before Init: a failed Init may have
	// already provisioned the box, and a leaked box poisons every
	// later submission on the same box id.
	defer func() {
		if err := box.Cleanup(ctx); err != nil {
			logger.Warn(ctx, "box cleanup failed", zap.Error(err))
		}
	}()
	if err := box.Init(ctx); err != nil {
		return model.JudgeResult{}, err
	}

	compileRes, err := box.Compile(ctx)
	if err != nil {
		return model.JudgeResult{}, err
	}
	if compileRes.Status == model.VerdictCE {
		return model.JudgeResult{
			Result: []model.RunResult{},
			Status: model.StatusCompilationError,
		}, nil
	}

	var (
		results []model.RunResult
		score   uint64
	)
	if len(manifest.Subtasks) == 0 {
		results, score, err = e.judgeFlat(ctx, box, manifest)
	} else {
		results, score, err = e.judgeSubtasks(ctx, box, manifest)
	}
	if err != nil {
		return model.JudgeResult{}, err
	}

	result := model.JudgeResult{
		Result: results,
		Status: model.StatusCompleted,
		Score:  score,
	}
	for _, r := range results {
		if ms := uint64(r.TimeSec * 1000); ms > result.TimeMs {
			result.TimeMs = ms
		}
		if r.MemoryKB > result.MemoryKB {
			result.MemoryKB = r.MemoryKB
		}
	}
	return result, nil
}

// judgeFlat scores each test independently at full_score/num_testcases.
func (e *Engine) judgeFlat(ctx context.Context, box sandbox.Box, manifest config.TaskManifest) ([]model.RunResult, uint64, error) {
	results := make([]model.RunResult, 0, manifest.NumTestcases)
	var total uint64
	var perTest uint64
	if manifest.NumTestcases > 0 {
		perTest = manifest.FullScore / manifest.NumTestcases
	}

	for testIndex := uint64(1); testIndex <= manifest.NumTestcases; testIndex++ {
		runRes, accepted, err := runTest(ctx, box, testIndex)
		if err != nil {
			return nil, 0, err
		}
		score := uint64(0)
		if accepted {
			score = perTest
			total += score
		}
		results = append(results, model.RunResult{
			Status:    testStatus(runRes, accepted),
			TestIndex: testIndex,
			Score:     score,
			TimeSec:   runRes.TimeSec,
			MemoryKB:  runRes.MemoryKB,
		})
	}
	return results, total, nil
}

// judgeSubtasks scores each subtask all-or-nothing. When the manifest
// enables skip, a failed test suppresses execution of the subtask's
// remaining tests and synthetic Skipped results are emitted instead.
func (e *Engine) judgeSubtasks(ctx context.Context, box sandbox.Box, manifest config.TaskManifest) ([]model.RunResult, uint64, error) {
	results := make([]model.RunResult, 0, manifest.TotalTestcases())
	var total uint64
	testIndex := uint64(1)

	for i, subtask := range manifest.Subtasks {
		subtaskIndex := uint64(i + 1)
		correctAll := true
		skipped := false
		first := len(results)

		var perTest uint64
		if subtask.NumTestcases > 0 {
			perTest = subtask.FullScore / subtask.NumTestcases
		}

		for j := uint64(0); j < subtask.NumTestcases; j++ {
			if manifest.Skip && skipped {
				results = append(results, model.RunResult{
					Status:       model.StatusSkipped,
					TestIndex:    testIndex,
					SubtaskIndex: subtaskIndex,
				})
				testIndex++
				continue
			}

			runRes, accepted, err := runTest(ctx, box, testIndex)
			if err != nil {
				return nil, 0, err
			}
			score := perTest
			if !accepted {
				correctAll = false
				skipped = true
				score = 0
			}
			results = append(results, model.RunResult{
				Status:       testStatus(runRes, accepted),
				TestIndex:    testIndex,
				SubtaskIndex: subtaskIndex,
				Score:        score,
				TimeSec:      runRes.TimeSec,
				MemoryKB:     runRes.MemoryKB,
			})
			testIndex++
		}

		if correctAll {
			total += subtask.FullScore
		} else {
			// All-or-nothing: a failed subtask contributes nothing,
			// including tests that passed before the failure.
			for k := first; k < len(results); k++ {
				results[k].Score = 0
			}
		}
	}
	return results, total, nil
}

// runTest executes one test and, when the run verdict is OK, asks the
// checker whether the output is accepted.
func runTest(ctx context.Context, box sandbox.Box, testIndex uint64) (model.IsolateResult, bool, error) {
	runRes, err := box.Run(ctx, testIndex)
	if err != nil {
		return model.IsolateResult{}, false, err
	}
	if runRes.Status != model.VerdictOK {
		return runRes, false, nil
	}
	accepted, err := box.Check(ctx, testIndex)
	if err != nil {
		return model.IsolateResult{}, false, err
	}
	return runRes, accepted, nil
}

func testStatus(res model.IsolateResult, accepted bool) string {
	if accepted {
		return model.StatusAccepted
	}
	if res.Status == model.VerdictOK {
		return model.StatusWrongAnswer
	}
	return res.Status.StatusString()
}

// testcasesComplete verifies <i>.in and <i>.sol exist for every
// testcase index before any sandbox work starts.
func testcasesComplete(taskPath string, total uint64) bool {
	for i := uint64(1); i <= total; i++ {
		index := strconv.FormatUint(i, 10)
		if !fileExists(filepath.Join(taskPath, index+".in")) {
			return false
		}
		if !fileExists(filepath.Join(taskPath, index+".sol")) {
			return false
		}
	}
	return true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
