// Package sandbox wraps the isolate(1) OS-level isolation tool.
// Each submission is judged inside one numbered box: sources and
// testcases are copied in at Init, the program is compiled outside
// the sandbox, executed per test under resource limits, and the
// box is torn down at Cleanup.
package sandbox

import (
	"context"

	"grader/internal/judge/model"
)

// Box is one isolated execution context for a single submission.
// A box is exclusively owned by one worker between Init and Cleanup.
type Box interface {
	// Init provisions the box, writes the source file and copies
	// the task's testcases into the box root.
	Init(ctx context.Context) error

	// Compile builds the submission. A non-zero compiler exit maps
	// to VerdictCE; only spawn/IO failures are returned as errors.
	Compile(ctx context.Context) (model.IsolateResult, error)

	// Run executes the program against testcase testIndex under the
	// task's CPU/wall/memory limits and parses the resulting meta file.
	Run(ctx context.Context, testIndex uint64) (model.IsolateResult, error)

	// Check invokes the task checker against the produced output.
	// It reports true iff the checker accepts.
	Check(ctx context.Context, testIndex uint64) (bool, error)

	// Cleanup tears the box down. It must run on every path.
	Cleanup(ctx context.Context) error
}
