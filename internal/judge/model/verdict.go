package model

// Verdict classifies a single sandboxed execution.
type Verdict string

const (
	VerdictOK  Verdict = "OK"
	VerdictTLE Verdict = "TLE"
	VerdictMLE Verdict = "MLE"
	VerdictRE  Verdict = "RE"
	VerdictSG  Verdict = "SG"
	VerdictXX  Verdict = "XX"
	VerdictCE  Verdict = "CE"
)

// Per-test status strings exposed in RunResult.
const (
	StatusAccepted      = "Accepted"
	StatusWrongAnswer   = "Wrong Answer"
	StatusTimeLimit     = "Time Limit Exceeded"
	StatusMemoryLimit   = "Memory Limit Exceeded"
	StatusRuntimeError  = "Runtime Error"
	StatusSignalError   = "Signal Error"
	StatusInternalError = "Internal Error"
	StatusSkipped       = "Skipped"
)

// Submission lifecycle statuses persisted to the submission row.
const (
	StatusPending          = "Pending"
	StatusJudging          = "Judging"
	StatusCompleted        = "Completed"
	StatusCompilationError = "Compilation Error"
	StatusTestcasesError   = "Testcases Error"
	StatusJudgeError       = "Judge Error"
)

// StatusString maps a run verdict to its per-test status string.
func (v Verdict) StatusString() string {
	switch v {
	case VerdictOK:
		return StatusAccepted
	case VerdictTLE:
		return StatusTimeLimit
	case VerdictMLE:
		return StatusMemoryLimit
	case VerdictRE:
		return StatusRuntimeError
	case VerdictSG:
		return StatusSignalError
	case VerdictXX:
		return StatusInternalError
	default:
		return StatusInternalError
	}
}

// IsolateResult is the outcome of one sandboxed execution, parsed
// from the sandbox meta file.
type IsolateResult struct {
	Status   Verdict
	TimeSec  float64
	MemoryKB uint64
}
