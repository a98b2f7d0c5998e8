package model

// RunResult is the persisted outcome of one test.
// SubtaskIndex is 0 when the task has no subtasks.
type RunResult struct {
	Status       string  `json:"status"`
	TestIndex    uint64  `json:"test_index"`
	SubtaskIndex uint64  `json:"subtask_index"`
	Score        uint64  `json:"score"`
	TimeSec      float64 `json:"time_sec"`
	MemoryKB     uint64  `json:"memory_kb"`
}

// JudgeResult is the aggregated outcome of one submission.
// TimeMs and MemoryKB are maxima across tests; Score is the sum of
// awarded subtask totals (or per-test scores in flat mode).
type JudgeResult struct {
	Result   []RunResult `json:"result"`
	Status   string      `json:"status"`
	Score    uint64      `json:"score"`
	TimeMs   uint64      `json:"time_ms"`
	MemoryKB uint64      `json:"memory_kb"`
}
