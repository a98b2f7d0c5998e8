package sandbox

import (
	"strconv"
	"strings"

	"grader/internal/judge/model"
	appErr "grader/pkg/errors"
)

// ParseMeta parses the line-oriented key:value meta file isolate
// writes after a run. A missing status line means the program exited
// cleanly. When the control group reports an OOM kill, or memory
// usage reaches the limit, the verdict is forced to MLE regardless
// of the reported status.
func ParseMeta(meta string, memoryLimitKB uint64) (model.IsolateResult, error) {
	result := model.IsolateResult{Status: model.VerdictOK}
	oomKilled := false

	for _, line := range strings.Split(meta, "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) < 2 {
			continue
		}
		key, value := parts[0], parts[1]
		switch key {
		case "status":
			result.Status = mapStatus(value)
		case "time":
			t, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return model.IsolateResult{}, appErr.Wrapf(err, appErr.MetaParseFailed, "parse time failed")
			}
			result.TimeSec = t
		case "cg-mem":
			m, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return model.IsolateResult{}, appErr.Wrapf(err, appErr.MetaParseFailed, "parse cg-mem failed")
			}
			result.MemoryKB = m
		case "cg-oom-killed":
			oomKilled = strings.TrimSpace(value) == "1"
		}
	}

	if oomKilled || result.MemoryKB >= memoryLimitKB {
		result.Status = model.VerdictMLE
	}
	return result, nil
}

func mapStatus(raw string) model.Verdict {
	switch raw {
	case "RE":
		return model.VerdictRE
	case "SG":
		return model.VerdictSG
	case "TO":
		return model.VerdictTLE
	case "XX":
		return model.VerdictXX
	default:
		return model.VerdictSG
	}
}
