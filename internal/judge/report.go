package judge

import (
	"fmt"
	"strings"

	"lojudge/internal/judge/result"
)

// FormatResult renders one per-case report line: name, verdict, measured
// time and memory, known limits, and the first line of the verdict message.
func FormatResult(res result.TestResult, limits result.ProblemLimits) string {
	parts := []string{fmt.Sprintf("[%s] %s", res.Name, res.Status)}
	if res.TimeSeconds != nil {
		parts = append(parts, fmt.Sprintf("time %.2f ms", *res.TimeSeconds*1000))
	}
	if limits.TimeLimitMs != nil {
		parts = append(parts, fmt.Sprintf("limit %d ms", *limits.TimeLimitMs))
	}
	if res.MemoryKB != nil {
		parts = append(parts, fmt.Sprintf("mem %.2f MB", float64(*res.MemoryKB)/1024))
	}
	if limits.MemoryLimitKb != nil {
		parts = append(parts, fmt.Sprintf("mem limit %.2f MB", float64(*limits.MemoryLimitKb)/1024))
	}
	if first := firstLine(res.Message); first != "" {
		parts = append(parts, first)
	}
	return strings.Join(parts, " | ")
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
