// Package result defines compile and test outcome data for one judge run.
package result

import (
	"time"

	"lojudge/internal/judge/verdict"
)

// RunResult captures raw data from one program execution.
type RunResult struct {
	ExitCode    int
	TimedOut    bool
	Stdout      string
	Stderr      string
	TimeSeconds *float64
	MemoryKB    *int64
}

// CompileResult contains compilation outcomes.
// ArtifactPath is empty iff Success is false.
type CompileResult struct {
	Success      bool
	Message      string
	Stdout       string
	Stderr       string
	Elapsed      time.Duration
	ArtifactPath string
}

// TestResult contains per-testcase judge outcomes.
type TestResult struct {
	Name        string
	Status      verdict.Status
	TimeSeconds *float64
	MemoryKB    *int64
	Stdout      string
	Stderr      string
	Message     string
}

// Report aggregates the outcome of a full judge run.
type Report struct {
	ProblemDir  string
	Compile     CompileResult
	Tests       []TestResult
	AllAccepted bool
}

// ProblemLimits carries advisory time and memory limits from metadata.
// They shape reporting and the default timeout, never a hard kill.
type ProblemLimits struct {
	TimeLimitMs   *int64
	MemoryLimitKb *int64
}
