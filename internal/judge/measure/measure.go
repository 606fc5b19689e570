// Package measure obtains elapsed time and peak memory for finished child
// processes. Two strategies exist: wrapping the invocation with an external
// time binary that reports through a side-channel file, and reading the OS
// child rusage counters around the call. The strategy is chosen once at
// startup; both degrade to unknown values instead of failing a test.
package measure

import (
	"os"
	"time"
)

// Sample holds measured resource usage. Nil fields mean unknown.
type Sample struct {
	TimeSeconds *float64
	MemoryKB    *int64
}

// Measurer creates per-run probes.
type Measurer interface {
	// Begin starts one measurement. Never fails; an unusable probe
	// degrades to wall-clock-only data.
	Begin() Probe
}

// Probe accompanies a single child process run.
type Probe interface {
	// WrapCommand returns the argv to execute, possibly prefixed with a
	// measurement wrapper.
	WrapCommand(argv []string) []string
	// Collect finalizes the sample after the child has exited. It must
	// release any side-channel resources on every path, including parse
	// failures. wall is the harness-measured wall-clock delta.
	Collect(wall time.Duration) Sample
}

// Detect probes for the external time binary once and picks the strategy.
func Detect(timeBinary string) Measurer {
	if timeBinary != "" {
		if info, err := os.Stat(timeBinary); err == nil && info.Mode().IsRegular() {
			return &ExternalToolMeasurer{TimeBinary: timeBinary}
		}
	}
	return newOSMeasurer()
}

// withWallFallback substitutes the harness wall-clock delta when the
// instrumented time is missing or non-positive. Memory is deliberately not
// substituted; an unknown peak stays unknown.
func (s Sample) withWallFallback(wall time.Duration) Sample {
	if s.TimeSeconds == nil || *s.TimeSeconds <= 0 {
		t := wall.Seconds()
		s.TimeSeconds = &t
	}
	return s
}
