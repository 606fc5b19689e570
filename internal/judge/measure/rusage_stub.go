//go:build !linux

package measure

import "time"

func newOSMeasurer() Measurer {
	return wallClockMeasurer{}
}

// wallClockMeasurer reports elapsed time only. Platforms without usable
// child rusage accounting leave peak memory unknown.
type wallClockMeasurer struct{}

func (wallClockMeasurer) Begin() Probe {
	return wallClockProbe{}
}

type wallClockProbe struct{}

func (wallClockProbe) WrapCommand(argv []string) []string {
	return argv
}

func (wallClockProbe) Collect(wall time.Duration) Sample {
	return Sample{}.withWallFallback(wall)
}
