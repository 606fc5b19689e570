package measure

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeFormat asks GNU time for elapsed seconds and peak RSS in KB.
const timeFormat = "%e %M"

// ExternalToolMeasurer wraps each invocation with an external time binary
// writing measurements to a temporary side-channel file.
type ExternalToolMeasurer struct {
	TimeBinary string
}

func (m *ExternalToolMeasurer) Begin() Probe {
	sidePath := filepath.Join(os.TempDir(), "lojudge-time-"+uuid.NewString())
	if err := os.WriteFile(sidePath, nil, 0600); err != nil {
		// No side channel; the probe still runs the command unwrapped.
		return &externalToolProbe{}
	}
	return &externalToolProbe{timeBinary: m.TimeBinary, sidePath: sidePath}
}

type externalToolProbe struct {
	timeBinary string
	sidePath   string
}

func (p *externalToolProbe) WrapCommand(argv []string) []string {
	if p.sidePath == "" {
		return argv
	}
	wrapped := []string{p.timeBinary, "-f", timeFormat, "-o", p.sidePath}
	return append(wrapped, argv...)
}

func (p *externalToolProbe) Collect(wall time.Duration) Sample {
	if p.sidePath == "" {
		return Sample{}.withWallFallback(wall)
	}
	defer os.Remove(p.sidePath)

	sample := parseSideChannel(p.sidePath)
	return sample.withWallFallback(wall)
}

// parseSideChannel reads "<seconds> <kb>" from the side-channel file. GNU
// time prepends a status line when the command exits non-zero, so only the
// last non-empty line is considered. Any parse failure yields an empty
// sample.
func parseSideChannel(path string) Sample {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Sample{}
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return Sample{}
	}
	parts := strings.Fields(last)
	if len(parts) < 2 {
		return Sample{}
	}
	seconds, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Sample{}
	}
	memFloat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Sample{}
	}
	memKB := int64(memFloat)
	return Sample{TimeSeconds: &seconds, MemoryKB: &memKB}
}
