package measure

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSideFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "side")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write side file: %v", err)
	}
	return path
}

func TestParseSideChannel(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		wantTime float64
		wantMem  int64
		wantOK   bool
	}{
		{"plain", "0.42 1234\n", 0.42, 1234, true},
		{"status line preamble", "Command exited with non-zero status 1\n1.50 2048\n", 1.50, 2048, true},
		{"fractional memory", "0.10 1536.0\n", 0.10, 1536, true},
		{"empty", "", 0, 0, false},
		{"whitespace only", "  \n\n", 0, 0, false},
		{"single field", "0.42\n", 0, 0, false},
		{"garbage", "not a measurement\n", 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeSideFile(t, tc.content)
			sample := parseSideChannel(path)
			if tc.wantOK {
				if sample.TimeSeconds == nil || sample.MemoryKB == nil {
					t.Fatalf("sample incomplete: %+v", sample)
				}
				if *sample.TimeSeconds != tc.wantTime {
					t.Fatalf("time = %v, want %v", *sample.TimeSeconds, tc.wantTime)
				}
				if *sample.MemoryKB != tc.wantMem {
					t.Fatalf("memory = %v, want %v", *sample.MemoryKB, tc.wantMem)
				}
				return
			}
			if sample.TimeSeconds != nil || sample.MemoryKB != nil {
				t.Fatalf("expected empty sample, got %+v", sample)
			}
		})
	}
}

func TestParseSideChannelMissingFile(t *testing.T) {
	sample := parseSideChannel(filepath.Join(t.TempDir(), "nope"))
	if sample.TimeSeconds != nil || sample.MemoryKB != nil {
		t.Fatalf("expected empty sample, got %+v", sample)
	}
}

func TestWithWallFallbackSubstitutesTimeOnly(t *testing.T) {
	wall := 250 * time.Millisecond

	got := Sample{}.withWallFallback(wall)
	if got.TimeSeconds == nil || *got.TimeSeconds != wall.Seconds() {
		t.Fatalf("missing time should fall back to wall clock, got %+v", got)
	}
	if got.MemoryKB != nil {
		t.Fatal("memory must stay unknown when unmeasured")
	}

	zero := 0.0
	got = Sample{TimeSeconds: &zero}.withWallFallback(wall)
	if *got.TimeSeconds != wall.Seconds() {
		t.Fatalf("non-positive time should fall back to wall clock, got %v", *got.TimeSeconds)
	}

	measured := 1.25
	mem := int64(512)
	got = Sample{TimeSeconds: &measured, MemoryKB: &mem}.withWallFallback(wall)
	if *got.TimeSeconds != measured || *got.MemoryKB != mem {
		t.Fatalf("measured sample must pass through unchanged, got %+v", got)
	}
}

func TestExternalToolProbeWrapsCommand(t *testing.T) {
	m := &ExternalToolMeasurer{TimeBinary: "/usr/bin/time"}
	probe := m.Begin()

	argv := probe.WrapCommand([]string{"/tmp/solution"})
	if len(argv) != 6 || argv[0] != "/usr/bin/time" || argv[5] != "/tmp/solution" {
		t.Fatalf("unexpected wrapped argv: %v", argv)
	}
	if argv[1] != "-f" || argv[2] != timeFormat || argv[3] != "-o" {
		t.Fatalf("unexpected time flags: %v", argv)
	}

	sidePath := argv[4]
	if err := os.WriteFile(sidePath, []byte("0.33 4096\n"), 0600); err != nil {
		t.Fatalf("write side channel: %v", err)
	}
	sample := probe.Collect(time.Second)
	if sample.TimeSeconds == nil || *sample.TimeSeconds != 0.33 {
		t.Fatalf("time = %+v, want 0.33", sample.TimeSeconds)
	}
	if sample.MemoryKB == nil || *sample.MemoryKB != 4096 {
		t.Fatalf("memory = %+v, want 4096", sample.MemoryKB)
	}
	if _, err := os.Stat(sidePath); !os.IsNotExist(err) {
		t.Fatal("side-channel file must be removed after collect")
	}
}

func TestDetectFallsBackWithoutTimeBinary(t *testing.T) {
	m := Detect(filepath.Join(t.TempDir(), "no-such-time"))
	if _, ok := m.(*ExternalToolMeasurer); ok {
		t.Fatal("missing time binary must not select the external tool")
	}

	m = Detect("")
	if _, ok := m.(*ExternalToolMeasurer); ok {
		t.Fatal("empty path must not select the external tool")
	}
}

func TestDetectPrefersExternalTool(t *testing.T) {
	fake := filepath.Join(t.TempDir(), "time")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}
	if _, ok := Detect(fake).(*ExternalToolMeasurer); !ok {
		t.Fatal("existing regular file should select the external tool")
	}
}
