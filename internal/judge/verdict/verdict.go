// Package verdict classifies program output against expected output.
package verdict

import (
	"fmt"
	"strings"
)

// Status represents the final outcome of one test case.
type Status string

const (
	StatusAC         Status = "AC"
	StatusWA         Status = "WA"
	StatusRE         Status = "RE"
	StatusTLE        Status = "TLE"
	StatusNoExpected Status = "NO_EXPECTED"
)

// diffLineLimit bounds the unified diff attached to a WA message.
const diffLineLimit = 20

// Normalize collapses output text into a whitespace-insensitive token
// sequence. Trailing newlines, line-ending style and inter-token spacing do
// not affect the result.
func Normalize(text string) []string {
	return strings.Fields(strings.TrimSpace(text))
}

// TokensEqual reports whether two token sequences match.
func TokensEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Classify assigns a verdict for a finished (non-timeout) run. Timeouts are
// decided by the process runner before this stage. Decision order: RE beats
// everything, a missing expected file is reported rather than judged, then
// normalized comparison decides AC against WA. expectedName labels the
// expected side of a WA diff, usually the expected file's name.
func Classify(exitCode int, expectedAvailable bool, expectedName, expectedText, actualText string) (Status, string) {
	if exitCode != 0 {
		return StatusRE, fmt.Sprintf("Runtime error (exit code %d)", exitCode)
	}
	if !expectedAvailable {
		return StatusNoExpected, "Expected output missing"
	}
	if TokensEqual(Normalize(actualText), Normalize(expectedText)) {
		return StatusAC, "Accepted"
	}
	if expectedName == "" {
		expectedName = "expected"
	}
	diff := UnifiedDiff(expectedText, actualText, expectedName, "program output", diffLineLimit)
	return StatusWA, "Wrong answer\n" + diff
}
