// Package testcase discovers input/expected-output pairs in a problem
// directory.
package testcase

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	appErr "lojudge/pkg/errors"
)

const (
	inputExt    = ".in"
	expectedExt = ".out"
)

// TestCase is one input file and its sibling expected-output file. The
// expected file may be absent; that is a recorded state, not an error.
type TestCase struct {
	Name         string
	InputPath    string
	ExpectedPath string
}

// ExpectedAvailable reports whether the expected-output file exists.
func (t TestCase) ExpectedAvailable() bool {
	info, err := os.Stat(t.ExpectedPath)
	return err == nil && info.Mode().IsRegular()
}

// List enumerates test cases in sorted input-file order so runs are
// reproducible. Inputs without an expected sibling are still included.
func List(dir string) ([]TestCase, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.ProblemDirMissing, "read problem directory failed: %s", dir)
	}

	var tests []TestCase
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), inputExt) {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), inputExt)
		tests = append(tests, TestCase{
			Name:         entry.Name(),
			InputPath:    filepath.Join(dir, entry.Name()),
			ExpectedPath: filepath.Join(dir, stem+expectedExt),
		})
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].Name < tests[j].Name })
	return tests, nil
}
