package judge

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	appErr "lojudge/pkg/errors"
)

const sourceExt = ".cpp"

// ResolveSource picks the solution source file. An explicit name wins; failing
// that, exactly one C++ source must exist in the directory.
func ResolveSource(problemDir, preferred string) (string, error) {
	if preferred != "" {
		candidate := filepath.Join(problemDir, preferred)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}

	entries, err := os.ReadDir(problemDir)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.ProblemDirMissing, "read problem directory failed: %s", problemDir)
	}
	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sourceExt) {
			continue
		}
		candidates = append(candidates, entry.Name())
	}
	sort.Strings(candidates)

	switch len(candidates) {
	case 0:
		return "", appErr.Newf(appErr.SourceNotFound, "no C++ source file found in %s", problemDir)
	case 1:
		return filepath.Join(problemDir, candidates[0]), nil
	default:
		return "", appErr.Newf(appErr.SourceAmbiguous,
			"multiple C++ sources found (%s); specify one via --source", strings.Join(candidates, ", "))
	}
}
