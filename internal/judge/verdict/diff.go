package verdict

import (
	"fmt"
	"strings"
)

// UnifiedDiff produces a bounded line diff between expected and actual text.
// Output follows the conventional unified format without hunk headers; at
// most maxLines lines are emitted, including the two file headers.
func UnifiedDiff(expected, actual, fromName, toName string, maxLines int) string {
	from := splitLines(expected)
	to := splitLines(actual)

	ops := diffOps(from, to)
	if len(ops) == 0 {
		return ""
	}

	lines := make([]string, 0, len(ops)+2)
	lines = append(lines, fmt.Sprintf("--- %s", fromName))
	lines = append(lines, fmt.Sprintf("+++ %s", toName))
	for _, op := range ops {
		lines = append(lines, op)
	}
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n")
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// diffOps walks an LCS table and emits "-", "+" and " " prefixed lines.
func diffOps(from, to []string) []string {
	n, m := len(from), len(to)
	if n == 0 && m == 0 {
		return nil
	}

	// lcs[i][j] holds the LCS length of from[i:] and to[j:].
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if from[i] == to[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	ops := make([]string, 0, n+m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case from[i] == to[j]:
			ops = append(ops, " "+from[i])
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			ops = append(ops, "-"+from[i])
			i++
		default:
			ops = append(ops, "+"+to[j])
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, "-"+from[i])
	}
	for ; j < m; j++ {
		ops = append(ops, "+"+to[j])
	}
	return ops
}
