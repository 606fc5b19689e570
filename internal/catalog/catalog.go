// Package catalog reads the problem metadata snapshot produced by the
// fetching tooling. The snapshot is loaded once per run and never written
// back.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"lojudge/internal/judge/result"
	appErr "lojudge/pkg/errors"
)

// Record is one problem's metadata. Limit fields are advisory; unknown JSON
// keys are ignored.
type Record struct {
	PID              string   `json:"pid"`
	Title            string   `json:"title"`
	Difficulty       *int     `json:"difficulty"`
	DifficultyLabel  string   `json:"difficulty_label"`
	Tags             []string `json:"tags"`
	TimeLimitMs      *int64   `json:"time_limit_ms"`
	TimeLimitHuman   string   `json:"time_limit_human"`
	MemoryLimitKb    *int64   `json:"memory_limit_kb"`
	MemoryLimitHuman string   `json:"memory_limit_human"`
	Directory        string   `json:"directory"`
	URL              string   `json:"url"`
}

// Limits extracts the advisory limits for reporting and default timeouts.
func (r Record) Limits() result.ProblemLimits {
	return result.ProblemLimits{TimeLimitMs: r.TimeLimitMs, MemoryLimitKb: r.MemoryLimitKb}
}

// TimeDesc returns a human-readable time limit, or "unknown".
func (r Record) TimeDesc() string {
	if r.TimeLimitHuman != "" {
		return r.TimeLimitHuman
	}
	if r.TimeLimitMs != nil {
		return fmt.Sprintf("%.2fs", float64(*r.TimeLimitMs)/1000)
	}
	return "unknown"
}

// MemoryDesc returns a human-readable memory limit, or "unknown".
func (r Record) MemoryDesc() string {
	if r.MemoryLimitHuman != "" {
		return r.MemoryLimitHuman
	}
	if r.MemoryLimitKb != nil {
		return fmt.Sprintf("%.2fMB", float64(*r.MemoryLimitKb)/1024)
	}
	return "unknown"
}

// Snapshot is an immutable-on-read view of the metadata file.
type Snapshot struct {
	records map[string]Record
}

// Load reads the metadata snapshot. A missing or malformed file yields an
// empty snapshot together with an advisory error; the judge proceeds without
// metadata in that case.
func Load(path string) (Snapshot, error) {
	empty := Snapshot{records: map[string]Record{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return empty, appErr.Wrapf(err, appErr.MetadataUnreadable, "read metadata file failed: %s", path)
	}
	records := map[string]Record{}
	if err := json.Unmarshal(data, &records); err != nil {
		return empty, appErr.Wrapf(err, appErr.MetadataUnreadable, "parse metadata file failed: %s", path)
	}
	return Snapshot{records: records}, nil
}

// Len returns the number of records.
func (s Snapshot) Len() int {
	return len(s.records)
}

// PIDs returns all known problem ids in sorted order.
func (s Snapshot) PIDs() []string {
	pids := make([]string, 0, len(s.records))
	for key, rec := range s.records {
		pid := rec.PID
		if pid == "" {
			pid = key
		}
		pids = append(pids, pid)
	}
	sort.Strings(pids)
	return pids
}

// ByPID looks a record up by problem id: first as the map key, then by a
// scan over stored pid fields.
func (s Snapshot) ByPID(pid string) (Record, bool) {
	if rec, ok := s.records[pid]; ok {
		return rec, true
	}
	for _, rec := range s.records {
		if rec.PID == pid {
			return rec, true
		}
	}
	return Record{}, false
}

// ByDirectory looks a record up by problem directory. Only the final path
// element is compared, so both absolute paths and bare names resolve.
func (s Snapshot) ByDirectory(dir string) (Record, bool) {
	name := filepath.Base(dir)
	if rec, ok := s.records[name]; ok {
		if rec.Directory == "" || filepath.Base(rec.Directory) == name {
			return rec, true
		}
	}
	for _, rec := range s.records {
		if rec.Directory != "" && filepath.Base(rec.Directory) == name {
			return rec, true
		}
	}
	return Record{}, false
}

// ResolveProblemDir maps a problem id to its directory under baseDir,
// preferring the directory stored in the record when it exists on disk.
func (s Snapshot) ResolveProblemDir(pid, baseDir string) (string, Record, bool) {
	rec, found := s.ByPID(pid)
	if found && rec.Directory != "" {
		candidate := filepath.Join(baseDir, rec.Directory)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, rec, true
		}
	}
	return filepath.Join(baseDir, pid), rec, found
}
