// Package repl provides an interactive shell for judging problems repeatedly
// without restarting the binary.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/shlex"

	"lojudge/internal/catalog"
	"lojudge/internal/config"
	"lojudge/internal/judge"
	"lojudge/internal/judge/result"
	appErr "lojudge/pkg/errors"
)

// Session holds shell state. Judge options set interactively persist until
// the session ends.
type Session struct {
	cfg      config.Config
	snapshot catalog.Snapshot
	worker   *judge.Worker

	std     string
	source  string
	timeout time.Duration
}

func New(cfg config.Config, snapshot catalog.Snapshot, worker *judge.Worker) *Session {
	return &Session{
		cfg:      cfg,
		snapshot: snapshot,
		worker:   worker,
		std:      cfg.Std,
		source:   cfg.SourceName,
		timeout:  time.Duration(cfg.TimeoutSeconds * float64(time.Second)),
	}
}

// Run reads commands until EOF or quit.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lojudge> ",
		HistoryFile:     s.cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline failed: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			// EOF or closed terminal ends the session.
			return nil
		}

		fields, err := shlex.Split(line)
		if err != nil {
			fmt.Printf("parse command failed: %v\n", err)
			continue
		}
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			fmt.Println("bye")
			return nil
		case "help":
			s.printHelp()
		case "judge":
			s.handleJudge(ctx, fields[1:])
		case "info":
			s.handleInfo(fields[1:])
		case "list":
			s.handleList(fields[1:])
		case "set":
			s.handleSet(fields[1:])
		case "show":
			s.handleShow(fields[1:])
		default:
			fmt.Printf("unknown command: %s (try help)\n", fields[0])
		}
	}
}

func (s *Session) handleJudge(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("usage: judge <pid|directory>")
		return
	}
	target := args[0]

	problemDir, rec, found := s.resolveTarget(target)
	if info, err := os.Stat(problemDir); err != nil || !info.IsDir() {
		fmt.Printf("problem directory %s not found\n", problemDir)
		return
	}

	limits := result.ProblemLimits{}
	if found {
		limits = rec.Limits()
		printLimitBanner(os.Stdout, rec)
	}

	fmt.Printf("Judging %s @ %s\n", labelFor(rec, target), problemDir)
	report, err := s.worker.Judge(ctx, problemDir, limits, judge.Options{
		SourceName: s.source,
		Std:        s.std,
		Timeout:    s.timeout,
	})
	if err != nil {
		fmt.Printf("judge failed: %v\n", err)
		return
	}
	if report.AllAccepted {
		fmt.Println("all cases accepted")
	} else {
		fmt.Println("some cases not accepted")
	}
}

func (s *Session) resolveTarget(target string) (string, catalog.Record, bool) {
	// A directory on disk wins over a pid lookup.
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		rec, found := s.snapshot.ByDirectory(target)
		return target, rec, found
	}
	if info, err := os.Stat(filepath.Join(s.cfg.BaseDir, target)); err == nil && info.IsDir() {
		dir := filepath.Join(s.cfg.BaseDir, target)
		rec, found := s.snapshot.ByDirectory(dir)
		return dir, rec, found
	}
	return s.snapshot.ResolveProblemDir(target, s.cfg.BaseDir)
}

func (s *Session) handleInfo(args []string) {
	if len(args) == 0 {
		fmt.Println("usage: info <pid>")
		return
	}
	rec, found := s.snapshot.ByPID(args[0])
	if !found {
		fmt.Printf("%v\n", appErr.Newf(appErr.ProblemNotFound, "problem %s not found in metadata", args[0]))
		return
	}
	fmt.Printf("pid:        %s\n", rec.PID)
	fmt.Printf("title:      %s\n", rec.Title)
	if rec.DifficultyLabel != "" {
		fmt.Printf("difficulty: %s\n", rec.DifficultyLabel)
	}
	fmt.Printf("time:       %s\n", rec.TimeDesc())
	fmt.Printf("memory:     %s\n", rec.MemoryDesc())
	if rec.Directory != "" {
		fmt.Printf("directory:  %s\n", rec.Directory)
	}
	if rec.URL != "" {
		fmt.Printf("url:        %s\n", rec.URL)
	}
}

func (s *Session) handleList(args []string) {
	limit := 20
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}
	pids := s.snapshot.PIDs()
	if len(pids) == 0 {
		fmt.Println("metadata snapshot is empty")
		return
	}
	for i, pid := range pids {
		if i >= limit {
			fmt.Printf("... and %d more\n", len(pids)-limit)
			break
		}
		rec, _ := s.snapshot.ByPID(pid)
		fmt.Printf("%-12s %s\n", pid, rec.Title)
	}
}

func (s *Session) handleSet(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: set std|source|timeout <value>")
		return
	}
	switch args[0] {
	case "std":
		s.std = args[1]
		fmt.Printf("std set to %s\n", s.std)
	case "source":
		s.source = args[1]
		fmt.Printf("source set to %s\n", s.source)
	case "timeout":
		seconds, err := strconv.ParseFloat(args[1], 64)
		if err != nil || seconds < 0 {
			fmt.Println("timeout must be a non-negative number of seconds")
			return
		}
		s.timeout = time.Duration(seconds * float64(time.Second))
		fmt.Printf("timeout set to %gs\n", seconds)
	default:
		fmt.Println("usage: set std|source|timeout <value>")
	}
}

func (s *Session) handleShow(args []string) {
	if len(args) == 0 || args[0] != "config" {
		fmt.Println("usage: show config")
		return
	}
	fmt.Printf("compiler: %s\n", s.cfg.CompilerPath)
	fmt.Printf("std:      %s\n", s.std)
	fmt.Printf("source:   %s\n", s.source)
	fmt.Printf("base dir: %s\n", s.cfg.BaseDir)
	fmt.Printf("metadata: %s\n", s.cfg.MetadataPath)
	if s.timeout > 0 {
		fmt.Printf("timeout:  %gs\n", s.timeout.Seconds())
	} else {
		fmt.Println("timeout:  from metadata")
	}
}

func (s *Session) printHelp() {
	fmt.Println("commands:")
	fmt.Println("  judge <pid|dir>   compile and run the problem's tests")
	fmt.Println("  info <pid>        show problem metadata")
	fmt.Println("  list [n]          list known problems")
	fmt.Println("  set std|source|timeout <value>")
	fmt.Println("  show config       show effective settings")
	fmt.Println("  quit              leave the shell")
}

func labelFor(rec catalog.Record, fallback string) string {
	if rec.PID != "" {
		return rec.PID
	}
	return fallback
}

// printLimitBanner shows the problem's advisory limits before judging.
func printLimitBanner(w io.Writer, rec catalog.Record) {
	fmt.Fprintf(w, "%s limits: time <= %s, memory <= %s\n",
		rec.PID, rec.TimeDesc(), rec.MemoryDesc())
}
