package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lojudge/internal/catalog"
	"lojudge/internal/cli/repl"
	"lojudge/internal/config"
	"lojudge/internal/judge"
	"lojudge/internal/judge/compiler"
	"lojudge/internal/judge/measure"
	"lojudge/internal/judge/result"
	"lojudge/internal/judge/runner"
	appErr "lojudge/pkg/errors"
	"lojudge/pkg/utils/logger"
)

const (
	exitAccepted      = 0
	exitSetupFailure  = 1
	exitCasesRejected = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to YAML config file")
	pid := flag.String("pid", "", "Problem ID to judge (overrides positional path)")
	baseDir := flag.String("base-dir", "", "Root directory that contains problem folders")
	source := flag.String("source", "", "Source file name relative to the problem directory")
	std := flag.String("std", "", "C++ standard to use during compilation")
	timeout := flag.Float64("timeout", 0, "Timeout per test case in seconds (default: from metadata)")
	cflags := flag.String("cflags", "", "Additional compiler flags")
	interactive := flag.Bool("interactive", false, "Start an interactive judging shell")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
			return exitSetupFailure
		}
		cfg = loaded
	}
	applyFlagOverrides(&cfg, *baseDir, *source, *std, *timeout)

	if err := logger.Init(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return exitSetupFailure
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshot, err := catalog.Load(cfg.MetadataPath)
	if err != nil {
		logger.Warn(ctx, "metadata snapshot unavailable", zap.Error(err))
	}

	worker := judge.NewWorker(
		compiler.New(cfg.CompilerPath),
		runner.New(measure.Detect(cfg.TimeBinary), cfg.MaxCaptureBytes),
		os.Stdout,
		os.Stderr,
	)

	if *interactive {
		if err := repl.New(cfg, snapshot, worker).Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return exitSetupFailure
		}
		return exitAccepted
	}

	problemDir, rec, found, ok := resolveProblem(snapshot, cfg, *pid, flag.Arg(0))
	if !ok {
		return exitSetupFailure
	}

	pidLabel := rec.PID
	if pidLabel == "" {
		pidLabel = filepath.Base(problemDir)
	}
	fmt.Printf("Judging %s @ %s\n", pidLabel, problemDir)

	limits := result.ProblemLimits{}
	if found {
		limits = rec.Limits()
		fmt.Printf("%s limits: time <= %s, memory <= %s\n", pidLabel, rec.TimeDesc(), rec.MemoryDesc())
		if cfg.TimeoutSeconds == 0 && rec.TimeLimitMs != nil {
			fmt.Printf("Using metadata time limit %.2fs\n", float64(*rec.TimeLimitMs)/1000)
		}
	}

	report, err := worker.Judge(ctx, problemDir, limits, judge.Options{
		SourceName:  cfg.SourceName,
		Std:         cfg.Std,
		ExtraCFlags: *cflags,
		Timeout:     time.Duration(cfg.TimeoutSeconds * float64(time.Second)),
	})
	if err != nil {
		// Compile diagnostics were already printed by the worker.
		if appErr.GetCode(err) != appErr.CompileFailed {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		return exitSetupFailure
	}
	if !report.AllAccepted {
		return exitCasesRejected
	}
	return exitAccepted
}

// applyFlagOverrides layers command-line values over the config file.
func applyFlagOverrides(cfg *config.Config, baseDir, source, std string, timeout float64) {
	if baseDir != "" {
		cfg.BaseDir = baseDir
	}
	if source != "" {
		cfg.SourceName = source
	}
	if std != "" {
		cfg.Std = std
	}
	if timeout > 0 {
		cfg.TimeoutSeconds = timeout
	}
}

// resolveProblem maps the CLI inputs to a problem directory and its metadata
// record. Resolution failures are printed and reported via ok=false.
func resolveProblem(snapshot catalog.Snapshot, cfg config.Config, pid, dirArg string) (string, catalog.Record, bool, bool) {
	if pid != "" {
		problemDir, rec, found := snapshot.ResolveProblemDir(pid, cfg.BaseDir)
		if info, err := os.Stat(problemDir); err != nil || !info.IsDir() {
			fmt.Fprintf(os.Stderr, "Problem directory %s not found for pid %s\n", problemDir, pid)
			return "", catalog.Record{}, false, false
		}
		return problemDir, rec, found, true
	}

	if dirArg != "" {
		problemDir, err := filepath.Abs(dirArg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Resolve problem directory failed: %v\n", err)
			return "", catalog.Record{}, false, false
		}
		if info, err := os.Stat(problemDir); err != nil || !info.IsDir() {
			fmt.Fprintf(os.Stderr, "Problem directory %s not found\n", problemDir)
			return "", catalog.Record{}, false, false
		}
		rec, found := snapshot.ByDirectory(problemDir)
		return problemDir, rec, found, true
	}

	fmt.Fprintln(os.Stderr, "Provide a problem directory or specify --pid (or use --interactive).")
	return "", catalog.Record{}, false, false
}
