// Package judge orchestrates the full judge workflow: resolve the solution
// source, compile it, run every test case sequentially and classify each
// outcome.
package judge

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lojudge/internal/judge/compiler"
	"lojudge/internal/judge/result"
	"lojudge/internal/judge/runner"
	"lojudge/internal/judge/testcase"
	"lojudge/internal/judge/verdict"
	appErr "lojudge/pkg/errors"
	"lojudge/pkg/utils/logger"
)

const binaryName = "solution"

// Options tune a single judge run.
type Options struct {
	SourceName  string
	Std         string
	ExtraCFlags string
	// Timeout bounds each test case; zero falls back to the problem's
	// metadata time limit, and to unbounded when that is unknown too.
	Timeout time.Duration
}

// Worker runs the judge workflow for one problem directory.
type Worker struct {
	compiler compiler.Compiler
	runner   runner.Runner
	out      io.Writer
	errOut   io.Writer
}

// NewWorker wires the orchestrator. Writers default to the process streams.
func NewWorker(c compiler.Compiler, r runner.Runner, out, errOut io.Writer) *Worker {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Worker{compiler: c, runner: r, out: out, errOut: errOut}
}

// Judge executes the whole workflow. Resolution and compile faults abort the
// run with an error; per-case outcomes never do. AllAccepted is true iff
// every discovered case is AC.
func (w *Worker) Judge(ctx context.Context, problemDir string, limits result.ProblemLimits, opts Options) (result.Report, error) {
	ctx = logger.WithRunID(ctx, uuid.NewString())
	report := result.Report{ProblemDir: problemDir}

	sourcePath, err := ResolveSource(problemDir, opts.SourceName)
	if err != nil {
		return report, err
	}

	buildDir := filepath.Join(os.TempDir(), "lojudge-build-"+uuid.NewString())
	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return report, appErr.Wrapf(err, appErr.JudgeSystemError, "create build dir failed")
	}
	defer os.RemoveAll(buildDir)

	compileRes, err := w.compiler.Compile(ctx, compiler.Request{
		SourcePath: sourcePath,
		OutputPath: filepath.Join(buildDir, binaryName),
		Std:        opts.Std,
		ExtraFlags: opts.ExtraCFlags,
	})
	if err != nil {
		return report, err
	}
	report.Compile = compileRes

	fmt.Fprintf(w.out, "Compile: %s (%.2fs)\n", compileRes.Message, compileRes.Elapsed.Seconds())
	if compileRes.Stdout != "" {
		fmt.Fprintln(w.out, compileRes.Stdout)
	}
	if compileRes.Stderr != "" {
		fmt.Fprintln(w.errOut, compileRes.Stderr)
	}
	if !compileRes.Success {
		return report, appErr.New(appErr.CompileFailed)
	}

	tests, err := w.collectTests(ctx, problemDir, buildDir)
	if err != nil {
		return report, err
	}
	if len(tests) == 0 {
		fmt.Fprintf(w.out, "No %s files found in %s\n", ".in", problemDir)
	}

	timeout := opts.Timeout
	if timeout == 0 && limits.TimeLimitMs != nil {
		timeout = time.Duration(*limits.TimeLimitMs) * time.Millisecond
	}

	report.AllAccepted = true
	for _, tc := range tests {
		res, err := w.runCase(ctx, compileRes.ArtifactPath, buildDir, tc, timeout)
		if err != nil {
			return report, err
		}
		report.Tests = append(report.Tests, res)

		fmt.Fprintln(w.out, FormatResult(res, limits))
		if res.Status == verdict.StatusWA {
			actual := strings.TrimRight(res.Stdout, "\n")
			if actual == "" {
				actual = "<empty output>"
			}
			fmt.Fprintln(w.out, "program output:")
			fmt.Fprintln(w.out, actual)
		}
		if res.Status != verdict.StatusAC {
			report.AllAccepted = false
			if res.Stderr != "" {
				fmt.Fprintf(w.errOut, "stderr:\n%s\n", res.Stderr)
			}
		}
	}
	return report, nil
}

// collectTests enumerates loose .in/.out pairs, falling back to a bundled
// test data archive extracted into the transient build dir.
func (w *Worker) collectTests(ctx context.Context, problemDir, buildDir string) ([]testcase.TestCase, error) {
	tests, err := testcase.List(problemDir)
	if err != nil {
		return nil, err
	}
	if len(tests) > 0 {
		return tests, nil
	}

	pack := testcase.FindPack(problemDir)
	if pack == "" {
		return nil, nil
	}
	extractDir := filepath.Join(buildDir, "testdata")
	if err := os.MkdirAll(extractDir, 0755); err != nil {
		return nil, appErr.Wrapf(err, appErr.JudgeSystemError, "create testdata dir failed")
	}
	if err := testcase.ExtractPack(pack, extractDir); err != nil {
		logger.Warn(ctx, "extract test data pack failed", zap.String("pack", pack), zap.Error(err))
		return nil, nil
	}
	logger.Info(ctx, "extracted test data pack", zap.String("pack", pack))
	return testcase.List(extractDir)
}

// runCase executes one test. The program's stdout is spooled to a file in
// the transient build dir so the verdict compares the complete output; the
// capture cap applies only to the copy carried in the result.
func (w *Worker) runCase(ctx context.Context, binPath, buildDir string, tc testcase.TestCase, timeout time.Duration) (result.TestResult, error) {
	stdoutPath := filepath.Join(buildDir, tc.Name+".stdout")
	runRes, err := w.runner.Run(ctx, runner.Command{
		Path:       binPath,
		StdinPath:  tc.InputPath,
		StdoutPath: stdoutPath,
		Timeout:    timeout,
	})
	if err != nil {
		logger.Error(ctx, "run test case failed", zap.String("case", tc.Name), zap.Error(err))
		return result.TestResult{}, appErr.Wrapf(err, appErr.JudgeSystemError, "run test case %s failed", tc.Name)
	}

	res := result.TestResult{
		Name:        tc.Name,
		TimeSeconds: runRes.TimeSeconds,
		MemoryKB:    runRes.MemoryKB,
		Stdout:      runRes.Stdout,
		Stderr:      runRes.Stderr,
	}

	if runRes.TimedOut {
		res.Status = verdict.StatusTLE
		res.Message = fmt.Sprintf("Timeout after %g seconds", timeout.Seconds())
		return res, nil
	}

	expectedAvailable := tc.ExpectedAvailable()
	expectedText := ""
	if expectedAvailable {
		expectedText = readTextSafe(tc.ExpectedPath)
	}
	res.Status, res.Message = verdict.Classify(runRes.ExitCode, expectedAvailable,
		filepath.Base(tc.ExpectedPath), expectedText, readTextSafe(stdoutPath))
	logger.Debug(ctx, "case judged", zap.String("case", tc.Name), zap.String("status", string(res.Status)))
	return res, nil
}

// readTextSafe reads a file as text, replacing invalid byte sequences. A
// missing or unreadable file reads as empty.
func readTextSafe(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(data), "�")
}
