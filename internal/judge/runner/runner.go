// Package runner executes compiled programs against test inputs with a
// wall-clock timeout and full stream capture.
package runner

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"lojudge/internal/judge/measure"
	"lojudge/internal/judge/result"
	appErr "lojudge/pkg/errors"
)

const defaultMaxCaptureBytes int64 = 64 * 1024

// Command describes one program execution.
type Command struct {
	Path      string
	Args      []string
	Dir       string
	StdinPath string
	// StdoutPath, when set, spools the child's standard output to a file
	// in full. The result then carries only the head of that file, capped
	// at the runner's capture limit; callers needing the complete output
	// read the file.
	StdoutPath string
	// Timeout bounds the run by wall clock; zero means unbounded.
	Timeout time.Duration
}

// Runner executes a single command to completion or timeout.
type Runner interface {
	Run(ctx context.Context, cmd Command) (result.RunResult, error)
}

// ProcessRunner runs commands as local child processes.
type ProcessRunner struct {
	measurer        measure.Measurer
	maxCaptureBytes int64
}

// New creates a process runner using the given measurement strategy.
func New(measurer measure.Measurer, maxCaptureBytes int64) *ProcessRunner {
	if maxCaptureBytes <= 0 {
		maxCaptureBytes = defaultMaxCaptureBytes
	}
	return &ProcessRunner{measurer: measurer, maxCaptureBytes: maxCaptureBytes}
}

// Run binds stdin to the command's input file, captures both output streams
// and enforces the wall-clock timeout. A timeout is a normal outcome carried
// in the result; only harness faults (unstartable process, unreadable input)
// surface as errors.
func (r *ProcessRunner) Run(ctx context.Context, c Command) (result.RunResult, error) {
	if c.Path == "" {
		return result.RunResult{}, appErr.ValidationError("path", "required")
	}

	probe := r.measurer.Begin()
	argv := probe.WrapCommand(append([]string{c.Path}, c.Args...))

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = c.Dir
	cmd.SysProcAttr = sysProcAttr()

	if c.StdinPath != "" {
		input, err := os.Open(c.StdinPath)
		if err != nil {
			probe.Collect(0)
			return result.RunResult{}, appErr.Wrapf(err, appErr.RunFailed, "open input file failed")
		}
		defer input.Close()
		cmd.Stdin = input
	}

	stderr := newCappedBuffer(r.maxCaptureBytes)
	cmd.Stderr = stderr

	var stdout *cappedBuffer
	if c.StdoutPath != "" {
		outFile, err := os.OpenFile(c.StdoutPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			probe.Collect(0)
			return result.RunResult{}, appErr.Wrapf(err, appErr.RunFailed, "create output file failed")
		}
		defer outFile.Close()
		cmd.Stdout = outFile
	} else {
		stdout = newCappedBuffer(r.maxCaptureBytes)
		cmd.Stdout = stdout
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		probe.Collect(0)
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return result.RunResult{}, appErr.Wrapf(err, appErr.RunFailed, "executable not found: %s", argv[0])
		}
		return result.RunResult{}, appErr.Wrapf(err, appErr.RunFailed, "start process failed")
	}

	var timedOut atomic.Bool
	done := make(chan struct{})
	go func() {
		var wallTimer <-chan time.Time
		if c.Timeout > 0 {
			timer := time.NewTimer(c.Timeout)
			defer timer.Stop()
			wallTimer = timer.C
		}
		select {
		case <-ctx.Done():
			killProcessGroup(cmd.Process)
		case <-wallTimer:
			timedOut.Store(true)
			killProcessGroup(cmd.Process)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)
	wall := time.Since(start)

	// The side-channel file must go away on every path, timeout included.
	sample := probe.Collect(wall)

	stdoutText := ""
	if stdout != nil {
		stdoutText = stdout.String()
	} else {
		stdoutText = readLimited(c.StdoutPath, r.maxCaptureBytes)
	}

	res := result.RunResult{
		ExitCode: exitCodeFromErr(waitErr, cmd.ProcessState),
		Stdout:   sanitize(stdoutText),
		Stderr:   sanitize(stderr.String()),
	}

	if timedOut.Load() {
		timeoutSeconds := c.Timeout.Seconds()
		res.TimedOut = true
		res.TimeSeconds = &timeoutSeconds
		return res, nil
	}

	res.TimeSeconds = sample.TimeSeconds
	res.MemoryKB = sample.MemoryKB
	return res, nil
}

func exitCodeFromErr(err error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// readLimited returns at most limit bytes from the head of a file.
func readLimited(path string, limit int64) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, limit))
	if err != nil {
		return ""
	}
	return string(data)
}

// sanitize replaces invalid byte sequences so captured output is always
// valid text.
func sanitize(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// cappedBuffer keeps the first limit bytes and discards the rest without
// blocking the child.
type cappedBuffer struct {
	limit int64
	buf   []byte
}

func newCappedBuffer(limit int64) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - int64(len(b.buf))
	if remaining > 0 {
		if int64(len(p)) > remaining {
			b.buf = append(b.buf, p[:remaining]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return string(b.buf)
}
