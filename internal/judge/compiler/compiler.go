// Package compiler invokes the native C++ toolchain.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"

	"lojudge/internal/judge/result"
	appErr "lojudge/pkg/errors"
)

// defaultTemplate carries the fixed diagnostic flag set plus the define
// signaling local execution to the solution.
const defaultTemplate = "{compiler} {src} -std={std} -O2 -pipe -Wall -Wextra -Wshadow -Wconversion -DLOCAL=1 -o {bin} {extraFlags}"

// Request describes one compilation task.
type Request struct {
	SourcePath string
	OutputPath string
	Std        string
	// ExtraFlags is appended verbatim to the command template and split
	// together with it.
	ExtraFlags string
}

// Compiler produces a binary from a source file.
type Compiler interface {
	Compile(ctx context.Context, req Request) (result.CompileResult, error)
}

// Invoker drives an external compiler through a command template.
type Invoker struct {
	compilerPath string
	template     string
}

// New creates an invoker for the given compiler executable. An empty path
// selects g++.
func New(compilerPath string) *Invoker {
	if compilerPath == "" {
		compilerPath = "g++"
	}
	return &Invoker{compilerPath: compilerPath, template: defaultTemplate}
}

// Compile runs the toolchain and captures its streams and wall time. A
// non-zero compiler exit is a normal Success=false result; only harness
// faults (missing toolchain, unsplittable command) surface as errors.
func (c *Invoker) Compile(ctx context.Context, req Request) (result.CompileResult, error) {
	if req.SourcePath == "" {
		return result.CompileResult{}, appErr.ValidationError("source_path", "required")
	}
	if req.OutputPath == "" {
		return result.CompileResult{}, appErr.ValidationError("output_path", "required")
	}

	argv, err := c.buildCommand(req)
	if err != nil {
		return result.CompileResult{}, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, fs.ErrNotExist) {
				return result.CompileResult{}, appErr.Wrapf(runErr, appErr.CompilerNotFound, "compiler not found: %s", argv[0])
			}
			return result.CompileResult{}, appErr.Wrapf(runErr, appErr.InternalError, "invoke compiler failed")
		}
	}

	success := runErr == nil
	res := result.CompileResult{
		Success: success,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: elapsed,
	}
	if success {
		res.Message = "Compilation succeeded"
		res.ArtifactPath = req.OutputPath
	} else {
		res.Message = "Compilation failed"
	}
	return res, nil
}

func (c *Invoker) buildCommand(req Request) ([]string, error) {
	std := req.Std
	if std == "" {
		std = "c++17"
	}
	expanded := c.template
	expanded = strings.ReplaceAll(expanded, "{compiler}", c.compilerPath)
	expanded = strings.ReplaceAll(expanded, "{src}", req.SourcePath)
	expanded = strings.ReplaceAll(expanded, "{bin}", req.OutputPath)
	expanded = strings.ReplaceAll(expanded, "{std}", std)
	expanded = strings.ReplaceAll(expanded, "{extraFlags}", req.ExtraFlags)

	fields, err := shlex.Split(expanded)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidParams, "parse compile command failed")
	}
	if len(fields) == 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("compile command is empty after expansion")
	}
	return fields, nil
}
