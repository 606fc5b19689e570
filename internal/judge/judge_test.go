package judge

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"lojudge/internal/judge/compiler"
	"lojudge/internal/judge/result"
	"lojudge/internal/judge/runner"
	"lojudge/internal/judge/verdict"
	appErr "lojudge/pkg/errors"
)

type fakeCompiler struct {
	res      result.CompileResult
	err      error
	requests []compiler.Request
}

func (f *fakeCompiler) Compile(_ context.Context, req compiler.Request) (result.CompileResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return result.CompileResult{}, f.err
	}
	res := f.res
	if res.ArtifactPath == "" {
		res.ArtifactPath = req.OutputPath
	}
	return res, nil
}

type fakeRunner struct {
	// results is keyed by the stdin file's base name. Stdout is treated
	// as the program's complete output: it is spooled to StdoutPath in
	// full, and truncated to capBytes in the returned result when set,
	// mirroring the process runner's contract.
	results  map[string]result.RunResult
	capBytes int
	err      error
	commands []runner.Command
}

func (f *fakeRunner) Run(_ context.Context, cmd runner.Command) (result.RunResult, error) {
	f.commands = append(f.commands, cmd)
	if f.err != nil {
		return result.RunResult{}, f.err
	}
	res := f.results[filepath.Base(cmd.StdinPath)]
	if cmd.StdoutPath != "" {
		if err := os.WriteFile(cmd.StdoutPath, []byte(res.Stdout), 0644); err != nil {
			return result.RunResult{}, err
		}
	}
	if f.capBytes > 0 && len(res.Stdout) > f.capBytes {
		res.Stdout = res.Stdout[:f.capBytes]
	}
	return res, nil
}

func okCompile() result.CompileResult {
	return result.CompileResult{Success: true, Message: "Compilation succeeded"}
}

func writeCase(t *testing.T, dir, stem, input, expected string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, stem+".in"), []byte(input), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if expected != "" {
		if err := os.WriteFile(filepath.Join(dir, stem+".out"), []byte(expected), 0644); err != nil {
			t.Fatalf("write expected: %v", err)
		}
	}
}

func newProblemDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.cpp"), []byte("int main(){}\n"), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return dir
}

func TestJudgeAllAccepted(t *testing.T) {
	dir := newProblemDir(t)
	writeCase(t, dir, "1", "1 2\n", "3\n")
	writeCase(t, dir, "2", "4 5\n", "9\n")

	elapsed := 0.05
	r := &fakeRunner{results: map[string]result.RunResult{
		"1.in": {Stdout: "3\n", TimeSeconds: &elapsed},
		"2.in": {Stdout: "9\n", TimeSeconds: &elapsed},
	}}
	var out, errOut bytes.Buffer
	w := NewWorker(&fakeCompiler{res: okCompile()}, r, &out, &errOut)

	report, err := w.Judge(context.Background(), dir, result.ProblemLimits{}, Options{})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if !report.AllAccepted {
		t.Fatal("all cases accepted, AllAccepted should be true")
	}
	if len(report.Tests) != 2 {
		t.Fatalf("got %d results, want 2", len(report.Tests))
	}
	if report.Tests[0].Name != "1.in" || report.Tests[1].Name != "2.in" {
		t.Fatalf("results out of order: %s, %s", report.Tests[0].Name, report.Tests[1].Name)
	}
	for _, res := range report.Tests {
		if res.Status != verdict.StatusAC {
			t.Fatalf("case %s: status = %s", res.Name, res.Status)
		}
	}
	if errOut.Len() != 0 {
		t.Fatalf("unexpected stderr output: %q", errOut.String())
	}
}

func TestJudgeCompileFailureHaltsBeforeRunning(t *testing.T) {
	dir := newProblemDir(t)
	writeCase(t, dir, "1", "1 2\n", "3\n")

	c := &fakeCompiler{res: result.CompileResult{
		Success: false,
		Message: "Compilation failed",
		Stderr:  "main.cpp:1:1: error: expected unqualified-id",
	}}
	r := &fakeRunner{}
	var out, errOut bytes.Buffer
	w := NewWorker(c, r, &out, &errOut)

	report, err := w.Judge(context.Background(), dir, result.ProblemLimits{}, Options{})
	if err == nil {
		t.Fatal("expected a compile error")
	}
	if code := appErr.GetCode(err); code != appErr.CompileFailed {
		t.Fatalf("code = %d, want %d", code, appErr.CompileFailed)
	}
	if len(report.Tests) != 0 {
		t.Fatalf("no cases should run after a failed compile, got %d", len(report.Tests))
	}
	if len(r.commands) != 0 {
		t.Fatalf("runner invoked %d times, want 0", len(r.commands))
	}
	if !strings.Contains(errOut.String(), "error: expected unqualified-id") {
		t.Fatalf("compiler diagnostics missing from stderr: %q", errOut.String())
	}
}

func TestJudgeWrongAnswerAggregation(t *testing.T) {
	dir := newProblemDir(t)
	writeCase(t, dir, "1", "1 2\n", "3\n")
	writeCase(t, dir, "2", "4 5\n", "9\n")

	r := &fakeRunner{results: map[string]result.RunResult{
		"1.in": {Stdout: "3\n"},
		"2.in": {Stdout: "8\n", Stderr: "overflow warning\n"},
	}}
	var out, errOut bytes.Buffer
	w := NewWorker(&fakeCompiler{res: okCompile()}, r, &out, &errOut)

	report, err := w.Judge(context.Background(), dir, result.ProblemLimits{}, Options{})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if report.AllAccepted {
		t.Fatal("a wrong answer must clear AllAccepted")
	}
	if report.Tests[0].Status != verdict.StatusAC || report.Tests[1].Status != verdict.StatusWA {
		t.Fatalf("statuses = %s, %s", report.Tests[0].Status, report.Tests[1].Status)
	}
	text := out.String()
	if !strings.Contains(text, "program output:") || !strings.Contains(text, "8") {
		t.Fatalf("wrong-answer output missing the program's stdout: %q", text)
	}
	if !strings.Contains(report.Tests[1].Message, "--- 2.out") {
		t.Fatalf("diff should name the expected file, got:\n%s", report.Tests[1].Message)
	}
	if !strings.Contains(errOut.String(), "overflow warning") {
		t.Fatalf("failing case stderr not surfaced: %q", errOut.String())
	}
}

func TestJudgeTimeout(t *testing.T) {
	dir := newProblemDir(t)
	writeCase(t, dir, "1", "big\n", "42\n")

	seconds := 2.0
	r := &fakeRunner{results: map[string]result.RunResult{
		"1.in": {TimedOut: true, TimeSeconds: &seconds},
	}}
	var out bytes.Buffer
	w := NewWorker(&fakeCompiler{res: okCompile()}, r, &out, &out)

	report, err := w.Judge(context.Background(), dir, result.ProblemLimits{}, Options{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if report.AllAccepted {
		t.Fatal("a timeout must clear AllAccepted")
	}
	res := report.Tests[0]
	if res.Status != verdict.StatusTLE {
		t.Fatalf("status = %s, want %s", res.Status, verdict.StatusTLE)
	}
	if res.Message != "Timeout after 2 seconds" {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestJudgeMetadataTimeLimitUsedWhenNoTimeout(t *testing.T) {
	dir := newProblemDir(t)
	writeCase(t, dir, "1", "1 2\n", "3\n")

	r := &fakeRunner{results: map[string]result.RunResult{"1.in": {Stdout: "3\n"}}}
	var out bytes.Buffer
	w := NewWorker(&fakeCompiler{res: okCompile()}, r, &out, &out)

	ms := int64(1500)
	limits := result.ProblemLimits{TimeLimitMs: &ms}
	if _, err := w.Judge(context.Background(), dir, limits, Options{}); err != nil {
		t.Fatalf("judge: %v", err)
	}
	if got := r.commands[0].Timeout; got != 1500*time.Millisecond {
		t.Fatalf("timeout = %v, want 1.5s", got)
	}
}

func TestJudgeMissingExpectedFile(t *testing.T) {
	dir := newProblemDir(t)
	writeCase(t, dir, "1", "1 2\n", "")

	r := &fakeRunner{results: map[string]result.RunResult{"1.in": {Stdout: "3\n"}}}
	var out bytes.Buffer
	w := NewWorker(&fakeCompiler{res: okCompile()}, r, &out, &out)

	report, err := w.Judge(context.Background(), dir, result.ProblemLimits{}, Options{})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if report.AllAccepted {
		t.Fatal("a missing expected file must clear AllAccepted")
	}
	if report.Tests[0].Status != verdict.StatusNoExpected {
		t.Fatalf("status = %s, want %s", report.Tests[0].Status, verdict.StatusNoExpected)
	}
}

func TestJudgeRunnerFaultAborts(t *testing.T) {
	dir := newProblemDir(t)
	writeCase(t, dir, "1", "1 2\n", "3\n")

	r := &fakeRunner{err: appErr.New(appErr.RunFailed).WithMessage("exec failed")}
	var out bytes.Buffer
	w := NewWorker(&fakeCompiler{res: okCompile()}, r, &out, &out)

	_, err := w.Judge(context.Background(), dir, result.ProblemLimits{}, Options{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if code := appErr.GetCode(err); code != appErr.JudgeSystemError {
		t.Fatalf("code = %d, want %d", code, appErr.JudgeSystemError)
	}
}

func TestJudgeNoTestCases(t *testing.T) {
	dir := newProblemDir(t)

	var out bytes.Buffer
	w := NewWorker(&fakeCompiler{res: okCompile()}, &fakeRunner{}, &out, &out)

	report, err := w.Judge(context.Background(), dir, result.ProblemLimits{}, Options{})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if !report.AllAccepted {
		t.Fatal("zero cases still count as all accepted")
	}
	if !strings.Contains(out.String(), "No .in files found") {
		t.Fatalf("missing no-cases notice: %q", out.String())
	}
}

func TestJudgeComparesFullOutputBeyondCaptureCap(t *testing.T) {
	dir := newProblemDir(t)
	long := strings.Repeat("7 ", 50000) + "\n"
	writeCase(t, dir, "1", "n\n", long)

	r := &fakeRunner{
		results:  map[string]result.RunResult{"1.in": {Stdout: long}},
		capBytes: 64 * 1024,
	}
	var out bytes.Buffer
	w := NewWorker(&fakeCompiler{res: okCompile()}, r, &out, &out)

	report, err := w.Judge(context.Background(), dir, result.ProblemLimits{}, Options{})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if report.Tests[0].Status != verdict.StatusAC {
		t.Fatalf("byte-identical output must be AC regardless of the capture cap, got %s", report.Tests[0].Status)
	}
	if len(report.Tests[0].Stdout) > 64*1024 {
		t.Fatalf("result stdout not capped: %d bytes", len(report.Tests[0].Stdout))
	}
}

func writePackFile(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	tw := tar.NewWriter(enc)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("tar write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("zstd close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
}

func TestJudgeFallsBackToDataPack(t *testing.T) {
	dir := newProblemDir(t)
	writePackFile(t, filepath.Join(dir, "testdata.tar.zst"), map[string]string{
		"1.in":  "2 3\n",
		"1.out": "5\n",
	})

	r := &fakeRunner{results: map[string]result.RunResult{"1.in": {Stdout: "5\n"}}}
	var out bytes.Buffer
	w := NewWorker(&fakeCompiler{res: okCompile()}, r, &out, &out)

	report, err := w.Judge(context.Background(), dir, result.ProblemLimits{}, Options{})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if len(report.Tests) != 1 || report.Tests[0].Name != "1.in" {
		t.Fatalf("pack cases not judged: %+v", report.Tests)
	}
	if report.Tests[0].Status != verdict.StatusAC || !report.AllAccepted {
		t.Fatalf("status = %s, AllAccepted = %v", report.Tests[0].Status, report.AllAccepted)
	}
}

func TestJudgeLooseFilesWinOverDataPack(t *testing.T) {
	dir := newProblemDir(t)
	writeCase(t, dir, "1", "1 2\n", "3\n")
	writePackFile(t, filepath.Join(dir, "testdata.tar.zst"), map[string]string{
		"9.in":  "x\n",
		"9.out": "y\n",
	})

	r := &fakeRunner{results: map[string]result.RunResult{"1.in": {Stdout: "3\n"}}}
	var out bytes.Buffer
	w := NewWorker(&fakeCompiler{res: okCompile()}, r, &out, &out)

	report, err := w.Judge(context.Background(), dir, result.ProblemLimits{}, Options{})
	if err != nil {
		t.Fatalf("judge: %v", err)
	}
	if len(report.Tests) != 1 || report.Tests[0].Name != "1.in" {
		t.Fatalf("loose cases must win over the pack: %+v", report.Tests)
	}
}

func TestJudgeCorruptDataPackYieldsZeroTests(t *testing.T) {
	dir := newProblemDir(t)
	pack := filepath.Join(dir, "testdata.tar.zst")
	if err := os.WriteFile(pack, []byte("not a zstd archive"), 0644); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	r := &fakeRunner{}
	var out bytes.Buffer
	w := NewWorker(&fakeCompiler{res: okCompile()}, r, &out, &out)

	report, err := w.Judge(context.Background(), dir, result.ProblemLimits{}, Options{})
	if err != nil {
		t.Fatalf("a bad pack degrades to zero tests, not an error: %v", err)
	}
	if len(report.Tests) != 0 || len(r.commands) != 0 {
		t.Fatalf("no cases should run: %d results, %d runs", len(report.Tests), len(r.commands))
	}
	if !strings.Contains(out.String(), "No .in files found") {
		t.Fatalf("missing no-cases notice: %q", out.String())
	}
}

func TestFormatResult(t *testing.T) {
	elapsed := 0.123
	mem := int64(2048)
	limitMs := int64(1000)
	limitKb := int64(131072)
	res := result.TestResult{
		Name:        "1.in",
		Status:      verdict.StatusAC,
		TimeSeconds: &elapsed,
		MemoryKB:    &mem,
		Message:     "Accepted",
	}
	limits := result.ProblemLimits{TimeLimitMs: &limitMs, MemoryLimitKb: &limitKb}

	got := FormatResult(res, limits)
	want := "[1.in] AC | time 123.00 ms | limit 1000 ms | mem 2.00 MB | mem limit 128.00 MB | Accepted"
	if got != want {
		t.Fatalf("line = %q, want %q", got, want)
	}
}

func TestFormatResultOmitsUnknownFields(t *testing.T) {
	res := result.TestResult{Name: "2.in", Status: verdict.StatusRE, Message: "Runtime error (exit code 1)\ndetails"}
	got := FormatResult(res, result.ProblemLimits{})
	want := "[2.in] RE | Runtime error (exit code 1)"
	if got != want {
		t.Fatalf("line = %q, want %q", got, want)
	}
}
