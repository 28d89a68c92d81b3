package shtest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/litrun/internal/discovery"
	"github.com/eugenenazirov/litrun/internal/suite"
)

type fixture struct {
	cfg    suite.Config
	srcDir string
}

func newFixture(t *testing.T, strict bool) fixture {
	t.Helper()

	root := t.TempDir()
	srcDir := filepath.Join(root, "src")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfg := suite.New(filepath.Join(root, "obj"), filepath.Join(srcDir, "lit.cfg.yaml"))
	cfg.Format.Strict = strict
	return fixture{cfg: cfg, srcDir: srcDir}
}

func (f fixture) write(t *testing.T, name, content string) discovery.Test {
	t.Helper()

	path := filepath.Join(f.srcDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return discovery.Test{
		Name:       discovery.TestName(f.cfg.Name, name),
		RelPath:    name,
		SourcePath: path,
		ExecPath:   filepath.Join(f.cfg.ExecRoot, name),
	}
}

func (f fixture) executor(t *testing.T) *Executor {
	return NewExecutor(f.cfg, WithShell("sh"), WithPipefail(false), WithLogger(zaptest.NewLogger(t)))
}

func TestRunPasses(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	test := f.write(t, "pass.tst", "RUN: echo hello > %t\nRUN: grep -q hello %t\n")

	result := f.executor(t).Run(context.Background(), test)
	if result.Status != StatusPass {
		t.Fatalf("expected PASS, got %s: %s", result.Status, result.Output)
	}
	if result.Name != test.Name || result.RelPath != "pass.tst" {
		t.Fatalf("unexpected identity: %+v", result)
	}
	if !strings.Contains(result.Output, "$ echo hello > ") {
		t.Fatalf("expected expanded command in output, got %q", result.Output)
	}
	if _, err := os.Stat(filepath.Join(f.cfg.ExecRoot, "Output", "pass.tst.tmp")); err != nil {
		t.Fatalf("expected temp file under exec root: %v", err)
	}
}

func TestRunStrictStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	marker := filepath.Join(t.TempDir(), "ran")
	test := f.write(t, "strict.tst", "RUN: exit 3\nRUN: touch "+marker+"\n")

	result := f.executor(t).Run(context.Background(), test)
	if result.Status != StatusFail {
		t.Fatalf("expected FAIL, got %s", result.Status)
	}
	if result.ExitCode != 3 || result.FailedCommand != "exit 3" {
		t.Fatalf("unexpected failure details: %+v", result)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Fatalf("expected strict mode to skip remaining commands, stat err: %v", err)
	}
}

func TestRunNonStrictContinues(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	marker := filepath.Join(t.TempDir(), "ran")
	test := f.write(t, "lenient.tst", "RUN: false\nRUN: touch "+marker+"\n")

	result := f.executor(t).Run(context.Background(), test)
	if result.Status != StatusFail {
		t.Fatalf("expected FAIL, got %s", result.Status)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("expected remaining commands to run: %v", err)
	}
}

func TestRunExpectedFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	exec := f.executor(t)

	xfail := exec.Run(context.Background(), f.write(t, "xfail.tst", "XFAIL: *\nRUN: false\n"))
	if xfail.Status != StatusXFail {
		t.Fatalf("expected XFAIL, got %s", xfail.Status)
	}

	xpass := exec.Run(context.Background(), f.write(t, "xpass.tst", "XFAIL: *\nRUN: true\n"))
	if xpass.Status != StatusXPass {
		t.Fatalf("expected XPASS, got %s", xpass.Status)
	}
}

func TestRunUnresolved(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	exec := f.executor(t)

	empty := exec.Run(context.Background(), f.write(t, "empty.tst", "no directives here\n"))
	if empty.Status != StatusUnresolved || !strings.Contains(empty.Output, ErrNoRunLines.Error()) {
		t.Fatalf("expected UNRESOLVED for missing RUN:, got %+v", empty)
	}

	missing := exec.Run(context.Background(), discovery.Test{
		Name:       "missing",
		SourcePath: filepath.Join(f.srcDir, "missing.tst"),
		ExecPath:   filepath.Join(f.cfg.ExecRoot, "missing.tst"),
	})
	if missing.Status != StatusUnresolved {
		t.Fatalf("expected UNRESOLVED for unreadable script, got %s", missing.Status)
	}
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	test := f.write(t, "slow.tst", "RUN: sleep 5\n")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result := f.executor(t).Run(ctx, test)
	if result.Status != StatusTimeout {
		t.Fatalf("expected TIMEOUT, got %s", result.Status)
	}
	if result.Duration >= 5*time.Second {
		t.Fatalf("expected command to be killed early, took %s", result.Duration)
	}
}

func TestRunCancelledIsUnresolved(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	test := f.write(t, "slow.tst", "RUN: sleep 5\n")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	result := f.executor(t).Run(ctx, test)
	if result.Status != StatusUnresolved {
		t.Fatalf("expected UNRESOLVED after cancellation, got %s", result.Status)
	}
	if !strings.Contains(result.Output, context.Canceled.Error()) {
		t.Fatalf("expected cancellation note in output, got %q", result.Output)
	}
	if result.Duration >= 5*time.Second {
		t.Fatalf("expected command to be killed early, took %s", result.Duration)
	}
}

func TestRunStripsANSI(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	test := f.write(t, "color.tst", `RUN: printf '\033[31mred\033[0m\n'`+"\n")

	result := f.executor(t).Run(context.Background(), test)
	if result.Status != StatusPass {
		t.Fatalf("expected PASS, got %s: %s", result.Status, result.Output)
	}
	if strings.Contains(result.Output, "\x1b[") || !strings.Contains(result.Output, "red") {
		t.Fatalf("expected ANSI codes to be stripped, got %q", result.Output)
	}
}

func TestStatusIsFailure(t *testing.T) {
	t.Parallel()

	want := map[Status]bool{
		StatusPass:       false,
		StatusXFail:      false,
		StatusFail:       true,
		StatusXPass:      true,
		StatusUnresolved: true,
		StatusTimeout:    true,
	}
	for _, status := range Statuses() {
		if got := status.IsFailure(); got != want[status] {
			t.Errorf("%s.IsFailure() = %v, want %v", status, got, want[status])
		}
	}
}
