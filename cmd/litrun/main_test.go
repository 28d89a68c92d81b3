package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSuite(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return filepath.Join(dir, "lit.cfg.yaml")
}

func baseArgs(t *testing.T, suiteFile string) []string {
	t.Helper()
	t.Setenv("MY_OBJ_ROOT", "")
	t.Setenv("LITRUN_SUITE", "")
	t.Setenv("LITRUN_SHELL", "")
	return []string{
		"--obj-root", t.TempDir(),
		"--suite", suiteFile,
		"--shell", "sh",
		"--no-pipefail",
		"--workers", "2",
	}
}

func TestRunReportsPassingSuite(t *testing.T) {
	suiteFile := writeSuite(t, map[string]string{
		"lit.cfg.yaml": "name: Smoke\n",
		"ok.tst":       "RUN: true\n",
		"sub/also.tst": "RUN: echo %s | grep -q also.tst\n",
	})

	var stdout, stderr bytes.Buffer
	code := run(append(baseArgs(t, suiteFile), "run", "--all"), &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("expected exit %d, got %d (stderr: %s)", exitOK, code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"Smoke :: ok.tst", "Smoke :: sub/also.tst", "PASS"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected report to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRunExitsWithFailureStatus(t *testing.T) {
	suiteFile := writeSuite(t, map[string]string{
		"lit.cfg.yaml": "name: Smoke\n",
		"ok.tst":       "RUN: true\n",
		"bad.tst":      "RUN: echo broken && false\n",
	})
	results := filepath.Join(t.TempDir(), "results.json")

	var stdout, stderr bytes.Buffer
	code := run(append(baseArgs(t, suiteFile), "run", "--results", results), &stdout, &stderr)
	if code != exitTestsFailed {
		t.Fatalf("expected exit %d, got %d (stderr: %s)", exitTestsFailed, code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Smoke :: bad.tst") {
		t.Fatalf("expected failing test in report, got:\n%s", stdout.String())
	}

	data, err := os.ReadFile(results)
	if err != nil {
		t.Fatalf("expected results file: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("results file is not valid JSON: %v", err)
	}
}

func TestRunIsDefaultCommand(t *testing.T) {
	suiteFile := writeSuite(t, map[string]string{
		"lit.cfg.yaml": "name: Smoke\n",
		"ok.tst":       "RUN: true\n",
	})

	var stdout, stderr bytes.Buffer
	if code := run(baseArgs(t, suiteFile), &stdout, &stderr); code != exitOK {
		t.Fatalf("expected exit %d, got %d (stderr: %s)", exitOK, code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "1 tests") {
		t.Fatalf("expected summary line, got:\n%s", stdout.String())
	}
}

func TestConfigurationErrorsExitWithSetupStatus(t *testing.T) {
	t.Setenv("MY_OBJ_ROOT", "")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--suite", "missing.yaml", "run"}, &stdout, &stderr)
	if code != exitSetupFailed {
		t.Fatalf("expected exit %d, got %d", exitSetupFailed, code)
	}
	if !strings.Contains(stderr.String(), "configuration") {
		t.Fatalf("expected configuration error on stderr, got %q", stderr.String())
	}
}

func TestUnknownSuiteFileExitsWithSetupStatus(t *testing.T) {
	var stdout, stderr bytes.Buffer
	args := baseArgs(t, filepath.Join(t.TempDir(), "absent.yaml"))
	if code := run(append(args, "list"), &stdout, &stderr); code != exitSetupFailed {
		t.Fatalf("expected exit %d, got %d", exitSetupFailed, code)
	}
}

func TestListPrintsDiscoveredTests(t *testing.T) {
	suiteFile := writeSuite(t, map[string]string{
		"lit.cfg.yaml":  "name: Smoke\n",
		"b.tst":         "RUN: true\n",
		"a.tst":         "RUN: true\n",
		"notes.txt":     "RUN: false\n",
		".hidden/c.tst": "RUN: true\n",
	})

	var stdout, stderr bytes.Buffer
	if code := run(append(baseArgs(t, suiteFile), "list"), &stdout, &stderr); code != exitOK {
		t.Fatalf("expected exit %d, got %d (stderr: %s)", exitOK, code, stderr.String())
	}
	want := "Smoke :: a.tst\nSmoke :: b.tst\n"
	if stdout.String() != want {
		t.Fatalf("expected %q, got %q", want, stdout.String())
	}
}

func TestShowPrintsResolvedSuite(t *testing.T) {
	args := baseArgs(t, filepath.Join("..", "..", "test", "e2e", "lit.cfg.yaml"))

	var stdout, stderr bytes.Buffer
	if code := run(append(args, "show"), &stdout, &stderr); code != exitOK {
		t.Fatalf("expected exit %d, got %d (stderr: %s)", exitOK, code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"Triangles testing", "%lvl1", "bin/lvl1", "FileCheck-11 --allow-empty --match-full-lines"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRunResolvesRelativeObjRoot(t *testing.T) {
	t.Setenv("MY_OBJ_ROOT", "")
	t.Setenv("LITRUN_SUITE", "")
	t.Setenv("LITRUN_SHELL", "")

	work := t.TempDir()
	binary := filepath.Join(work, "build", "bin", "lvl1")
	if err := os.MkdirAll(filepath.Dir(binary), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(binary), err)
	}
	if err := os.WriteFile(binary, []byte("#!/bin/sh\necho intersect\n"), 0o755); err != nil {
		t.Fatalf("failed to write %s: %v", binary, err)
	}
	suiteFile := writeSuite(t, map[string]string{
		"lit.cfg.yaml": "name: Smoke\nsubstitutions:\n  - token: \"%lvl1\"\n    path: bin/lvl1\n",
		"bin.tst":      "RUN: %lvl1 | grep -qx intersect\n",
	})
	t.Chdir(work)

	args := []string{"--obj-root", "build", "--suite", suiteFile, "--shell", "sh", "--no-pipefail"}

	var stdout, stderr bytes.Buffer
	if code := run(append(args, "show"), &stdout, &stderr); code != exitOK {
		t.Fatalf("expected exit %d from show, got %d (stderr: %s)", exitOK, code, stderr.String())
	}
	if !strings.Contains(stdout.String(), binary) {
		t.Fatalf("expected %%lvl1 to expand to %s, got:\n%s", binary, stdout.String())
	}

	stdout.Reset()
	stderr.Reset()
	if code := run(append(args, "run"), &stdout, &stderr); code != exitOK {
		t.Fatalf("expected exit %d, got %d:\n%s", exitOK, code, stdout.String())
	}
}
