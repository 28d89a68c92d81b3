package shtest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	runMarker   = "RUN:"
	xfailMarker = "XFAIL:"
	endMarker   = "END."
)

// Script is the parsed form of a test file.
type Script struct {
	Commands []string
	// XFail marks the test as expected to fail.
	XFail bool
}

// ParseFile reads and parses the script at path.
func ParseFile(path string) (Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return Script{}, fmt.Errorf("open script: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return Parse(f)
}

// Parse extracts the directives of a script. A RUN: command ending in a
// backslash continues on the next RUN: line, and any other non-blank line
// in between is an error. Parsing stops at END.
func Parse(r io.Reader) (Script, error) {
	var (
		script  Script
		pending string
		open    bool
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")

		if idx := strings.Index(line, runMarker); idx >= 0 {
			text := line[idx+len(runMarker):]
			if open {
				text = pending + text
			}
			if strings.HasSuffix(text, `\`) {
				pending = strings.TrimSuffix(text, `\`)
				open = true
				continue
			}
			open = false
			pending = ""
			if cmd := strings.TrimSpace(text); cmd != "" {
				script.Commands = append(script.Commands, cmd)
			}
			continue
		}

		if open && strings.TrimSpace(line) != "" {
			return Script{}, fmt.Errorf("%w: %q", ErrUnterminatedRun, line)
		}

		if strings.Contains(line, xfailMarker) {
			script.XFail = true
			continue
		}

		if strings.Contains(line, endMarker) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}

	if open {
		return Script{}, ErrUnterminatedRun
	}
	if len(script.Commands) == 0 {
		return Script{}, ErrNoRunLines
	}
	return script, nil
}
