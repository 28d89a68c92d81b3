// Package discovery finds the test cases of a suite under its source root.
package discovery

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/eugenenazirov/litrun/internal/suite"
)

// outputDir holds per-test temporary files and is never searched for tests.
const outputDir = "Output"

// Test is a single discovered test case.
type Test struct {
	Name       string `json:"name"`
	RelPath    string `json:"relPath"`
	SourcePath string `json:"sourcePath"`
	ExecPath   string `json:"execPath"`
}

// Options narrows discovery.
type Options struct {
	// Filter keeps only tests whose name matches. Empty keeps every test.
	Filter string
}

// Discover walks cfg.SourceRoot and returns every file carrying one of the
// suite suffixes, sorted by relative path.
func Discover(cfg suite.Config, opts Options) ([]Test, error) {
	var filter *regexp.Regexp
	if opts.Filter != "" {
		re, err := regexp.Compile(opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
		}
		filter = re
	}

	var tests []Test
	err := filepath.WalkDir(cfg.SourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path != cfg.SourceRoot && skipEntry(d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || path == cfg.ConfigPath || !cfg.IsTestFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(cfg.SourceRoot, path)
		if err != nil {
			return err
		}

		test := Test{
			Name:       TestName(cfg.Name, rel),
			RelPath:    filepath.ToSlash(rel),
			SourcePath: path,
			ExecPath:   filepath.Join(cfg.ExecRoot, rel),
		}
		if filter != nil && !filter.MatchString(test.Name) {
			return nil
		}
		tests = append(tests, test)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrSourceRoot, cfg.SourceRoot, err)
	}

	sort.Slice(tests, func(i, j int) bool {
		return tests[i].RelPath < tests[j].RelPath
	})
	return tests, nil
}

// TestName formats the display name of a test, "<suite> :: <path>".
func TestName(suiteName, rel string) string {
	return suiteName + " :: " + filepath.ToSlash(rel)
}

func skipEntry(d fs.DirEntry) bool {
	name := d.Name()
	if strings.HasPrefix(name, ".") {
		return true
	}
	return d.IsDir() && name == outputDir
}
