package suite

import (
	"path/filepath"
	"slices"
	"strings"
)

const (
	// DefaultName is the display name of the Triangles suite.
	DefaultName = "Triangles testing"
	// DefaultSuffix marks Triangles test cases.
	DefaultSuffix = ".tst"
	// DefaultExecDir is the execution root relative to the build-output root.
	DefaultExecDir = "bin/test"
	// BinaryToken expands to the binary under test.
	BinaryToken = "%lvl1"
	// BinaryPath is the binary under test relative to the build-output root.
	BinaryPath = "bin/lvl1"
	// CheckerToken expands to the pattern checker command line.
	CheckerToken = "%fc"
	// CheckerCommand is the checker invocation bound to CheckerToken.
	CheckerCommand = "FileCheck-11 --allow-empty --match-full-lines"
)

// FormatShTest is the tag of the shell test format.
const FormatShTest = "shtest"

// Format selects how test scripts are executed.
type Format struct {
	Kind string `yaml:"kind" json:"kind"`
	// Strict stops a script at its first failing command.
	Strict bool `yaml:"strict" json:"strict"`
}

// ShTest returns the shell test format.
func ShTest(strict bool) Format {
	return Format{Kind: FormatShTest, Strict: strict}
}

func (f Format) String() string {
	if f.Strict {
		return f.Kind + " (strict)"
	}
	return f.Kind
}

// Substitution rewrites Token into Replacement in a test script.
type Substitution struct {
	Token       string `yaml:"token" json:"token"`
	Replacement string `yaml:"replacement" json:"replacement"`
}

// Config is the populated suite configuration. It is built once per harness
// invocation and treated as read-only afterwards.
type Config struct {
	Name          string         `yaml:"name" json:"name"`
	Format        Format         `yaml:"test_format" json:"testFormat"`
	Suffixes      []string       `yaml:"suffixes" json:"suffixes"`
	SourceRoot    string         `yaml:"test_source_root" json:"testSourceRoot"`
	ExecRoot      string         `yaml:"test_exec_root" json:"testExecRoot"`
	ObjRoot       string         `yaml:"obj_root" json:"objRoot"`
	ConfigPath    string         `yaml:"config_path" json:"configPath"`
	Substitutions []Substitution `yaml:"substitutions" json:"substitutions"`
}

// New populates the Triangles suite configuration. objRoot is the
// build-output root supplied by the harness and configPath is the location of
// the configuration artifact; the source root is the directory holding it.
// New does not validate either path.
func New(objRoot, configPath string) Config {
	cfg := Config{
		ObjRoot:    objRoot,
		ConfigPath: absPath(configPath),
	}

	cfg.Name = DefaultName
	cfg.Format = ShTest(true)
	cfg.Suffixes = []string{DefaultSuffix}
	cfg.SourceRoot = filepath.Dir(cfg.ConfigPath)
	cfg.ExecRoot = filepath.Join(objRoot, DefaultExecDir)
	cfg.AddSubstitution(BinaryToken, filepath.Join(objRoot, BinaryPath))
	cfg.AddSubstitution(CheckerToken, CheckerCommand)

	return cfg
}

// AddSubstitution appends a substitution. An earlier entry with the same
// token keeps precedence.
func (c *Config) AddSubstitution(token, replacement string) {
	c.Substitutions = append(c.Substitutions, Substitution{Token: token, Replacement: replacement})
}

// Lookup returns the replacement of the first substitution bound to token.
func (c Config) Lookup(token string) (string, bool) {
	for _, sub := range c.Substitutions {
		if sub.Token == token {
			return sub.Replacement, true
		}
	}
	return "", false
}

// IsTestFile reports whether name carries one of the suite suffixes.
func (c Config) IsTestFile(name string) bool {
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	return slices.Contains(c.Suffixes, ext)
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	out.Suffixes = slices.Clone(c.Suffixes)
	out.Substitutions = slices.Clone(c.Substitutions)
	return out
}

func absPath(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func normalizeSuffixes(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, suffix := range raw {
		suffix = strings.TrimSpace(suffix)
		if suffix == "" {
			continue
		}
		if !strings.HasPrefix(suffix, ".") {
			suffix = "." + suffix
		}
		if !slices.Contains(out, suffix) {
			out = append(out, suffix)
		}
	}
	return out
}
