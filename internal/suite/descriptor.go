package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// descriptor represents the YAML suite descriptor structure.
type descriptor struct {
	Name          string                   `yaml:"name"`
	Format        string                   `yaml:"format"`
	Strict        *bool                    `yaml:"strict"`
	Suffixes      []string                 `yaml:"suffixes"`
	ExecRoot      string                   `yaml:"exec_root"`
	Substitutions []descriptorSubstitution `yaml:"substitutions"`
}

// descriptorSubstitution binds a token either to a path under the
// build-output root or to a literal value.
type descriptorSubstitution struct {
	Token string  `yaml:"token"`
	Path  string  `yaml:"path"`
	Value *string `yaml:"value"`
}

// LoadFile reads the suite descriptor at path. Fields the descriptor leaves
// out keep the values New assigns; a substitutions list, when present,
// replaces the default list.
func LoadFile(path, objRoot string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrReadDescriptor, err)
	}

	var desc descriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrParseDescriptor, path, err)
	}

	cfg := New(objRoot, path)
	if err := applyDescriptor(&cfg, desc); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func applyDescriptor(cfg *Config, desc descriptor) error {
	if name := strings.TrimSpace(desc.Name); name != "" {
		cfg.Name = name
	}

	if desc.Format != "" {
		kind := strings.ToLower(strings.TrimSpace(desc.Format))
		if kind != FormatShTest {
			return fmt.Errorf("%w %q", ErrUnknownFormat, desc.Format)
		}
		cfg.Format.Kind = kind
	}

	if desc.Strict != nil {
		cfg.Format.Strict = *desc.Strict
	}

	if len(desc.Suffixes) > 0 {
		cfg.Suffixes = normalizeSuffixes(desc.Suffixes)
	}

	if desc.ExecRoot != "" {
		cfg.ExecRoot = underRoot(cfg.ObjRoot, desc.ExecRoot)
	}

	if desc.Substitutions != nil {
		cfg.Substitutions = make([]Substitution, 0, len(desc.Substitutions))
		for idx, entry := range desc.Substitutions {
			replacement, err := entry.resolve(cfg.ObjRoot)
			if err != nil {
				return fmt.Errorf("substitution %d: %w", idx, err)
			}
			cfg.AddSubstitution(entry.Token, replacement)
		}
	}

	return nil
}

func (s descriptorSubstitution) resolve(objRoot string) (string, error) {
	if strings.TrimSpace(s.Token) == "" {
		return "", fmt.Errorf("%w: empty token", ErrInvalidSubstitution)
	}

	hasPath := s.Path != ""
	hasValue := s.Value != nil
	switch {
	case hasPath && hasValue:
		return "", fmt.Errorf("%w: %s declares both path and value", ErrInvalidSubstitution, s.Token)
	case hasPath:
		return underRoot(objRoot, s.Path), nil
	case hasValue:
		return *s.Value, nil
	default:
		return "", fmt.Errorf("%w: %s declares neither path nor value", ErrInvalidSubstitution, s.Token)
	}
}

// underRoot joins rel with the build-output root unless rel is absolute.
func underRoot(root, rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(root, rel)
}

// Marshal renders the configuration as YAML.
func Marshal(cfg Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal suite config: %w", err)
	}
	return out, nil
}
