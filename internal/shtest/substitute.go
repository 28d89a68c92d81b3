package shtest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/eugenenazirov/litrun/internal/discovery"
	"github.com/eugenenazirov/litrun/internal/suite"
)

const (
	escapedPercent = "%%"
	percentMarker  = "#_MARKER_#"
	tempDirName    = "Output"
)

// TempDir is the directory holding the temporary files of test.
func TempDir(test discovery.Test) string {
	return filepath.Join(filepath.Dir(test.ExecPath), tempDirName)
}

// Substitutions returns the substitutions applied to the commands of test:
// the suite substitutions in append order followed by the built-in ones.
func Substitutions(cfg suite.Config, test discovery.Test) []suite.Substitution {
	sourceDir := filepath.Dir(test.SourcePath)
	tmpDir := TempDir(test)
	tmpBase := filepath.Join(tmpDir, filepath.Base(test.ExecPath))

	subs := make([]suite.Substitution, 0, len(cfg.Substitutions)+6)
	subs = append(subs, cfg.Substitutions...)
	subs = append(subs,
		suite.Substitution{Token: "%s", Replacement: test.SourcePath},
		suite.Substitution{Token: "%S", Replacement: sourceDir},
		suite.Substitution{Token: "%p", Replacement: sourceDir},
		suite.Substitution{Token: "%{pathsep}", Replacement: string(os.PathListSeparator)},
		suite.Substitution{Token: "%t", Replacement: tmpBase + ".tmp"},
		suite.Substitution{Token: "%T", Replacement: tmpDir},
	)
	return subs
}

// Apply rewrites every token of subs in line, in order. Once a token has been
// replaced a later entry with the same token has nothing left to match. "%%"
// yields a literal percent sign and is never treated as part of a token.
func Apply(line string, subs []suite.Substitution) string {
	line = strings.ReplaceAll(line, escapedPercent, percentMarker)
	for _, sub := range subs {
		if sub.Token == "" {
			continue
		}
		line = strings.ReplaceAll(line, sub.Token, sub.Replacement)
	}
	return strings.ReplaceAll(line, percentMarker, "%")
}
