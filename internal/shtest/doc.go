// Package shtest runs shell-based test scripts. A script lists its commands
// on RUN: lines; each command has the suite substitutions applied and is
// handed to a shell in the test's execution directory. In strict mode the
// script stops at the first command that exits non-zero.
package shtest
