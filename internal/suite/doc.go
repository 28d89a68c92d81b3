// Package suite describes a test suite: its name, execution format, the file
// suffixes that mark test cases, the source and execution roots, and the
// ordered substitutions rewritten into every test script before it runs.
//
// The Triangles suite values are built by New. LoadFile reads the same values
// from a YAML descriptor, falling back to New for anything the file omits.
package suite
