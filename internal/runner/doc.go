// Package runner executes the discovered tests of a suite on a pool of
// workers, applying a per-test timeout and an optional launch rate limit, and
// aggregates the results into a Run.
package runner
