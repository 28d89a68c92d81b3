// Package application provides application initialization and dependency wiring.
// It resolves the suite descriptor, builds the shell test executor, runner,
// run storage, HTTP handlers and server, making the main package cleaner and
// more focused on CLI parsing and orchestration.
package application
