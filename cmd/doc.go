// Package cmd implements the dgo command-line interface. It starts a transaction
// oracle server for development and talks to a server through the pooled driver.
//
// The package is organized into several subpackages:
//
//   - db: Commands running queries, mutations, upserts, schema changes and
//     multi statement transactions, plus the perf benchmark
//   - serve: Starts an oracle server on any of the transports
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dgo -help for a list of all commands.
package cmd
