// Package cmd implements the command-line interface for the dFS file store.
// It provides a hierarchical command structure with operations for running the
// reference server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - fs: Commands for file store operations (get, get-last, get-version, set, perf)
//   - serve: Command for starting and configuring the dFS reference server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dfs -help for a list of all commands.
package cmd
