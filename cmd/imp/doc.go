// Package main hosts the imp CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into Build API
// calls: device, model and revision management, one-shot log reads and
// continuous log tailing with optional on-disk checkpoints. Configuration
// resolution, client construction and logger setup live in commandContext so
// subcommands only deal with flags and output.
package main
