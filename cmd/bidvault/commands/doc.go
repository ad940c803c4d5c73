// Package commands defines the bidvault CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init      Create a student, teacher or admin identity
//   - whoami    Print the current identity and its fingerprint
//   - register  Publish the identity to the relay
//   - record    Capture one observation from JSON and sync it
//   - sync      Push pending observations now
//   - status    Show sync state and pending count
//   - share     Grant a teacher or admin access to your observations
//   - read      Fetch and decrypt a student's observations
//   - clear     Drop every pending observation
//
// # Implementation
//
// The root command loads configuration from --home (environment, .env and
// config.yaml) and builds the dependency graph before any subcommand runs.
// Flags override the loaded values. After the subcommand the sync engine is
// closed, which sends a best-effort beacon with anything still queued.
package commands
