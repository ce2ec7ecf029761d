// Package cli provides the interactive clipvault command-line client.
//
// It wires configuration, the local clip store, the sync coordinator, the
// capture session and an interactive REPL. A background watcher probes the
// health endpoint, when one is configured, and switches between online and
// offline mode; uploads are refused while offline.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher and runREPL for details.
package cli
