package ui

import "github.com/linuxmatters/agc/internal/loop"

// SnapshotMsg carries a StatusSink publish into the Bubbletea event loop.
type SnapshotMsg loop.StatusSnapshot

// LoopStoppedMsg signals that the core loop has returned, carrying its
// error (nil on a graceful Quit).
type LoopStoppedMsg struct{ Err error }
