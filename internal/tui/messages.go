package tui

import "github.com/teslashibe/go-voiceloop/pkg/session"

// SnapshotMsg carries the session state after a change.
type SnapshotMsg struct {
	Snapshot session.Snapshot
}

// InitializedMsg is sent when engine and device initialization finishes.
type InitializedMsg struct {
	Err error
}

// ActionMsg reports the result of a start, stop, reset or new-chat key.
type ActionMsg struct {
	Action string
	Err    error
}
