package tui

import "github.com/jaxxstorm/dnsdash/internal/dashboard"

// StateMsg carries a new dashboard snapshot.
type StateMsg struct {
	State dashboard.State
}

// ClosedMsg is sent once the controller has stopped publishing.
type ClosedMsg struct{}

// ActionErrMsg reports that an action could not be queued.
type ActionErrMsg struct {
	Err error
}
