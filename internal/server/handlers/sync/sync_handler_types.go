package sync

import "github.com/pepasjc/savesync/internal/reconcile"

// SyncRequest is the console's batch of per-title state. The console id
// may come from the body or the X-Console-ID header; the header wins.
type SyncRequest struct {
	Titles    []reconcile.TitleState `json:"titles"`
	ConsoleID string                 `json:"console_id,omitempty"`
}
