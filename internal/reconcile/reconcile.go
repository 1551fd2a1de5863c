// Package reconcile decides, per title, whether a console should upload,
// download, do nothing, or surface a conflict.
//
// A two-hash comparison cannot tell "client changed" from "server changed"
// from "both changed". The client's last-synced hash turns it into a
// three-way merge-base test: whichever side still matches the last-synced
// value is the unchanged one.
package reconcile

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Reconcile maps the client's submitted title states plus the server's
// stored state into a transfer plan. Pure function: lookup is the only
// server-side read and nothing is written.
//
// Per title, first matching rule wins:
//  1. server has no save                      -> upload
//  2. hashes equal                            -> up to date
//  3. last-synced == server hash              -> upload (only client moved)
//  4. last-synced == client hash              -> download (only server moved)
//  5. last-synced matches neither             -> conflict
//  6. no history, server copy is ours         -> download
//  7. no history, server copy is foreign      -> conflict
func Reconcile(titles []TitleState, consoleID string, lookup Lookup, serverTitles []string) *Plan {
	plan := newPlan()
	submitted := mapset.NewThreadUnsafeSet[string]()

	for _, title := range titles {
		submitted.Add(title.TitleID)

		server, ok := lookup(title.TitleID)
		if !ok {
			plan.Upload = append(plan.Upload, title.TitleID)
			continue
		}

		if title.SaveHash == server.SaveHash {
			plan.UpToDate = append(plan.UpToDate, title.TitleID)
			continue
		}

		if title.LastSyncedHash != "" {
			switch title.LastSyncedHash {
			case server.SaveHash:
				// Server unchanged since the client's last sync.
				plan.Upload = append(plan.Upload, title.TitleID)
			case title.SaveHash:
				// Client unchanged since its last sync.
				plan.Download = append(plan.Download, title.TitleID)
			default:
				// Both sides moved past the merge base.
				plan.addConflict(title, server, consoleID)
			}
			continue
		}

		// No sync history for this title on this console. If the server's
		// copy was uploaded by this same console in an earlier session,
		// adopting it is safe; otherwise the user has to decide.
		if consoleID != "" && server.ConsoleID == consoleID {
			plan.Download = append(plan.Download, title.TitleID)
		} else {
			plan.addConflict(title, server, consoleID)
		}
	}

	for _, id := range serverTitles {
		if !submitted.Contains(id) {
			plan.ServerOnly = append(plan.ServerOnly, id)
		}
	}
	sort.Strings(plan.ServerOnly)

	return plan
}

func (p *Plan) addConflict(title TitleState, server *ServerSave, consoleID string) {
	p.Conflict = append(p.Conflict, title.TitleID)

	serverConsole := server.ConsoleID
	if serverConsole == "" {
		serverConsole = "unknown"
	}

	p.ConflictInfo = append(p.ConflictInfo, ConflictInfo{
		TitleID:         title.TitleID,
		ServerHash:      server.SaveHash,
		ServerSize:      server.SaveSize,
		ServerTimestamp: server.ServerTimestamp,
		ServerConsoleID: serverConsole,
		ClientHash:      title.SaveHash,
		ClientSize:      title.Size,
		SameConsole:     consoleID != "" && server.ConsoleID == consoleID,
	})
}
