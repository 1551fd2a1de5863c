package reconcile

// TitleState is the per-title state a console submits for sync planning.
// LastSyncedHash is the save hash the client recorded after its previous
// successful sync; empty means the client has no sync history for the title.
type TitleState struct {
	TitleID        string `json:"title_id"`
	SaveHash       string `json:"save_hash"`
	Timestamp      uint32 `json:"timestamp"`
	Size           uint64 `json:"size"`
	LastSyncedHash string `json:"last_synced_hash,omitempty"`
}

// ServerSave is the slice of server-side metadata the planner needs for a
// single title.
type ServerSave struct {
	SaveHash        string
	SaveSize        uint64
	ServerTimestamp string
	ConsoleID       string
}

// Lookup resolves a title id to the server's stored save state. The second
// return is false when the server has no save for the title.
type Lookup func(titleID string) (*ServerSave, bool)

// ConflictInfo carries both sides of a conflicting title so the console
// can present a meaningful choice to the user.
type ConflictInfo struct {
	TitleID         string `json:"title_id"`
	ServerHash      string `json:"server_hash"`
	ServerSize      uint64 `json:"server_size"`
	ServerTimestamp string `json:"server_timestamp"`
	ServerConsoleID string `json:"server_console_id"`
	ClientHash      string `json:"client_hash"`
	ClientSize      uint64 `json:"client_size"`
	SameConsole     bool   `json:"same_console"`
}

// Plan tells the console what to do per title. Every submitted title id
// lands in exactly one of Upload, Download, Conflict or UpToDate;
// ServerOnly holds titles the server has but the client did not submit.
type Plan struct {
	Upload       []string       `json:"upload"`
	Download     []string       `json:"download"`
	Conflict     []string       `json:"conflict"`
	UpToDate     []string       `json:"up_to_date"`
	ServerOnly   []string       `json:"server_only"`
	ConflictInfo []ConflictInfo `json:"conflict_info"`
}

func newPlan() *Plan {
	return &Plan{
		Upload:       []string{},
		Download:     []string{},
		Conflict:     []string{},
		UpToDate:     []string{},
		ServerOnly:   []string{},
		ConflictInfo: []ConflictInfo{},
	}
}
