package saves

import "errors"

const DefaultMaxHistoryVersions = 10

var (
	// ErrNotFound means the server has no save for the title.
	ErrNotFound = errors.New("saves: title not found")

	// ErrIntegrity means a metadata record exists but could not be read
	// back. Never folded into ErrNotFound; a corrupt record must not look
	// like an absent one.
	ErrIntegrity = errors.New("saves: metadata integrity error")

	// ErrInvalidPath means a bundle carried a file path that escapes its
	// snapshot directory.
	ErrInvalidPath = errors.New("saves: invalid file path in bundle")

	// ErrLocked means another process holds the data directory.
	ErrLocked = errors.New("saves: data directory is locked by another process")
)

// Config configures the storage engine.
type Config struct {
	// DataDir is the root directory for all stored save data.
	DataDir string

	// MaxHistoryVersions bounds the archived snapshots kept per title.
	MaxHistoryVersions int
}

// Metadata describes a title's current snapshot. One record per title,
// replaced atomically by a successful Store.
type Metadata struct {
	TitleID         string `db:"title_id" json:"title_id"`
	Name            string `db:"name" json:"name"`
	LastSync        string `db:"last_sync" json:"last_sync"`
	LastSyncSource  string `db:"last_sync_source" json:"last_sync_source"`
	SaveHash        string `db:"save_hash" json:"save_hash"`
	SaveSize        uint64 `db:"save_size" json:"save_size"`
	FileCount       uint32 `db:"file_count" json:"file_count"`
	ClientTimestamp uint32 `db:"client_timestamp" json:"client_timestamp"`
	ServerTimestamp string `db:"server_timestamp" json:"server_timestamp"`
	ConsoleID       string `db:"console_id" json:"console_id"`
}

// SaveFile is one file of a snapshot, path relative to the snapshot root.
type SaveFile struct {
	Path string
	Data []byte
}

// HistoryEntry summarizes one archived snapshot.
type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Size      uint64 `json:"size"`
	FileCount uint32 `json:"file_count"`
}
