package sdk

import "github.com/pepasjc/savesync/internal/reconcile"

// Metadata mirrors the server's per-title save metadata.
type Metadata struct {
	TitleID         string `json:"title_id"`
	Name            string `json:"name"`
	LastSync        string `json:"last_sync"`
	LastSyncSource  string `json:"last_sync_source"`
	SaveHash        string `json:"save_hash"`
	SaveSize        uint64 `json:"save_size"`
	FileCount       uint32 `json:"file_count"`
	ClientTimestamp uint32 `json:"client_timestamp"`
	ServerTimestamp string `json:"server_timestamp"`
	ConsoleID       string `json:"console_id"`
}

type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Size      uint64 `json:"size"`
	FileCount uint32 `json:"file_count"`
}

type DiskInfo struct {
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

type StatusResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	SaveCount int       `json:"save_count"`
	Disk      *DiskInfo `json:"disk,omitempty"`
}

type UploadResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	SHA256    string `json:"sha256"`
}

// UploadOptions tune a save upload.
type UploadOptions struct {
	// Force overrides the server's staleness check.
	Force bool

	// Source labels where the save came from (e.g. "3ds", "nds", "ctl").
	Source string

	// ConsoleID identifies the uploading device.
	ConsoleID string
}

type listTitlesResponse struct {
	Titles []Metadata `json:"titles"`
}

type namesRequest struct {
	Codes []string `json:"codes"`
}

type namesResponse struct {
	Names map[string]string `json:"names"`
}

type historyResponse struct {
	Versions []HistoryEntry `json:"versions"`
}

type syncRequest struct {
	Titles    []reconcile.TitleState `json:"titles"`
	ConsoleID string                 `json:"console_id,omitempty"`
}
