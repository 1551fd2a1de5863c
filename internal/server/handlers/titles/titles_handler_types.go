package titles

import "github.com/pepasjc/savesync/internal/server/saves"

type ListResponse struct {
	Titles []*saves.Metadata `json:"titles"`
}

type NamesRequest struct {
	Codes []string `json:"codes" binding:"required"`
}

type NamesResponse struct {
	Names map[string]string `json:"names"`
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
