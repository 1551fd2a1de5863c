package saves

import "github.com/pepasjc/savesync/internal/server/saves"

type UploadQuery struct {
	Force  bool   `form:"force"`
	Source string `form:"source,default=3ds"`
}

type UploadResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	SHA256    string `json:"sha256"`
}

type HistoryResponse struct {
	Versions []saves.HistoryEntry `json:"versions"`
}
