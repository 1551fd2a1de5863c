package titles

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/pepasjc/savesync/internal/server/handlers/api"
	"github.com/pepasjc/savesync/internal/server/saves"
	"github.com/pepasjc/savesync/internal/titledb"
	"github.com/pepasjc/savesync/internal/version"
)

type TitlesHandler struct {
	saves   *saves.SaveService
	names   *titledb.Table
	dataDir string
}

func New(saveSvc *saves.SaveService, names *titledb.Table, dataDir string) *TitlesHandler {
	return &TitlesHandler{
		saves:   saveSvc,
		names:   names,
		dataDir: dataDir,
	}
}

// List serves metadata for all stored titles, sorted by title id.
func (h *TitlesHandler) List(ctx *gin.Context) {
	titles, err := h.saves.ListTitles()
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
		return
	}
	if titles == nil {
		titles = []*saves.Metadata{}
	}

	ctx.PureJSON(http.StatusOK, &ListResponse{Titles: titles})
}

// Names resolves cartridge product codes to game names. Unknown codes are
// omitted from the result.
func (h *TitlesHandler) Names(ctx *gin.Context) {
	var req NamesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	ctx.PureJSON(http.StatusOK, &NamesResponse{
		Names: h.names.LookupAll(req.Codes),
	})
}

// Status is the unauthenticated health/info endpoint.
func (h *TitlesHandler) Status(ctx *gin.Context) {
	titles, err := h.saves.ListTitles()
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
		return
	}

	resp := &StatusResponse{
		Status:    "ok",
		Version:   version.Version,
		SaveCount: len(titles),
	}

	// Disk info is advisory; a failure here never fails the status call.
	if usage, err := disk.Usage(h.dataDir); err == nil {
		resp.Disk = &DiskInfo{
			TotalBytes:  usage.Total,
			FreeBytes:   usage.Free,
			UsedPercent: usage.UsedPercent,
		}
	} else {
		slog.Debug("disk usage unavailable", "path", h.dataDir, "error", err)
	}

	ctx.PureJSON(http.StatusOK, resp)
}
