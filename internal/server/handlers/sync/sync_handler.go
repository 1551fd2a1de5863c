package sync

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pepasjc/savesync/internal/bundle"
	"github.com/pepasjc/savesync/internal/reconcile"
	"github.com/pepasjc/savesync/internal/server/handlers/api"
	"github.com/pepasjc/savesync/internal/server/saves"
)

type SyncHandler struct {
	saves *saves.SaveService
}

func New(saveSvc *saves.SaveService) *SyncHandler {
	return &SyncHandler{saves: saveSvc}
}

// Sync compares the console's submitted title states against server state
// and returns a transfer plan. Reconciliation itself never fails; only
// malformed input is rejected.
func (h *SyncHandler) Sync(ctx *gin.Context) {
	var req SyncRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		api.AbortWithError(ctx, http.StatusUnprocessableEntity, api.CodeInvalidRequest, err)
		return
	}

	// Validate every title id before reconciliation runs.
	for i, title := range req.Titles {
		normalized, err := bundle.NormalizeTitleID(title.TitleID)
		if err != nil {
			api.AbortWithError(ctx, http.StatusUnprocessableEntity, api.CodeInvalidTitleID,
				fmt.Errorf("titles[%d]: %w", i, err))
			return
		}
		req.Titles[i].TitleID = normalized
	}

	consoleID := ctx.GetHeader(api.HeaderConsoleID)
	if consoleID == "" {
		consoleID = req.ConsoleID
	}

	serverMetas, err := h.saves.ListTitles()
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
		return
	}

	serverTitles := make([]string, 0, len(serverMetas))
	byID := make(map[string]*saves.Metadata, len(serverMetas))
	for _, meta := range serverMetas {
		serverTitles = append(serverTitles, meta.TitleID)
		byID[meta.TitleID] = meta
	}

	lookup := func(titleID string) (*reconcile.ServerSave, bool) {
		meta, ok := byID[titleID]
		if !ok {
			return nil, false
		}
		return &reconcile.ServerSave{
			SaveHash:        meta.SaveHash,
			SaveSize:        meta.SaveSize,
			ServerTimestamp: meta.ServerTimestamp,
			ConsoleID:       meta.ConsoleID,
		}, true
	}

	plan := reconcile.Reconcile(req.Titles, consoleID, lookup, serverTitles)
	ctx.PureJSON(http.StatusOK, plan)
}
