package saves

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pepasjc/savesync/internal/bundle"
	"github.com/pepasjc/savesync/internal/server/handlers/api"
	"github.com/pepasjc/savesync/internal/server/saves"
)

const octetStream = "application/octet-stream"

// downloadCacheSize bounds the LRU of encoded bundles. Entries are keyed
// by save hash plus client timestamp, both of which the encoded bundle
// embeds, so a stale entry can never be served for changed data or for a
// forced re-upload of identical data with a newer timestamp.
const downloadCacheSize = 32

type SavesHandler struct {
	saves *saves.SaveService

	// encoded compressed bundles, see downloadCacheSize
	dlCache *lru.Cache[string, []byte]
}

func New(saveSvc *saves.SaveService) *SavesHandler {
	cache, err := lru.New[string, []byte](downloadCacheSize)
	if err != nil {
		panic(err) // only fails for size <= 0
	}
	return &SavesHandler{
		saves:   saveSvc,
		dlCache: cache,
	}
}

// GetMeta serves a title's stored metadata.
func (h *SavesHandler) GetMeta(ctx *gin.Context) {
	titleID, ok := h.titleID(ctx)
	if !ok {
		return
	}

	meta, ok := h.metadata(ctx, titleID)
	if !ok {
		return
	}

	ctx.PureJSON(http.StatusOK, meta)
}

// Download serves a title's current snapshot as a compressed bundle.
func (h *SavesHandler) Download(ctx *gin.Context) {
	titleID, ok := h.titleID(ctx)
	if !ok {
		return
	}

	meta, ok := h.metadata(ctx, titleID)
	if !ok {
		return
	}

	cacheKey := meta.SaveHash + ":" + strconv.FormatUint(uint64(meta.ClientTimestamp), 10)
	data, cached := h.dlCache.Get(cacheKey)
	if !cached {
		files, err := h.saves.LoadCurrent(titleID)
		if err != nil {
			h.storageError(ctx, err)
			return
		}

		b := buildBundle(meta.TitleID, meta.ClientTimestamp, files)
		data, err = bundle.Encode(b, true)
		if err != nil {
			api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
			return
		}
		h.dlCache.Add(cacheKey, data)
	}

	ctx.Header(api.HeaderSaveTimestamp, strconv.FormatUint(uint64(meta.ClientTimestamp), 10))
	ctx.Header(api.HeaderSaveHash, meta.SaveHash)
	ctx.Header(api.HeaderSaveSize, strconv.FormatUint(meta.SaveSize, 10))
	ctx.Data(http.StatusOK, octetStream, data)
}

// Upload stores a bundle as a title's new current snapshot.
func (h *SavesHandler) Upload(ctx *gin.Context) {
	titleID, ok := h.titleID(ctx)
	if !ok {
		return
	}

	var query UploadQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("read body: %w", err))
		return
	}
	if len(body) == 0 {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, errors.New("empty request body"))
		return
	}

	b, err := bundle.Decode(body)
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeBundleMalformed, err)
		return
	}

	if b.TitleIDHex() != titleID {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeTitleIDMismatch,
			fmt.Errorf("title id mismatch: url=%s, bundle=%s", titleID, b.TitleIDHex()))
		return
	}

	// Staleness check: without force, refuse to clobber a save whose
	// client timestamp is newer or equal.
	if !query.Force {
		existing, err := h.saves.GetMetadata(titleID)
		if err != nil && !errors.Is(err, saves.ErrNotFound) {
			h.storageError(ctx, err)
			return
		}
		if existing != nil && existing.ClientTimestamp >= b.Timestamp {
			ctx.Header(api.HeaderServerTimestamp, strconv.FormatUint(uint64(existing.ClientTimestamp), 10))
			ctx.Header(api.HeaderServerHash, existing.SaveHash)
			api.AbortWithError(ctx, http.StatusConflict, api.CodeSaveStale,
				errors.New("server has a newer or equal save, use force=true to override"))
			return
		}
	}

	meta, err := h.saves.Store(b, query.Source, ctx.GetHeader(api.HeaderConsoleID))
	if err != nil {
		if errors.Is(err, saves.ErrInvalidPath) {
			api.AbortWithError(ctx, http.StatusBadRequest, api.CodeBundleMalformed, err)
			return
		}
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeSaveStoreFailed, err)
		return
	}

	ctx.PureJSON(http.StatusOK, &UploadResponse{
		Status:    "ok",
		Timestamp: meta.LastSync,
		SHA256:    meta.SaveHash,
	})
}

// History lists a title's archived snapshots, newest first.
func (h *SavesHandler) History(ctx *gin.Context) {
	titleID, ok := h.titleID(ctx)
	if !ok {
		return
	}

	if _, ok := h.metadata(ctx, titleID); !ok {
		return
	}

	versions, err := h.saves.ListHistory(titleID)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
		return
	}
	if versions == nil {
		versions = []saves.HistoryEntry{}
	}

	ctx.PureJSON(http.StatusOK, &HistoryResponse{Versions: versions})
}

// HistoryVersion serves one archived snapshot as a compressed bundle.
func (h *SavesHandler) HistoryVersion(ctx *gin.Context) {
	titleID, ok := h.titleID(ctx)
	if !ok {
		return
	}

	files, err := h.saves.LoadHistoryVersion(titleID, ctx.Param("tag"))
	if err != nil {
		h.storageError(ctx, err)
		return
	}

	// Archived snapshots don't retain the original client timestamp.
	b := buildBundle(titleID, 0, files)

	data, err := bundle.Encode(b, true)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
		return
	}

	ctx.Header(api.HeaderSaveHash, b.ContentHash())
	ctx.Header(api.HeaderSaveSize, strconv.FormatUint(b.TotalSize(), 10))
	ctx.Data(http.StatusOK, octetStream, data)
}

// titleID validates and normalizes the title id path param, aborting with
// 400 on malformed input.
func (h *SavesHandler) titleID(ctx *gin.Context) (string, bool) {
	titleID, err := bundle.NormalizeTitleID(ctx.Param("title_id"))
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidTitleID, err)
		return "", false
	}
	return titleID, true
}

// metadata loads a title's metadata, mapping storage errors to responses.
func (h *SavesHandler) metadata(ctx *gin.Context, titleID string) (*saves.Metadata, bool) {
	meta, err := h.saves.GetMetadata(titleID)
	if err != nil {
		h.storageError(ctx, err)
		return nil, false
	}
	return meta, true
}

func (h *SavesHandler) storageError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, saves.ErrNotFound):
		api.AbortWithError(ctx, http.StatusNotFound, api.CodeSaveNotFound, errors.New("no save found for this title"))
	case errors.Is(err, saves.ErrIntegrity):
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeSaveDataIntegrity, err)
	default:
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
	}
}

func buildBundle(titleIDHex string, timestamp uint32, files []saves.SaveFile) *bundle.Bundle {
	numericID, _ := bundle.ParseTitleID(titleIDHex)

	bundleFiles := make([]bundle.File, 0, len(files))
	for _, f := range files {
		bundleFiles = append(bundleFiles, bundle.NewFile(f.Path, f.Data))
	}

	return &bundle.Bundle{
		TitleID:   numericID,
		Timestamp: timestamp,
		Files:     bundleFiles,
	}
}
