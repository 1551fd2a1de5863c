package saves

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepasjc/savesync/internal/bundle"
	"github.com/pepasjc/savesync/internal/db"
	"github.com/pepasjc/savesync/internal/server/handlers/api"
	"github.com/pepasjc/savesync/internal/server/saves"
)

const testTitleID = "0004000000055D00"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tmp := t.TempDir()

	database, err := db.NewSqliteDB(db.WithPath(filepath.Join(tmp, "index.db")))
	require.NoError(t, err)

	svc, err := saves.NewSaveService(&saves.Config{
		DataDir: filepath.Join(tmp, "saves"),
	}, database)
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	h := New(svc)
	r := gin.New()
	r.GET("/saves/:title_id/meta", h.GetMeta)
	r.GET("/saves/:title_id/history", h.History)
	r.GET("/saves/:title_id/history/:tag", h.HistoryVersion)
	r.GET("/saves/:title_id", h.Download)
	r.POST("/saves/:title_id", h.Upload)
	return r
}

func doRequest(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func encodedBundle(t *testing.T, timestamp uint32, files ...bundle.File) []byte {
	t.Helper()
	data, err := bundle.Encode(&bundle.Bundle{
		TitleID:   0x0004000000055D00,
		Timestamp: timestamp,
		Files:     files,
	}, true)
	require.NoError(t, err)
	return data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var apiErr api.Error
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	return apiErr.Code
}

func TestUploadDownload_RoundTrip(t *testing.T) {
	r := newTestRouter(t)

	data := encodedBundle(t, 1700000000,
		bundle.NewFile("main", []byte("save data")),
		bundle.NewFile("sub/extra.bin", []byte{0x00, 0xFF, 0x10}),
	)

	w := doRequest(r, http.MethodPost, "/saves/"+testTitleID, data)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var uploaded UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))
	assert.Equal(t, "ok", uploaded.Status)
	assert.NotEmpty(t, uploaded.Timestamp)

	w = doRequest(r, http.MethodGet, "/saves/"+testTitleID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uploaded.SHA256, w.Header().Get(api.HeaderSaveHash))
	assert.Equal(t, "1700000000", w.Header().Get(api.HeaderSaveTimestamp))

	b, err := bundle.Decode(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, testTitleID, b.TitleIDHex())
	assert.Equal(t, uint32(1700000000), b.Timestamp)

	byPath := make(map[string][]byte)
	for _, f := range b.Files {
		byPath[f.Path] = f.Data
	}
	assert.Equal(t, []byte("save data"), byPath["main"])
	assert.Equal(t, []byte{0x00, 0xFF, 0x10}, byPath["sub/extra.bin"])
}

func TestDownload_ForcedReuploadRefreshesTimestamp(t *testing.T) {
	r := newTestRouter(t)

	content := bundle.NewFile("main", []byte("identical content"))

	w := doRequest(r, http.MethodPost, "/saves/"+testTitleID, encodedBundle(t, 100, content))
	require.Equal(t, http.StatusOK, w.Code)

	// prime the download cache
	w = doRequest(r, http.MethodGet, "/saves/"+testTitleID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	b, err := bundle.Decode(w.Body.Bytes())
	require.NoError(t, err)
	require.Equal(t, uint32(100), b.Timestamp)

	// force-push the same content with a newer client timestamp
	w = doRequest(r, http.MethodPost, "/saves/"+testTitleID+"?force=true", encodedBundle(t, 200, content))
	require.Equal(t, http.StatusOK, w.Code)

	// the served bundle must embed the new timestamp, not the cached one
	w = doRequest(r, http.MethodGet, "/saves/"+testTitleID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "200", w.Header().Get(api.HeaderSaveTimestamp))

	b, err = bundle.Decode(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint32(200), b.Timestamp)
}

func TestUpload_EmptyBody(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/saves/"+testTitleID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.CodeInvalidRequest, errorCode(t, w))
}

func TestUpload_MalformedBundle(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/saves/"+testTitleID, []byte("not a bundle at all"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.CodeBundleMalformed, errorCode(t, w))
}

func TestUpload_TitleIDMismatch(t *testing.T) {
	r := newTestRouter(t)

	data := encodedBundle(t, 100, bundle.NewFile("main", []byte("x")))
	w := doRequest(r, http.MethodPost, "/saves/00040000000EDF00", data)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.CodeTitleIDMismatch, errorCode(t, w))
}

func TestUpload_InvalidTitleID(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/saves/not-a-title-id", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.CodeInvalidTitleID, errorCode(t, w))
}

func TestUpload_TraversalPathRejected(t *testing.T) {
	r := newTestRouter(t)

	data := encodedBundle(t, 100, bundle.NewFile("../escape", []byte("x")))
	w := doRequest(r, http.MethodPost, "/saves/"+testTitleID, data)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.CodeBundleMalformed, errorCode(t, w))
}

func TestUpload_StaleAndForce(t *testing.T) {
	r := newTestRouter(t)

	first := encodedBundle(t, 200, bundle.NewFile("main", []byte("newer")))
	w := doRequest(r, http.MethodPost, "/saves/"+testTitleID, first)
	require.Equal(t, http.StatusOK, w.Code)

	// equal timestamp is refused too
	second := encodedBundle(t, 200, bundle.NewFile("main", []byte("older")))
	w = doRequest(r, http.MethodPost, "/saves/"+testTitleID, second)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, api.CodeSaveStale, errorCode(t, w))
	assert.Equal(t, "200", w.Header().Get(api.HeaderServerTimestamp))
	assert.NotEmpty(t, w.Header().Get(api.HeaderServerHash))

	w = doRequest(r, http.MethodPost, "/saves/"+testTitleID+"?force=true", second)
	assert.Equal(t, http.StatusOK, w.Code)

	// newer timestamps pass without force
	third := encodedBundle(t, 201, bundle.NewFile("main", []byte("newest")))
	w = doRequest(r, http.MethodPost, "/saves/"+testTitleID, third)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetMeta(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/saves/"+testTitleID+"/meta", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, api.CodeSaveNotFound, errorCode(t, w))

	data := encodedBundle(t, 1700000000, bundle.NewFile("main", []byte("save data")))
	w = doRequest(r, http.MethodPost, "/saves/"+testTitleID, data)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/saves/"+testTitleID+"/meta", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var meta saves.Metadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, testTitleID, meta.TitleID)
	assert.Equal(t, uint32(1), meta.FileCount)
	assert.Equal(t, uint64(len("save data")), meta.SaveSize)
	assert.Equal(t, uint32(1700000000), meta.ClientTimestamp)
	assert.Equal(t, "3ds", meta.LastSyncSource)
}

func TestDownload_NotFound(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/saves/"+testTitleID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, api.CodeSaveNotFound, errorCode(t, w))
}

func TestHistory(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/saves/"+testTitleID+"/history", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	first := encodedBundle(t, 100, bundle.NewFile("main", []byte("v1")))
	w = doRequest(r, http.MethodPost, "/saves/"+testTitleID, first)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/saves/"+testTitleID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Empty(t, history.Versions)

	second := encodedBundle(t, 101, bundle.NewFile("main", []byte("v2")))
	w = doRequest(r, http.MethodPost, "/saves/"+testTitleID, second)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/saves/"+testTitleID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Versions, 1)
	assert.Equal(t, uint32(1), history.Versions[0].FileCount)
	assert.Equal(t, uint64(len("v1")), history.Versions[0].Size)

	// the archived version still holds the first snapshot's content
	w = doRequest(r, http.MethodGet, "/saves/"+testTitleID+"/history/"+history.Versions[0].Timestamp, nil)
	require.Equal(t, http.StatusOK, w.Code)

	b, err := bundle.Decode(w.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, b.Files, 1)
	assert.Equal(t, []byte("v1"), b.Files[0].Data)
	assert.Equal(t, b.ContentHash(), w.Header().Get(api.HeaderSaveHash))
	assert.Equal(t, strconv.FormatUint(b.TotalSize(), 10), w.Header().Get(api.HeaderSaveSize))
}

func TestHistoryVersion_UnknownTag(t *testing.T) {
	r := newTestRouter(t)

	data := encodedBundle(t, 100, bundle.NewFile("main", []byte("v1")))
	w := doRequest(r, http.MethodPost, "/saves/"+testTitleID, data)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/saves/"+testTitleID+"/history/2020-01-01T00_00_00.000000000Z", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, api.CodeSaveNotFound, errorCode(t, w))
}
