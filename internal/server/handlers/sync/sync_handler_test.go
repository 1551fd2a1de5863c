package sync

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepasjc/savesync/internal/bundle"
	"github.com/pepasjc/savesync/internal/db"
	"github.com/pepasjc/savesync/internal/reconcile"
	"github.com/pepasjc/savesync/internal/server/handlers/api"
	"github.com/pepasjc/savesync/internal/server/saves"
)

const (
	tidStored   = "0004000000055D00"
	tidUnstored = "00040000000EDF00"
)

func newTestRouter(t *testing.T) (*gin.Engine, *saves.SaveService) {
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

	r := gin.New()
	r.POST("/sync", New(svc).Sync)
	return r, svc
}

func storeSave(t *testing.T, svc *saves.SaveService, consoleID string) *saves.Metadata {
	t.Helper()
	meta, err := svc.Store(&bundle.Bundle{
		TitleID:   0x0004000000055D00,
		Timestamp: 1700000000,
		Files:     []bundle.File{bundle.NewFile("main", []byte("server copy"))},
	}, "3ds", consoleID)
	require.NoError(t, err)
	return meta
}

func postSync(t *testing.T, r *gin.Engine, req *SyncRequest, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	httpReq := httptest.NewRequest(http.MethodPost, "/sync", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	r.ServeHTTP(w, httpReq)
	return w
}

func decodePlan(t *testing.T, w *httptest.ResponseRecorder) *reconcile.Plan {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var plan reconcile.Plan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	return &plan
}

func TestSync_NewLocalTitle(t *testing.T) {
	r, _ := newTestRouter(t)

	plan := decodePlan(t, postSync(t, r, &SyncRequest{
		Titles: []reconcile.TitleState{
			{TitleID: tidUnstored, SaveHash: "abc", Timestamp: 100, Size: 3},
		},
	}, nil))

	assert.Equal(t, []string{tidUnstored}, plan.Upload)
	assert.Empty(t, plan.Download)
	assert.Empty(t, plan.ServerOnly)
}

func TestSync_UpToDate(t *testing.T) {
	r, svc := newTestRouter(t)
	meta := storeSave(t, svc, "")

	plan := decodePlan(t, postSync(t, r, &SyncRequest{
		Titles: []reconcile.TitleState{
			{TitleID: tidStored, SaveHash: meta.SaveHash, Timestamp: 100, Size: meta.SaveSize},
		},
	}, nil))

	assert.Equal(t, []string{tidStored}, plan.UpToDate)
}

func TestSync_ServerOnly(t *testing.T) {
	r, svc := newTestRouter(t)
	storeSave(t, svc, "")

	plan := decodePlan(t, postSync(t, r, &SyncRequest{}, nil))

	assert.Equal(t, []string{tidStored}, plan.ServerOnly)
	assert.Empty(t, plan.Upload)
}

func TestSync_DivergedWithoutHistoryConflicts(t *testing.T) {
	r, svc := newTestRouter(t)
	meta := storeSave(t, svc, "CONSOLE-A")

	plan := decodePlan(t, postSync(t, r, &SyncRequest{
		Titles: []reconcile.TitleState{
			{TitleID: tidStored, SaveHash: "different", Timestamp: 100, Size: 9},
		},
	}, nil))

	require.Equal(t, []string{tidStored}, plan.Conflict)
	require.Len(t, plan.ConflictInfo, 1)
	info := plan.ConflictInfo[0]
	assert.Equal(t, meta.SaveHash, info.ServerHash)
	assert.Equal(t, "CONSOLE-A", info.ServerConsoleID)
	assert.False(t, info.SameConsole)
}

func TestSync_SameConsoleAdoptsServerCopy(t *testing.T) {
	r, svc := newTestRouter(t)
	storeSave(t, svc, "CONSOLE-A")

	// the server copy came from this same console, adopting it is safe
	plan := decodePlan(t, postSync(t, r, &SyncRequest{
		Titles: []reconcile.TitleState{
			{TitleID: tidStored, SaveHash: "different", Timestamp: 100, Size: 9},
		},
	}, map[string]string{api.HeaderConsoleID: "CONSOLE-A"}))

	assert.Equal(t, []string{tidStored}, plan.Download)
	assert.Empty(t, plan.Conflict)
}

func TestSync_HeaderConsoleIDWinsOverBody(t *testing.T) {
	r, svc := newTestRouter(t)
	storeSave(t, svc, "CONSOLE-A")

	plan := decodePlan(t, postSync(t, r, &SyncRequest{
		Titles: []reconcile.TitleState{
			{TitleID: tidStored, SaveHash: "different", Timestamp: 100, Size: 9},
		},
		ConsoleID: "CONSOLE-B",
	}, map[string]string{api.HeaderConsoleID: "CONSOLE-A"}))

	assert.Equal(t, []string{tidStored}, plan.Download)
}

func TestSync_LastSyncedHashDownloads(t *testing.T) {
	r, svc := newTestRouter(t)
	storeSave(t, svc, "")

	// local still holds what it last synced while the server moved on
	plan := decodePlan(t, postSync(t, r, &SyncRequest{
		Titles: []reconcile.TitleState{
			{TitleID: tidStored, SaveHash: "old", Timestamp: 100, Size: 3, LastSyncedHash: "old"},
		},
	}, nil))

	assert.Equal(t, []string{tidStored}, plan.Download)
}

func TestSync_LowercaseTitleIDNormalized(t *testing.T) {
	r, _ := newTestRouter(t)

	plan := decodePlan(t, postSync(t, r, &SyncRequest{
		Titles: []reconcile.TitleState{
			{TitleID: "0004000000055d00", SaveHash: "abc", Timestamp: 100, Size: 3},
		},
	}, nil))

	assert.Equal(t, []string{tidStored}, plan.Upload)
}

func TestSync_InvalidTitleID(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postSync(t, r, &SyncRequest{
		Titles: []reconcile.TitleState{
			{TitleID: "nope", SaveHash: "abc"},
		},
	}, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var apiErr api.Error
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, api.CodeInvalidTitleID, apiErr.Code)
	assert.Contains(t, apiErr.Message, "titles[0]")
}

func TestSync_MalformedBody(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
