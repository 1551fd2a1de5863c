package saves

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepasjc/savesync/internal/bundle"
	"github.com/pepasjc/savesync/internal/db"
)

const testTitleID = "0004000000055D00"

func newTestService(t *testing.T, maxHistory int) *SaveService {
	t.Helper()
	tmp := t.TempDir()

	database, err := db.NewSqliteDB(db.WithPath(filepath.Join(tmp, "index.db")))
	require.NoError(t, err)

	svc, err := NewSaveService(&Config{
		DataDir:            filepath.Join(tmp, "saves"),
		MaxHistoryVersions: maxHistory,
	}, database)
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { svc.Shutdown(context.Background()) })

	return svc
}

func testBundle(timestamp uint32, files ...bundle.File) *bundle.Bundle {
	return &bundle.Bundle{
		TitleID:   0x0004000000055D00,
		Timestamp: timestamp,
		Files:     files,
	}
}

func TestStore_CreatesMetadataAndSnapshot(t *testing.T) {
	svc := newTestService(t, 0)

	b := testBundle(1700000000,
		bundle.NewFile("main", []byte("save data here")),
		bundle.NewFile("sub/extra.bin", []byte("more")),
	)

	meta, err := svc.Store(b, "3ds", "console-1")
	require.NoError(t, err)

	assert.Equal(t, testTitleID, meta.TitleID)
	assert.Equal(t, b.ContentHash(), meta.SaveHash)
	assert.Equal(t, b.TotalSize(), meta.SaveSize)
	assert.Equal(t, uint32(2), meta.FileCount)
	assert.Equal(t, uint32(1700000000), meta.ClientTimestamp)
	assert.Equal(t, "3ds", meta.LastSyncSource)
	assert.Equal(t, "console-1", meta.ConsoleID)

	got, err := svc.GetMetadata(testTitleID)
	require.NoError(t, err)
	assert.Equal(t, meta.SaveHash, got.SaveHash)

	files, err := svc.LoadCurrent(testTitleID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "main", files[0].Path)
	assert.Equal(t, []byte("save data here"), files[0].Data)
	assert.Equal(t, "sub/extra.bin", files[1].Path)
}

func TestStore_ReplaceDropsOmittedFiles(t *testing.T) {
	svc := newTestService(t, 0)

	_, err := svc.Store(testBundle(100,
		bundle.NewFile("main", []byte("v1")),
		bundle.NewFile("extra", []byte("gone soon")),
	), "3ds", "")
	require.NoError(t, err)

	_, err = svc.Store(testBundle(200,
		bundle.NewFile("main", []byte("v2")),
	), "3ds", "")
	require.NoError(t, err)

	files, err := svc.LoadCurrent(testTitleID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main", files[0].Path)
	assert.Equal(t, []byte("v2"), files[0].Data)
}

func TestStore_ArchivesPriorSnapshot(t *testing.T) {
	svc := newTestService(t, 0)

	_, err := svc.Store(testBundle(100, bundle.NewFile("main", []byte("v1"))), "3ds", "")
	require.NoError(t, err)

	_, err = svc.Store(testBundle(200, bundle.NewFile("main", []byte("v2"))), "3ds", "")
	require.NoError(t, err)

	history, err := svc.ListHistory(testTitleID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, uint32(1), history[0].FileCount)
	assert.Equal(t, uint64(2), history[0].Size)

	archived, err := svc.LoadHistoryVersion(testTitleID, history[0].Timestamp)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, []byte("v1"), archived[0].Data)
}

func TestStore_RetentionLimit(t *testing.T) {
	const limit = 3
	svc := newTestService(t, limit)

	payloads := []string{"v1", "v2", "v3", "v4", "v5", "v6"}
	for i, p := range payloads {
		_, err := svc.Store(testBundle(uint32(100+i), bundle.NewFile("main", []byte(p))), "3ds", "")
		require.NoError(t, err)
	}

	history, err := svc.ListHistory(testTitleID)
	require.NoError(t, err)
	require.Len(t, history, limit)

	// Newest first: v5, v4, v3 are the surviving archives.
	for i, want := range []string{"v5", "v4", "v3"} {
		files, err := svc.LoadHistoryVersion(testTitleID, history[i].Timestamp)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, []byte(want), files[0].Data, "history entry %d", i)
	}
}

func TestStore_RejectsEscapingPaths(t *testing.T) {
	svc := newTestService(t, 0)

	for _, path := range []string{"../evil", "/etc/passwd", "a/../../b"} {
		b := testBundle(100, bundle.NewFile(path, []byte("x")))
		_, err := svc.Store(b, "3ds", "")
		assert.ErrorIs(t, err, ErrInvalidPath, "path %q", path)
	}

	// Nothing was committed.
	_, err := svc.GetMetadata(testTitleID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_EmptyBundleIsValid(t *testing.T) {
	svc := newTestService(t, 0)

	meta, err := svc.Store(testBundle(100), "3ds", "")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), meta.FileCount)
	assert.Equal(t, uint64(0), meta.SaveSize)

	files, err := svc.LoadCurrent(testTitleID)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestGetMetadata_NotFound(t *testing.T) {
	svc := newTestService(t, 0)

	_, err := svc.GetMetadata("FFFFFFFFFFFFFFFF")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTitles_SortedByTitleID(t *testing.T) {
	svc := newTestService(t, 0)

	for _, tid := range []uint64{0x00040000001B5000, 0x0004000000055D00} {
		b := &bundle.Bundle{TitleID: tid, Timestamp: 1, Files: []bundle.File{bundle.NewFile("main", []byte("x"))}}
		_, err := svc.Store(b, "3ds", "")
		require.NoError(t, err)
	}

	titles, err := svc.ListTitles()
	require.NoError(t, err)
	require.Len(t, titles, 2)
	assert.Equal(t, "0004000000055D00", titles[0].TitleID)
	assert.Equal(t, "00040000001B5000", titles[1].TitleID)
}

func TestLoadCurrent_NotFound(t *testing.T) {
	svc := newTestService(t, 0)

	_, err := svc.LoadCurrent(testTitleID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListHistory_EmptyWithoutArchives(t *testing.T) {
	svc := newTestService(t, 0)

	_, err := svc.Store(testBundle(100, bundle.NewFile("main", []byte("v1"))), "3ds", "")
	require.NoError(t, err)

	history, err := svc.ListHistory(testTitleID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLoadHistoryVersion_NotFound(t *testing.T) {
	svc := newTestService(t, 0)

	_, err := svc.LoadHistoryVersion(testTitleID, "2026-01-01T00:00:00.000000000Z")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyedMutex(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock("a")
	done := make(chan struct{})
	go func() {
		u := km.Lock("a")
		u()
		close(done)
	}()

	// Different key does not block.
	u2 := km.Lock("b")
	u2()

	select {
	case <-done:
		t.Fatal("second lock on same key acquired while held")
	default:
	}

	unlock()
	<-done
}
