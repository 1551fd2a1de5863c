// Package saves is the versioned storage engine for per-title save data.
//
// On disk, each title owns a directory under the data root:
//
//	<data>/<title_id>/current/        - the current snapshot's files
//	<data>/<title_id>/history/<tag>/  - archived prior snapshots
//
// Metadata lives in a SQLite index; the index row is the commit point of a
// Store and is written only after all file mutations have completed.
package saves

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pepasjc/savesync/internal/bundle"
	"github.com/pepasjc/savesync/internal/utils"
)

// serverTimeFormat is RFC3339 with a fixed-width fraction so that
// lexicographic order of derived history tags equals chronological order,
// which pruning relies on. The fraction also keeps tags unique across
// rapid consecutive stores.
const serverTimeFormat = "2006-01-02T15:04:05.000000000Z"

// tagReplacer maps a server timestamp to a filesystem-safe history tag.
var tagReplacer = strings.NewReplacer(":", "_", "+", "_")

type SaveService struct {
	config *Config
	index  *Index
	locks  *keyedMutex
	flk    *flock.Flock
}

func NewSaveService(config *Config, db *sqlx.DB) (*SaveService, error) {
	if config.DataDir == "" {
		return nil, errors.New("saves: data dir is required")
	}
	if config.MaxHistoryVersions <= 0 {
		config.MaxHistoryVersions = DefaultMaxHistoryVersions
	}

	index, err := newIndex(db)
	if err != nil {
		return nil, err
	}

	return &SaveService{
		config: config,
		index:  index,
		locks:  newKeyedMutex(),
		flk:    flock.New(filepath.Join(config.DataDir, ".savesync.lock")),
	}, nil
}

// Start prepares the data directory and claims the single-writer lock.
func (s *SaveService) Start(ctx context.Context) error {
	if err := utils.EnsureDir(s.config.DataDir); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	locked, err := s.flk.TryLock()
	if err != nil {
		return fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return ErrLocked
	}

	slog.Info("save storage start", "dataDir", s.config.DataDir, "maxHistory", s.config.MaxHistoryVersions)
	return nil
}

func (s *SaveService) Shutdown(ctx context.Context) error {
	if err := s.flk.Unlock(); err != nil {
		return fmt.Errorf("unlock data dir: %w", err)
	}
	return s.index.Close()
}

// GetMetadata returns the stored metadata for a title, or ErrNotFound.
func (s *SaveService) GetMetadata(titleID string) (*Metadata, error) {
	return s.index.Get(titleID)
}

// ListTitles returns metadata for all stored titles, sorted by title id.
func (s *SaveService) ListTitles() ([]*Metadata, error) {
	return s.index.List()
}

// Store replaces a title's current snapshot with the bundle's files,
// archiving the prior snapshot to history and pruning old entries. The
// metadata record is written last; if anything fails before that, the
// prior record remains authoritative.
//
// Store calls for the same title are mutually exclusive; different titles
// proceed in parallel.
func (s *SaveService) Store(b *bundle.Bundle, source, consoleID string) (*Metadata, error) {
	titleID := b.TitleIDHex()

	for _, f := range b.Files {
		if !filepath.IsLocal(filepath.FromSlash(f.Path)) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, f.Path)
		}
	}

	unlock := s.locks.Lock(titleID)
	defer unlock()

	prior, err := s.index.Get(titleID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	currentDir := s.currentDir(titleID)

	// Archive the prior snapshot under a tag derived from its server
	// timestamp, then prune history to the retention limit.
	if prior != nil && utils.DirExists(currentDir) {
		tag := historyTag(prior.ServerTimestamp)
		if err := s.archiveCurrent(titleID, tag); err != nil {
			return nil, fmt.Errorf("archive snapshot %s: %w", titleID, err)
		}
		if err := s.pruneHistory(titleID); err != nil {
			return nil, fmt.Errorf("prune history %s: %w", titleID, err)
		}
	}

	// Write the new snapshot into a staging dir, then swap it in. A
	// request aborted mid-write can leave at most an orphaned staging
	// dir; metadata still points at consistent state.
	staging := filepath.Join(s.titleDir(titleID), ".staging-"+uuid.NewString())
	if err := writeSnapshot(staging, b.Files); err != nil {
		os.RemoveAll(staging)
		return nil, fmt.Errorf("write snapshot %s: %w", titleID, err)
	}

	if err := os.RemoveAll(currentDir); err != nil {
		os.RemoveAll(staging)
		return nil, fmt.Errorf("replace snapshot %s: %w", titleID, err)
	}
	if err := os.Rename(staging, currentDir); err != nil {
		os.RemoveAll(staging)
		return nil, fmt.Errorf("replace snapshot %s: %w", titleID, err)
	}

	now := time.Now().UTC().Format(serverTimeFormat)
	meta := &Metadata{
		TitleID:         titleID,
		Name:            titleID, // bundles carry no display name
		LastSync:        now,
		LastSyncSource:  source,
		SaveHash:        b.ContentHash(),
		SaveSize:        b.TotalSize(),
		FileCount:       uint32(len(b.Files)),
		ClientTimestamp: b.Timestamp,
		ServerTimestamp: now,
		ConsoleID:       consoleID,
	}

	// Commit point.
	if err := s.index.Set(meta); err != nil {
		return nil, err
	}

	slog.Info("save stored", "titleId", titleID, "files", meta.FileCount, "size", meta.SaveSize, "source", source)
	return meta, nil
}

// LoadCurrent returns the current snapshot's files in path order, or
// ErrNotFound if the title has no stored save.
func (s *SaveService) LoadCurrent(titleID string) ([]SaveFile, error) {
	dir := s.currentDir(titleID)
	if !utils.DirExists(dir) {
		return nil, ErrNotFound
	}
	return loadSnapshot(dir)
}

// ListHistory returns the archived snapshots for a title, newest first.
func (s *SaveService) ListHistory(titleID string) ([]HistoryEntry, error) {
	tags, err := s.historyTags(titleID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(tags))
	for i := len(tags) - 1; i >= 0; i-- {
		dir := filepath.Join(s.historyDir(titleID), tags[i])
		size, count, err := utils.DirStats(dir)
		if err != nil {
			return nil, fmt.Errorf("stat history %s/%s: %w", titleID, tags[i], err)
		}
		entries = append(entries, HistoryEntry{
			Timestamp: tags[i],
			Size:      size,
			FileCount: count,
		})
	}
	return entries, nil
}

// LoadHistoryVersion returns the files of one archived snapshot, or
// ErrNotFound. The tag may be given in raw timestamp form; it is
// normalized the same way tags are derived.
func (s *SaveService) LoadHistoryVersion(titleID, tag string) ([]SaveFile, error) {
	dir := filepath.Join(s.historyDir(titleID), historyTag(tag))
	if !utils.DirExists(dir) {
		return nil, ErrNotFound
	}
	return loadSnapshot(dir)
}

func (s *SaveService) titleDir(titleID string) string {
	return filepath.Join(s.config.DataDir, titleID)
}

func (s *SaveService) currentDir(titleID string) string {
	return filepath.Join(s.titleDir(titleID), "current")
}

func (s *SaveService) historyDir(titleID string) string {
	return filepath.Join(s.titleDir(titleID), "history")
}

func (s *SaveService) archiveCurrent(titleID, tag string) error {
	currentDir := s.currentDir(titleID)
	archiveDir := filepath.Join(s.historyDir(titleID), tag)

	return filepath.WalkDir(currentDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(currentDir, path)
		if err != nil {
			return err
		}
		return utils.CopyFile(path, filepath.Join(archiveDir, rel))
	})
}

func (s *SaveService) pruneHistory(titleID string) error {
	tags, err := s.historyTags(titleID)
	if err != nil {
		return err
	}

	for len(tags) > s.config.MaxHistoryVersions {
		oldest := tags[0]
		tags = tags[1:]
		if err := os.RemoveAll(filepath.Join(s.historyDir(titleID), oldest)); err != nil {
			return err
		}
		slog.Debug("history pruned", "titleId", titleID, "tag", oldest)
	}
	return nil
}

// historyTags returns the title's history tags sorted oldest first.
func (s *SaveService) historyTags(titleID string) ([]string, error) {
	entries, err := os.ReadDir(s.historyDir(titleID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			tags = append(tags, e.Name())
		}
	}
	sort.Strings(tags)
	return tags, nil
}

func historyTag(timestamp string) string {
	return tagReplacer.Replace(timestamp)
}

func writeSnapshot(dir string, files []bundle.File) error {
	if err := utils.EnsureDir(dir); err != nil {
		return err
	}
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := utils.EnsureParent(path); err != nil {
			return err
		}
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func loadSnapshot(dir string) ([]SaveFile, error) {
	var files []SaveFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, SaveFile{Path: filepath.ToSlash(rel), Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
