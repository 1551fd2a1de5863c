package saves

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS saves (
	title_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	last_sync TEXT NOT NULL,
	last_sync_source TEXT NOT NULL,
	save_hash TEXT NOT NULL,
	save_size INTEGER NOT NULL,
	file_count INTEGER NOT NULL,
	client_timestamp INTEGER NOT NULL,
	server_timestamp TEXT NOT NULL,
	console_id TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_saves_save_hash ON saves(save_hash);
`

const metadataColumns = `title_id, name, last_sync, last_sync_source, save_hash,
	save_size, file_count, client_timestamp, server_timestamp, console_id`

// Index stores per-title save metadata in SQLite. The row upsert in Set is
// the commit point of a Store: readers see either the fully-pre-store or
// fully-post-store record, never an intermediate one.
type Index struct {
	db *sqlx.DB
}

func newIndex(db *sqlx.DB) (*Index, error) {
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("initialize saves index: %w", err)
	}
	return &Index{db: db}, nil
}

func (i *Index) Close() error {
	return i.db.Close()
}

// Get retrieves metadata by title id. Returns ErrNotFound when no record
// exists and ErrIntegrity when a record exists but cannot be read.
func (i *Index) Get(titleID string) (*Metadata, error) {
	var meta Metadata
	err := i.db.Get(&meta, "SELECT "+metadataColumns+" FROM saves WHERE title_id = ?", titleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIntegrity, titleID, err)
	}
	return &meta, nil
}

// Set adds or replaces a title's metadata record.
func (i *Index) Set(meta *Metadata) error {
	_, err := i.db.NamedExec(`
		INSERT OR REPLACE INTO saves
			(title_id, name, last_sync, last_sync_source, save_hash,
			 save_size, file_count, client_timestamp, server_timestamp, console_id)
		VALUES
			(:title_id, :name, :last_sync, :last_sync_source, :save_hash,
			 :save_size, :file_count, :client_timestamp, :server_timestamp, :console_id)`,
		meta,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", meta.TitleID, err)
	}
	return nil
}

// List returns all metadata records sorted by title id.
func (i *Index) List() ([]*Metadata, error) {
	var metas []*Metadata
	err := i.db.Select(&metas, "SELECT "+metadataColumns+" FROM saves ORDER BY title_id")
	if err != nil {
		return nil, fmt.Errorf("list metadata: %w", err)
	}
	return metas, nil
}
