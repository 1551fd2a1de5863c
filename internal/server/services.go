package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/pepasjc/savesync/internal/server/saves"
	"github.com/pepasjc/savesync/internal/titledb"
)

type Services struct {
	Saves  *saves.SaveService
	Titles *titledb.Table
}

func NewServices(config *Config, db *sqlx.DB) (*Services, error) {
	saveSvc, err := saves.NewSaveService(&config.Saves, db)
	if err != nil {
		return nil, fmt.Errorf("create save service: %w", err)
	}

	titles, err := titledb.Load(config.TitleDBPaths...)
	if err != nil {
		return nil, fmt.Errorf("load title db: %w", err)
	}
	slog.Info("title db loaded", "entries", titles.Len())

	return &Services{
		Saves:  saveSvc,
		Titles: titles,
	}, nil
}

func (s *Services) Start(ctx context.Context) error {
	if err := s.Saves.Start(ctx); err != nil {
		return fmt.Errorf("start save service: %w", err)
	}
	return nil
}

func (s *Services) Shutdown(ctx context.Context) error {
	if err := s.Saves.Shutdown(ctx); err != nil {
		return fmt.Errorf("stop save service: %w", err)
	}
	return nil
}
