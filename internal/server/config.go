package server

import (
	"errors"

	"github.com/pepasjc/savesync/internal/server/handlers/update"
	"github.com/pepasjc/savesync/internal/server/saves"
)

const DefaultAddr = "0.0.0.0:8080"

type Config struct {
	HTTP   HTTPConfig
	Auth   AuthConfig
	Saves  saves.Config
	Update update.Config

	// TitleDBPaths are the game-name database files loaded at startup.
	TitleDBPaths []string
}

type HTTPConfig struct {
	Addr     string
	CertFile string
	KeyFile  string
}

type AuthConfig struct {
	// APIKey is the shared secret clients present in the X-API-Key header.
	APIKey string
}

func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultAddr
	}
	if c.Saves.DataDir == "" {
		return errors.New("server: data dir is required")
	}
	if c.Auth.APIKey == "" {
		return errors.New("server: api key is required")
	}
	return nil
}
