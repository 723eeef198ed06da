package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EnvTemplate lists every variable Load reads from the environment.
const EnvTemplate = `# PostgreSQL source
PG_HOST=localhost
PG_PORT=5432
PG_USER=
PG_PASSWORD=
PG_DATABASE=
PG_SCHEMA=public

# SQL Server destination
SQLSERVER_HOST=localhost
SQLSERVER_PORT=1433
SQLSERVER_USER=
SQLSERVER_PASSWORD=
SQLSERVER_DATABASE=
SQLSERVER_SCHEMA=TRIBUTAI
`

// Starter returns a config suitable for a first run: defaults, local hosts
// and passwords taken from the environment.
func Starter() *Config {
	cfg := Default()
	cfg.Source.Host = "localhost"
	cfg.Source.Password = "${ENV:PG_PASSWORD}"
	cfg.Target.Host = "localhost"
	cfg.Target.Password = "${ENV:SQLSERVER_PASSWORD}"
	cfg.Logging.Directory = ""
	return cfg
}

// WriteIfAbsent writes data to path unless the file already exists.
func WriteIfAbsent(path string, data []byte, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, data, perm)
}
