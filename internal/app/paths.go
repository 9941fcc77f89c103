package app

import (
	"os"
	"path/filepath"

	"github.com/corey/shodiff/internal/config"
)

// Paths holds all resolved filesystem paths for the .shodiff/ directory.
type Paths struct {
	Root   string // .shodiff/
	Config string // .shodiff/config.yaml

	BoltDB   string // .shodiff/cache.db
	SQLiteDB string // .shodiff/cache.sqlite

	LogDir string // .shodiff/log/
}

// NewPaths constructs all resolved paths from a working directory.
func NewPaths(workDir string) *Paths {
	root := filepath.Join(workDir, ".shodiff")
	return &Paths{
		Root:   root,
		Config: filepath.Join(root, "config.yaml"),

		BoltDB:   filepath.Join(root, "cache.db"),
		SQLiteDB: filepath.Join(root, "cache.sqlite"),

		LogDir: filepath.Join(root, "log"),
	}
}

// StorePath returns the database file for cfg: store.path when set,
// otherwise the driver's default file under .shodiff/.
func (p *Paths) StorePath(cfg config.StoreCfg) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	if cfg.Driver == config.DriverSQLite {
		return p.SQLiteDB
	}
	return p.BoltDB
}

// EnsureDirs creates .shodiff/ and the parent of the store file. Idempotent.
func (p *Paths) EnsureDirs(cfg config.StoreCfg) error {
	dirs := []string{
		p.Root,
		filepath.Dir(p.StorePath(cfg)),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}
