// Package app wires configuration, logging, the search provider and the
// baseline store together for one shodiff invocation.
package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/corey/shodiff/internal/adapters/bbolt"
	"github.com/corey/shodiff/internal/adapters/shodan"
	"github.com/corey/shodiff/internal/adapters/sqlite"
	"github.com/corey/shodiff/internal/config"
	"github.com/corey/shodiff/internal/domain/baseline"
	"github.com/corey/shodiff/internal/ports"
	log "github.com/sirupsen/logrus"
)

// Options are the command-line overrides applied on top of the config file.
type Options struct {
	WorkDir    string    // directory holding .shodiff/; cwd when empty
	ConfigPath string    // config file; .shodiff/config.yaml when empty
	LogLevel   string    // overrides log.level when set
	LogOutput  io.Writer // stderr when nil
}

// App is the top-level container for one invocation.
type App struct {
	Paths  *Paths
	Config *config.Config
	Logger *log.Logger

	// LogPath is the per-run log directory, empty when file logging is off.
	LogPath string
}

// New loads configuration and builds the logger. It does not touch the
// network or the store.
func New(opts Options) (*App, error) {
	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		workDir = wd
	}
	paths := NewPaths(workDir)

	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = paths.Config
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	level, err := ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	a := &App{Paths: paths, Config: cfg, Logger: NewLogger(out, level)}

	logDir := cfg.Log.Dir
	if logDir == "" && cfg.Log.Files {
		logDir = paths.LogDir
	}
	if logDir != "" {
		dir, err := AddFileLogger(a.Logger, logDir, time.Now())
		if err != nil {
			return nil, err
		}
		a.LogPath = dir
	}
	return a, nil
}

// StorePath returns the configured baseline database file.
func (a *App) StorePath() string {
	return a.Paths.StorePath(a.Config.Store)
}

// OpenStore opens the configured baseline store, creating its directory.
// The caller owns the returned store and must Close it.
func (a *App) OpenStore() (ports.BaselineStore, error) {
	if err := a.Paths.EnsureDirs(a.Config.Store); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	path := a.StorePath()
	a.Logger.WithFields(log.Fields{"driver": a.Config.Store.Driver, "path": path}).Debug("open store")

	switch a.Config.Store.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverBolt:
		store, err := bbolt.NewStore(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.Config.Store.Driver)
	}
}

// NewProvider builds the Shodan client. A missing API key is
// ports.ErrMissingCredential.
func (a *App) NewProvider() (ports.SearchProvider, error) {
	key, err := a.Config.APIKey()
	if err != nil {
		return nil, err
	}
	return shodan.New(shodan.Options{
		BaseURL:     a.Config.Shodan.BaseURL,
		APIKey:      key,
		Timeout:     a.Config.Shodan.Timeout,
		Concurrency: a.Config.Shodan.Concurrency,
		Logger:      a.Logger,
	})
}

// Runner returns a diff orchestrator bound to provider and this app's store.
func (a *App) Runner(provider ports.SearchProvider) *baseline.Runner {
	return &baseline.Runner{
		Provider:  provider,
		OpenStore: a.OpenStore,
		Logger:    a.Logger,
	}
}
