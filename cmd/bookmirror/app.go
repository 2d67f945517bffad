package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/afero"

	"github.com/bookmirror/bookmirror/internal/bookmark"
	"github.com/bookmirror/bookmirror/internal/config"
	"github.com/bookmirror/bookmirror/internal/logging"
	"github.com/bookmirror/bookmirror/internal/mirror"
	"github.com/bookmirror/bookmirror/internal/places"
	"github.com/bookmirror/bookmirror/internal/sync"
)

// app holds the pieces every command wires together.
type app struct {
	cfg    *config.Config
	out    *logging.Output
	dbPath string
	source *places.Source
	dir    *mirror.Dir
}

// newApp opens logging and resolves the places database. With ensureDir
// the output directory is created, as the sync commands require.
func newApp(cfg *config.Config, ensureDir bool) (*app, error) {
	out, err := logging.New(logging.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	dbPath, err := resolveDatabase(cfg, out)
	if err != nil {
		out.Close()
		return nil, err
	}

	source := places.NewSource(dbPath)
	source.ToolbarRoot = cfg.ToolbarRoot

	dir := mirror.NewDir(afero.NewOsFs(), cfg.OutputDir)
	if ensureDir {
		if err := dir.Ensure(); err != nil {
			out.Close()
			return nil, err
		}
	}

	return &app{cfg: cfg, out: out, dbPath: dbPath, source: source, dir: dir}, nil
}

// resolveDatabase uses the configured database or discovers one under the
// profiles root.
func resolveDatabase(cfg *config.Config, out *logging.Output) (string, error) {
	if cfg.Database != "" {
		if _, err := os.Stat(cfg.Database); err != nil {
			return "", fmt.Errorf("%w: %v", bookmark.ErrSourceUnavailable, err)
		}
		return cfg.Database, nil
	}
	return places.FindDatabase(cfg.ProfilesRoot, out.Logger("profile"))
}

func (a *app) materializer() (*mirror.Materializer, error) {
	classifier, err := mirror.NewClassifier(a.cfg.DocumentPatterns)
	if err != nil {
		return nil, err
	}
	format, err := mirror.FormatByName(a.cfg.ShortcutFormat)
	if err != nil {
		return nil, err
	}

	return mirror.NewMaterializer(a.dir, mirror.Options{
		Classifier: classifier,
		Format:     format,
		Client:     &http.Client{Timeout: a.cfg.HTTPTimeout},
		Logger:     a.out.Logger("mirror"),
	}), nil
}

func (a *app) syncer(notifier sync.Notifier) (sync.Syncer, error) {
	m, err := a.materializer()
	if err != nil {
		return nil, err
	}
	return sync.New(a.source, a.dir, m, sync.Config{
		Folder:   a.cfg.Folder,
		Verbose:  a.cfg.Verbose,
		Logger:   a.out.Logger("sync"),
		Notifier: notifier,
	}), nil
}

func (a *app) Close() error {
	return a.out.Close()
}

// fail prints err and exits, the way every command reports errors.
func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
