//go:build cgo

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dusk-indust/pygraph/internal/config"
	"github.com/dusk-indust/pygraph/internal/graph"
)

// openStore opens the configured graph store. Persistent stores create
// their parent directory on first use.
func (a *app) openStore() (graph.Store, error) {
	if a.cfg.Store == config.StoreMemory {
		return graph.NewMemStore(), nil
	}

	path := a.storePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	a.log.Debug("opening store", "backend", a.cfg.Store, "path", path)

	switch a.cfg.Store {
	case config.StoreKuzu:
		s, err := graph.NewKuzuFileStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreSQLite:
		s, err := graph.NewSQLiteStore(path + ".db")
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store %q", a.cfg.Store)
}
