//go:build !cgo

package main

import (
	"fmt"

	"github.com/dusk-indust/pygraph/internal/config"
	"github.com/dusk-indust/pygraph/internal/graph"
)

// openStore opens the configured graph store. Without cgo only the
// in-memory store is available.
func (a *app) openStore() (graph.Store, error) {
	if a.cfg.Store == config.StoreMemory {
		return graph.NewMemStore(), nil
	}
	return nil, fmt.Errorf("store %q requires a cgo build", a.cfg.Store)
}
