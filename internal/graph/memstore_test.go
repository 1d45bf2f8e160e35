package graph

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/pygraph/internal/grapher"
)

func TestMemStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s := NewMemStore()
		require.NoError(t, s.InitSchema(context.Background()))
		return s
	})
}

func TestMemStore_ConcurrentWrites(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.AddRef(ctx, grapher.Ref{DefPath: "x", File: "a.py", Start: j, End: j + 1})
				_ = s.AddDef(ctx, grapher.Def{Path: "x", Name: "x"})
			}
		}(i)
	}
	wg.Wait()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, stats.RefCount)
	assert.Equal(t, 1, stats.DefCount)
}
