package search

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaekong/memocloud/pkg/memoire"
	"github.com/michaekong/memocloud/pkg/pagination"
)

func TestCorpus_EnsureBuilt_Once(t *testing.T) {
	src := newFakeSource(25, 10, nil)
	c := NewCorpus(src, CorpusConfig{Ordering: "-note_moyenne", Pagination: pagination.DefaultConfig()})

	require.False(t, c.Built())
	require.NoError(t, c.EnsureBuilt(context.Background()))
	require.NoError(t, c.EnsureBuilt(context.Background()))

	assert.True(t, c.Built())
	assert.True(t, c.Complete())
	assert.Equal(t, 25, c.Len())
	assert.Equal(t, 3, src.Calls(), "one request per page, one build only")
	assert.Equal(t, []string{"-note_moyenne"}, src.orderings)

	for i, d := range c.Documents() {
		assert.Equal(t, i+1, d.ID, "arrival order kept")
		assert.NotEmpty(t, d.SearchText)
	}
}

func TestCorpus_EnsureBuilt_Concurrent(t *testing.T) {
	src := newFakeSource(30, 12, nil)
	c := NewCorpus(src, CorpusConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.EnsureBuilt(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, src.Calls())
	assert.Equal(t, 30, c.Len())
}

func TestCorpus_PartialBuild(t *testing.T) {
	src := newFakeSource(30, 10, nil)
	src.failAt = 2
	c := NewCorpus(src, CorpusConfig{})

	err := c.EnsureBuilt(context.Background())

	assert.Error(t, err)
	assert.True(t, c.Built(), "partial builds are still marked built")
	assert.False(t, c.Complete())
	assert.Equal(t, 10, c.Len())

	// No retry within the session.
	_ = c.EnsureBuilt(context.Background())
	assert.Equal(t, 2, src.Calls())

	status := c.Status()
	assert.False(t, status.Complete)
	assert.NotEmpty(t, status.Error)
}

func TestCorpus_CallerCancelDoesNotFreeze(t *testing.T) {
	t.Run("cancelled before the first page", func(t *testing.T) {
		src := newFakeSource(30, 10, nil)
		c := NewCorpus(src, CorpusConfig{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := c.EnsureBuilt(ctx)
		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, c.Built())
		assert.Zero(t, c.Len())

		require.NoError(t, c.EnsureBuilt(context.Background()))
		assert.True(t, c.Complete())
		assert.Equal(t, 30, c.Len())
	})

	t.Run("cancelled mid-build", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		src := newFakeSource(30, 10, nil)
		src.afterPage = func(page int) {
			if page == 1 {
				cancel()
			}
		}
		c := NewCorpus(src, CorpusConfig{})

		require.ErrorIs(t, c.EnsureBuilt(ctx), context.Canceled)
		assert.False(t, c.Built())
		assert.Empty(t, c.Status().Error)

		src.afterPage = nil
		require.NoError(t, c.EnsureBuilt(context.Background()))
		assert.True(t, c.Complete())
		assert.Equal(t, 30, c.Len())
	})
}

func TestCorpus_HomeFlag(t *testing.T) {
	src := newFakeSource(2, 10, func(i int, m *memoire.Memoire) {
		if i == 2 {
			m.Institutions = []string{"Université de Buea"}
		}
	})
	c := NewCorpus(src, CorpusConfig{HomeInstitution: "ecole des travaux"})
	require.NoError(t, c.EnsureBuilt(context.Background()))

	docs := c.Documents()
	assert.True(t, docs[0].Home)
	assert.False(t, docs[1].Home)
}
