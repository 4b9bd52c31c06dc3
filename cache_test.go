package dynamodel

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelFor(t *testing.T) {
	t.Run("builds at most once", func(t *testing.T) {
		models := NewModels(nil)
		var calls atomic.Int32
		build := func() (*TableModel[order], error) {
			calls.Add(1)
			return NewBuilder[order](nil).With(orderFields()...).Build()
		}

		const workers = 16
		results := make([]*TableModel[order], workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				m, err := ModelFor(models, build)
				assert.NoError(t, err)
				results[i] = m
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		require.NotNil(t, results[0])
		for _, m := range results {
			assert.Same(t, results[0], m)
		}
		assert.Equal(t, 1, models.Len())
	})

	t.Run("failed builds are cached", func(t *testing.T) {
		var models Models
		boom := errors.New("boom")
		calls := 0
		build := func() (*TableModel[event], error) {
			calls++
			return nil, boom
		}

		_, err := ModelFor(&models, build)
		assert.ErrorIs(t, err, boom)
		_, err = ModelFor(&models, build)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("panicking builds are cached as errors", func(t *testing.T) {
		var models Models
		calls := 0
		build := func() (*TableModel[event], error) {
			calls++
			panic("half built")
		}

		_, err := ModelFor(&models, build)
		assert.ErrorContains(t, err, "half built")
		m, err := ModelFor(&models, build)
		assert.ErrorContains(t, err, "half built")
		assert.Nil(t, m)
		assert.Equal(t, 1, calls)
	})

	t.Run("types are cached separately", func(t *testing.T) {
		models := NewModels(nil)
		_, err := StructModel[account](models)
		require.NoError(t, err)
		_, err = ModelFor(models, func() (*TableModel[order], error) {
			return NewBuilder[order](nil).With(orderFields()...).Build()
		})
		require.NoError(t, err)
		assert.Equal(t, 2, models.Len())

		again, err := StructModel[account](models)
		require.NoError(t, err)
		first, _ := StructModel[account](models)
		assert.Same(t, first, again)
	})

	t.Run("logs builds", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)
		models := NewModels(logger)

		_, err := StructModel[account](models)
		require.NoError(t, err)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.DebugLevel, entry.Level)
		assert.Equal(t, "built table model", entry.Message)
		assert.Equal(t, "dynamodel.account", entry.Data["type"])
		assert.Equal(t, 8, entry.Data["attributes"])

		_, err = StructModel[int](models)
		require.Error(t, err)
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	})
}
