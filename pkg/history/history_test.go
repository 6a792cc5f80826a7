package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanksense/tanksense/pkg/types"
)

func reading(day int, percent float64, litres int) types.Reading {
	return types.Reading{
		ReadingDate:  time.Date(2021, 1, day, 0, 59, 0, 0, time.UTC),
		LevelPercent: percent,
		LevelLitres:  litres,
	}
}

func TestMerge(t *testing.T) {
	a := []types.Reading{reading(25, 100, 2000), reading(27, 95, 1900)}
	b := []types.Reading{reading(27, 95, 1900), reading(29, 94, 1880)}

	t.Run("Idempotent", func(t *testing.T) {
		assert.Equal(t, a, Merge(a, a), "merging a set with itself must be a no-op")
	})

	t.Run("UnionExactlyOnce", func(t *testing.T) {
		merged := Merge(a, b)
		require.Len(t, merged, 3)
		assert.Equal(t, []types.Reading{
			reading(25, 100, 2000),
			reading(27, 95, 1900),
			reading(29, 94, 1880),
		}, merged, "duplicates collapse to the first occurrence, old readings first")

		// Same content regardless of which side holds the duplicate.
		flipped := Merge(b, a)
		assert.ElementsMatch(t, merged, flipped)
	})

	t.Run("EmptySides", func(t *testing.T) {
		assert.Equal(t, a, Merge(nil, a))
		assert.Equal(t, a, Merge(a, nil))
		assert.Empty(t, Merge(nil, nil))
	})

	t.Run("FieldDifferenceIsNotADuplicate", func(t *testing.T) {
		changed := reading(25, 100, 2000)
		changed.LevelLitres = 1999
		merged := Merge([]types.Reading{reading(25, 100, 2000)}, []types.Reading{changed})
		assert.Len(t, merged, 2, "readings differing in any field are distinct")
	})

	t.Run("SubSecondPrecisionIsSignificant", func(t *testing.T) {
		// Two readings a millisecond apart are distinct events; the merge
		// law compares timestamps exactly.
		r1 := reading(25, 100, 2000)
		r2 := r1
		r2.ReadingDate = r2.ReadingDate.Add(time.Millisecond)
		merged := Merge([]types.Reading{r1}, []types.Reading{r2})
		assert.Len(t, merged, 2)
	})
}

func TestFilterFrom(t *testing.T) {
	readings := []types.Reading{reading(25, 100, 2000), reading(27, 95, 1900), reading(29, 94, 1880)}

	filtered := FilterFrom(readings, time.Date(2021, 1, 27, 0, 0, 0, 0, time.UTC))
	require.Len(t, filtered, 2)
	assert.Equal(t, reading(27, 95, 1900), filtered[0])

	assert.Equal(t, readings, FilterFrom(readings, time.Time{}), "zero start keeps everything")
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadAbsent", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "cache.db"))
		readings, err := store.Load(ctx)
		require.NoError(t, err, "a missing store is not an error")
		assert.Empty(t, readings)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "cache.db"))
		saved := []types.Reading{
			{ReadingDate: time.Date(2021, 1, 25, 13, 59, 14, 987000000, time.UTC), LevelPercent: 100, LevelLitres: 2000},
			reading(27, 95, 1900),
		}
		require.NoError(t, store.Save(ctx, saved))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, saved, loaded, "sub-second precision must survive the round trip")
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "cache.db"))
		require.NoError(t, store.Save(ctx, []types.Reading{reading(25, 100, 2000), reading(27, 95, 1900)}))

		replacement := []types.Reading{reading(29, 94, 1880)}
		require.NoError(t, store.Save(ctx, replacement))

		loaded, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, replacement, loaded, "save has full-replace semantics, not append")
	})

	t.Run("CacheError", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "missing-dir", "cache.db"))
		err := store.Save(ctx, []types.Reading{reading(25, 100, 2000)})
		require.Error(t, err)

		var cacheErr *CacheError
		require.ErrorAs(t, err, &cacheErr)
		assert.Equal(t, store.Path(), cacheErr.Path, "the error names the cache path")
		assert.ErrorContains(t, err, store.Path())
	})
}
