package offsets

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(size float64) SizeFunc {
	return func(int) float64 { return size }
}

func TestRebuild(t *testing.T) {
	t.Parallel()

	t.Run("three equal items", func(t *testing.T) {
		t.Parallel()
		tbl := New()
		tbl.Rebuild(3, fixed(10))

		require.Equal(t, 3, tbl.Len())
		for i, want := range []float64{0, 10, 20, 30} {
			assert.Equal(t, want, tbl.Prefix(i))
		}
		assert.Equal(t, 30.0, tbl.Total())
	})

	t.Run("empty table", func(t *testing.T) {
		t.Parallel()
		tbl := New()
		tbl.Rebuild(0, fixed(10))

		assert.Equal(t, 0, tbl.Len())
		assert.Equal(t, 0.0, tbl.Total())
		assert.Equal(t, 0, tbl.LowerBound(5))
		assert.Equal(t, 0, tbl.UpperBound(5))
		assert.Equal(t, -1, tbl.IndexAt(5))
		assert.Equal(t, 0.0, tbl.RangeExtent(0, 3))
		_, ok := tbl.TopOffset(0)
		assert.False(t, ok)
	})

	t.Run("negative sizes count as zero", func(t *testing.T) {
		t.Parallel()
		tbl := New()
		tbl.Rebuild(3, func(i int) float64 {
			if i == 1 {
				return -4
			}
			return 5
		})
		assert.Equal(t, 0.0, tbl.Size(1))
		assert.Equal(t, 10.0, tbl.Total())
	})

	t.Run("shrinking reuses storage", func(t *testing.T) {
		t.Parallel()
		tbl := New()
		tbl.Rebuild(10, fixed(1))
		tbl.Rebuild(2, fixed(3))
		assert.Equal(t, 2, tbl.Len())
		assert.Equal(t, 6.0, tbl.Total())
	})
}

func TestTopOffsetAndExtent(t *testing.T) {
	t.Parallel()

	tbl := New()
	tbl.SetPaddingTop(8)
	tbl.Rebuild(4, func(i int) float64 { return float64(i + 1) })

	top, ok := tbl.TopOffset(0)
	require.True(t, ok)
	assert.Equal(t, 8.0, top)

	top, ok = tbl.TopOffset(3)
	require.True(t, ok)
	assert.Equal(t, 8.0+1+2+3, top)

	_, ok = tbl.TopOffset(4)
	assert.False(t, ok)
	_, ok = tbl.TopOffset(-1)
	assert.False(t, ok)

	assert.Equal(t, 2.0+3, tbl.RangeExtent(1, 2))
	assert.Equal(t, 10.0, tbl.RangeExtent(0, 3))
	assert.Equal(t, 0.0, tbl.RangeExtent(2, 1))
}

func TestBounds(t *testing.T) {
	t.Parallel()

	tbl := New()
	tbl.Rebuild(3, fixed(10))

	assert.Equal(t, 0, tbl.LowerBound(0))
	assert.Equal(t, 1, tbl.LowerBound(5))
	assert.Equal(t, 1, tbl.LowerBound(10))
	assert.Equal(t, 1, tbl.UpperBound(0))
	assert.Equal(t, 2, tbl.UpperBound(10))
	assert.Equal(t, 2, tbl.UpperBound(15))

	// values outside [0, total] clamp through the bound semantics
	assert.Equal(t, 0, tbl.LowerBound(-100))
	assert.Equal(t, 3, tbl.LowerBound(1000))
	assert.Equal(t, 3, tbl.UpperBound(1000))

	assert.Equal(t, 0, tbl.IndexAt(0))
	assert.Equal(t, 0, tbl.IndexAt(9.5))
	assert.Equal(t, 1, tbl.IndexAt(10))
	assert.Equal(t, 2, tbl.IndexAt(1000))
	assert.Equal(t, 0, tbl.IndexAt(-3))
}

func TestPatch(t *testing.T) {
	t.Parallel()

	tbl := New()
	tbl.Rebuild(4, fixed(10))

	require.True(t, tbl.Patch(1, 25))
	assert.Equal(t, 25.0, tbl.Size(1))
	for i, want := range []float64{0, 10, 35, 45, 55} {
		assert.Equal(t, want, tbl.Prefix(i))
	}
	assert.False(t, tbl.Patch(4, 1))
	assert.False(t, tbl.Patch(-1, 1))
}

func TestPrefixProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		n := rng.IntN(40)
		sizes := make([]float64, n)
		for i := range sizes {
			// include zero sized items so bounds see flat runs
			sizes[i] = float64(rng.IntN(4) * 5)
		}
		tbl := New()
		tbl.Rebuild(n, func(i int) float64 { return sizes[i] })

		for i := range n {
			require.Equal(t, sizes[i], tbl.Prefix(i+1)-tbl.Prefix(i))
			require.LessOrEqual(t, tbl.Prefix(i), tbl.Prefix(i+1))
		}

		for range 20 {
			v := float64(rng.IntN(int(tbl.Total())+10)) - 5
			lo := tbl.LowerBound(v)
			hi := tbl.UpperBound(v)
			require.LessOrEqual(t, lo, hi)

			for i := range lo {
				require.Less(t, tbl.Prefix(i), v, "lower bound is not the smallest index")
			}
			if lo < n {
				require.GreaterOrEqual(t, tbl.Prefix(lo), v)
			}
			for i := range hi {
				require.LessOrEqual(t, tbl.Prefix(i), v, "upper bound is not the smallest index")
			}
			if hi < n {
				require.Greater(t, tbl.Prefix(hi), v)
			}
		}
	}
}
