package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverageRanksTies(t *testing.T) {
	got := averageRanks([]float64{3, 1, 2, 2, 5})
	assert.Equal(t, []float64{4, 1, 2.5, 2.5, 5}, got)
}

func TestPairwiseMeasuresMatchReference(t *testing.T) {
	cases := []struct {
		name              string
		x, y              []float64
		linear, rank, dst float64
	}{
		{"quadratic", []float64{1, 2, 3, 4}, []float64{1, 4, 9, 16}, 0.9843740386976972, 1.0, 0.9880575600825113},
		{"swapped", []float64{1, 2, 3, 4, 5}, []float64{2, 1, 4, 3, 5}, 0.8, 0.8, 0.8583950752789521},
		{"parabola", []float64{-2, -1, 0, 1, 2}, []float64{4, 1, 0, 1, 4}, 0, 0, 0.5159234568589328},
		{"ties", []float64{1, 2, 2, 3, 4}, []float64{1, 3, 2, 2, 5}, 0.8385566513510482, 0.7631578947368421, 0.8326852199098892},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.linear, pearson(tc.x, tc.y), 1e-12)
			assert.InDelta(t, tc.rank, pearson(averageRanks(tc.x), averageRanks(tc.y)), 1e-12)
			px, py := distProfileOf(t, tc.x), distProfileOf(t, tc.y)
			assert.InDelta(t, tc.dst, dcor(t, tc.x, tc.y, px, py), 1e-12)
		})
	}
}

func TestDistanceCorrelationConstantIsZero(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	d := []float64{5, 5, 5, 5}
	px, pd := distProfileOf(t, x), distProfileOf(t, d)
	assert.Equal(t, 0.0, pd.dvar)
	assert.Equal(t, 0.0, dcor(t, x, d, px, pd))
	assert.Equal(t, 0.0, dcor(t, d, d, pd, pd))
}

func TestDistanceCorrelationSelfIsOne(t *testing.T) {
	x := []float64{0.3, -1.2, 4.4, 2.0, 2.0, 7.1}
	p := distProfileOf(t, x)
	assert.InDelta(t, 1.0, dcor(t, x, x, p, p), 1e-12)
}

func TestNormalize(t *testing.T) {
	got, ok := normalize([]float64{2, 4, 6, 8})
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{-1, -1.0 / 3, 1.0 / 3, 1}, got, 1e-12)

	_, ok = normalize([]float64{0, 0, 0})
	assert.False(t, ok)
}

func TestNormalizeExtremeMagnitudes(t *testing.T) {
	for _, scale := range []float64{1e300, 1e160, 1e-170, 1e-300} {
		x := []float64{1 * scale, 2 * scale, 3 * scale, 4 * scale}
		got, ok := normalize(x)
		require.True(t, ok, "scale %g", scale)
		assert.InDeltaSlice(t, []float64{-1, -1.0 / 3, 1.0 / 3, 1}, got, 1e-12, "scale %g", scale)
	}
}

func TestDistanceProfileHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newDistProfile(ctx, []float64{1, 2, 3})
	assert.ErrorIs(t, err, context.Canceled)
}

func distProfileOf(t *testing.T, x []float64) distProfile {
	t.Helper()
	p, err := newDistProfile(context.Background(), x)
	require.NoError(t, err)
	return p
}

func dcor(t *testing.T, x, y []float64, px, py distProfile) float64 {
	t.Helper()
	v, err := distanceCorrelation(context.Background(), x, y, px, py)
	require.NoError(t, err)
	return v
}

func TestIsConstant(t *testing.T) {
	assert.True(t, isConstant([]float64{0.1, 0.1, 0.1}))
	assert.False(t, isConstant([]float64{0.1, 0.1, 0.1000000001}))
}
