package analysis

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// isConstant reports whether every value equals the first. Checking exact
// equality avoids the round-off a variance test would pick up.
func isConstant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

// ctxCheckEvery is how many outer iterations of an O(R²) loop run between
// context checks.
const ctxCheckEvery = 64

// normalize returns x centered on its mean and divided by its largest
// absolute deviation, so every value lies in [-1, 1]. Squaring raw values
// overflows near 1e154 and underflows near 1e-170; the measures are
// invariant to this affine change. ok is false when x collapses to a single
// value after scaling.
func normalize(x []float64) (out []float64, ok bool) {
	var peak float64
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 || math.IsInf(peak, 0) {
		return nil, false
	}
	out = make([]float64, len(x))
	for i, v := range x {
		out[i] = v / peak
	}
	mean := stat.Mean(out, nil)
	var dev float64
	for i := range out {
		out[i] -= mean
		dev = math.Max(dev, math.Abs(out[i]))
	}
	if dev == 0 {
		return nil, false
	}
	for i := range out {
		out[i] /= dev
	}
	return out, true
}

// pearson returns the product-moment correlation of two non-constant
// columns, clamped to [-1, 1].
func pearson(x, y []float64) float64 {
	r := stat.Correlation(x, y, nil)
	return clamp(r, -1, 1)
}

// averageRanks returns 1-based ranks; tied values share the mean of the
// ranks they span.
func averageRanks(x []float64) []float64 {
	n := len(x)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return x[order[a]] < x[order[b]] })
	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && x[order[j+1]] == x[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// distProfile holds what distance correlation needs per column: the row
// means of the pairwise distance matrix, their grand mean and the column's
// squared distance variance.
type distProfile struct {
	rowMean []float64
	grand   float64
	dvar    float64
}

func newDistProfile(ctx context.Context, x []float64) (distProfile, error) {
	n := len(x)
	rowMean := make([]float64, n)
	for k := 0; k < n; k++ {
		if k%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return distProfile{}, err
			}
		}
		var s float64
		for l := 0; l < n; l++ {
			s += math.Abs(x[k] - x[l])
		}
		rowMean[k] = s / float64(n)
	}
	p := distProfile{rowMean: rowMean, grand: stat.Mean(rowMean, nil)}
	dvar, err := distanceCovariance(ctx, x, x, p, p)
	if err != nil {
		return distProfile{}, err
	}
	p.dvar = dvar
	return p, nil
}

// distanceCovariance returns the squared sample distance covariance
// (V-statistic): the mean of the elementwise product of the two
// double-centered distance matrices. Only the upper triangle is visited.
func distanceCovariance(ctx context.Context, x, y []float64, px, py distProfile) (float64, error) {
	n := len(x)
	var diag, off float64
	for k := 0; k < n; k++ {
		if k%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		a := -2*px.rowMean[k] + px.grand
		b := -2*py.rowMean[k] + py.grand
		diag += a * b
		for l := k + 1; l < n; l++ {
			a := math.Abs(x[k]-x[l]) - px.rowMean[k] - px.rowMean[l] + px.grand
			b := math.Abs(y[k]-y[l]) - py.rowMean[k] - py.rowMean[l] + py.grand
			off += a * b
		}
	}
	return (diag + 2*off) / float64(n*n), nil
}

// distanceCorrelation returns dCor in [0, 1]. It is 0 when either column has
// zero distance variance, which is exactly the constant-column case.
func distanceCorrelation(ctx context.Context, x, y []float64, px, py distProfile) (float64, error) {
	den := math.Sqrt(px.dvar * py.dvar)
	if den == 0 || math.IsNaN(den) {
		return 0, nil
	}
	cov, err := distanceCovariance(ctx, x, y, px, py)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(clamp(cov/den, 0, 1)), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
