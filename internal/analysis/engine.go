package analysis

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Limits bounds the work a run may do. Zero means unlimited.
type Limits struct {
	// MaxRows truncates the raw input to its first MaxRows rows.
	MaxRows int
	// MaxColumns rejects tables with more columns.
	MaxColumns int
	// MaxCells rejects tables where N²·R² exceeds it when the nonlinear
	// measure is requested.
	MaxCells int64
}

// EngineOptions configures Compute.
type EngineOptions struct {
	// Measures to compute; nil means AllMeasures.
	Measures []Measure
	// Workers caps concurrent pair evaluations; 0 means GOMAXPROCS.
	Workers int
	Limits  Limits
	Logger  *zap.Logger
}

type columnPrep struct {
	constant bool
	// scaled is the column normalized to [-1, 1]; nil when constant.
	scaled []float64
	ranks  []float64
	dist   distProfile
}

// Compute builds one association matrix per requested measure. Each
// unordered pair (i ≤ j) is evaluated once and mirrored, so the result is
// exactly symmetric. Pairs are evaluated concurrently; results land in fixed
// slots so the layout never depends on completion order.
func Compute(ctx context.Context, t *Table, opt EngineOptions) (map[Measure]*Matrix, error) {
	measures, err := normalizeMeasures(opt.Measures)
	if err != nil {
		return nil, err
	}
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := validateTable(t); err != nil {
		return nil, err
	}
	n := len(t.Columns)
	rows := t.Rows()
	if err := checkLimits(opt.Limits, n, rows, measures); err != nil {
		return nil, err
	}
	want := make(map[Measure]bool, len(measures))
	for _, m := range measures {
		want[m] = true
	}

	start := time.Now()
	prep := make([]columnPrep, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(opt.Workers))
	for c := 0; c < n; c++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			x := t.Data[c]
			var p columnPrep
			if !isConstant(x) {
				p.scaled, _ = normalize(x)
			}
			p.constant = p.scaled == nil
			if want[Rank] {
				p.ranks = averageRanks(x)
			}
			if want[Nonlinear] && !p.constant {
				dist, err := newDistProfile(gctx, p.scaled)
				if err != nil {
					return err
				}
				p.dist = dist
			}
			prep[c] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Debug("column profiles ready",
		zap.Int("columns", n),
		zap.Int("rows", rows),
		zap.Duration("elapsed", time.Since(start)))

	vals := make(map[Measure][]float64, len(want))
	for m := range want {
		vals[m] = make([]float64, n*n)
	}
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers(opt.Workers))
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				pi, pj := prep[i], prep[j]
				x, y := pi.scaled, pj.scaled
				degenerate := pi.constant || pj.constant
				if s, ok := vals[Linear]; ok {
					v := math.NaN()
					if !degenerate {
						v = 1
						if i != j {
							v = pearson(x, y)
						}
					}
					s[i*n+j], s[j*n+i] = v, v
				}
				if s, ok := vals[Rank]; ok {
					v := math.NaN()
					if !degenerate {
						v = 1
						if i != j {
							v = pearson(pi.ranks, pj.ranks)
						}
					}
					s[i*n+j], s[j*n+i] = v, v
				}
				if s, ok := vals[Nonlinear]; ok {
					var v float64
					if !degenerate {
						v = 1
						if i != j {
							d, err := distanceCorrelation(gctx, x, y, pi.dist, pj.dist)
							if err != nil {
								return err
							}
							v = d
						}
					}
					s[i*n+j], s[j*n+i] = v, v
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[Measure]*Matrix, len(vals))
	for m, s := range vals {
		out[m] = newMatrix(m, t.Columns, s)
	}
	log.Debug("association matrices computed",
		zap.Int("measures", len(out)),
		zap.Int("pairs", n*(n+1)/2),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// normalizeMeasures drops repeats and returns the measures in AllMeasures
// order. nil means AllMeasures.
func normalizeMeasures(in []Measure) ([]Measure, error) {
	if len(in) == 0 {
		return AllMeasures, nil
	}
	seen := make(map[Measure]bool, len(in))
	for _, m := range in {
		switch m {
		case Linear, Rank, Nonlinear:
			seen[m] = true
		default:
			return nil, &ComputationError{Measure: m, Reason: "unknown measure"}
		}
	}
	out := make([]Measure, 0, len(seen))
	for _, m := range AllMeasures {
		if seen[m] {
			out = append(out, m)
		}
	}
	return out, nil
}

func validateTable(t *Table) error {
	if t == nil {
		return &ComputationError{Reason: "nil table"}
	}
	if len(t.Columns) == 0 {
		return &ComputationError{Reason: "table has no columns"}
	}
	if len(t.Data) != len(t.Columns) {
		return &ComputationError{Reason: fmt.Sprintf("table has %d names for %d columns", len(t.Columns), len(t.Data))}
	}
	rows := len(t.Data[0])
	for c, col := range t.Data {
		if len(col) != rows {
			return &ComputationError{Reason: fmt.Sprintf("column %q has %d rows, want %d", t.Columns[c], len(col), rows)}
		}
	}
	if rows < 2 {
		return &ComputationError{Reason: fmt.Sprintf("need at least 2 rows, got %d", rows)}
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, name := range t.Columns {
		if _, dup := seen[name]; dup {
			return &ComputationError{Reason: fmt.Sprintf("duplicate column name %q", name)}
		}
		seen[name] = struct{}{}
	}
	return nil
}

func checkLimits(l Limits, cols, rows int, measures []Measure) error {
	if l.MaxColumns > 0 && cols > l.MaxColumns {
		return &LimitError{Limit: "columns", Got: int64(cols), Max: int64(l.MaxColumns)}
	}
	if l.MaxCells <= 0 {
		return nil
	}
	for _, m := range measures {
		if m != Nonlinear {
			continue
		}
		nn := int64(cols) * int64(cols)
		rr := int64(rows) * int64(rows)
		if rr > 0 && nn > l.MaxCells/rr {
			return &LimitError{Limit: "cells (columns²·rows²)", Got: saturatingMul(nn, rr), Max: l.MaxCells}
		}
	}
	return nil
}

func saturatingMul(a, b int64) int64 {
	if a != 0 && b > math.MaxInt64/a {
		return math.MaxInt64
	}
	return a * b
}

func workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}
