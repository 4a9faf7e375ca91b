package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Config is the immutable input of a run besides the table itself.
type Config struct {
	Threshold float64
	Coercion  Coercion
	Limits    Limits
	Measures  []Measure
	Workers   int
	Logger    *zap.Logger
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{Threshold: 0.9}
}

// Result holds everything a run produced. Matrices and Pairs are keyed by
// measure; Measures lists them in report order.
type Result struct {
	Name      string
	Threshold float64
	Table     *Table
	Stats     SanitizeStats
	Measures  []Measure
	Matrices  map[Measure]*Matrix
	Pairs     map[Measure][]FilteredPair
	Warnings  []string
}

// Matrix returns the matrix for a measure, or nil if it was not computed.
func (r *Result) Matrix(m Measure) *Matrix { return r.Matrices[m] }

// FilteredPairs returns the filtered pairs for a measure.
func (r *Result) FilteredPairs(m Measure) []FilteredPair { return r.Pairs[m] }

// Run validates the threshold, sanitizes raw, computes the requested
// matrices and filters each one. Errors surface before any later stage runs.
func Run(ctx context.Context, raw *RawTable, cfg Config) (*Result, error) {
	if err := ValidateThreshold(cfg.Threshold); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	measures, err := normalizeMeasures(cfg.Measures)
	if err != nil {
		return nil, err
	}
	res := &Result{Threshold: cfg.Threshold, Measures: measures}
	if raw != nil {
		res.Name = raw.Name
	}

	if raw != nil && cfg.Limits.MaxRows > 0 && len(raw.Rows) > cfg.Limits.MaxRows {
		res.Warnings = append(res.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", cfg.Limits.MaxRows, len(raw.Rows)))
		trimmed := *raw
		trimmed.Rows = raw.Rows[:cfg.Limits.MaxRows]
		raw = &trimmed
	}

	tbl, stats, err := Sanitize(raw, cfg.Coercion)
	res.Stats = stats
	if err != nil {
		return nil, err
	}
	res.Table = tbl
	if stats.DroppedRows > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("dropped %d/%d rows with missing or non-numeric values", stats.DroppedRows, stats.InputRows))
	}
	log.Debug("table sanitized",
		zap.String("name", res.Name),
		zap.Int("input_rows", stats.InputRows),
		zap.Int("dropped_rows", stats.DroppedRows),
		zap.Int("columns", len(tbl.Columns)))

	mats, err := Compute(ctx, tbl, EngineOptions{
		Measures: measures,
		Workers:  cfg.Workers,
		Limits:   cfg.Limits,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}
	res.Matrices = mats
	res.Pairs = make(map[Measure][]FilteredPair, len(mats))
	for _, m := range measures {
		pairs, err := FilterPairs(mats[m], cfg.Threshold)
		if err != nil {
			return nil, err
		}
		res.Pairs[m] = pairs
		log.Debug("pairs filtered",
			zap.String("measure", string(m)),
			zap.Float64("threshold", cfg.Threshold),
			zap.Int("pairs", len(pairs)))
	}
	return res, nil
}
