// Package analysis is the correlation engine behind corrloom.
//
// A run has three stages, all pure data transforms with no I/O:
//
//  1. Sanitize coerces every cell of a RawTable to a number and drops any row
//     that holds a missing or non-numeric cell in any column.
//  2. Compute builds three symmetric N×N association matrices over the
//     sanitized columns: Pearson (Linear), Spearman (Rank) and distance
//     correlation (Nonlinear).
//  3. FilterPairs extracts the upper-triangular pairs whose |value| meets a
//     threshold, in table column order.
//
// Run wires the stages together behind a single immutable Config.
//
// # Degenerate columns
//
// A constant column has zero variance. Pearson and Spearman are undefined
// there and are reported as NaN, including on the diagonal. Distance
// correlation is reported as 0 for any pair involving a constant column.
// NaN entries never pass the filter.
//
// # Scaling
//
// Pearson and Spearman cost O(N²·R) for N columns and R rows. Distance
// correlation costs O(N²·R²) time: every column pair walks all row pairs.
// Memory stays O(N·R) because distance matrices are never materialized; the
// per-column row means are computed once and distances are recomputed on the
// fly. The row-quadratic term dominates for large tables; use Limits to bound
// it.
package analysis
