package analysis

import "fmt"

// InvalidThresholdError indicates a threshold outside (0,1].
type InvalidThresholdError struct {
	Value float64
}

func (e *InvalidThresholdError) Error() string {
	return fmt.Sprintf("invalid threshold %v: must be in (0, 1]", e.Value)
}

// EmptyResultError indicates sanitization left fewer than 2 rows or no columns.
type EmptyResultError struct {
	Rows    int
	Columns int
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no usable data after sanitization: %d rows, %d columns (need at least 2 rows and 1 column)", e.Rows, e.Columns)
}

// ComputationError reports a broken engine precondition. It is a contract
// violation by the caller, not a data condition.
type ComputationError struct {
	Measure Measure
	Reason  string
}

func (e *ComputationError) Error() string {
	if e.Measure != "" {
		return fmt.Sprintf("computation failed (%s): %s", e.Measure, e.Reason)
	}
	return fmt.Sprintf("computation failed: %s", e.Reason)
}

// LimitError indicates a caller-imposed size limit was exceeded.
type LimitError struct {
	Limit string
	Got   int64
	Max   int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("limit exceeded: %s is %d (max %d)", e.Limit, e.Got, e.Max)
}
