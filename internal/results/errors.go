package results

import "errors"

var (
	ErrMissingMetric = errors.New("metric missing from extracted results")
	ErrRowOutOfRange = errors.New("row index out of range")
	ErrColumnCount   = errors.New("row does not match table columns")
)
