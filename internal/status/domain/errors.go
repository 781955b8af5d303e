package status

import "errors"

var (
	// ErrInvalidThresholds is returned when warning/error thresholds are not positive and ordered.
	ErrInvalidThresholds = errors.New("status: warning threshold must be positive and below error threshold")
	// ErrEmptySourceName is returned when a monitored source has no name.
	ErrEmptySourceName = errors.New("status: empty source name")
)
