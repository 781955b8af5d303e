package status

import "time"

// FreshnessStatus classifies how recently a source was updated.
type FreshnessStatus int

const (
	StatusOK FreshnessStatus = iota
	StatusWarning
	StatusError
	StatusUnknown
)

// String returns the label shown in the status table.
func (s FreshnessStatus) String() string {
	switch s {
	case StatusOK:
		return "Ok"
	case StatusWarning:
		return "Warning"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Color returns the status cell background colour.
func (s FreshnessStatus) Color() string {
	switch s {
	case StatusOK:
		return "green"
	case StatusWarning:
		return "orange"
	case StatusError:
		return "red"
	default:
		return "grey"
	}
}

// MarshalText renders the status label in JSON payloads.
func (s FreshnessStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Thresholds holds the age at which a source degrades to warning and error.
type Thresholds struct {
	Warning time.Duration
	Error   time.Duration
}

// Validate checks both thresholds are positive and warning < error.
func (t Thresholds) Validate() error {
	if t.Warning <= 0 || t.Error <= 0 || t.Warning >= t.Error {
		return ErrInvalidThresholds
	}
	return nil
}

// Evaluate classifies a last-updated timestamp against thresholds at now.
// Thresholds are inclusive and the error check wins over the warning check.
func Evaluate(lastUpdated *time.Time, warning, errorAfter time.Duration, now time.Time) FreshnessStatus {
	if lastUpdated == nil {
		return StatusUnknown
	}
	age := now.Sub(*lastUpdated)
	switch {
	case age >= errorAfter:
		return StatusError
	case age >= warning:
		return StatusWarning
	default:
		return StatusOK
	}
}
