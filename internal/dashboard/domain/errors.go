package dashboard

import "errors"

var (
	// ErrDataUnavailable is returned when a refresh failed and nothing is cached yet.
	ErrDataUnavailable = errors.New("dashboard: data unavailable")
	// ErrStaleCache is returned when a refresh failed and the previous result is still served.
	ErrStaleCache = errors.New("dashboard: refresh failed, serving cached result")
	// ErrMalformedClick is returned for click payloads without a usable index.
	ErrMalformedClick = errors.New("dashboard: malformed click event")
	// ErrStaleSnapshot is returned when a store is older than the cached snapshot.
	ErrStaleSnapshot = errors.New("dashboard: snapshot older than cached value")
)
