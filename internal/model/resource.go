package model

// ResourceSample is a single resource-timing observation reported by the
// browser performance API.
type ResourceSample struct {
	// Name is the absolute URL of the fetched resource.
	Name string `json:"name"`

	// Duration is the fetch time in milliseconds. Never negative.
	Duration float64 `json:"duration"`

	// InitiatorType is the browser's initiator category
	// (script, img, css, link, fetch, ...). "unknown" when not reported.
	InitiatorType string `json:"initiatorType"`
}

// UnknownInitiator is used when the browser reports no initiator type.
const UnknownInitiator = "unknown"

// NewResourceSample returns a sample with negative durations clamped to zero
// and an empty initiator replaced by UnknownInitiator.
func NewResourceSample(name string, duration float64, initiator string) ResourceSample {
	if duration < 0 {
		duration = 0
	}
	if initiator == "" {
		initiator = UnknownInitiator
	}
	return ResourceSample{Name: name, Duration: duration, InitiatorType: initiator}
}
