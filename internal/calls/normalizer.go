package calls

import "strings"

// NormalizeStatus maps a vendor status token onto the internal status enum.
//
// The vendor vocabulary is not under our control and changes between
// providers (and provider versions), so matching is case-insensitive and an
// unrecognized token passes through unchanged as an opaque status rather
// than failing. Callers that need a strict internal status should check
// the result against the known constants.
func NormalizeStatus(vendor string) CallStatus {
	switch strings.ToLower(strings.TrimSpace(vendor)) {
	case "answered", "in-progress", "in_progress", "ongoing":
		return CallStatusInProgress
	case "ended", "finished", "completed":
		return CallStatusCompleted
	case "failed", "error":
		return CallStatusFailed
	case "ringing":
		return CallStatusRinging
	case "initiated", "queued":
		return CallStatusInitiated
	default:
		return CallStatus(vendor)
	}
}
