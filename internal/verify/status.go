package verify

// Status is the verdict of one verification.
type Status string

const (
	StatusVerified   Status = "verified"
	StatusHasHeader  Status = "has_header"
	StatusProbable   Status = "probable"
	StatusLikely     Status = "likely"
	StatusNameMatch  Status = "name_match"
	StatusHack       Status = "hack"
	StatusUnknown    Status = "unknown"
	StatusNoDatabase Status = "no_database"
	StatusError      Status = "error"
)

// Statuses lists every status in report order.
var Statuses = []Status{
	StatusVerified, StatusHasHeader, StatusProbable, StatusLikely,
	StatusNameMatch, StatusHack, StatusUnknown, StatusNoDatabase, StatusError,
}

// Group buckets statuses for scan summaries.
type Group string

const (
	GroupVerified  Group = "verified"
	GroupAttention Group = "attention"
	GroupFailed    Group = "failed"
)

// Group returns the summary bucket of s.
func (s Status) Group() Group {
	switch s {
	case StatusVerified, StatusHasHeader, StatusProbable, StatusLikely:
		return GroupVerified
	case StatusError:
		return GroupFailed
	default:
		return GroupAttention
	}
}

// Confidence is the percentage attached to a status.
func (s Status) Confidence() int {
	switch s {
	case StatusVerified, StatusHasHeader:
		return 100
	case StatusProbable:
		return 99
	case StatusLikely:
		return 95
	case StatusNameMatch:
		return 80
	default:
		return 0
	}
}

// Label is the short human description shown in reports.
func (s Status) Label() string {
	switch s {
	case StatusVerified:
		return "Verified"
	case StatusHasHeader:
		return "Has header"
	case StatusProbable:
		return "Probable"
	case StatusLikely:
		return "Likely"
	case StatusNameMatch:
		return "Name match"
	case StatusHack:
		return "Hack"
	case StatusNoDatabase:
		return "No database"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}
