package credstore

import "fmt"

// Time unit spans in seconds for FormatRemaining.
const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	secondsPerDay    = 86400
)

// Info is a read-only projection of a token's expiry state, intended for
// operator-facing display (the debug-token command). Building one never
// touches the cache slot.
type Info struct {
	Valid            bool   `json:"valid"`
	Error            string `json:"error,omitempty"`
	Exp              int64  `json:"exp_timestamp"`
	Now              int64  `json:"current_timestamp"`
	RemainingSeconds int64  `json:"expires_in_seconds"`
	Expired          bool   `json:"is_expired"`
	HumanRemaining   string `json:"expires_in_human,omitempty"`
}

// Inspect decodes the token with the same logic as IsExpired and returns a
// diagnostic report. Invalid tokens yield Valid=false with the failure
// kind; the resolution path never sees this distinction.
func (s *Store) Inspect(token string) Info {
	claims, err := parseClaims(token)
	if err != nil {
		return Info{Valid: false, Error: err.Error()}
	}

	now := s.now().Unix()
	remaining := claims.Exp - now

	return Info{
		Valid:            true,
		Exp:              claims.Exp,
		Now:              now,
		RemainingSeconds: remaining,
		Expired:          remaining <= 0,
		HumanRemaining:   FormatRemaining(remaining),
	}
}

// FormatRemaining renders a remaining-lifetime value using the largest
// applicable unit plus one secondary unit when the remainder is non-zero,
// e.g. "3 hours 12 minutes". Non-positive values render as "EXPIRED".
func FormatRemaining(seconds int64) string {
	if seconds <= 0 {
		return "EXPIRED"
	}

	switch {
	case seconds < secondsPerMinute:
		return fmt.Sprintf("%d seconds", seconds)
	case seconds < secondsPerHour:
		return twoUnit(seconds/secondsPerMinute, "minutes", seconds%secondsPerMinute, "seconds")
	case seconds < secondsPerDay:
		return twoUnit(seconds/secondsPerHour, "hours", (seconds%secondsPerHour)/secondsPerMinute, "minutes")
	default:
		return twoUnit(seconds/secondsPerDay, "days", (seconds%secondsPerDay)/secondsPerHour, "hours")
	}
}

// twoUnit renders "N major" or "N major M minor" when the minor remainder
// is non-zero. Unit labels are always plural, matching the format the
// receiving operators already expect.
func twoUnit(major int64, majorUnit string, minor int64, minorUnit string) string {
	if minor == 0 {
		return fmt.Sprintf("%d %s", major, majorUnit)
	}

	return fmt.Sprintf("%d %s %d %s", major, majorUnit, minor, minorUnit)
}
