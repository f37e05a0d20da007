package model

// Status is the moderation state of a user. The integer values are the wire
// and storage representation; this file is the only place they are mapped.
type Status int16

const (
	// StatusNone is the neutral state. It is both the "never seen" default
	// and the result of an explicit clear.
	StatusNone Status = 0
	// StatusDenylisted marks a user as blocked.
	StatusDenylisted Status = 1
	// StatusAllowlisted marks a user as exempt from moderation.
	StatusAllowlisted Status = 2
)

// StatusFromInt maps a stored ordinal back to a Status. Unknown values
// collapse to StatusNone.
func StatusFromInt(v int16) Status {
	switch Status(v) {
	case StatusDenylisted:
		return StatusDenylisted
	case StatusAllowlisted:
		return StatusAllowlisted
	default:
		return StatusNone
	}
}

// Int returns the ordinal used in the database and in API responses.
func (s Status) Int() int16 {
	return int16(s)
}

// Valid reports whether s is one of the three defined states.
func (s Status) Valid() bool {
	switch s {
	case StatusNone, StatusDenylisted, StatusAllowlisted:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusDenylisted:
		return "denylisted"
	case StatusAllowlisted:
		return "allowlisted"
	default:
		return "none"
	}
}
