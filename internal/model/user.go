package model

// User is the cached moderation state for an external user identifier.
// Status and LastReason are a projection of the most recent Reason row for
// the uid; the reasons table remains the system of record.
type User struct {
	UID        int64   `json:"uid" db:"uid"`
	Status     Status  `json:"status" db:"status"`
	LastReason *string `json:"reason,omitempty" db:"last_reason"`
}

// Reason is one append-only audit entry for a status transition. Rows are
// never updated or deleted; "times denylisted" is a count over this log.
type Reason struct {
	ID     int64  `json:"id" db:"id"`
	UID    int64  `json:"uid" db:"uid"`
	Op     Status `json:"op" db:"op"`
	OpRole string `json:"op_role" db:"op_role"`
	Reason string `json:"reason" db:"reason"`
	OpTime int64  `json:"op_time" db:"op_time"` // milliseconds since epoch
}
