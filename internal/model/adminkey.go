package model

// Admin key levels form a total order; authorization is the single comparison
// "level >= required". RootLevel is reserved for key management operations.
const (
	MinLevel  = 0
	RootLevel = 127

	// KeyLength is the fixed length of every generated admin key.
	KeyLength = 32

	// RoleAdmin is the role of the bootstrap key created on first start.
	RoleAdmin = "admin"
	// RoleOwner is the role allowed to regenerate its own key.
	RoleOwner = "owner"
)

// AdminKey is a bearer token granting privileged operations, tagged with an
// authorization level and a free-text role label. Keys are created once and
// revoked; they are never updated in place.
type AdminKey struct {
	ID    int64  `json:"id" db:"id"`
	Key   string `json:"-" db:"admin_key"` // bearer credential, never expose in listings
	Level int16  `json:"lvl" db:"lvl"`
	Role  string `json:"role" db:"role"`
}
