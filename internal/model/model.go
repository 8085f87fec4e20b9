package model

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
)

// ValidRole reports whether role is one of the roles this service accepts.
func ValidRole(role Role) bool {
	return role == RoleAdmin || role == RoleTeacher
}

// User is provisioned externally; this service only looks it up.
type User struct {
	ID   int64
	Role Role
}

// RefreshToken is the persisted half of a refresh credential. The signed
// token value itself is stored verbatim and must stay unique.
type RefreshToken struct {
	ID        string
	UserID    int64
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// StatusLogEntry is a delivery-attempt record owned by the notification
// delivery subsystem. Read-only from this service's perspective.
type StatusLogEntry struct {
	NotificationID int64
	Type           string
	Recipient      string
	MessageSID     string
	Status         string
	DateUpdated    time.Time
	ErrorMessage   *string
}
