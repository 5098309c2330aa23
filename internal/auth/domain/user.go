package domain

import "time"

type Role int

const (
	RoleUser Role = iota
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	default:
		return "User"
	}
}

// ParseRole validates an integer against the closed role set.
func ParseRole(value int) (Role, bool) {
	switch Role(value) {
	case RoleUser, RoleAdmin:
		return Role(value), true
	default:
		return RoleUser, false
	}
}

func RoleFromName(name string) (Role, bool) {
	switch name {
	case "User":
		return RoleUser, true
	case "Admin":
		return RoleAdmin, true
	default:
		return RoleUser, false
	}
}

type User struct {
	ID                  int64
	Username            string
	Email               string
	PasswordHash        string
	IsActive            bool
	Role                Role
	CreatedAt           time.Time
	FailedLoginAttempts int
	LockoutEnd          *time.Time
}

// Locked reports whether the account is inside its lockout window.
func (u User) Locked(now time.Time) bool {
	return u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// LockoutRemaining returns how long until the lockout window elapses.
// Zero when the account is not locked.
func (u User) LockoutRemaining(now time.Time) time.Duration {
	if !u.Locked(now) {
		return 0
	}
	return u.LockoutEnd.Sub(now)
}

// Profile is the projection returned by list and self-read operations.
// It never carries the password hash.
type Profile struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role.String(),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
