package model

import "time"

type Role string

const (
	RoleApplicant Role = "applicant"
	RoleAdmin     Role = "admin"
	RoleOffice    Role = "office"
)

// ValidRole reports whether s is a known role accepted at registration.
// Admin accounts are seeded, not registered.
func ValidRole(s string) bool {
	return s == string(RoleApplicant) || s == string(RoleOffice)
}

type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PhoneNumber  string     `json:"phone_number"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

type UserPublic struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Role        Role   `json:"role"`
}

func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
	}
}

// Identity is the resolved actor of a request: who they are and which role
// they act in. Core operations take it as an explicit argument.
type Identity struct {
	ID   string
	Role Role
}
