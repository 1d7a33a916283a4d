package models

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleEngineer UserRole = "engineer"
)

var roleTiers = map[UserRole]int{
	RoleEngineer: 1,
	RoleAdmin:    2,
}

func IsValidRole(role UserRole) bool {
	_, ok := roleTiers[role]
	return ok
}

// HasAtLeast reports whether role meets or exceeds the required tier.
func HasAtLeast(role, required UserRole) bool {
	have, ok := roleTiers[role]
	if !ok {
		return false
	}
	want, ok := roleTiers[required]
	if !ok {
		return false
	}
	return have >= want
}

type User struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	PasswordHash string   `json:"-"`
	Role         UserRole `json:"role"`
	IsActive     bool     `json:"is_active"`
}

func (u User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
