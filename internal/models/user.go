package models

// Roles, from least to most privileged.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}

// RoleAtLeast reports whether role meets the required minimum.
func RoleAtLeast(role, min string) bool {
	rank := map[string]int{RoleViewer: 0, RoleEditor: 1, RoleAdmin: 2}
	r, ok1 := rank[role]
	m, ok2 := rank[min]
	return ok1 && ok2 && r >= m
}
