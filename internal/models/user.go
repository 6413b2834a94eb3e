package models

import "strings"

// UserRole represents the closed set of roles recognised by the RBAC layer.
type UserRole string

const (
	RoleAluno     UserRole = "ALUNO"
	RoleInstrutor UserRole = "INSTRUTOR"
	RoleProfessor UserRole = "PROFESSOR"
	RoleAdmin     UserRole = "ADMIN"
	RoleTI        UserRole = "TI"
)

// staffRoles are the roles with class and attendance management rights.
var staffRoles = map[UserRole]struct{}{
	RoleInstrutor: {},
	RoleProfessor: {},
	RoleAdmin:     {},
	RoleTI:        {},
}

// IsStaff reports whether any of the given roles carries staff capability.
// This is the single authorization predicate for staff-only operations.
func IsStaff(roles []UserRole) bool {
	for _, role := range roles {
		normalized := UserRole(strings.ToUpper(string(role)))
		if _, ok := staffRoles[normalized]; ok {
			return true
		}
	}
	return false
}

// UserContact carries the minimal identity used by the notification path.
type UserContact struct {
	ID           string `db:"id" json:"id"`
	NomeCompleto string `db:"nome_completo" json:"nomeCompleto"`
	Email        string `db:"email" json:"email"`
}

// Valid reports whether the role belongs to the closed set.
func (r UserRole) Valid() bool {
	switch UserRole(strings.ToUpper(string(r))) {
	case RoleAluno, RoleInstrutor, RoleProfessor, RoleAdmin, RoleTI:
		return true
	default:
		return false
	}
}
