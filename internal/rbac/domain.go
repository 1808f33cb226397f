package rbac

import (
	"fmt"
	"time"
)

// RoleID identifies a role. Higher values carry more privilege; delegation
// rules compare ids numerically.
type RoleID int

// Built-in roles.
const (
	RoleOrdinary             RoleID = 1000
	RoleDepartmentManager    RoleID = 6000
	RoleInstitutionalManager RoleID = 7000
	RoleBusinessManager      RoleID = 8000
	RoleAdministrator        RoleID = 9000
)

// Outranks reports whether r is strictly above other.
func (r RoleID) Outranks(other RoleID) bool {
	return r > other
}

// AtLeast reports whether r is equal to or above other.
func (r RoleID) AtLeast(other RoleID) bool {
	return r >= other
}

func (r RoleID) String() string {
	switch r {
	case RoleOrdinary:
		return "ordinary"
	case RoleDepartmentManager:
		return "department-manager"
	case RoleInstitutionalManager:
		return "institutional-manager"
	case RoleBusinessManager:
		return "business-manager"
	case RoleAdministrator:
		return "administrator"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Role represents a high-level permission grouping.
type Role struct {
	ID          RoleID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64
	Name        string
	Description string
}

// User is the authorization view of an account. RoleGrantedBy is set while
// the current role is on loan from another user.
type User struct {
	ID            int64
	Username      string
	Name          string
	RoleID        RoleID
	DepartmentID  *int64
	RoleGrantedBy *int64
}

// Delegated reports whether the user's role was delegated to them.
func (u User) Delegated() bool {
	return u.RoleGrantedBy != nil
}

// SameDepartment reports whether both users belong to the same department.
// Users without a department share it with nobody.
func (u User) SameDepartment(other User) bool {
	return u.DepartmentID != nil && other.DepartmentID != nil && *u.DepartmentID == *other.DepartmentID
}
