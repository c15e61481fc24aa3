package auth

import (
	"github.com/civicmitra/backend/internal/models"
)

// Actor is the authenticated caller. DepartmentID is set only for staff and workers.
type Actor struct {
	ID           string
	Name         string
	Role         models.Role
	DepartmentID string
}

func ActorFromUser(u *models.User) Actor {
	a := Actor{ID: u.ID, Name: u.Name, Role: u.Role}
	if u.Role.NeedsDepartment() && u.DepartmentID != nil {
		a.DepartmentID = *u.DepartmentID
	}
	return a
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// StaffOf reports whether a is staff of the given department.
func (a Actor) StaffOf(departmentID *string) bool {
	return a.Role == models.RoleStaff && departmentID != nil && a.DepartmentID != "" && *departmentID == a.DepartmentID
}

// CanAccessComplaint is the read/chat predicate: owning citizen, staff of the complaint's
// department, the assigned worker, or an admin.
func CanAccessComplaint(a Actor, c *models.Complaint) bool {
	if c == nil || a.ID == "" {
		return false
	}
	switch a.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCitizen:
		return c.CitizenID == a.ID
	case models.RoleStaff:
		return a.StaffOf(c.DepartmentID)
	case models.RoleWorker:
		return c.WorkerID != nil && *c.WorkerID == a.ID
	}
	return false
}

// CanManageComplaint covers status changes and worker assignment.
func CanManageComplaint(a Actor, c *models.Complaint) bool {
	if c == nil {
		return false
	}
	return a.IsAdmin() || a.StaffOf(c.DepartmentID)
}

// IsAssignedWorker reports whether a is the worker currently assigned to c.
func IsAssignedWorker(a Actor, c *models.Complaint) bool {
	return c != nil && a.Role == models.RoleWorker && c.WorkerID != nil && *c.WorkerID == a.ID
}
