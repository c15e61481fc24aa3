package models

import (
	"errors"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Page struct {
	Limit  int
	Offset int
}

// Normalized clamps the page to [1, MaxPageSize] with DefaultPageSize for unset limits.
func (p Page) Normalized() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type ComplaintFilter struct {
	CitizenID    string
	DepartmentID string
	WorkerID     string
	Status       Status
	Category     Category
	Priority     Priority
	Search       string
	Page         Page
}

// ErrStatusChanged is returned when a ComplaintChange with ExpectStatus finds the
// complaint in another status.
var ErrStatusChanged = errors.New("complaint status changed")

// ComplaintChange is applied in a single statement: every non-nil field is set and
// Append, when present, is added to the end of the timeline. With ExpectStatus
// set the change applies only while the complaint is still in that status.
type ComplaintChange struct {
	ExpectStatus       *Status
	Status             *Status
	StaffID            *string
	WorkerID           *string
	Deadline           *time.Time
	ChatID             *string
	Latitude           *float64
	Longitude          *float64
	AddResolutionProof []Attachment
	Append             *TimelineEntry
}

type UserFilter struct {
	Role         Role
	DepartmentID string
	Active       *bool
	Search       string
	Page         Page
}

type CountByKey struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type ComplaintStats struct {
	Total        int          `json:"total"`
	Overdue      int          `json:"overdue"`
	ByStatus     []CountByKey `json:"by_status"`
	ByCategory   []CountByKey `json:"by_category"`
	ByPriority   []CountByKey `json:"by_priority"`
	ByDepartment []CountByKey `json:"by_department"`
}
