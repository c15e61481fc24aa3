package models

import "time"

type Role string

const (
	RoleCitizen Role = "citizen"
	RoleStaff   Role = "staff"
	RoleWorker  Role = "worker"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleStaff, RoleWorker, RoleAdmin:
		return true
	}
	return false
}

// NeedsDepartment reports whether users of this role must belong to exactly one department.
func (r Role) NeedsDepartment() bool {
	return r == RoleStaff || r == RoleWorker
}

type Status string

const (
	StatusSubmitted  Status = "Submitted"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusClosed     Status = "Closed"
)

var Statuses = []Status{StatusSubmitted, StatusInProgress, StatusResolved, StatusClosed}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Category string

const (
	CategoryRoads        Category = "Roads"
	CategoryWater        Category = "Water Supply"
	CategoryElectricity  Category = "Electricity"
	CategorySanitation   Category = "Sanitation"
	CategoryDrainage     Category = "Drainage"
	CategoryStreetLights Category = "Street Lights"
	CategoryParks        Category = "Parks"
	CategoryPublicSafety Category = "Public Safety"
	CategoryOther        Category = "Other"
)

var Categories = []Category{
	CategoryRoads,
	CategoryWater,
	CategoryElectricity,
	CategorySanitation,
	CategoryDrainage,
	CategoryStreetLights,
	CategoryParks,
	CategoryPublicSafety,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address,omitempty"`
	Role         Role      `json:"role"`
	DepartmentID *string   `json:"department_id,omitempty"`
	Department   string    `json:"department,omitempty"`
	PasswordHash string    `json:"-"`
	Slug         string    `json:"slug"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Attachment is a content-addressed upload. Ref is the hex BLAKE3 digest of the bytes.
type Attachment struct {
	Ref         string `json:"ref"`
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

type TimelineEntry struct {
	Action      string       `json:"action"`
	Status      Status       `json:"status"`
	Notes       string       `json:"notes,omitempty"`
	ActorID     string       `json:"actor_id"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

type Complaint struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Category        Category        `json:"category"`
	DepartmentID    *string         `json:"department_id,omitempty"`
	Priority        Priority        `json:"priority"`
	Location        string          `json:"location"`
	Latitude        *float64        `json:"latitude,omitempty"`
	Longitude       *float64        `json:"longitude,omitempty"`
	Attachments     []Attachment    `json:"attachments"`
	Status          Status          `json:"status"`
	CitizenID       string          `json:"citizen_id"`
	StaffID         *string         `json:"staff_id,omitempty"`
	WorkerID        *string         `json:"worker_id,omitempty"`
	Deadline        *time.Time      `json:"deadline,omitempty"`
	Timeline        []TimelineEntry `json:"timeline"`
	AIConfidence    int             `json:"ai_confidence"`
	AIReasoning     string          `json:"ai_reasoning"`
	AIClassified    bool            `json:"ai_classified"`
	ResolutionProof []Attachment    `json:"resolution_proof,omitempty"`
	ChatID          *string         `json:"chat_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Chat struct {
	ID          string        `json:"id"`
	ComplaintID string        `json:"complaint_id"`
	CitizenID   string        `json:"citizen_id"`
	StaffID     *string       `json:"staff_id,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ChatMessage has a nil SenderID for system messages. SenderName and SenderRole
// are resolved on read and never stored.
type ChatMessage struct {
	ID         string    `json:"id"`
	ChatID     string    `json:"chat_id"`
	SenderID   *string   `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	SenderRole Role      `json:"sender_role,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

type Notification struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	ComplaintID *string   `json:"complaint_id,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

type SystemAlert struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Type        string     `json:"type"`
	Severity    string     `json:"severity"`
	Category    string     `json:"category"`
	TargetRoles []Role     `json:"target_roles"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Classification is the outcome of categorising a complaint's text.
type Classification struct {
	Category     Category `json:"category"`
	Department   *string  `json:"department"`
	Priority     Priority `json:"priority"`
	Confidence   int      `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
	AIClassified bool     `json:"ai_classified"`
}
