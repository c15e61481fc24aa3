package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicmitra/backend/internal/ai"
	"github.com/civicmitra/backend/internal/auth"
	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/geocode"
	"github.com/civicmitra/backend/internal/kafka"
	"github.com/civicmitra/backend/internal/models"
	"github.com/civicmitra/backend/internal/utils"
)

const (
	ActionSubmitted         = "Complaint Submitted"
	ActionStatusUpdate      = "Status Update"
	ActionWorkerAssigned    = "Worker Assigned"
	ActionAssignmentUpdated = "Assignment Updated"
	ActionWorkerUpdate      = "Update"
	ActionResolved          = "Resolved"
)

const (
	nearbyCandidates    = 500
	defaultNearbyRadius = 5.0
	maxNearbyRadius     = 50.0
	geocodeTimeout      = 3 * time.Second
	maxTitleLen         = 200
	maxDescriptionLen   = 5000
)

// ComplaintService runs the complaint lifecycle: creation with classification,
// status changes, worker assignment and worker updates. Every write appends to
// the complaint timeline in the same statement that changes the record.
type ComplaintService struct {
	Complaints  ComplaintStore
	Users       UserStore
	Departments DepartmentStore
	Chats       *ChatService
	Notifier    *Notifier
	Classifier  ai.Classifier
	Geocoder    geocode.Geocoder
	Events      EventSink
	Logger      zerolog.Logger
	Now         func() time.Time
}

type CreateComplaintInput struct {
	Title       string
	Description string
	Category    string
	Priority    string
	Location    string
	Latitude    *float64
	Longitude   *float64
	Attachments []models.Attachment
}

func (in CreateComplaintInput) validate() error {
	var fields []errs.FieldError
	if strings.TrimSpace(in.Title) == "" {
		fields = append(fields, errs.FieldError{Field: "title", Message: "required"})
	} else if len(in.Title) > maxTitleLen {
		fields = append(fields, errs.FieldError{Field: "title", Message: fmt.Sprintf("at most %d characters", maxTitleLen)})
	}
	if strings.TrimSpace(in.Description) == "" {
		fields = append(fields, errs.FieldError{Field: "description", Message: "required"})
	} else if len(in.Description) > maxDescriptionLen {
		fields = append(fields, errs.FieldError{Field: "description", Message: fmt.Sprintf("at most %d characters", maxDescriptionLen)})
	}
	if strings.TrimSpace(in.Location) == "" {
		fields = append(fields, errs.FieldError{Field: "location", Message: "required"})
	}
	if in.Category != "" && !models.Category(in.Category).Valid() {
		fields = append(fields, errs.FieldError{Field: "category", Message: "unknown category"})
	}
	if in.Priority != "" && !models.Priority(in.Priority).Valid() {
		fields = append(fields, errs.FieldError{Field: "priority", Message: "must be Low, Medium or High"})
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		fields = append(fields, errs.FieldError{Field: "latitude", Message: "latitude and longitude go together"})
	}
	if len(fields) > 0 {
		return errs.Validation("invalid complaint", fields...)
	}
	return nil
}

// CheckCreate runs the checks Create applies before anything is stored, so
// callers can refuse a request before saving its attachments.
func (s *ComplaintService) CheckCreate(actor auth.Actor, in CreateComplaintInput) error {
	if actor.Role != models.RoleCitizen {
		return errs.Forbidden("only citizens can file complaints")
	}
	return in.validate()
}

// Create files a complaint for a citizen. Staff auto-assignment, chat creation,
// geocoding and event publication are secondary: their failures are logged and
// the stored complaint is returned regardless.
func (s *ComplaintService) Create(ctx context.Context, actor auth.Actor, in CreateComplaintInput) (*models.Complaint, error) {
	if err := s.CheckCreate(actor, in); err != nil {
		return nil, err
	}

	cls := s.classify(ctx, in)
	category := cls.Category
	if !category.Valid() {
		category = models.Category(in.Category)
		if !category.Valid() {
			category = models.CategoryOther
		}
	}
	priority := cls.Priority
	if !priority.Valid() {
		priority = models.Priority(in.Priority)
		if !priority.Valid() {
			priority = models.PriorityMedium
		}
	}

	ts := now(s.Now)
	c := &models.Complaint{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Category:     category,
		DepartmentID: s.resolveDepartment(ctx, cls.Department),
		Priority:     priority,
		Location:     strings.TrimSpace(in.Location),
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		Attachments:  in.Attachments,
		Status:       models.StatusSubmitted,
		CitizenID:    actor.ID,
		Timeline: []models.TimelineEntry{{
			Action:      ActionSubmitted,
			Status:      models.StatusSubmitted,
			Notes:       "Complaint submitted by citizen",
			ActorID:     actor.ID,
			Attachments: in.Attachments,
			Timestamp:   ts,
		}},
		AIConfidence: cls.Confidence,
		AIReasoning:  cls.Reasoning,
		AIClassified: cls.AIClassified,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if c.Attachments == nil {
		c.Attachments = []models.Attachment{}
	}
	if err := s.Complaints.CreateComplaint(ctx, c); err != nil {
		return nil, err
	}

	attempt(s.Logger, "assign department staff", func() error { return s.assignDepartmentStaff(ctx, c) })
	if s.Chats != nil {
		attempt(s.Logger, "create chat", func() error {
			chat, err := s.Chats.ensureChat(ctx, c)
			if err == nil {
				c.ChatID = &chat.ID
			}
			return err
		})
	}
	if s.Geocoder != nil && geocode.ShouldGeocode(*c) {
		attempt(s.Logger, "geocode location", func() error { return s.geocode(ctx, c) })
	}

	s.emit(c.ID, kafka.EventComplaintCreated, map[string]any{
		"category": c.Category, "priority": c.Priority, "department_id": c.DepartmentID,
	})
	return c, nil
}

func (s *ComplaintService) classify(ctx context.Context, in CreateComplaintInput) models.Classification {
	input := ai.Input{Title: in.Title, Description: in.Description, UserCategory: in.Category}
	if s.Classifier == nil {
		return ai.Fallback(input)
	}
	cls, err := s.Classifier.Classify(ctx, input)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("classification failed, using keyword fallback")
		return ai.Fallback(input)
	}
	return cls
}

func (s *ComplaintService) resolveDepartment(ctx context.Context, name *string) *string {
	if name == nil || strings.TrimSpace(*name) == "" || s.Departments == nil {
		return nil
	}
	d, err := s.Departments.GetDepartmentByName(ctx, *name)
	if err != nil {
		if !errs.Is(err, errs.KindNotFound) {
			s.Logger.Warn().Err(err).Str("department", *name).Msg("department lookup failed")
		}
		return nil
	}
	return &d.ID
}

// assignDepartmentStaff attaches one staff member of the complaint's department.
// The pick is stable for a complaint id.
func (s *ComplaintService) assignDepartmentStaff(ctx context.Context, c *models.Complaint) error {
	if c.DepartmentID == nil || s.Users == nil {
		return nil
	}
	staff, err := s.Users.FindDepartmentStaff(ctx, *c.DepartmentID)
	if err != nil {
		return err
	}
	if len(staff) == 0 {
		return nil
	}
	sort.Slice(staff, func(i, j int) bool { return staff[i].ID < staff[j].ID })
	picked := staff[utils.StableIndex(c.ID, len(staff))]

	if _, err := s.Complaints.ApplyComplaintChange(ctx, c.ID, models.ComplaintChange{StaffID: &picked.ID}); err != nil {
		return err
	}
	c.StaffID = &picked.ID
	s.Notifier.notifyQuietly(ctx, picked.ID, "New complaint in your department",
		fmt.Sprintf("Complaint %q (%s, %s priority) was filed.", c.Title, c.Category, c.Priority), &c.ID)
	return nil
}

func (s *ComplaintService) geocode(ctx context.Context, c *models.Complaint) error {
	gctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()
	res, err := s.Geocoder.Geocode(gctx, geocode.BuildGeocodeQuery(c.Location))
	if err != nil {
		return err
	}
	lat, lon := res.Lat, res.Lon
	if _, err := s.Complaints.ApplyComplaintChange(ctx, c.ID, models.ComplaintChange{Latitude: &lat, Longitude: &lon}); err != nil {
		return err
	}
	c.Latitude, c.Longitude = &lat, &lon
	return nil
}

func (s *ComplaintService) emit(complaintID, event string, payload map[string]any) {
	if s.Events != nil {
		s.Events.ProduceComplaintEvent(complaintID, event, payload)
	}
}

func (s *ComplaintService) managed(ctx context.Context, actor auth.Actor, id string) (*models.Complaint, error) {
	c, err := s.Complaints.GetComplaint(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanManageComplaint(actor, c) {
		return nil, errs.Forbidden("not allowed to manage this complaint")
	}
	return c, nil
}

// commit applies ch only while c is still in the status the caller checked. When
// another request moved it in between, the change is refused against the status
// found now.
func (s *ComplaintService) commit(ctx context.Context, c *models.Complaint, target models.Status, ch models.ComplaintChange) (*models.Complaint, error) {
	expect := c.Status
	ch.ExpectStatus = &expect
	updated, err := s.Complaints.ApplyComplaintChange(ctx, c.ID, ch)
	if !errors.Is(err, models.ErrStatusChanged) {
		return updated, err
	}
	current, gerr := s.Complaints.GetComplaint(ctx, c.ID)
	if gerr != nil {
		return nil, gerr
	}
	return nil, errs.Transition(string(current.Status), string(target))
}

// UpdateStatus moves a complaint along the transition table and tells the citizen.
func (s *ComplaintService) UpdateStatus(ctx context.Context, actor auth.Actor, id string, target models.Status, notes string) (*models.Complaint, error) {
	if !target.Valid() {
		return nil, errs.Validation("invalid status", errs.FieldError{Field: "status", Message: "unknown status"})
	}
	c, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(c.Status, target); err != nil {
		return nil, err
	}

	if notes = strings.TrimSpace(notes); notes == "" {
		notes = fmt.Sprintf("Status changed from %s to %s", c.Status, target)
	}
	ch := models.ComplaintChange{
		Status: &target,
		Append: &models.TimelineEntry{Action: ActionStatusUpdate, Status: target, Notes: notes, ActorID: actor.ID, Timestamp: now(s.Now)},
	}
	if c.StaffID == nil && actor.Role == models.RoleStaff {
		ch.StaffID = &actor.ID
	}
	updated, err := s.commit(ctx, c, target, ch)
	if err != nil {
		return nil, err
	}

	s.Notifier.notifyQuietly(ctx, updated.CitizenID, "Complaint status updated",
		fmt.Sprintf("Your complaint %q is now %s.", updated.Title, target), &updated.ID)
	s.emit(updated.ID, kafka.EventComplaintStatus, map[string]any{"from": c.Status, "to": target, "actor_id": actor.ID})
	return updated, nil
}

// assignableWorker loads workerID and checks it can take work from actor.
func (s *ComplaintService) assignableWorker(ctx context.Context, actor auth.Actor, workerID string) (*models.User, error) {
	w, err := s.Users.GetUser(ctx, workerID)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, errs.Validation("invalid worker", errs.FieldError{Field: "worker_id", Message: "worker not found"})
		}
		return nil, err
	}
	if w.Role != models.RoleWorker || !w.IsActive {
		return nil, errs.Validation("invalid worker", errs.FieldError{Field: "worker_id", Message: "not an active worker"})
	}
	dept := w.DepartmentID
	if actor.Role == models.RoleStaff && (dept == nil || *dept != actor.DepartmentID) {
		return nil, errs.Validation("invalid worker", errs.FieldError{Field: "worker_id", Message: "worker is not in your department"})
	}
	return w, nil
}

func deadlineText(d *time.Time) string {
	if d == nil {
		return "no deadline"
	}
	return "deadline " + d.UTC().Format("2006-01-02")
}

// AssignWorker sets the worker and deadline. A Submitted complaint moves to
// In Progress; any other status is left as is.
func (s *ComplaintService) AssignWorker(ctx context.Context, actor auth.Actor, id, workerID string, deadline *time.Time) (*models.Complaint, error) {
	if strings.TrimSpace(workerID) == "" {
		return nil, errs.Validation("worker is required", errs.FieldError{Field: "worker_id", Message: "required"})
	}
	c, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if c.Status == models.StatusClosed {
		return nil, errs.Conflict("complaint is closed")
	}
	w, err := s.assignableWorker(ctx, actor, workerID)
	if err != nil {
		return nil, err
	}

	status := c.Status
	if status == models.StatusSubmitted {
		status = models.StatusInProgress
	}
	ch := models.ComplaintChange{
		WorkerID: &w.ID,
		Deadline: deadline,
		Append: &models.TimelineEntry{
			Action:    ActionWorkerAssigned,
			Status:    status,
			Notes:     fmt.Sprintf("Assigned to %s, %s", w.Name, deadlineText(deadline)),
			ActorID:   actor.ID,
			Timestamp: now(s.Now),
		},
	}
	if status != c.Status {
		ch.Status = &status
	}
	if c.StaffID == nil && actor.Role == models.RoleStaff {
		ch.StaffID = &actor.ID
	}
	updated, err := s.commit(ctx, c, status, ch)
	if err != nil {
		return nil, err
	}

	s.Notifier.notifyQuietly(ctx, w.ID, "New task assigned",
		fmt.Sprintf("You were assigned complaint %q, %s.", updated.Title, deadlineText(deadline)), &updated.ID)
	s.Notifier.notifyQuietly(ctx, updated.CitizenID, "Worker assigned",
		fmt.Sprintf("%s is now working on your complaint %q.", w.Name, updated.Title), &updated.ID)
	s.emit(updated.ID, kafka.EventComplaintAssigned, map[string]any{"worker_id": w.ID, "deadline": deadline, "actor_id": actor.ID})
	return updated, nil
}

type UpdateAssignmentInput struct {
	WorkerID *string
	Deadline *time.Time
}

// UpdateAssignment changes the worker and/or deadline. All changes of one call
// share a timeline entry; each affected party gets a notification.
func (s *ComplaintService) UpdateAssignment(ctx context.Context, actor auth.Actor, id string, in UpdateAssignmentInput) (*models.Complaint, error) {
	if in.WorkerID == nil && in.Deadline == nil {
		return nil, errs.Validation("nothing to update", errs.FieldError{Field: "worker_id", Message: "worker_id or deadline is required"})
	}
	c, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if c.Status == models.StatusClosed {
		return nil, errs.Conflict("complaint is closed")
	}

	var (
		ch        models.ComplaintChange
		notes     []string
		newWorker *models.User
		oldWorker = c.WorkerID
	)
	if in.WorkerID != nil && (oldWorker == nil || *oldWorker != *in.WorkerID) {
		newWorker, err = s.assignableWorker(ctx, actor, *in.WorkerID)
		if err != nil {
			return nil, err
		}
		ch.WorkerID = &newWorker.ID
		notes = append(notes, "Worker changed to "+newWorker.Name)
	}
	deadlineChanged := in.Deadline != nil && (c.Deadline == nil || !c.Deadline.Equal(*in.Deadline))
	if deadlineChanged {
		ch.Deadline = in.Deadline
		notes = append(notes, "Deadline set to "+in.Deadline.UTC().Format("2006-01-02"))
	}
	if len(notes) == 0 {
		return c, nil
	}

	status := c.Status
	if newWorker != nil && status == models.StatusSubmitted {
		status = models.StatusInProgress
		ch.Status = &status
	}
	ch.Append = &models.TimelineEntry{
		Action:    ActionAssignmentUpdated,
		Status:    status,
		Notes:     strings.Join(notes, "; "),
		ActorID:   actor.ID,
		Timestamp: now(s.Now),
	}
	updated, err := s.commit(ctx, c, status, ch)
	if err != nil {
		return nil, err
	}

	if newWorker != nil {
		if oldWorker != nil {
			s.Notifier.notifyQuietly(ctx, *oldWorker, "Task reassigned",
				fmt.Sprintf("Complaint %q was reassigned to another worker.", updated.Title), &updated.ID)
		}
		s.Notifier.notifyQuietly(ctx, newWorker.ID, "New task assigned",
			fmt.Sprintf("You were assigned complaint %q, %s.", updated.Title, deadlineText(updated.Deadline)), &updated.ID)
	} else if deadlineChanged && updated.WorkerID != nil {
		s.Notifier.notifyQuietly(ctx, *updated.WorkerID, "Deadline updated",
			fmt.Sprintf("Complaint %q now has %s.", updated.Title, deadlineText(updated.Deadline)), &updated.ID)
	}
	s.Notifier.notifyQuietly(ctx, updated.CitizenID, "Assignment updated",
		fmt.Sprintf("Your complaint %q was updated: %s.", updated.Title, strings.Join(notes, "; ")), &updated.ID)
	s.emit(updated.ID, kafka.EventComplaintReassign, map[string]any{"changes": notes, "actor_id": actor.ID})
	return updated, nil
}

type WorkerUpdateInput struct {
	Status      models.Status
	Notes       string
	Attachments []models.Attachment
}

// AuthorizeWorkerUpdate fails unless actor is the worker assigned to complaint id.
func (s *ComplaintService) AuthorizeWorkerUpdate(ctx context.Context, actor auth.Actor, id string) error {
	_, err := s.assigned(ctx, actor, id)
	return err
}

func (s *ComplaintService) assigned(ctx context.Context, actor auth.Actor, id string) (*models.Complaint, error) {
	c, err := s.Complaints.GetComplaint(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.IsAssignedWorker(actor, c) {
		return nil, errs.Forbidden("only the assigned worker can update this complaint")
	}
	return c, nil
}

// WorkerUpdate is reserved for the worker currently assigned to the complaint.
func (s *ComplaintService) WorkerUpdate(ctx context.Context, actor auth.Actor, id string, in WorkerUpdateInput) (*models.Complaint, error) {
	c, err := s.assigned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	notes := strings.TrimSpace(in.Notes)
	if in.Status == "" && notes == "" && len(in.Attachments) == 0 {
		return nil, errs.Validation("nothing to update", errs.FieldError{Field: "notes", Message: "notes, status or attachments required"})
	}

	status := c.Status
	var ch models.ComplaintChange
	if in.Status != "" {
		if !in.Status.Valid() || !workerMaySet(in.Status) {
			return nil, errs.Validation("invalid status", errs.FieldError{Field: "status", Message: "must be In Progress or Resolved"})
		}
		if err := checkTransition(c.Status, in.Status); err != nil {
			return nil, err
		}
		status = in.Status
		ch.Status = &status
	}

	action := ActionWorkerUpdate
	if in.Status == models.StatusResolved {
		action = ActionResolved
		ch.AddResolutionProof = in.Attachments
	}
	if notes == "" {
		notes = action
	}
	ch.Append = &models.TimelineEntry{
		Action:      action,
		Status:      status,
		Notes:       notes,
		ActorID:     actor.ID,
		Attachments: in.Attachments,
		Timestamp:   now(s.Now),
	}
	updated, err := s.commit(ctx, c, status, ch)
	if err != nil {
		return nil, err
	}

	title := "Update on your complaint"
	if action == ActionResolved {
		title = "Complaint resolved"
	}
	s.Notifier.notifyQuietly(ctx, updated.CitizenID, title,
		fmt.Sprintf("%s on %q: %s", actor.Name, updated.Title, notes), &updated.ID)
	s.emit(updated.ID, kafka.EventComplaintWorkerUpd, map[string]any{"status": status, "worker_id": actor.ID})
	return updated, nil
}

func (s *ComplaintService) Get(ctx context.Context, actor auth.Actor, id string) (*models.Complaint, error) {
	c, err := s.Complaints.GetComplaint(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanAccessComplaint(actor, c) {
		return nil, errs.Forbidden("not allowed to view this complaint")
	}
	return c, nil
}

func (s *ComplaintService) ListMine(ctx context.Context, actor auth.Actor, f models.ComplaintFilter) ([]models.Complaint, int, error) {
	if actor.Role != models.RoleCitizen {
		return nil, 0, errs.Forbidden("only citizens have their own complaints")
	}
	f.CitizenID = actor.ID
	f.DepartmentID, f.WorkerID = "", ""
	return s.Complaints.ListComplaints(ctx, f)
}

// scope narrows a filter to what the actor may list.
func scope(actor auth.Actor, f models.ComplaintFilter) (models.ComplaintFilter, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleStaff:
		if actor.DepartmentID == "" {
			return f, errs.Forbidden("staff without a department")
		}
		f.DepartmentID = actor.DepartmentID
	case models.RoleWorker:
		f.WorkerID = actor.ID
	default:
		return f, errs.Forbidden("not allowed to list complaints")
	}
	return f, nil
}

func (s *ComplaintService) ListAll(ctx context.Context, actor auth.Actor, f models.ComplaintFilter) ([]models.Complaint, int, error) {
	f, err := scope(actor, f)
	if err != nil {
		return nil, 0, err
	}
	return s.Complaints.ListComplaints(ctx, f)
}

type NearbyComplaint struct {
	models.Complaint
	DistanceKm float64 `json:"distance_km"`
}

// Nearby lists complaints the actor can see within radiusKm of a point, closest first.
func (s *ComplaintService) Nearby(ctx context.Context, actor auth.Actor, lat, lon, radiusKm float64, limit int) ([]NearbyComplaint, error) {
	origin := utils.Point{Lat: lat, Lon: lon}
	if !origin.Valid() {
		return nil, errs.Validation("invalid coordinates", errs.FieldError{Field: "lat", Message: "lat must be in [-90,90] and lon in [-180,180]"})
	}
	if radiusKm <= 0 {
		radiusKm = defaultNearbyRadius
	}
	if radiusKm > maxNearbyRadius {
		radiusKm = maxNearbyRadius
	}
	limit = models.Page{Limit: limit}.Normalized().Limit

	candidates, err := s.Complaints.ListGeocodedComplaints(ctx, nearbyCandidates)
	if err != nil {
		return nil, err
	}
	out := make([]NearbyComplaint, 0)
	for i := range candidates {
		c := candidates[i]
		if c.Latitude == nil || c.Longitude == nil || !auth.CanAccessComplaint(actor, &c) {
			continue
		}
		d := utils.DistanceKm(origin, utils.Point{Lat: *c.Latitude, Lon: *c.Longitude})
		if d <= radiusKm {
			out = append(out, NearbyComplaint{Complaint: c, DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ComplaintService) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.IsAdmin() {
		return errs.Forbidden("only admins can delete complaints")
	}
	return s.Complaints.DeleteComplaint(ctx, id)
}
