package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/http/response"
	"github.com/civicmitra/backend/internal/models"
	"github.com/civicmitra/backend/internal/service"
)

type CreateComplaintRequest struct {
	Title       string   `json:"title" form:"title" validate:"required,max=200"`
	Description string   `json:"description" form:"description" validate:"required,max=5000"`
	Category    string   `json:"category" form:"category"`
	Priority    string   `json:"priority" form:"priority" validate:"omitempty,oneof=Low Medium High"`
	Location    string   `json:"location" form:"location" validate:"required"`
	Latitude    *float64 `json:"latitude" form:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" form:"longitude" validate:"omitempty,min=-180,max=180"`
}

// @Summary File a complaint
// @Description Citizen files a complaint; attachments are optional image, pdf or video files
// @Tags complaints
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "title"
// @Param description formData string true "description"
// @Param location formData string true "location"
// @Param category formData string false "category"
// @Param attachments formData file false "attachments"
// @Success 201 {object} response.Body
// @Failure 400 {object} response.Body
// @Router /api/complaints [post]
func (h *Handler) CreateComplaint(c *gin.Context) {
	var req CreateComplaintRequest
	if !h.bind(c, &req) {
		return
	}
	in := service.CreateComplaintInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	if err := h.Complaints.CheckCreate(actor(c), in); err != nil {
		response.Error(c, err)
		return
	}
	files, err := h.attachments(c, "attachments")
	if err != nil {
		response.Error(c, err)
		return
	}
	in.Attachments = files
	complaint, err := h.Complaints.Create(c.Request.Context(), actor(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, complaint)
}

func complaintFilter(c *gin.Context) models.ComplaintFilter {
	return models.ComplaintFilter{
		Status:   models.Status(c.Query("status")),
		Category: models.Category(c.Query("category")),
		Priority: models.Priority(c.Query("priority")),
		Search:   c.Query("q"),
		Page:     page(c),
	}
}

// @Summary List my complaints
// @Tags complaints
// @Produce json
// @Param status query string false "status"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} response.Body
// @Router /api/complaints/my [get]
func (h *Handler) MyComplaints(c *gin.Context) {
	f := complaintFilter(c)
	items, total, err := h.Complaints.ListMine(c.Request.Context(), actor(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	list(c, items, total, f.Page)
}

// @Summary List complaints in scope
// @Description Admin sees all, staff their department, workers their assignments
// @Tags complaints
// @Produce json
// @Success 200 {object} response.Body
// @Router /api/complaints/all [get]
func (h *Handler) AllComplaints(c *gin.Context) {
	f := complaintFilter(c)
	items, total, err := h.Complaints.ListAll(c.Request.Context(), actor(c), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	list(c, items, total, f.Page)
}

func (h *Handler) NearbyComplaints(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		response.Error(c, errs.Validation("lat and lon are required numbers",
			errs.FieldError{Field: "lat", Message: "required"}, errs.FieldError{Field: "lon", Message: "required"}))
		return
	}
	radius, _ := strconv.ParseFloat(c.Query("radius_km"), 64)
	p := page(c)
	items, err := h.Complaints.Nearby(c.Request.Context(), actor(c), lat, lon, radius, p.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) GetComplaint(c *gin.Context) {
	id, ok := pathID(c, "complaint")
	if !ok {
		return
	}
	complaint, err := h.Complaints.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, complaint)
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof='Submitted' 'In Progress' 'Resolved' 'Closed'"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// @Summary Change complaint status
// @Tags complaints
// @Accept json
// @Produce json
// @Param id path string true "complaint id"
// @Param body body UpdateStatusRequest true "status"
// @Success 200 {object} response.Body
// @Failure 409 {object} response.Body
// @Router /api/complaints/{id}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "complaint")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !h.bind(c, &req) {
		return
	}
	complaint, err := h.Complaints.UpdateStatus(c.Request.Context(), actor(c), id, models.Status(req.Status), req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, complaint)
}

type AssignWorkerRequest struct {
	WorkerID string `json:"worker_id" validate:"required,uuid"`
	Deadline string `json:"deadline"`
}

// @Summary Assign a worker
// @Tags complaints
// @Accept json
// @Produce json
// @Param id path string true "complaint id"
// @Param body body AssignWorkerRequest true "assignment"
// @Success 200 {object} response.Body
// @Router /api/complaints/{id}/assign-worker [patch]
func (h *Handler) AssignWorker(c *gin.Context) {
	id, ok := pathID(c, "complaint")
	if !ok {
		return
	}
	var req AssignWorkerRequest
	if !h.bind(c, &req) {
		return
	}
	deadline, err := parseTime("deadline", req.Deadline)
	if err != nil {
		response.Error(c, err)
		return
	}
	complaint, err := h.Complaints.AssignWorker(c.Request.Context(), actor(c), id, req.WorkerID, deadline)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, complaint)
}

type UpdateAssignmentRequest struct {
	WorkerID *string `json:"worker_id" validate:"omitempty,uuid"`
	Deadline string  `json:"deadline"`
}

func (h *Handler) UpdateAssignment(c *gin.Context) {
	id, ok := pathID(c, "complaint")
	if !ok {
		return
	}
	var req UpdateAssignmentRequest
	if !h.bind(c, &req) {
		return
	}
	deadline, err := parseTime("deadline", req.Deadline)
	if err != nil {
		response.Error(c, err)
		return
	}
	complaint, err := h.Complaints.UpdateAssignment(c.Request.Context(), actor(c), id, service.UpdateAssignmentInput{
		WorkerID: req.WorkerID,
		Deadline: deadline,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, complaint)
}

type WorkerUpdateRequest struct {
	Status string `json:"status" form:"status" validate:"omitempty,oneof='In Progress' 'Resolved'"`
	Notes  string `json:"notes" form:"notes" validate:"max=2000"`
}

// @Summary Worker progress update
// @Tags complaints
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "complaint id"
// @Param status formData string false "In Progress or Resolved"
// @Param notes formData string false "notes"
// @Param attachments formData file false "proof of work"
// @Success 200 {object} response.Body
// @Failure 403 {object} response.Body
// @Router /api/complaints/{id}/worker-update [put]
func (h *Handler) WorkerUpdate(c *gin.Context) {
	id, ok := pathID(c, "complaint")
	if !ok {
		return
	}
	var req WorkerUpdateRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.Complaints.AuthorizeWorkerUpdate(c.Request.Context(), actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	files, err := h.attachments(c, "attachments")
	if err != nil {
		response.Error(c, err)
		return
	}
	complaint, err := h.Complaints.WorkerUpdate(c.Request.Context(), actor(c), id, service.WorkerUpdateInput{
		Status:      models.Status(req.Status),
		Notes:       req.Notes,
		Attachments: files,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, complaint)
}

func (h *Handler) DeleteComplaint(c *gin.Context) {
	id, ok := pathID(c, "complaint")
	if !ok {
		return
	}
	if err := h.Complaints.Delete(c.Request.Context(), actor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"id": id})
}
