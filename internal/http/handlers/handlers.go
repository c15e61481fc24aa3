package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicmitra/backend/internal/auth"
	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/http/middleware"
	"github.com/civicmitra/backend/internal/http/response"
	"github.com/civicmitra/backend/internal/models"
	"github.com/civicmitra/backend/internal/realtime"
	"github.com/civicmitra/backend/internal/service"
	"github.com/civicmitra/backend/internal/storage"
)

const maxAttachments = 5

type Uploader interface {
	SaveFiles(files []*multipart.FileHeader) ([]models.Attachment, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Complaints    *service.ComplaintService
	Chats         *service.ChatService
	Notifications *service.Notifier
	Users         *service.UserService
	Departments   *service.DepartmentService
	Alerts        *service.AlertService
	Analytics     *service.AnalyticsService
	Uploads       Uploader
	Hub           *realtime.Hub
	DB            Pinger
	Validator     *validator.Validate
	Logger        zerolog.Logger
}

// NewValidator reports field errors under their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.DB.Ping(ctx); err != nil {
		h.Logger.Error().Err(err).Msg("health check failed")
		c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Message: "database unavailable"})
		return
	}
	response.OK(c, gin.H{"status": "ok"})
}

// bind decodes the body by content type and validates it. On failure the error
// response is already written.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBind(req); err != nil {
		response.Error(c, errs.Validation("invalid payload: "+err.Error()))
		return false
	}
	if err := h.Validator.Struct(req); err != nil {
		response.Error(c, validationError(err))
		return false
	}
	return true
}

func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return errs.Validation(err.Error())
	}
	fields := make([]errs.FieldError, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, errs.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return errs.Validation("validation failed", fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "invalid email"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "uuid":
		return "must be a UUID"
	}
	return "failed " + fe.Tag()
}

// pathID returns the :id route parameter. Stored ids are UUIDs, so any other
// value is reported as a missing what.
func pathID(c *gin.Context, what string) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Error(c, errs.NotFound(what))
		return "", false
	}
	return id, true
}

// queryID returns an optional UUID query parameter.
func queryID(c *gin.Context, name string) (string, bool) {
	v := c.Query(name)
	if v == "" {
		return "", true
	}
	if _, err := uuid.Parse(v); err != nil {
		response.Error(c, errs.Validation("invalid "+name, errs.FieldError{Field: name, Message: "must be a UUID"}))
		return "", false
	}
	return v, true
}

func actor(c *gin.Context) auth.Actor {
	a, _ := middleware.ActorFrom(c)
	return a
}

func page(c *gin.Context) models.Page {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(models.DefaultPageSize)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return models.Page{Limit: limit, Offset: offset}.Normalized()
}

func list[T any](c *gin.Context, items []T, total int, p models.Page) {
	if items == nil {
		items = []T{}
	}
	response.List(c, items, response.Meta{Total: total, Limit: p.Limit, Offset: p.Offset})
}

// attachments stores the files of a multipart field. A non-multipart request has none.
func (h *Handler) attachments(c *gin.Context, field string) ([]models.Attachment, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errs.Validation("invalid multipart form")
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > maxAttachments {
		return nil, errs.Validation("too many attachments", errs.FieldError{Field: field, Message: "at most " + strconv.Itoa(maxAttachments) + " files"})
	}
	for _, f := range files {
		if !storage.AllowedExt(f.Filename) {
			return nil, errs.Validation("unsupported file type", errs.FieldError{Field: field, Message: f.Filename + " has an unsupported type"})
		}
	}
	if h.Uploads == nil {
		return nil, errs.Validation("uploads are disabled")
	}
	return h.Uploads.SaveFiles(files)
}

func parseTime(field, v string) (*time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errs.Validation("invalid date", errs.FieldError{Field: field, Message: "use RFC 3339 or YYYY-MM-DD"})
}
