package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicmitra/backend/internal/auth"
	"github.com/civicmitra/backend/internal/models"
	"github.com/civicmitra/backend/internal/storetest"
)

type published struct {
	Channel string
	Event   string
	Payload any
}

type recordingHub struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (h *recordingHub) Publish(_ context.Context, channel, event string, payload any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.events = append(h.events, published{Channel: channel, Event: event, Payload: payload})
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) ProduceComplaintEvent(_ string, event string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

type fixture struct {
	store      *storetest.Store
	hub        *recordingHub
	sink       *recordingSink
	notifier   *Notifier
	chats      *ChatService
	complaints *ComplaintService

	roads   models.Department
	citizen auth.Actor
	other   auth.Actor
	staff   auth.Actor
	worker  auth.Actor
	worker2 auth.Actor
	admin   auth.Actor
}

var fixedNow = time.Date(2024, 11, 5, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func ptr[T any](v T) *T { return &v }

func newFixture() *fixture {
	store := storetest.New()
	hub := &recordingHub{}
	sink := &recordingSink{}
	logger := zerolog.Nop()

	f := &fixture{store: store, hub: hub, sink: sink}
	f.roads = models.Department{ID: "dept-roads", Name: "Public Works", Slug: "public-works"}
	store.PutDepartment(f.roads)
	store.PutDepartment(models.Department{ID: "dept-water", Name: "Water Supply", Slug: "water-supply"})

	addUser := func(id, name string, role models.Role, dept *string) auth.Actor {
		u := models.User{ID: id, Name: name, Email: id + "@example.com", Role: role, DepartmentID: dept, Slug: id, IsActive: true}
		store.PutUser(u)
		return auth.ActorFromUser(&u)
	}
	f.citizen = addUser("citizen-1", "Asha", models.RoleCitizen, nil)
	f.other = addUser("citizen-2", "Ravi", models.RoleCitizen, nil)
	f.staff = addUser("staff-1", "Meera", models.RoleStaff, ptr(f.roads.ID))
	f.worker = addUser("worker-1", "Kiran", models.RoleWorker, ptr(f.roads.ID))
	f.worker2 = addUser("worker-2", "Sunil", models.RoleWorker, ptr(f.roads.ID))
	f.admin = addUser("admin-1", "Admin", models.RoleAdmin, nil)

	f.notifier = &Notifier{Store: store, Hub: hub, Logger: logger, Now: clock}
	f.chats = &ChatService{Chats: store, Complaints: store, Hub: hub, Logger: logger, Now: clock}
	f.complaints = &ComplaintService{
		Complaints:  store,
		Users:       store,
		Departments: store,
		Chats:       f.chats,
		Notifier:    f.notifier,
		Events:      sink,
		Logger:      logger,
		Now:         clock,
	}
	return f
}

// pothole files the standard roads complaint.
func (f *fixture) pothole(ctx context.Context) *models.Complaint {
	c, err := f.complaints.Create(ctx, f.citizen, CreateComplaintInput{
		Title:       "Pothole",
		Description: "Large pothole on Main St",
		Category:    "Roads",
		Location:    "Main St",
	})
	if err != nil {
		panic(err)
	}
	return c
}
