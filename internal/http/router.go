package httpapi

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/civicmitra/backend/internal/config"
	"github.com/civicmitra/backend/internal/http/handlers"
	"github.com/civicmitra/backend/internal/http/middleware"
	"github.com/civicmitra/backend/internal/models"

	_ "github.com/civicmitra/backend/docs"
)

const (
	citizen = models.RoleCitizen
	staff   = models.RoleStaff
	worker  = models.RoleWorker
	admin   = models.RoleAdmin
)

func Router(cfg config.Config, h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(h.Logger))
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		for _, o := range strings.Split(cfg.CORSAllowed, ",") {
			if o = strings.TrimSpace(o); o != "" {
				corsCfg.AllowOrigins = append(corsCfg.AllowOrigins, o)
			}
		}
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", h.Healthz)
	r.Static("/uploads", cfg.UploadDir)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/ws", h.ServeWS)

	api := r.Group("/api")
	api.Use(middleware.Timeout(cfg.RequestTimeout))
	{
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.GET("/departments", h.ListDepartments)
		api.GET("/departments/:id", h.GetDepartment)
	}

	authed := api.Group("")
	authed.Use(middleware.Authenticate(h.Users))
	{
		authed.GET("/auth/me", h.Me)

		authed.POST("/complaints", middleware.RequireRoles(citizen), h.CreateComplaint)
		authed.GET("/complaints/my", middleware.RequireRoles(citizen), h.MyComplaints)
		authed.GET("/complaints/all", middleware.RequireRoles(staff, worker, admin), h.AllComplaints)
		authed.GET("/complaints/nearby", h.NearbyComplaints)
		authed.GET("/complaints/:id", h.GetComplaint)
		authed.PATCH("/complaints/:id/status", middleware.RequireRoles(staff, admin), h.UpdateStatus)
		authed.PATCH("/complaints/:id/assign-worker", middleware.RequireRoles(staff, admin), h.AssignWorker)
		authed.PATCH("/complaints/:id/update-assignment", middleware.RequireRoles(staff, admin), h.UpdateAssignment)
		authed.PUT("/complaints/:id/worker-update", middleware.RequireRoles(worker), h.WorkerUpdate)
		authed.DELETE("/complaints/:id", middleware.RequireRoles(admin), h.DeleteComplaint)

		authed.GET("/chats/:id", h.GetChat)
		authed.POST("/chats/:id", h.SendMessage)

		authed.GET("/notifications", h.ListNotifications)
		authed.GET("/notifications/unread-count", h.UnreadCount)
		authed.PATCH("/notifications", h.MarkAllNotificationsRead)
		authed.PATCH("/notifications/:id", h.MarkNotificationRead)

		authed.GET("/alerts/active", h.ActiveAlerts)

		authed.GET("/users/workers", middleware.RequireRoles(staff, admin), h.ListWorkers)
		authed.GET("/analytics/dashboard", middleware.RequireRoles(staff, worker, admin), h.Dashboard)
	}

	adm := authed.Group("")
	adm.Use(middleware.RequireRoles(admin))
	{
		adm.GET("/users", h.ListUsers)
		adm.POST("/users", h.CreateUser)
		adm.PATCH("/users/:id", h.UpdateUser)
		adm.DELETE("/users/:id", h.DeleteUser)

		adm.POST("/departments", h.CreateDepartment)
		adm.PATCH("/departments/:id", h.UpdateDepartment)
		adm.DELETE("/departments/:id", h.DeleteDepartment)

		adm.GET("/alerts", h.ListAlerts)
		adm.POST("/alerts", h.CreateAlert)
		adm.PATCH("/alerts/:id/deactivate", h.DeactivateAlert)
	}

	return r
}
