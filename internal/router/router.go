package router

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sprs-api/internal/handler"
	"github.com/noah-isme/sprs-api/internal/middleware"
	"github.com/noah-isme/sprs-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth          *handler.AuthHandler
	Requests      *handler.RequestHandler
	Letters       *handler.LetterHandler
	Notifications *handler.NotificationHandler
	Users         *handler.UserHandler
	Dashboards    *handler.DashboardHandler
}

// Options carries the cross-cutting collaborators the routes need.
type Options struct {
	APIPrefix      string
	TokenValidator middleware.TokenValidator
	AuditWriter    middleware.AuditWriter
}

// Register mounts the versioned API on r.
func Register(r gin.IRouter, h Handlers, opts Options) {
	api := r.Group(opts.APIPrefix)
	auth := middleware.JWT(opts.TokenValidator)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)

	me := api.Group("/me", auth)
	me.GET("", h.Auth.Me)
	me.PUT("/profile", h.Auth.UpdateProfile)
	me.PUT("/password", h.Auth.ChangePassword)

	// Signed links carry their own authorization.
	api.GET("/letters/download", h.Letters.Download)

	notifications := api.Group("/notifications", auth)
	notifications.GET("", h.Notifications.List)
	notifications.GET("/unread-count", h.Notifications.UnreadCount)
	notifications.PUT("/read-all", h.Notifications.MarkAllAsRead)
	notifications.DELETE("/read", h.Notifications.PurgeRead)
	notifications.PUT("/:id/read", h.Notifications.MarkAsRead)
	notifications.DELETE("/:id", h.Notifications.Delete)

	student := api.Group("/student", auth, middleware.RequireRoles(models.RoleStudent))
	student.GET("/dashboard", h.Dashboards.Student)
	student.POST("/requests", h.Requests.Create)
	student.GET("/requests", h.Requests.ListMine)
	student.GET("/requests/:id", h.Requests.Get)
	student.PUT("/requests/:id", h.Requests.Update)
	student.POST("/requests/:id/submit", h.Requests.Submit)
	student.DELETE("/requests/:id", h.Requests.Delete)

	employee := api.Group("/employee", auth, middleware.RequireRoles(models.RoleEmployee))
	employee.GET("/dashboard", h.Dashboards.Employee)
	employee.GET("/requests/pending", h.Requests.Pending)
	employee.GET("/requests/reviewed", h.Requests.Reviewed)
	employee.GET("/requests/:id", h.Requests.Get)
	employee.POST("/requests/:id/review", h.Requests.Review)

	admin := api.Group("/admin", auth, middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/dashboard", h.Dashboards.Admin)
	admin.GET("/requests/accepted", h.Requests.Accepted)
	admin.GET("/requests/completed", h.Requests.Completed)
	admin.GET("/requests/export", middleware.Audit(opts.AuditWriter, models.AuditActionRequestExport, models.AuditResourceRequest), h.Letters.Export)
	admin.GET("/requests/:id", h.Requests.Get)
	admin.POST("/requests/:id/print", h.Requests.Finalize)
	admin.GET("/requests/:id/letter.pdf", middleware.Audit(opts.AuditWriter, models.AuditActionLetterDownload, models.AuditResourceLetter), h.Letters.PDF)
	admin.GET("/requests/:id/letter-link", middleware.Audit(opts.AuditWriter, models.AuditActionLetterLink, models.AuditResourceLetter), h.Letters.Link)
	admin.GET("/users", h.Users.List)
	admin.PUT("/users/:id/activate", h.Users.Activate)
	admin.PUT("/users/:id/deactivate", h.Users.Deactivate)
}
