package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/myteacher-portal/internal/middleware"
	"github.com/noah-isme/myteacher-portal/internal/models"
)

// Routes groups every handler mounted under the API prefix.
type Routes struct {
	Auth         *AuthHandler
	Catalog      *CatalogHandler
	Booking      *BookingHandler
	Messaging    *MessagingHandler
	Availability *AvailabilityHandler
	Reviews      *ReviewHandler
	Dashboard    *DashboardHandler
	Metrics      *MetricsHandler

	// Diagnostics mounts /diagnostics when set.
	Diagnostics bool
}

// Register attaches the routes to api. The session middleware must already
// run on api so anonymous and authenticated requests share one chain.
func (r Routes) Register(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	auth.POST("/login", r.Auth.Login)
	auth.POST("/register", r.Auth.Register)
	auth.POST("/logout", r.Auth.Logout)
	auth.GET("/me", r.Auth.Me)

	api.GET("/categories", r.Catalog.Categories)
	api.GET("/categories/:id", r.Catalog.Category)
	api.GET("/courses", r.Catalog.Courses)

	private := api.Group("")
	private.Use(middleware.RequireSession())

	private.DELETE("/categories/cache", middleware.RequireRole(models.RoleTutor), r.Catalog.InvalidateCategories)

	private.GET("/courses/:id/booking-status", r.Booking.Status)
	private.GET("/booking-requests", r.Booking.List)
	private.POST("/booking-requests", middleware.RequireRole(models.RoleStudent), r.Booking.Submit)
	private.PATCH("/booking-requests/:id", r.Booking.SetStatus)

	private.GET("/conversations", r.Messaging.List)
	private.POST("/conversations", r.Messaging.Start)
	private.GET("/conversations/:id", r.Messaging.Open)
	private.POST("/conversations/:id/messages", r.Messaging.Send)
	private.POST("/conversations/:id/actions/:action", r.Messaging.Act)
	private.GET("/inbox", r.Messaging.Inbox)

	private.POST("/reviews", r.Reviews.Create)
	private.GET("/reviews/sent", r.Reviews.Sent)
	private.GET("/reviews/received", r.Reviews.Received)

	tutor := private.Group("/tutor")
	tutor.Use(middleware.RequireRole(models.RoleTutor))
	tutor.GET("/dashboard", r.Dashboard.Tutor)
	tutor.GET("/courses", r.Catalog.TutorCourses)
	tutor.POST("/courses", r.Catalog.CreateCourse)
	tutor.GET("/availability", r.Availability.Summary)
	tutor.GET("/availability/export", r.Availability.Export)
	tutor.POST("/availability/slots", r.Availability.CreateSlot)
	tutor.DELETE("/availability/slots/:id", r.Availability.DeleteSlot)
	tutor.POST("/availability/blocks", r.Availability.CreateBlock)
	tutor.DELETE("/availability/blocks/:id", r.Availability.DeleteBlock)

	if r.Diagnostics && r.Metrics != nil {
		diag := private.Group("/diagnostics")
		diag.GET("/metrics", r.Metrics.Diagnostics)
		diag.GET("/endpoints", r.Metrics.Endpoints)
	}
}
