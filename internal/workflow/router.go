package workflow

import (
	"voyago/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupWorkflowRoutes configures the customer and admin cancellation routes
func SetupWorkflowRoutes(rg *gin.RouterGroup, controller *Controller) {
	// Customer routes
	bookings := rg.Group("/bookings")
	bookings.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleUser, middleware.RoleAdmin))
	{
		bookings.POST("/:id/cancellation/evaluate", controller.Evaluate) // POST /api/v1/bookings/:id/cancellation/evaluate
		bookings.POST("/:id/cancellation", controller.Submit)            // POST /api/v1/bookings/:id/cancellation
		bookings.GET("/:id/cancellation", controller.GetForBooking)      // GET  /api/v1/bookings/:id/cancellation
	}

	cancellations := rg.Group("/cancellations")
	cancellations.Use(middleware.JWTAuth(), middleware.RequireRoles(middleware.RoleUser, middleware.RoleAdmin))
	{
		cancellations.GET("", controller.List)              // GET    /api/v1/cancellations
		cancellations.GET("/:id", controller.Get)           // GET    /api/v1/cancellations/:id
		cancellations.DELETE("/:id", controller.Withdraw)   // DELETE /api/v1/cancellations/:id
	}

	// Admin routes
	admin := rg.Group("/admin")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		admin.GET("/cancellations", controller.ListReviewQueue)                    // GET    /api/v1/admin/cancellations
		admin.GET("/cancellations/:id", controller.GetDetail)                      // GET    /api/v1/admin/cancellations/:id
		admin.POST("/cancellations/:id/review", controller.BeginReview)            // POST   /api/v1/admin/cancellations/:id/review
		admin.POST("/cancellations/:id/decision", controller.Decide)               // POST   /api/v1/admin/cancellations/:id/decision
		admin.GET("/refunds", controller.ListRefunds)                              // GET    /api/v1/admin/refunds
		admin.POST("/refunds/:request_id/outcome", controller.ReportRefundOutcome) // POST   /api/v1/admin/refunds/:request_id/outcome
		admin.DELETE("/refunds/:request_id", controller.CancelRefund)              // DELETE /api/v1/admin/refunds/:request_id
	}
}
