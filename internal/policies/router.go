package policies

import (
	"voyago/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupPolicyRoutes configures all policy management routes (Admin only)
func SetupPolicyRoutes(rg *gin.RouterGroup, controller *Controller) {
	admin := rg.Group("/admin/policies")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		admin.POST("", controller.CreatePolicy)    // POST /api/v1/admin/policies
		admin.GET("", controller.ListPolicies)     // GET  /api/v1/admin/policies
		admin.GET("/:id", controller.GetPolicy)    // GET  /api/v1/admin/policies/:id
		admin.PUT("/:id", controller.UpdatePolicy) // PUT  /api/v1/admin/policies/:id
	}
}
