// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"voyago/internal/bookings"
	"voyago/internal/eligibility"
	"voyago/internal/notifications"
	"voyago/internal/policies"
	"voyago/internal/refunds"
	"voyago/internal/requests"
	"voyago/internal/shared/config"
	"voyago/internal/shared/database"
	"voyago/internal/workflow"
	"voyago/pkg/cache"
	"voyago/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	publisher notifications.Publisher
	logger    *logger.Logger

	// Workflow wires the refund worker through the same facade as HTTP
	Workflow   *workflow.Facade
	RefundRepo refunds.Repository
	RefundSvc  refunds.Service
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, publisher notifications.Publisher, log *logger.Logger) *Router {
	return &Router{
		config:    cfg,
		db:        db,
		publisher: publisher,
		logger:    log,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		cacheService := cache.NewService(r.db.GetRedisClient())

		// Policies
		policyRepo := policies.NewRepository(r.db.GetPostgreSQL())
		policyService := policies.NewService(policyRepo, cacheService, r.config.Redis.PolicyCacheTTL)
		policyController := policies.NewController(policyService)
		policies.SetupPolicyRoutes(api, policyController)

		// Workflow: bookings, requests, refunds behind one facade
		bookingRepo := bookings.NewRepository(r.db.GetPostgreSQL())
		evaluator := eligibility.NewEvaluator(r.config.Workflow.MinReasonLength, nil)

		requestRepo := requests.NewRepository(r.db.GetPostgreSQL(), bookingRepo)
		requestService := requests.NewService(requestRepo, bookingRepo, policyService, evaluator, r.logger)

		r.RefundRepo = refunds.NewRepository(r.db.GetPostgreSQL())
		r.RefundSvc = refunds.NewService(r.RefundRepo, r.config.Refund, r.logger)

		r.Workflow = workflow.NewService(requestService, r.RefundSvc, r.publisher, r.logger)
		workflowController := workflow.NewController(r.Workflow, r.config.Workflow)
		workflow.SetupWorkflowRoutes(api, workflowController)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "voyago-cancellations",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "voyago-cancellations",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}
