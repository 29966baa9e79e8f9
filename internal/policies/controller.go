package policies

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Controller handles HTTP requests for cancellation policies
type Controller struct {
	service Service
}

// NewController creates a new policy controller
func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreatePolicy handles POST /api/v1/admin/policies
func (c *Controller) CreatePolicy(ctx *gin.Context) {
	var req PolicyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	policy, err := c.service.CreatePolicy(ctx.Request.Context(), req)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to create cancellation policy",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Cancellation policy created successfully",
		"data":    policy,
	})
}

// UpdatePolicy handles PUT /api/v1/admin/policies/:id
func (c *Controller) UpdatePolicy(ctx *gin.Context) {
	policyID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid policy ID"})
		return
	}

	var req PolicyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	policy, err := c.service.UpdatePolicy(ctx.Request.Context(), policyID, req)
	if err != nil {
		if errors.Is(err, ErrPolicyNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Cancellation policy not found"})
			return
		}
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to update cancellation policy",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Cancellation policy updated successfully",
		"data":    policy,
	})
}

// GetPolicy handles GET /api/v1/admin/policies/:id
func (c *Controller) GetPolicy(ctx *gin.Context) {
	policyID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid policy ID"})
		return
	}

	policy, err := c.service.GetPolicy(ctx.Request.Context(), policyID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{
			"error":   "Cancellation policy not found",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Cancellation policy retrieved successfully",
		"data":    policy,
	})
}

// ListPolicies handles GET /api/v1/admin/policies
func (c *Controller) ListPolicies(ctx *gin.Context) {
	list, err := c.service.ListPolicies(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list cancellation policies",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Cancellation policies retrieved successfully",
		"data": gin.H{
			"policies": list,
			"count":    len(list),
		},
	})
}
