package workflow

import (
	"errors"
	"net/http"
	"strconv"

	"voyago/internal/bookings"
	"voyago/internal/eligibility"
	"voyago/internal/policies"
	"voyago/internal/refunds"
	"voyago/internal/requests"
	"voyago/internal/shared/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Controller handles HTTP requests for the cancellation workflow
type Controller struct {
	service Service
	cfg     config.WorkflowConfig
}

// NewController creates a new workflow controller
func NewController(service Service, cfg config.WorkflowConfig) *Controller {
	return &Controller{service: service, cfg: cfg}
}

// Evaluate handles POST /api/v1/bookings/:id/cancellation/evaluate
func (c *Controller) Evaluate(ctx *gin.Context) {
	userID, ok := c.currentUserID(ctx)
	if !ok {
		return
	}
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var body CancellationDraftRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	eval, err := c.service.Evaluate(ctx.Request.Context(), userID, bookingID, body.ToDraft())
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Cancellation evaluated",
		"data":    NewEvaluationResponse(eval),
	})
}

// Submit handles POST /api/v1/bookings/:id/cancellation
func (c *Controller) Submit(ctx *gin.Context) {
	userID, ok := c.currentUserID(ctx)
	if !ok {
		return
	}
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var body CancellationDraftRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	req, eval, err := c.service.Submit(ctx.Request.Context(), userID, bookingID, body.ToDraft())
	if err != nil {
		if errors.Is(err, requests.ErrNotEligible) && eval != nil {
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Booking is not eligible for cancellation",
				"data":  NewEvaluationResponse(eval),
			})
			return
		}
		c.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Cancellation request submitted",
		"data": gin.H{
			"request":    req,
			"evaluation": NewEvaluationResponse(eval),
		},
	})
}

// GetForBooking handles GET /api/v1/bookings/:id/cancellation
func (c *Controller) GetForBooking(ctx *gin.Context) {
	userID, ok := c.currentUserID(ctx)
	if !ok {
		return
	}
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	detail, err := c.service.GetLatestForBooking(ctx.Request.Context(), userID, bookingID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": NewRequestResponse(detail)})
}

// List handles GET /api/v1/cancellations
func (c *Controller) List(ctx *gin.Context) {
	userID, ok := c.currentUserID(ctx)
	if !ok {
		return
	}

	filters := requests.ListFilters{
		IncludeRejected: ctx.Query("include_rejected") == "true",
		Search:          ctx.Query("search"),
		Page:            c.parsePage(ctx),
		Limit:           c.parseLimit(ctx),
	}
	if raw := ctx.Query("status"); raw != "" {
		status := requests.Status(raw)
		if !status.IsValid() {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}
		filters.Status = &status
	}

	results, total, totalPages, err := c.service.ListForUser(ctx.Request.Context(), userID, filters)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data": ListResponse{
			Requests: results,
			Pagination: Pagination{
				Page:       filters.Page,
				Limit:      filters.Limit,
				Total:      total,
				TotalPages: totalPages,
			},
		},
	})
}

// Get handles GET /api/v1/cancellations/:id
func (c *Controller) Get(ctx *gin.Context) {
	userID, ok := c.currentUserID(ctx)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	detail, err := c.service.GetForUser(ctx.Request.Context(), userID, requestID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": NewRequestResponse(detail)})
}

// Withdraw handles DELETE /api/v1/cancellations/:id
func (c *Controller) Withdraw(ctx *gin.Context) {
	userID, ok := c.currentUserID(ctx)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	req, err := c.service.Withdraw(ctx.Request.Context(), userID, requestID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Cancellation request withdrawn",
		"data":    req,
	})
}

// ListReviewQueue handles GET /api/v1/admin/cancellations
func (c *Controller) ListReviewQueue(ctx *gin.Context) {
	status := requests.Status(ctx.DefaultQuery("status", string(requests.StatusRequested)))
	results, total, totalPages, err := c.service.ListReviewQueue(ctx.Request.Context(), status, c.parsePage(ctx), c.parseLimit(ctx))
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data": ListResponse{
			Requests: results,
			Pagination: Pagination{
				Page:       c.parsePage(ctx),
				Limit:      c.parseLimit(ctx),
				Total:      total,
				TotalPages: totalPages,
			},
		},
	})
}

// GetDetail handles GET /api/v1/admin/cancellations/:id
func (c *Controller) GetDetail(ctx *gin.Context) {
	requestID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	detail, err := c.service.GetDetail(ctx.Request.Context(), requestID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": NewRequestResponse(detail)})
}

// BeginReview handles POST /api/v1/admin/cancellations/:id/review
func (c *Controller) BeginReview(ctx *gin.Context) {
	requestID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	req, err := c.service.BeginReview(ctx.Request.Context(), requestID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Cancellation request under review",
		"data":    req,
	})
}

// Decide handles POST /api/v1/admin/cancellations/:id/decision
func (c *Controller) Decide(ctx *gin.Context) {
	requestID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	var body DecisionRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	adminID := ctx.GetString("user_id")
	detail, err := c.service.Decide(ctx.Request.Context(), requestID, body.ToDecision(adminID))
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Decision recorded",
		"data":    NewRequestResponse(detail),
	})
}

// ReportRefundOutcome handles POST /api/v1/admin/refunds/:request_id/outcome
func (c *Controller) ReportRefundOutcome(ctx *gin.Context) {
	requestID, err := uuid.Parse(ctx.Param("request_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	var body RefundOutcomeRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	detail, err := c.service.ReportRefundOutcome(ctx.Request.Context(), requestID, body.ToOutcome())
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Refund outcome recorded",
		"data":    NewRequestResponse(detail),
	})
}

// CancelRefund handles DELETE /api/v1/admin/refunds/:request_id
func (c *Controller) CancelRefund(ctx *gin.Context) {
	requestID, err := uuid.Parse(ctx.Param("request_id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request ID"})
		return
	}

	detail, err := c.service.CancelRefund(ctx.Request.Context(), requestID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Refund cancelled and request withdrawn",
		"data":    NewRequestResponse(detail),
	})
}

// ListRefunds handles GET /api/v1/admin/refunds
func (c *Controller) ListRefunds(ctx *gin.Context) {
	status := refunds.Status(ctx.DefaultQuery("status", string(refunds.StatusFailed)))
	if !status.IsValid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
		return
	}

	results, total, totalPages, err := c.service.ListRefundsByStatus(ctx.Request.Context(), status, c.parsePage(ctx), c.parseLimit(ctx))
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data": RefundListResponse{
			Refunds: results,
			Pagination: Pagination{
				Page:       c.parsePage(ctx),
				Limit:      c.parseLimit(ctx),
				Total:      total,
				TotalPages: totalPages,
			},
		},
	})
}

// currentUserID pulls the authenticated user from the JWT middleware
func (c *Controller) currentUserID(ctx *gin.Context) (uuid.UUID, bool) {
	raw := ctx.GetString("user_id")
	userID, err := uuid.Parse(raw)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user identity"})
		return uuid.Nil, false
	}
	return userID, true
}

func (c *Controller) parsePage(ctx *gin.Context) int {
	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func (c *Controller) parseLimit(ctx *gin.Context) int {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(c.cfg.DefaultPageSize)))
	if err != nil || limit < 1 {
		return c.cfg.DefaultPageSize
	}
	if limit > c.cfg.MaxPageSize {
		return c.cfg.MaxPageSize
	}
	return limit
}

// respondError maps domain errors onto HTTP statuses
func (c *Controller) respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, requests.ErrRequestNotFound),
		errors.Is(err, refunds.ErrRefundNotFound),
		errors.Is(err, bookings.ErrBookingNotFound),
		errors.Is(err, policies.ErrPolicyNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, requests.ErrNotRequestOwner):
		ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, requests.ErrRequestAlreadyActive),
		errors.Is(err, requests.ErrInvalidTransition),
		errors.Is(err, requests.ErrConcurrentModification),
		errors.Is(err, refunds.ErrInvalidRefundTransition),
		errors.Is(err, refunds.ErrConflictingOutcome),
		errors.Is(err, refunds.ErrRefundAlreadyExists):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, requests.ErrNotEligible),
		errors.Is(err, requests.ErrEvidenceRequired),
		errors.Is(err, requests.ErrZeroRefundApprovalRequired),
		errors.Is(err, refunds.ErrRefundOverAmount),
		errors.Is(err, refunds.ErrZeroAmountCompletion),
		errors.Is(err, eligibility.ErrBookingNotCancellable),
		errors.Is(err, eligibility.ErrReasonTooShort),
		errors.Is(err, eligibility.ErrUnknownReasonCategory):
		ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
