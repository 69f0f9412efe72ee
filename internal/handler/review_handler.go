package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/feedback-review-api/internal/dto"
	"github.com/noah-isme/feedback-review-api/internal/models"
	appErrors "github.com/noah-isme/feedback-review-api/pkg/errors"
	"github.com/noah-isme/feedback-review-api/pkg/response"
)

// ReviewHandler exposes the review workflow as JSON.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler builds the JSON handler.
func NewReviewHandler(service reviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// Pending godoc
// @Summary List pending reviews
// @Tags Reviews
// @Produce json
// @Param email query string true "Reviewer email"
// @Success 200 {object} response.Envelope
// @Router /reviews/pending [get]
func (h *ReviewHandler) Pending(c *gin.Context) {
	items, err := h.service.ListPending(c.Request.Context(), c.Query("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Next godoc
// @Summary Next pending review
// @Description Returns the first pending item after the cursor, wrapping to the first item when none follows it.
// @Tags Reviews
// @Produce json
// @Param email query string true "Reviewer email"
// @Param after query int false "Record id cursor"
// @Success 200 {object} response.Envelope
// @Router /reviews/next [get]
func (h *ReviewHandler) Next(c *gin.Context) {
	var after *int64
	if raw := c.Query("after"); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "after must be an integer"))
			return
		}
		after = &value
	}

	item, err := h.service.NextPending(c.Request.Context(), c.Query("email"), after)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Item godoc
// @Summary Get a feedback record for review
// @Tags Reviews
// @Produce json
// @Param id path int true "Record id"
// @Param email query string true "Reviewer email"
// @Param slot query string true "Avaliador_1 or Avaliador_2"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reviews/items/{id} [get]
func (h *ReviewHandler) Item(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id must be an integer"))
		return
	}
	item, err := h.service.ReviewItem(c.Request.Context(), c.Query("email"), id, c.Query("slot"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Submit godoc
// @Summary Submit a review answer
// @Tags Reviews
// @Accept json
// @Produce json
// @Param payload body dto.SubmitRequest true "Answer"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reviews/submit [post]
func (h *ReviewHandler) Submit(c *gin.Context) {
	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}

	next, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	email := models.NormalizeEmail(req.Email)
	if next == nil {
		response.JSON(c, http.StatusOK, dto.NextPendingResponse{Done: true, Location: DoneLocation(email)})
		return
	}
	response.JSON(c, http.StatusOK, dto.NextPendingResponse{
		ID:       next.Record.ID,
		Slot:     next.Slot.String(),
		Location: ReviewLocation(email, *next),
	})
}

// ProblemTags godoc
// @Summary List the problem tag vocabulary
// @Tags Reviews
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reviews/problem-tags [get]
func (h *ReviewHandler) ProblemTags(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.ProblemTags())
}
