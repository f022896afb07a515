package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/aqarlink/crm/pkg/api/errors"
	"github.com/aqarlink/crm/pkg/leadscoring"
	"github.com/aqarlink/crm/pkg/models"
)

// ScoringHandler handles lead score endpoints
type ScoringHandler struct {
	service *leadscoring.Service
}

// NewScoringHandler creates a new scoring handler
func NewScoringHandler(service *leadscoring.Service) *ScoringHandler {
	return &ScoringHandler{service: service}
}

// GetScore godoc
// @Summary Get a lead's score with its per-bucket breakdown
// @Tags Lead Scoring
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} leadscoring.ScoreResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/leads/{id}/score [get]
func (h *ScoringHandler) GetScore(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Lead ID must be a valid number")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	score, err := h.service.CalculateScore(ctx, id)
	if err != nil {
		if errors.Is(err, leadscoring.ErrLeadNotFound) {
			return apierrors.NotFoundError(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(score))
}

// UpdateScore godoc
// @Summary Recalculate and persist a lead's score
// @Tags Lead Scoring
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} leadscoring.ScoreResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/leads/{id}/score [post]
func (h *ScoringHandler) UpdateScore(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return apierrors.BadRequest(c, "Lead ID must be a valid number")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	score, err := h.service.UpdateLeadScore(ctx, id)
	if err != nil {
		if errors.Is(err, leadscoring.ErrLeadNotFound) {
			return apierrors.NotFoundError(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(score))
}

// Distribution godoc
// @Summary Get the score distribution across non-archived leads
// @Tags Lead Scoring
// @Produce json
// @Success 200 {object} models.Envelope
// @Security BearerAuth
// @Router /api/v1/leads/score-distribution [get]
func (h *ScoringHandler) Distribution(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	dist, err := h.service.GetScoreDistribution(ctx)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, models.OK(dist))
}
