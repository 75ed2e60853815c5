package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ady24s/Cloud9/internal/auth"
	"github.com/ady24s/Cloud9/internal/optimizer"
	"github.com/ady24s/Cloud9/internal/store"
)

// RecommendationHandler serves per-resource optimizer actions
type RecommendationHandler struct {
	opt *optimizer.Optimizer
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(opt *optimizer.Optimizer) *RecommendationHandler {
	return &RecommendationHandler{opt: opt}
}

// List returns one action per currently-seen resource. A user with no
// metric history gets an empty list; the model trains lazily on first
// call.
// GET /api/v1/recommendations
func (h *RecommendationHandler) List(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	recs, err := h.opt.Recommend(c.Request().Context(), userID)
	if err != nil {
		return ErrorInternal(c, "failed to compute recommendations")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"recommendations": recs,
		"total":           len(recs),
	})
}

// Retrain discards the cached model and fits a fresh one
// POST /api/v1/recommendations/retrain
func (h *RecommendationHandler) Retrain(c echo.Context) error {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.opt.Invalidate(ctx, userID); err != nil && !errors.Is(err, store.ErrNoArtifact) {
		return ErrorInternal(c, "failed to invalidate model")
	}
	if err := h.opt.Train(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNoArtifact) {
			return ErrorBadRequest(c, "no metric history to train on")
		}
		return ErrorInternal(c, "failed to train model")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "model retrained",
	})
}
