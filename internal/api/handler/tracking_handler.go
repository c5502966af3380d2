package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/habittracker/habit-api/internal/core/ports"
)

// TrackingHandler handles habit completion tracking and statistics.
type TrackingHandler struct {
	service ports.TrackingService
}

func NewTrackingHandler(service ports.TrackingService) *TrackingHandler {
	return &TrackingHandler{service: service}
}

// Track handles POST /v1/habits/:id/track. Tracking the same date twice is
// not an error: the existing record comes back with a 200.
//
// @Summary      Mark a habit completed for a date
// @Tags         tracking
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true   "Habit id"
// @Param        body  body      trackHabitRequest  false  "Completion details (defaults to today)"
// @Success      200   {object}  trackResponse  "Date was already tracked"
// @Success      201   {object}  trackResponse
// @Failure      401   {object}  map[string]any
// @Failure      404   {object}  map[string]any
// @Failure      409   {object}  map[string]any
// @Failure      422   {object}  map[string]any
// @Router       /v1/habits/{id}/track [post]
func (h *TrackingHandler) Track(c echo.Context) error {
	user, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req trackHabitRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.service.Track(c.Request().Context(), ports.TrackHabitInput{
		OwnerID:       user.ID,
		HabitID:       c.Param("id"),
		CompletedDate: req.CompletedDate,
		Count:         req.Count,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}

	if result.AlreadyTracked {
		return c.JSON(http.StatusOK, trackResponse{
			Message: "Habit already tracked for this date",
			Record:  toTrackingRecordResponse(result.Record),
		})
	}

	return c.JSON(http.StatusCreated, trackResponse{
		Message: "Habit tracked successfully",
		Record:  toTrackingRecordResponse(result.Record),
	})
}

// Stats handles GET /v1/habits/:id/stats.
//
// @Summary      Get completion statistics for a habit
// @Tags         tracking
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string  true   "Habit id"
// @Param        period  query     string  false  "week, month or year (default month)"
// @Success      200     {object}  statsResponse
// @Failure      401     {object}  map[string]any
// @Failure      404     {object}  map[string]any
// @Failure      422     {object}  map[string]any
// @Router       /v1/habits/{id}/stats [get]
func (h *TrackingHandler) Stats(c echo.Context) error {
	user, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	stats, err := h.service.Stats(c.Request().Context(), ports.StatsInput{
		OwnerID: user.ID,
		HabitID: c.Param("id"),
		Period:  c.QueryParam("period"),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toStatsResponse(stats))
}
