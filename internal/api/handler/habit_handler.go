package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/habittracker/habit-api/internal/core/domain"
	"github.com/habittracker/habit-api/internal/core/ports"
)

// HabitHandler handles CRUD operations on habits. Every operation is scoped
// to the authenticated principal.
type HabitHandler struct {
	service ports.HabitService
}

func NewHabitHandler(service ports.HabitService) *HabitHandler {
	return &HabitHandler{service: service}
}

// Create handles POST /v1/habits.
//
// @Summary      Create a new habit
// @Tags         habits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createHabitRequest  true  "Habit details"
// @Success      201   {object}  habitResponse
// @Failure      401   {object}  map[string]any
// @Failure      403   {object}  map[string]any
// @Failure      422   {object}  map[string]any
// @Router       /v1/habits [post]
func (h *HabitHandler) Create(c echo.Context) error {
	user, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req createHabitRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	habit, err := h.service.Create(c.Request().Context(), ports.CreateHabitInput{
		OwnerID:     user.ID,
		Name:        req.Name,
		Description: req.Description,
		Frequency:   req.Frequency,
		TargetCount: req.TargetCount,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toHabitResponse(habit))
}

// List handles GET /v1/habits.
//
// @Summary      List the caller's habits
// @Tags         habits
// @Produce      json
// @Security     BearerAuth
// @Param        active_only  query     bool  false  "Only active habits (default true)"
// @Success      200          {object}  listHabitsResponse
// @Failure      401          {object}  map[string]any
// @Router       /v1/habits [get]
func (h *HabitHandler) List(c echo.Context) error {
	user, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	activeOnly := true
	if raw := c.QueryParam("active_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.NewValidationError("active_only", "active_only must be true or false", "boolean")
		}
		activeOnly = parsed
	}

	habits, err := h.service.List(c.Request().Context(), user.ID, activeOnly)
	if err != nil {
		return err
	}

	resp := listHabitsResponse{
		Habits: make([]habitResponse, 0, len(habits)),
		Total:  len(habits),
	}
	for _, habit := range habits {
		resp.Habits = append(resp.Habits, toHabitResponse(habit))
	}
	return c.JSON(http.StatusOK, resp)
}

// Get handles GET /v1/habits/:id.
//
// @Summary      Get a habit by id
// @Tags         habits
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Habit id"
// @Success      200  {object}  habitResponse
// @Failure      401  {object}  map[string]any
// @Failure      404  {object}  map[string]any
// @Router       /v1/habits/{id} [get]
func (h *HabitHandler) Get(c echo.Context) error {
	user, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	habit, err := h.service.Get(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toHabitResponse(habit))
}

// Update handles PUT /v1/habits/:id. Only the fields present in the body
// change; is_active=false deactivates without deleting history.
//
// @Summary      Update a habit
// @Tags         habits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Habit id"
// @Param        body  body      updateHabitRequest  true  "Fields to change"
// @Success      200   {object}  updateHabitResponse
// @Failure      401   {object}  map[string]any
// @Failure      404   {object}  map[string]any
// @Failure      422   {object}  map[string]any
// @Router       /v1/habits/{id} [put]
func (h *HabitHandler) Update(c echo.Context) error {
	user, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req updateHabitRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	habit, err := h.service.Update(c.Request().Context(), user.ID, c.Param("id"), ports.UpdateHabitInput{
		Name:        req.Name,
		Description: req.Description,
		Frequency:   req.Frequency,
		TargetCount: req.TargetCount,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updateHabitResponse{
		Message: "Habit updated successfully",
		Habit:   toHabitResponse(habit),
	})
}

// Delete handles DELETE /v1/habits/:id.
//
// @Summary      Delete a habit and its tracking history
// @Tags         habits
// @Security     BearerAuth
// @Param        id  path  string  true  "Habit id"
// @Success      204
// @Failure      401  {object}  map[string]any
// @Failure      404  {object}  map[string]any
// @Router       /v1/habits/{id} [delete]
func (h *HabitHandler) Delete(c echo.Context) error {
	user, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
