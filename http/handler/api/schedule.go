package api

import (
	"errors"
	"net/http"

	"github.com/craftwatch/core/bridge"
	"github.com/craftwatch/core/http/api"
	"github.com/craftwatch/core/http/handler/util"
	"github.com/craftwatch/core/sched"

	"github.com/labstack/echo/v4"
)

// The ScheduleHandler type provides handlers for managing scheduled commands
type ScheduleHandler struct {
	bridge *bridge.Bridge
}

// NewSchedule returns a new Schedule type. You have to provide a valid bridge instance.
func NewSchedule(bridge *bridge.Bridge) *ScheduleHandler {
	return &ScheduleHandler{
		bridge: bridge,
	}
}

// GetAll returns all scheduled commands
func (h *ScheduleHandler) GetAll(c echo.Context) error {
	jobs := h.bridge.Jobs()

	schedules := make([]api.Schedule, len(jobs))
	for i, job := range jobs {
		schedules[i].Unmarshal(job)
	}

	return c.JSON(http.StatusOK, schedules)
}

// Get returns the scheduled command with the given id
func (h *ScheduleHandler) Get(c echo.Context) error {
	id := util.PathParam(c, "id")

	job, err := h.bridge.Job(id)
	if err != nil {
		return api.Err(http.StatusNotFound, "", "unknown schedule id %s", id)
	}

	schedule := api.Schedule{}
	schedule.Unmarshal(job)

	return c.JSON(http.StatusOK, schedule)
}

// Add adds a new scheduled command
func (h *ScheduleHandler) Add(c echo.Context) error {
	schedule := api.Schedule{
		Enabled: true,
	}

	if err := util.ShouldBindJSON(c, &schedule); err != nil {
		return api.Err(http.StatusBadRequest, "", "invalid JSON: %s", err.Error())
	}

	job, err := h.bridge.AddJob(schedule.Marshal())
	if err != nil {
		return api.Err(http.StatusBadRequest, "", "invalid schedule: %s", err.Error())
	}

	schedule.Unmarshal(job)

	return c.JSON(http.StatusOK, schedule)
}

// Update replaces the scheduled command with the given id
func (h *ScheduleHandler) Update(c echo.Context) error {
	id := util.PathParam(c, "id")

	schedule := api.Schedule{}

	if err := util.ShouldBindJSON(c, &schedule); err != nil {
		return api.Err(http.StatusBadRequest, "", "invalid JSON: %s", err.Error())
	}

	job, err := h.bridge.UpdateJob(id, schedule.Marshal())
	if err != nil {
		if errors.Is(err, sched.ErrUnknownJob) {
			return api.Err(http.StatusNotFound, "", "unknown schedule id %s", id)
		}

		return api.Err(http.StatusBadRequest, "", "invalid schedule: %s", err.Error())
	}

	schedule.Unmarshal(job)

	return c.JSON(http.StatusOK, schedule)
}

// Delete removes the scheduled command with the given id
func (h *ScheduleHandler) Delete(c echo.Context) error {
	id := util.PathParam(c, "id")

	if err := h.bridge.DeleteJob(id); err != nil {
		return api.Err(http.StatusNotFound, "", "unknown schedule id %s", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// Enable enables or disables the scheduled command with the given id
func (h *ScheduleHandler) Enable(c echo.Context) error {
	id := util.PathParam(c, "id")

	enable := api.SetEnable{}

	if err := util.ShouldBindJSON(c, &enable); err != nil {
		return api.Err(http.StatusBadRequest, "", "invalid JSON: %s", err.Error())
	}

	job, err := h.bridge.EnableJob(id, enable.Enable)
	if err != nil {
		return api.Err(http.StatusNotFound, "", "unknown schedule id %s", id)
	}

	schedule := api.Schedule{}
	schedule.Unmarshal(job)

	return c.JSON(http.StatusOK, schedule)
}
