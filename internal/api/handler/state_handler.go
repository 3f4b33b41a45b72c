package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dronewatch/drone-weather/internal/core/ports"
)

// StateHandler serves read-only views of the orchestrator state.
type StateHandler struct {
	state        ports.StateService
	refreshDelay time.Duration
	now          func() time.Time
}

func NewStateHandler(state ports.StateService, refreshDelay time.Duration) *StateHandler {
	return &StateHandler{state: state, refreshDelay: refreshDelay, now: time.Now}
}

// Snapshot handles GET /v1/state.
func (h *StateHandler) Snapshot(c echo.Context) error {
	resp := stateResponse{
		Snapshot: h.state.Snapshot(),
		ServedAt: h.now().UTC(),
	}
	if h.refreshDelay > 0 {
		resp.RefreshDelay = h.refreshDelay.String()
	}
	return c.JSON(http.StatusOK, resp)
}

// Events handles GET /v1/events?limit=N. Limits are clamped by the state
// service.
func (h *StateHandler) Events(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}

	events, err := h.state.Recent(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, eventsResponse{Events: events, Count: len(events)})
}
