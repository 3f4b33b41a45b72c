package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dronewatch/drone-weather/internal/core/domain"
	"github.com/dronewatch/drone-weather/internal/core/ports"
)

// CommandHandler turns HTTP commands into bus events.
type CommandHandler struct {
	pub ports.Publisher
}

func NewCommandHandler(pub ports.Publisher) *CommandHandler {
	return &CommandHandler{pub: pub}
}

// FetchWeather handles POST /v1/weather. It publishes FETCH_WEATHER and
// returns 202 without waiting for the lookup.
func (h *CommandHandler) FetchWeather(c echo.Context) error {
	var req fetchWeatherRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ev := domain.FetchWeather{Latitude: *req.Latitude, Longitude: *req.Longitude}
	return h.publish(c, ev, "weather lookup accepted")
}

// RefreshDrone handles POST /v1/drone/refresh.
func (h *CommandHandler) RefreshDrone(c echo.Context) error {
	return h.publish(c, domain.FetchDroneData{}, "drone refresh accepted")
}

func (h *CommandHandler) publish(c echo.Context, ev domain.Event, msg string) error {
	if err := h.pub.Publish(c.Request().Context(), ev); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{Message: msg, Type: ev.Type()})
}
