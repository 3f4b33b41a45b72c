// Package weatherapi is the HTTP adapter for the upstream weather and drone
// service.
package weatherapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dronewatch/drone-weather/internal/core/domain"
	"github.com/dronewatch/drone-weather/internal/core/ports"
)

const (
	DefaultBaseURL   = "https://react-assessment-api.herokuapp.com/api"
	DefaultUserAgent = "dronewatch/1.0"
	defaultTimeout   = 10 * time.Second
	maxErrorBody     = 512
)

// Config configures a Client.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client calls the upstream service over HTTP.
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient returns a Client, filling unset fields with defaults.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL:    base,
		UserAgent:  ua,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// FindLocationByLatLng searches locations near lat,lng.
func (c *Client) FindLocationByLatLng(ctx context.Context, lat, lng float64) ([]domain.Location, error) {
	q := url.Values{}
	q.Set("lattlong", fmt.Sprintf("%s,%s", formatCoord(lat), formatCoord(lng)))

	var out []domain.Location
	if err := c.getJSON(ctx, "/weather/location/search/?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("find location: %w", err)
	}
	return out, nil
}

// FindWeatherByID fetches the weather report for a woeid.
func (c *Client) FindWeatherByID(ctx context.Context, woeid int) (*domain.Weather, error) {
	var out domain.Weather
	if err := c.getJSON(ctx, "/weather/location/"+strconv.Itoa(woeid)+"/", &out); err != nil {
		return nil, fmt.Errorf("find weather %d: %w", woeid, err)
	}
	return &out, nil
}

// FindDroneLocation fetches the current drone readings.
func (c *Client) FindDroneLocation(ctx context.Context) (*domain.DroneData, error) {
	var out domain.DroneData
	if err := c.getJSON(ctx, "/drone", &out); err != nil {
		return nil, fmt.Errorf("find drone location: %w", err)
	}
	return &out, nil
}

// getJSON performs a GET and decodes the body into out. Every failure is an
// *domain.UpstreamError; Code is set only when upstream answered.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return &domain.UpstreamError{Err: err}
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &domain.UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.UpstreamError{
			Code: resp.StatusCode,
			Err:  fmt.Errorf("GET %s: %s %s", path, resp.Status, strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.UpstreamError{Err: fmt.Errorf("decode %s: %w", path, err)}
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ ports.WeatherAPI = (*Client)(nil)
