// Package device sends commands to the dish controller.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/w1xm/dish_interface/rotator"
	"github.com/w1xm/dish_interface/telemetry"
)

const (
	MinSetpointAz = -360
	MaxSetpointAz = 360
	MinSetpointEl = 0
	MaxSetpointEl = 90

	MaxDebugLevel = 5
)

var ErrOutOfRange = errors.New("out of range")

// StatusError is returned when the device answers with an unexpected
// status code.
type StatusError struct {
	Method, Path string
	Code, Want   int
	Body         string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: got status %d, want %d", e.Method, e.Path, e.Code, e.Want)
}

// WeatherError is a failed forced weather update with a reason an operator
// can act on.
type WeatherError struct {
	Reason string
	Err    error
}

func (e *WeatherError) Error() string {
	return "weather update failed: " + e.Reason
}

func (e *WeatherError) Unwrap() error {
	return e.Err
}

// weatherHint picks an operator-facing reason out of an error body. The
// firmware reports these as "Location not configured" and "API key not
// configured".
func weatherHint(body string) (string, bool) {
	b := strings.ToLower(body)
	if !strings.Contains(b, "not configured") && !strings.Contains(b, "not set") {
		return "", false
	}
	switch {
	case strings.Contains(b, "location"):
		return "the weather location is not set; set latitude and longitude on the device", true
	case strings.Contains(b, "api key"), strings.Contains(b, "apikey"), strings.Contains(b, "api_key"):
		return "the weather API key is missing or invalid; set it on the device", true
	}
	return "", false
}

// Client talks to the device's HTTP command surface. Every call is a single
// attempt.
type Client struct {
	base string
	hc   *http.Client
}

var _ rotator.Rotator = (*Client)(nil)
var _ rotator.Calibrator = (*Client)(nil)

// NewClient returns a client for the device at baseURL. A nil hc means
// http.DefaultClient.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), hc: hc}
}

func (c *Client) do(ctx context.Context, method, path string, query, form url.Values, want int) (string, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return "", err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if resp.StatusCode != want {
		return string(data), &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Want:   want,
			Body:   string(data),
		}
	}
	return string(data), nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) error {
	_, err := c.do(ctx, http.MethodGet, path, query, nil, http.StatusOK)
	return err
}

func (c *Client) toggle(ctx context.Context, name string, on bool) error {
	if on {
		return c.get(ctx, "/"+name+"On", nil)
	}
	return c.get(ctx, "/"+name+"Off", nil)
}

// Status fetches one telemetry snapshot.
func (c *Client) Status(ctx context.Context) (*telemetry.Snapshot, error) {
	data, err := c.do(ctx, http.MethodGet, telemetry.VariablePath, nil, nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return telemetry.Decode([]byte(data))
}

// MoveAzimuth runs the azimuth motor for runTime while in calibration mode.
func (c *Client) MoveAzimuth(ctx context.Context, runTime int) error {
	return c.get(ctx, "/moveAz", url.Values{"value": {strconv.Itoa(runTime)}})
}

func (c *Client) MoveElevation(ctx context.Context, runTime int) error {
	return c.get(ctx, "/moveEl", url.Values{"value": {strconv.Itoa(runTime)}})
}

func (c *Client) CalibrateElevation(ctx context.Context) error {
	return c.get(ctx, "/calEl", nil)
}

func (c *Client) SetCalibrationMode(ctx context.Context, on bool) error {
	if on {
		return c.get(ctx, "/calon", nil)
	}
	return c.get(ctx, "/caloff", nil)
}

func (c *Client) SetSingleMotorMode(ctx context.Context, on bool) error {
	return c.toggle(ctx, "setSingleMotorMode", on)
}

func (c *Client) SetWindSafety(ctx context.Context, on bool) error {
	return c.toggle(ctx, "windSafety", on)
}

func (c *Client) SetWindBasedHome(ctx context.Context, on bool) error {
	return c.toggle(ctx, "windBasedHome", on)
}

func (c *Client) SetWeatherPolling(ctx context.Context, on bool) error {
	return c.toggle(ctx, "weather", on)
}

func (c *Client) SetStellariumPolling(ctx context.Context, on bool) error {
	return c.toggle(ctx, "stellarium", on)
}

func (c *Client) SetSerialOutputDisabled(ctx context.Context, disabled bool) error {
	return c.get(ctx, "/setSerialOutputDisabled", url.Values{"disabled": {strconv.FormatBool(disabled)}})
}

func (c *Client) SetDebugLevel(ctx context.Context, level int) error {
	if level < 0 || level > MaxDebugLevel {
		return fmt.Errorf("debug level %d: %w", level, ErrOutOfRange)
	}
	_, err := c.do(ctx, http.MethodPost, "/setDebugLevel", nil, url.Values{"debugLevel": {strconv.Itoa(level)}}, http.StatusNoContent)
	return err
}

// SetPosition moves both setpoints. The device wraps azimuth into [0, 360).
func (c *Client) SetPosition(ctx context.Context, az, el float64) error {
	if !(az >= MinSetpointAz && az <= MaxSetpointAz) {
		return fmt.Errorf("azimuth %v: %w", az, ErrOutOfRange)
	}
	if !(el >= MinSetpointEl && el <= MaxSetpointEl) {
		return fmt.Errorf("elevation %v: %w", el, ErrOutOfRange)
	}
	form := url.Values{
		"new_setpoint_az": {strconv.FormatFloat(az, 'f', 2, 64)},
		"new_setpoint_el": {strconv.FormatFloat(el, 'f', 2, 64)},
	}
	_, err := c.do(ctx, http.MethodPost, "/update_variable", nil, form, http.StatusNoContent)
	return err
}

// Stop holds the dish where it is by moving the setpoint to the current
// position.
func (c *Client) Stop(ctx context.Context) error {
	s, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("reading position: %w", err)
	}
	az, el := hold(s.AzPos, s.ElPos)
	return c.SetPosition(ctx, az, el)
}

// hold turns a reported position into a valid setpoint. Elevations just
// below the horizon read as ~359.
func hold(az, el float64) (float64, float64) {
	if el >= rotator.WrapElevation {
		el = MinSetpointEl
	} else if el < MinSetpointEl {
		el = MinSetpointEl
	} else if el > MaxSetpointEl {
		el = MaxSetpointEl
	}
	return rotator.NormalizeAzimuth(az), el
}

func (c *Client) Restart(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/restart", nil, url.Values{}, http.StatusOK)
	return err
}

func (c *Client) ResetNeedsUnwind(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/resetNeedsUnwind", nil, url.Values{}, http.StatusOK)
	return err
}

func (c *Client) ResetEEPROM(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/resetEEPROM", nil, url.Values{}, http.StatusOK)
	return err
}

// ForceWeatherUpdate asks the device to poll its weather service now. If the
// device reports a missing location or API key the error is a
// *WeatherError.
func (c *Client) ForceWeatherUpdate(ctx context.Context) error {
	body, err := c.do(ctx, http.MethodGet, "/forceWeatherUpdate", nil, nil, http.StatusOK)
	if err == nil {
		return nil
	}
	var se *StatusError
	if errors.As(err, &se) {
		if reason, ok := weatherHint(body); ok {
			return &WeatherError{Reason: reason, Err: err}
		}
	}
	return err
}
