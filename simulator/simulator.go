// Package simulator imitates the dish controller well enough to develop and
// test the dashboard without hardware.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/w1xm/dish_interface/telemetry"
)

const (
	// Maximum acceleration in degrees/second^2
	maxAccel = 10
	// Maximum velocity in degrees/second
	maxVel = 5
	// Proportional gain from position error to velocity, 1/s
	posGain = 2
	// Acceleration due to drag when not driving
	dragAccel = 20
	// Motor speed during a calibration run, degrees/second
	calVel = 2
	// Discrete simulation step size
	stepSize = 25 * time.Millisecond

	weatherPeriod   = 10 * time.Second
	heartbeatPeriod = 5 * time.Second
	stowGust        = 35
	maxLogBytes     = 10000
)

// Log levels, as the firmware numbers them.
const (
	levelNone = iota
	levelError
	levelWarn
	levelInfo
	levelDebug
	levelVerbose
)

var levelTags = []string{"[LOG]   ", "[ERROR] ", "[WARN]  ", "[INFO]  ", "[DEBUG] ", "[VERB]  "}

var (
	ErrWeatherLocation = errors.New("weather location not configured")
	ErrWeatherAPIKey   = errors.New("API key not configured")
)

type Config struct {
	// NoWeatherLocation and NoWeatherAPIKey make forced weather updates fail
	// the way an unconfigured device does.
	NoWeatherLocation bool
	NoWeatherAPIKey   bool
	Seed              uint64
}

// Simulator is safe for concurrent use.
type Simulator struct {
	cfg Config

	mu      sync.Mutex
	state   State
	elapsed time.Duration
	logs    string
	rng     *rand.Rand

	sinceWeather   time.Duration
	sinceHeartbeat time.Duration
}

func New(cfg Config) *Simulator {
	s := &Simulator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
	s.reset()
	s.logf(levelInfo, "Simulated controller started")
	return s
}

// reset restores factory settings. Callers hold mu or own s exclusively.
func (s *Simulator) reset() {
	s.state = State{
		ToleranceAz:  0.5,
		ToleranceEl:  0.5,
		StellariumIP: "NO IP SET",
		Weather:      true,
		WindSafety:   true,
		WindSpeed:    8,
		WindGust:     12,
		InputVoltage: 12.4,
		RSSI:         -58,
		SSID:         "discoverydish_HOTSPOT",
		IPAddr:       "192.168.4.1",
		DebugLevel:   levelInfo,
	}
	s.state.Level = telemetry.SignalLevel(s.state.RSSI)
	s.updateWeather()
}

func (s *Simulator) Run(ctx context.Context) error {
	t := time.NewTicker(stepSize)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		s.Step(stepSize)
	}
}

// State returns a copy of the current state.
func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// logf queues a line for the next /variable read if level is enabled.
func (s *Simulator) logf(level int, format string, args ...interface{}) {
	if level > s.state.DebugLevel {
		return
	}
	line := fmt.Sprintf("[%d] %s%s", s.elapsed.Milliseconds(), levelTags[level], fmt.Sprintf(format, args...))
	if s.logs != "" {
		s.logs += "\n"
	}
	s.logs += line
	if len(s.logs) > maxLogBytes {
		if i := strings.IndexByte(s.logs[len(s.logs)/2:], '\n'); i >= 0 {
			s.logs = s.logs[len(s.logs)/2+i+1:]
		}
	}
}

// Report returns the /variable object and clears the pending log lines.
func (s *Simulator) Report() (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.state.report()
	if err != nil {
		return nil, err
	}
	out["newLogMessages"] = s.logs
	s.logs = ""
	return out, nil
}

// Step advances the model by dt.
func (s *Simulator) Step(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elapsed += dt
	sec := dt.Seconds()
	st := &s.state

	limit := float64(maxVel)
	if st.SingleMotorMode {
		limit /= 2
	}
	if st.CalMode {
		st.AzVel = runServo(&st.AzRun, sec)
		st.ElVel = runServo(&st.ElRun, sec)
	} else {
		st.AzVel = axisServo(st.AzVel, st.AzSetpoint-st.AzPos, st.ToleranceAz, limit, sec)
		st.ElVel = axisServo(st.ElVel, st.ElSetpoint-st.ElPos, st.ToleranceEl, limit, sec)
	}
	st.AzPos = math.Mod(st.AzPos+st.AzVel*sec+360, 360)
	st.ElPos = math.Min(90, math.Max(0, st.ElPos+st.ElVel*sec))

	st.AzError = st.AzSetpoint - st.AzPos
	st.ElError = st.ElSetpoint - st.ElPos
	st.AzActive = math.Abs(st.AzError) > st.ToleranceAz
	st.ElActive = math.Abs(st.ElError) > st.ToleranceEl

	current := 0.1 + 0.5*(math.Abs(st.AzVel)+math.Abs(st.ElVel))/maxVel
	st.CurrentDraw = current
	st.InputVoltage = 12.4 - 0.3*current
	st.PowerDraw = st.InputVoltage * current

	st.RSSI += s.rng.IntN(3) - 1
	st.RSSI = min(-40, max(-90, st.RSSI))
	st.Level = telemetry.SignalLevel(st.RSSI)

	s.sinceWeather += dt
	if s.sinceWeather >= weatherPeriod {
		s.sinceWeather = 0
		s.updateWeather()
	}
	s.sinceHeartbeat += dt
	if s.sinceHeartbeat >= heartbeatPeriod {
		s.sinceHeartbeat = 0
		s.logf(levelDebug, "Position Az: %.2f El: %.2f Setpoint Az: %.2f El: %.2f", st.AzPos, st.ElPos, st.AzSetpoint, st.ElSetpoint)
	}
}

// axisServo returns the velocity after one step of driving out err.
func axisServo(v, err, tolerance, limit, sec float64) float64 {
	if math.Abs(err) <= tolerance {
		return drag(v, sec)
	}
	target := math.Max(-limit, math.Min(limit, err*posGain))
	return velServo(v, target, limit, sec)
}

// runServo drives at calVel while a calibration run has time left.
func runServo(run *float64, sec float64) float64 {
	if *run == 0 {
		return 0
	}
	dir := 1.0
	if *run < 0 {
		dir = -1
	}
	left := math.Abs(*run) - sec
	if left <= 0 {
		*run = 0
	} else {
		*run = dir * left
	}
	return dir * calVel
}

func velServo(v, target, limit, sec float64) float64 {
	delta := math.Abs(target - v)
	if delta > maxAccel*sec {
		delta = maxAccel * sec
	}
	if target < v {
		delta = -delta
	}
	return math.Max(-limit, math.Min(limit, v+delta))
}

func drag(v, sec float64) float64 {
	a := math.Abs(v) - dragAccel*sec
	if a < 0 {
		return 0
	}
	if v < 0 {
		return -a
	}
	return a
}

func (s *Simulator) updateWeather() {
	st := &s.state
	if !st.Weather || s.cfg.NoWeatherLocation || s.cfg.NoWeatherAPIKey {
		st.WeatherValid = false
		st.EmergencyStow = false
		return
	}
	st.WindDirection = math.Mod(st.WindDirection+s.rng.Float64()*20-10+360, 360)
	st.WindSpeed = math.Max(0, math.Min(60, st.WindSpeed+s.rng.Float64()*4-2))
	st.WindGust = st.WindSpeed + s.rng.Float64()*10
	st.WeatherValid = true
	stow := st.WindSafety && st.WindGust > stowGust
	if stow && !st.EmergencyStow {
		s.logf(levelWarn, "Emergency stow: gust %.1f km/h", st.WindGust)
	}
	st.EmergencyStow = stow
}

// SetSetpoint applies a setpoint the way the firmware's form handler does:
// an elevation outside [0, 90] is ignored and azimuth wraps into [0, 360).
func (s *Simulator) SetSetpoint(az, el float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSetpoint(az, el, true, true)
}

func (s *Simulator) setSetpoint(az, el float64, hasAz, hasEl bool) {
	if hasEl && el >= 0 && el <= 90 {
		s.state.ElSetpoint = el
	}
	if hasAz && !math.IsNaN(az) && !math.IsInf(az, 0) {
		az = math.Mod(az, 360)
		if az < 0 {
			az += 360
		}
		s.state.AzSetpoint = az
	}
	s.logf(levelInfo, "New setpoint Az: %.2f El: %.2f", s.state.AzSetpoint, s.state.ElSetpoint)
}

func (s *Simulator) SetCalMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CalMode = on
	s.state.AzRun, s.state.ElRun = 0, 0
	if on {
		s.logf(levelInfo, "CAL MODE ON")
	} else {
		s.state.AzSetpoint, s.state.ElSetpoint = s.state.AzPos, s.state.ElPos
		s.logf(levelInfo, "CAL MODE OFF")
	}
}

// CalMove runs one motor for runTime milliseconds, negative for reverse.
// It reports whether calibration mode allowed the move.
func (s *Simulator) CalMove(axis string, runTime int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CalMode {
		return false
	}
	run := float64(runTime) / 1000
	switch axis {
	case "AZ":
		s.state.AzRun = run
	case "EL":
		s.state.ElRun = run
	default:
		return false
	}
	s.logf(levelInfo, "Cal move %s for %d ms", axis, runTime)
	return true
}

// CalibrateElevation tares the elevation sensor so the current angle reads 0.
func (s *Simulator) CalibrateElevation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ElStart = s.state.ElPos
	s.state.ElPos, s.state.ElSetpoint = 0, 0
	s.logf(levelInfo, "Elevation calibrated, start angle %.2f", s.state.ElStart)
}

// Toggle sets one of the named on/off settings.
func (s *Simulator) Toggle(name string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dest *bool
	switch name {
	case "setSingleMotorMode":
		dest = &s.state.SingleMotorMode
	case "windSafety":
		dest = &s.state.WindSafety
	case "windBasedHome":
		dest = &s.state.WindBasedHome
	case "weather":
		dest = &s.state.Weather
	case "stellarium":
		dest = &s.state.Stellarium
	default:
		return fmt.Errorf("unknown setting %q", name)
	}
	*dest = on
	if name == "weather" {
		s.updateWeather()
	}
	s.logf(levelDebug, "%s %v", name, on)
	return nil
}

func (s *Simulator) SetDebugLevel(level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.DebugLevel = min(levelVerbose, max(levelNone, level))
	s.logf(levelInfo, "Debug level changed via web interface to: %d", level)
}

func (s *Simulator) SetSerialOutputDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SerialOutputDisabled = disabled
}

// Restart stops the motors and keeps settings.
func (s *Simulator) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restartLocked()
}

func (s *Simulator) restartLocked() {
	st := &s.state
	st.AzVel, st.ElVel, st.AzRun, st.ElRun = 0, 0, 0, 0
	st.AzSetpoint, st.ElSetpoint = st.AzPos, st.ElPos
	st.CalMode = false
	s.logf(levelInfo, "Restarting...")
}

func (s *Simulator) ResetNeedsUnwind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.NeedsUnwind = 0
	s.restartLocked()
}

// ResetEEPROM returns every setting to its default. The dish stays where
// it is.
func (s *Simulator) ResetEEPROM() {
	s.mu.Lock()
	defer s.mu.Unlock()
	az, el := s.state.AzPos, s.state.ElPos
	s.reset()
	s.state.AzPos, s.state.AzSetpoint = az, az
	s.state.ElPos, s.state.ElSetpoint = el, el
	s.logf(levelInfo, "EEPROM reset")
}

func (s *Simulator) ForceWeatherUpdate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.cfg.NoWeatherLocation:
		s.logf(levelError, "Weather update failed: %v", ErrWeatherLocation)
		return ErrWeatherLocation
	case s.cfg.NoWeatherAPIKey:
		s.logf(levelError, "Weather update failed: %v", ErrWeatherAPIKey)
		return ErrWeatherAPIKey
	}
	s.sinceWeather = 0
	s.updateWeather()
	s.logf(levelInfo, "Weather updated: %.0f° at %.1f km/h", s.state.WindDirection, s.state.WindSpeed)
	return nil
}

func (s *Simulator) setSerialActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.SerialActive != active {
		log.Printf("serial console active: %v", active)
	}
	s.state.SerialActive = active
}
