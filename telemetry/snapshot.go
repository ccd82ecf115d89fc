package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Snapshot is one decoded /variable response. It is never modified after
// Decode returns.
type Snapshot struct {
	// correctedAngle_az/el
	AzPos, ElPos float64
	// setpoint_az/el
	AzSetpoint, ElSetpoint float64
	// error_az/el
	AzError, ElError float64

	AzLatched, ElLatched   bool
	AzI2CError, ElI2CError bool
	BadAngle               bool
	MagnetFault            bool
	FaultTripped           bool
	CalMode                bool
	NeedsUnwind            int

	// Level is the WiFi signal strength in bars, 0-4.
	Level int
	RSSI  int

	// WindDirection is NaN when the device has no bearing.
	WindDirection float64
	WindSpeed     float64
	WindGust      float64
	WeatherValid  bool
	EmergencyStow bool

	InputVoltage float64
	CurrentDraw  float64
	PowerDraw    float64

	NewLogMessages string
	// DebugLevel is -1 when the device did not report one.
	DebugLevel           int
	SerialOutputDisabled bool

	raw map[string]json.RawMessage
}

func (s *Snapshot) AzimuthPosition() float64 {
	return s.AzPos
}

func (s *Snapshot) ElevationPosition() float64 {
	return s.ElPos
}

// Field returns the raw display text of a field: strings unquoted, anything
// else as it appeared on the wire.
func (s *Snapshot) Field(name string) (string, bool) {
	msg, ok := s.raw[name]
	if !ok {
		return "", false
	}
	var str string
	if err := json.Unmarshal(msg, &str); err == nil {
		return str, true
	}
	return string(msg), true
}

// Fields returns every field name in the response.
func (s *Snapshot) Fields() []string {
	names := make([]string, 0, len(s.raw))
	for k := range s.raw {
		names = append(names, k)
	}
	return names
}

// number accepts 12.5 or "12.5"; the firmware sends most numbers as strings.
type number struct {
	v   float64
	set bool
}

var unavailable = map[string]bool{"": true, "n/a": true, "na": true, "nan": true, "--": true, "null": true}

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		n.v, n.set = math.NaN(), true
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if unavailable[strings.ToLower(s)] {
			n.v, n.set = math.NaN(), true
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parsing number %s: %w", b, err)
	}
	n.v, n.set = f, true
	return nil
}

func (n number) or(def float64) float64 {
	if !n.set || math.IsNaN(n.v) {
		return def
	}
	return n.v
}

func (n number) intOr(def int) int {
	if !n.set || math.IsNaN(n.v) {
		return def
	}
	return int(n.v)
}

// boolean accepts true, 1, "1", "true", "ON", "True".
type boolean bool

func (f *boolean) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case nil:
		*f = false
	case bool:
		*f = boolean(v)
	case float64:
		*f = v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "on", "yes":
			*f = true
		case "0", "false", "off", "no", "":
			*f = false
		default:
			return fmt.Errorf("parsing boolean %q", v)
		}
	default:
		return fmt.Errorf("parsing boolean %s", b)
	}
	return nil
}

type wire struct {
	AzPos      number `json:"correctedAngle_az"`
	ElPos      number `json:"correctedAngle_el"`
	AzSetpoint number `json:"setpoint_az"`
	ElSetpoint number `json:"setpoint_el"`
	AzError    number `json:"error_az"`
	ElError    number `json:"error_el"`

	AzLatched    boolean `json:"isAzMotorLatched"`
	ElLatched    boolean `json:"isElMotorLatched"`
	AzI2CError   boolean `json:"i2cErrorFlag_az"`
	ElI2CError   boolean `json:"i2cErrorFlag_el"`
	BadAngle     boolean `json:"badAngleFlag"`
	MagnetFault  boolean `json:"magnetFault"`
	FaultTripped boolean `json:"faultTripped"`
	CalMode      boolean `json:"calMode"`
	NeedsUnwind  number  `json:"needs_unwind"`

	Level number `json:"level"`
	RSSI  number `json:"rssi"`

	WindDirection number  `json:"currentWindDirection"`
	WindSpeed     number  `json:"currentWindSpeed"`
	WindGust      number  `json:"currentWindGust"`
	WeatherValid  boolean `json:"weatherDataValid"`
	EmergencyStow boolean `json:"emergencyStowActive"`

	InputVoltage number `json:"inputVoltage"`
	CurrentDraw  number `json:"currentDraw"`
	PowerDraw    number `json:"rotatorPowerDraw"`

	NewLogMessages       string  `json:"newLogMessages"`
	DebugLevel           number  `json:"currentDebugLevel"`
	SerialOutputDisabled boolean `json:"serialOutputDisabled"`
}

var ErrMissingField = errors.New("missing field")

// Decode parses a /variable response. Position and setpoint are required;
// everything else defaults when absent.
func Decode(data []byte) (*Snapshot, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for name, n := range map[string]number{
		"correctedAngle_az": w.AzPos,
		"correctedAngle_el": w.ElPos,
		"setpoint_az":       w.AzSetpoint,
		"setpoint_el":       w.ElSetpoint,
	} {
		if !n.set || math.IsNaN(n.v) {
			return nil, fmt.Errorf("%w %s", ErrMissingField, name)
		}
	}
	level := w.Level.intOr(0)
	if level < 0 {
		level = 0
	} else if level > 4 {
		level = 4
	}
	return &Snapshot{
		AzPos:                w.AzPos.v,
		ElPos:                w.ElPos.v,
		AzSetpoint:           w.AzSetpoint.v,
		ElSetpoint:           w.ElSetpoint.v,
		AzError:              w.AzError.or(0),
		ElError:              w.ElError.or(0),
		AzLatched:            bool(w.AzLatched),
		ElLatched:            bool(w.ElLatched),
		AzI2CError:           bool(w.AzI2CError),
		ElI2CError:           bool(w.ElI2CError),
		BadAngle:             bool(w.BadAngle),
		MagnetFault:          bool(w.MagnetFault),
		FaultTripped:         bool(w.FaultTripped),
		CalMode:              bool(w.CalMode),
		NeedsUnwind:          w.NeedsUnwind.intOr(0),
		Level:                level,
		RSSI:                 w.RSSI.intOr(0),
		WindDirection:        w.WindDirection.or(math.NaN()),
		WindSpeed:            w.WindSpeed.or(0),
		WindGust:             w.WindGust.or(0),
		WeatherValid:         bool(w.WeatherValid),
		EmergencyStow:        bool(w.EmergencyStow),
		InputVoltage:         w.InputVoltage.or(0),
		CurrentDraw:          w.CurrentDraw.or(0),
		PowerDraw:            w.PowerDraw.or(0),
		NewLogMessages:       w.NewLogMessages,
		DebugLevel:           w.DebugLevel.intOr(-1),
		SerialOutputDisabled: bool(w.SerialOutputDisabled),
		raw:                  raw,
	}, nil
}
