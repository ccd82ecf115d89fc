package telemetry

import (
	"fmt"
	"strings"
	"sync"
)

// DisplayFields are the /variable fields shown verbatim on the dashboard,
// in display order.
var DisplayFields = []string{
	"correctedAngle_az", "correctedAngle_el",
	"setpoint_az", "setpoint_el",
	"setPointState_az", "setPointState_el",
	"error_az", "error_el",
	"el_startAngle", "needs_unwind", "calMode",
	"i2cErrorFlag_az", "i2cErrorFlag_el",
	"badAngleFlag", "magnetFault", "faultTripped",
	"isAzMotorLatched", "isElMotorLatched",
	"singleMotorModeText",
	"toleranceAz", "toleranceEl",
	"inputVoltage", "currentDraw", "rotatorPowerDraw",
	"currentWindSpeed", "currentWindGust", "currentWindDirection",
	"weatherDataValid", "emergencyStowActive",
	"http_port", "rotctl_port",
	"maxDualMotorAzSpeed", "maxDualMotorElSpeed",
	"maxSingleMotorAzSpeed", "maxSingleMotorElSpeed",
	"wifissid", "ip_addr", "bssid", "wifi_channel", "rssi",
	"loginUser", "passwordStatus", "serialActive",
	"rotctl_client_ip",
	"stellariumPollingOn", "stellariumServerIPText", "stellariumServerPortText", "stellariumConnActive",
	"P_el", "P_az", "MIN_EL_SPEED", "MIN_AZ_SPEED",
	"MIN_AZ_TOLERANCE", "MIN_EL_TOLERANCE", "MAX_FAULT_POWER",
}

// FieldFunc receives the raw text of one field.
type FieldFunc func(value string)

type slot struct {
	name string
	fn   FieldFunc
}

// Display maps field names to display callbacks, so decoding and dispatch
// need no rendering surface. Fields absent from a snapshot leave their slot
// untouched.
type Display struct {
	mu    sync.Mutex
	slots []slot
}

func NewDisplay() *Display {
	return &Display{}
}

// Register adds a callback for a field. A field may have several.
func (d *Display) Register(name string, fn FieldFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slots = append(d.slots, slot{name, fn})
}

// RegisterAll registers fn for every name.
func (d *Display) RegisterAll(names []string, fn func(name, value string)) {
	for _, name := range names {
		name := name
		d.Register(name, func(v string) { fn(name, v) })
	}
}

// Update calls each registered callback, in registration order, with the
// snapshot's value.
func (d *Display) Update(s *Snapshot) {
	d.mu.Lock()
	slots := d.slots
	d.mu.Unlock()
	for _, sl := range slots {
		if v, ok := s.Field(sl.name); ok {
			sl.fn(v)
		}
	}
}

var debugLevelNames = []string{"NONE", "ERROR", "WARN", "INFO", "DEBUG", "VERBOSE"}

// DebugLevelName formats a device debug level as "3 (INFO)".
func DebugLevelName(level int) string {
	if level < 0 || level >= len(debugLevelNames) {
		return fmt.Sprint(level)
	}
	return fmt.Sprintf("%d (%s)", level, debugLevelNames[level])
}

// SignalLevel converts RSSI in dBm to bars, as the device does.
func SignalLevel(rssi int) int {
	switch {
	case rssi >= -50:
		return 4
	case rssi >= -60:
		return 3
	case rssi >= -70:
		return 2
	case rssi >= -80:
		return 1
	}
	return 0
}

// SignalBars draws level (0-4) as four bars, lit from the left.
func SignalBars(level int) string {
	bars := []rune("▂▄▆█")
	var b strings.Builder
	for i, r := range bars {
		if i < level {
			b.WriteRune(r)
		} else {
			b.WriteRune('·')
		}
	}
	return b.String()
}

func TrueFalse(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
