package simulator

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// State is the simulated controller. Fields tagged with report appear in
// /variable under that name; the firmware sends most values as strings, so
// they are encoded the same way. Tag options:
//
//	onoff  bool as "ON"/"OFF"
//	raw    JSON number or bool instead of a string
type State struct {
	AzPos      float64 `report:"correctedAngle_az"`
	ElPos      float64 `report:"correctedAngle_el"`
	AzSetpoint float64 `report:"setpoint_az"`
	ElSetpoint float64 `report:"setpoint_el"`
	AzActive   bool    `report:"setPointState_az"`
	ElActive   bool    `report:"setPointState_el"`
	AzError    float64 `report:"error_az"`
	ElError    float64 `report:"error_el"`
	ElStart    float64 `report:"el_startAngle"`
	// NeedsUnwind is the number of full turns wound into the cable, signed.
	NeedsUnwind int `report:"needs_unwind"`

	CalMode      bool `report:"calMode,onoff"`
	AzI2CError   bool `report:"i2cErrorFlag_az"`
	ElI2CError   bool `report:"i2cErrorFlag_el"`
	FaultTripped bool `report:"faultTripped"`
	BadAngle     bool `report:"badAngleFlag"`
	MagnetFault  bool `report:"magnetFault"`
	AzLatched    bool `report:"isAzMotorLatched"`
	ElLatched    bool `report:"isElMotorLatched"`

	SingleMotorMode bool   `report:"singleMotorModeText,onoff"`
	Stellarium      bool   `report:"stellariumPollingOn,onoff"`
	StellariumIP    string `report:"stellariumServerIPText"`
	SerialActive    bool   `report:"serialActive"`

	ToleranceAz float64 `report:"toleranceAz"`
	ToleranceEl float64 `report:"toleranceEl"`

	WindSafety    bool    `report:"windSafetyOn,onoff"`
	WindBasedHome bool    `report:"windBasedHomeOn,onoff"`
	Weather       bool    `report:"weatherPollingOn,onoff"`
	WindDirection float64 `report:"currentWindDirection"`
	WindSpeed     float64 `report:"currentWindSpeed"`
	WindGust      float64 `report:"currentWindGust"`
	WeatherValid  bool    `report:"weatherDataValid,raw"`
	EmergencyStow bool    `report:"emergencyStowActive,raw"`

	InputVoltage float64 `report:"inputVoltage"`
	CurrentDraw  float64 `report:"currentDraw"`
	PowerDraw    float64 `report:"rotatorPowerDraw"`

	RSSI   int    `report:"rssi"`
	Level  int    `report:"level,raw"`
	SSID   string `report:"wifissid"`
	IPAddr string `report:"ip_addr"`

	DebugLevel           int  `report:"currentDebugLevel,raw"`
	SerialOutputDisabled bool `report:"serialOutputDisabled,raw"`

	// Motion, not reported.
	AzVel, ElVel float64
	// AzRun and ElRun are the seconds left on a calibration-mode motor run,
	// signed by direction.
	AzRun, ElRun float64
}

// report renders s as the /variable object, without newLogMessages.
func (s *State) report() (map[string]interface{}, error) {
	out := map[string]interface{}{}
	v := reflect.ValueOf(*s)
	for i := 0; i < v.NumField(); i++ {
		field := v.Type().Field(i)
		tag := field.Tag.Get("report")
		if tag == "" || tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := v.Field(i)
		switch fv.Kind() {
		case reflect.Float64:
			if opts == "raw" {
				out[name] = fv.Float()
			} else {
				out[name] = strconv.FormatFloat(fv.Float(), 'f', 2, 64)
			}
		case reflect.Int:
			if opts == "raw" {
				out[name] = fv.Int()
			} else {
				out[name] = strconv.FormatInt(fv.Int(), 10)
			}
		case reflect.Bool:
			switch {
			case opts == "raw":
				out[name] = fv.Bool()
			case opts == "onoff" && fv.Bool():
				out[name] = "ON"
			case opts == "onoff":
				out[name] = "OFF"
			case fv.Bool():
				out[name] = "1"
			default:
				out[name] = "0"
			}
		case reflect.String:
			out[name] = fv.String()
		default:
			return nil, fmt.Errorf("don't know how to report %s: %q (value %+v)", field.Name, tag, fv.Interface())
		}
	}
	return out, nil
}
