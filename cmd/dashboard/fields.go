package main

import (
	"strconv"

	"github.com/w1xm/dish_interface/telemetry"
)

// fieldOrder is the order fields are listed in the terminal.
var fieldOrder = append(append([]string(nil), telemetry.DisplayFields...),
	"currentDebugLevel", "serialOutputDisabled", "level")

// registerFields sends every displayed field to set. Fields the device
// reports as codes are formatted first; unparseable values pass through.
func registerFields(d *telemetry.Display, set func(name, value string)) {
	d.RegisterAll(telemetry.DisplayFields, set)
	d.Register("currentDebugLevel", func(v string) {
		if level, err := strconv.Atoi(v); err == nil {
			v = telemetry.DebugLevelName(level)
		}
		set("currentDebugLevel", v)
	})
	d.Register("serialOutputDisabled", func(v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			v = telemetry.TrueFalse(b)
		}
		set("serialOutputDisabled", v)
	})
	d.Register("level", func(v string) {
		if n, err := strconv.Atoi(v); err == nil {
			v = telemetry.SignalBars(n)
		}
		set("level", v)
	})
}
