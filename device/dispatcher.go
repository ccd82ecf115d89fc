package device

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Command names accepted by Dispatch.
const (
	CmdMoveAz               = "move_az"
	CmdMoveEl               = "move_el"
	CmdCalibrateEl          = "calibrate_el"
	CmdCalMode              = "cal_mode"
	CmdSingleMotorMode      = "single_motor_mode"
	CmdWindSafety           = "wind_safety"
	CmdWindBasedHome        = "wind_based_home"
	CmdWeatherPolling       = "weather_polling"
	CmdStellariumPolling    = "stellarium_polling"
	CmdSerialOutputDisabled = "serial_output_disabled"
	CmdDebugLevel           = "debug_level"
	CmdSetPosition          = "set_position"
	CmdStop                 = "stop"
	CmdForceWeatherUpdate   = "force_weather_update"
	CmdRestart              = "restart"
	CmdResetNeedsUnwind     = "reset_needs_unwind"
	CmdResetEEPROM          = "reset_eeprom"
)

// Prompts shown before a destructive command is confirmed.
const (
	RestartPrompt          = "Are you sure you want to restart the device?\n\nThis will temporarily disconnect the dashboard and interrupt any ongoing operations."
	ResetNeedsUnwindPrompt = "Are you sure you want to reset the Needs Unwind flag?\n\nThis could cause the rotator to over rotate and tangle cables."
	ResetEEPROMPrompt      = "WARNING: Are you sure you want to reset the EEPROM?\n\nThis will erase all saved settings and return the device to factory defaults. This action cannot be undone."
)

// Prompt returns the confirmation prompt for a command, or "" if it needs
// none.
func Prompt(name string) string {
	switch name {
	case CmdRestart:
		return RestartPrompt
	case CmdResetNeedsUnwind:
		return ResetNeedsUnwindPrompt
	case CmdResetEEPROM:
		return ResetEEPROMPrompt
	}
	return ""
}

// Command is a UI request, as it arrives on the dashboard websocket.
type Command struct {
	Command string  `json:"command"`
	On      bool    `json:"on,omitempty"`
	Value   int     `json:"value,omitempty"`
	Az      float64 `json:"az,omitempty"`
	El      float64 `json:"el,omitempty"`
	// Confirmed must be set for commands with a Prompt.
	Confirmed bool `json:"confirmed,omitempty"`
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotConfirmed   = errors.New("command not confirmed")
)

// Dispatcher sends commands without waiting for them. Failures go to the
// log, and weather problems also go to Alert.
type Dispatcher struct {
	c   *Client
	ctx context.Context
	wg  sync.WaitGroup

	// Alert, if set, is shown to the operator.
	Alert func(msg string)
}

// NewDispatcher returns a dispatcher whose requests are canceled with ctx.
func NewDispatcher(ctx context.Context, c *Client) *Dispatcher {
	return &Dispatcher{c: c, ctx: ctx}
}

// Dispatch checks cmd and starts it in the background. The only errors are
// for commands that were never sent.
func (d *Dispatcher) Dispatch(cmd Command) error {
	if Prompt(cmd.Command) != "" && !cmd.Confirmed {
		return fmt.Errorf("%s: %w", cmd.Command, ErrNotConfirmed)
	}
	f, err := d.call(cmd)
	if err != nil {
		return err
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := f(d.ctx); err != nil {
			d.failed(cmd, err)
		}
	}()
	return nil
}

// Wait blocks until every dispatched command has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) failed(cmd Command, err error) {
	log.Printf("command %q: %v", cmd.Command, err)
	var we *WeatherError
	if errors.As(err, &we) && d.Alert != nil {
		d.Alert(we.Error())
	}
}

func (d *Dispatcher) call(cmd Command) (func(context.Context) error, error) {
	c := d.c
	switch cmd.Command {
	case CmdMoveAz:
		return func(ctx context.Context) error { return c.MoveAzimuth(ctx, cmd.Value) }, nil
	case CmdMoveEl:
		return func(ctx context.Context) error { return c.MoveElevation(ctx, cmd.Value) }, nil
	case CmdCalibrateEl:
		return c.CalibrateElevation, nil
	case CmdCalMode:
		return func(ctx context.Context) error { return c.SetCalibrationMode(ctx, cmd.On) }, nil
	case CmdSingleMotorMode:
		return func(ctx context.Context) error { return c.SetSingleMotorMode(ctx, cmd.On) }, nil
	case CmdWindSafety:
		return func(ctx context.Context) error { return c.SetWindSafety(ctx, cmd.On) }, nil
	case CmdWindBasedHome:
		return func(ctx context.Context) error { return c.SetWindBasedHome(ctx, cmd.On) }, nil
	case CmdWeatherPolling:
		return func(ctx context.Context) error { return c.SetWeatherPolling(ctx, cmd.On) }, nil
	case CmdStellariumPolling:
		return func(ctx context.Context) error { return c.SetStellariumPolling(ctx, cmd.On) }, nil
	case CmdSerialOutputDisabled:
		return func(ctx context.Context) error { return c.SetSerialOutputDisabled(ctx, cmd.On) }, nil
	case CmdDebugLevel:
		return func(ctx context.Context) error { return c.SetDebugLevel(ctx, cmd.Value) }, nil
	case CmdSetPosition:
		return func(ctx context.Context) error { return c.SetPosition(ctx, cmd.Az, cmd.El) }, nil
	case CmdStop:
		return c.Stop, nil
	case CmdForceWeatherUpdate:
		return c.ForceWeatherUpdate, nil
	case CmdRestart:
		return c.Restart, nil
	case CmdResetNeedsUnwind:
		return c.ResetNeedsUnwind, nil
	case CmdResetEEPROM:
		return c.ResetEEPROM, nil
	}
	return nil, fmt.Errorf("%q: %w", cmd.Command, ErrUnknownCommand)
}
