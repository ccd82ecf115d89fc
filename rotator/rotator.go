// Package rotator holds the interfaces shared by the dish's control
// transports and the network bridges that drive them.
package rotator

import (
	"context"
	"math"
)

// WrapElevation is the lowest elevation reading treated as a sensor wrap
// (e.g. 359.8 reported for -0.2) rather than a real angle.
const WrapElevation = 350

// Rotator is anything that can command the dish.
type Rotator interface {
	Stop(ctx context.Context) error
	// SetPosition moves the setpoint. Azimuth is in degrees clockwise from
	// north, elevation in degrees above the horizon.
	SetPosition(ctx context.Context, az, el float64) error
}

type Status interface {
	AzimuthPosition() float64
	ElevationPosition() float64
}

type StatusCallback func(status Status)

// Calibrator is implemented by transports that can drive the motors
// directly while the device is in calibration mode.
type Calibrator interface {
	SetCalibrationMode(ctx context.Context, on bool) error
	CalibrateElevation(ctx context.Context) error
	MoveAzimuth(ctx context.Context, runTime int) error
	MoveElevation(ctx context.Context, runTime int) error
}

// Position is a bare Status.
type Position struct {
	Az, El float64
}

func (p Position) AzimuthPosition() float64 {
	return p.Az
}

func (p Position) ElevationPosition() float64 {
	return p.El
}

// NormalizeAzimuth maps an azimuth into [0, 360).
func NormalizeAzimuth(az float64) float64 {
	az = math.Mod(az, 360)
	if az < 0 {
		az += 360
	}
	if az >= 360 {
		az = 0
	}
	return az
}

// SignedAzimuth maps an azimuth into (-180, 180], as hamlib reports it.
func SignedAzimuth(az float64) float64 {
	az = NormalizeAzimuth(az)
	if az > 180 {
		az -= 360
	}
	return az
}
