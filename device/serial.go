package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tarm/serial"
	"golang.org/x/sync/errgroup"

	"github.com/w1xm/dish_interface/rotator"
)

const (
	DefaultBaud         = 115200
	DefaultSerialPoll   = time.Second
	serialReconnectWait = time.Second
)

var ErrNotConnected = errors.New("serial port not connected")

// SerialClient drives the device over its USB serial console. It reopens
// the port whenever it goes away.
type SerialClient struct {
	statusCallback rotator.StatusCallback
	poll           time.Duration

	writeMu sync.Mutex

	mu     sync.Mutex
	conn   io.ReadWriteCloser
	status rotator.Position
	hasFix bool
}

var _ rotator.Rotator = (*SerialClient)(nil)
var _ rotator.Calibrator = (*SerialClient)(nil)

// ConnectSerial starts talking to port in the background. statusCallback
// is called with every position the device reports.
func ConnectSerial(ctx context.Context, port string, baud int, statusCallback rotator.StatusCallback) *SerialClient {
	if baud <= 0 {
		baud = DefaultBaud
	}
	r := &SerialClient{statusCallback: statusCallback, poll: DefaultSerialPoll}
	go r.reconnectLoop(ctx, &serial.Config{Name: port, Baud: baud})
	return r
}

func (r *SerialClient) reconnectLoop(ctx context.Context, c *serial.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(serialReconnectWait):
		}
		s, err := serial.OpenPort(c)
		if err != nil {
			log.Printf("opening %q: %v", c.Name, err)
			continue
		}
		log.Printf("opened %q", c.Name)
		if err := r.watch(ctx, s); err != nil && ctx.Err() == nil {
			log.Printf("%q: %v", c.Name, err)
		}
	}
}

// watch owns conn until it fails or ctx is done.
func (r *SerialClient) watch(ctx context.Context, conn io.ReadWriteCloser) error {
	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.conn = nil
		r.mu.Unlock()
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return conn.Close()
	})
	g.Go(func() error {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if err := r.parseLine(line); err != nil {
				log.Printf("serial: %s", line)
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading port: %w", err)
		}
		return io.EOF
	})
	g.Go(func() error {
		for {
			if err := r.send("AZ EL"); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.poll):
			}
		}
	})
	return g.Wait()
}

var errNotPosition = errors.New("not a position report")

// parseLine reads a position report: "AZ123.45 EL45.00", "AZ123.45" or
// "EL45.00". Anything else is console chatter.
func (r *SerialClient) parseLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || len(fields) > 2 {
		return errNotPosition
	}
	r.mu.Lock()
	pos := r.status
	r.mu.Unlock()
	for _, f := range fields {
		if len(f) < 3 {
			return errNotPosition
		}
		v, err := strconv.ParseFloat(f[2:], 64)
		if err != nil {
			return errNotPosition
		}
		switch f[:2] {
		case "AZ":
			pos.Az = v
		case "EL":
			pos.El = v
		default:
			return errNotPosition
		}
	}
	r.mu.Lock()
	r.status = pos
	r.hasFix = true
	r.mu.Unlock()
	if r.statusCallback != nil {
		r.statusCallback(pos)
	}
	return nil
}

// Position returns the last reported position and whether there is one.
func (r *SerialClient) Position() (rotator.Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, r.hasFix
}

func (r *SerialClient) send(cmd string) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	_, err := fmt.Fprintf(conn, "%s\n", cmd)
	return err
}

// Stop sends the easycomm stop and then pins the setpoint to the last known
// position, which is what actually halts the firmware.
func (r *SerialClient) Stop(ctx context.Context) error {
	if err := r.send("SA SE"); err != nil {
		return err
	}
	pos, ok := r.Position()
	if !ok {
		return nil
	}
	az, el := hold(pos.Az, pos.El)
	return r.SetPosition(ctx, az, el)
}

func (r *SerialClient) SetPosition(ctx context.Context, az, el float64) error {
	if !(az >= MinSetpointAz && az <= MaxSetpointAz) {
		return fmt.Errorf("azimuth %v: %w", az, ErrOutOfRange)
	}
	if !(el >= MinSetpointEl && el <= MaxSetpointEl) {
		return fmt.Errorf("elevation %v: %w", el, ErrOutOfRange)
	}
	return r.send(fmt.Sprintf("AZ%.2f EL%.2f", az, el))
}

func (r *SerialClient) Home(ctx context.Context) error {
	return r.send("HOME")
}

func (r *SerialClient) SetCalibrationMode(ctx context.Context, on bool) error {
	if on {
		return r.send("CAL_ON")
	}
	return r.send("CAL_OFF")
}

func (r *SerialClient) CalibrateElevation(ctx context.Context) error {
	return r.send("CAL_EL")
}

func (r *SerialClient) MoveAzimuth(ctx context.Context, runTime int) error {
	return r.send(fmt.Sprintf("MV_AZ %d", runTime))
}

func (r *SerialClient) MoveElevation(ctx context.Context, runTime int) error {
	return r.send(fmt.Sprintf("MV_EL %d", runTime))
}
