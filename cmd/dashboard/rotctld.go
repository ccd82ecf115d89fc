package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/w1xm/dish_interface/device"
	"github.com/w1xm/dish_interface/rotator"
)

// hamlib error codes
const (
	rprtOK      = 0
	rprtInvalid = -1
	rprtNotImpl = -4
	rprtIO      = -6
	rprtEINVAL  = -22
)

// rotctld speaks enough of the hamlib rotctld protocol for gpredict and
// friends to point the dish.
type rotctld struct {
	rot rotator.Rotator
	// status returns the last known position, or nil before the first.
	status  func() rotator.Status
	timeout time.Duration
}

func (rc *rotctld) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		log.Print("shutdown; closing rotctld socket")
		ln.Close()
	}()
	log.Printf("rotctld listening on %s", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Printf("failed to accept: %v", err)
			continue
		}
		go rc.handle(ctx, conn)
	}
}

func (rc *rotctld) call(ctx context.Context, f func(ctx context.Context) error) int {
	if rc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.timeout)
		defer cancel()
	}
	err := f(ctx)
	switch {
	case err == nil:
		return rprtOK
	case errors.Is(err, device.ErrOutOfRange):
		return rprtEINVAL
	}
	log.Printf("rotctld: %v", err)
	return rprtIO
}

func (rc *rotctld) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	log.Printf("accepted connection from %v", conn.RemoteAddr())
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		// Two forms of command: single character, or "+\" followed by command name.
		cmd := strings.TrimSpace(scanner.Text())
		var args []string
		var extended bool
		if len(cmd) == 0 {
			continue
		} else if len(cmd) > 2 && cmd[0:2] == `+\` {
			extended = true
			parts := strings.Fields(cmd)
			cmd = parts[0][2:]
			args = parts[1:]
			fmt.Fprintf(conn, "%s:\n", cmd)
		} else {
			// Space after command is optional.
			args = strings.Fields(cmd[1:])
			cmd = cmd[:1]
		}
		log.Printf("%v command: %q args: %#v", conn.RemoteAddr(), cmd, args)
		rprt := rprtInvalid
		switch cmd {
		case "1", "dump_caps":
			fmt.Fprint(conn, `Model name: Dish rotator
Mfg name: w1xm
Rot type: Az-El
Min Azimuth: -180.00
Max Azimuth: 180.00
Min Elevation: 0.00
Max Elevation: 90.00
Can set Position: Y
Can get Position: Y
Can Stop: Y
Can Park: N
Can Reset: N
Can Move: N
Can get Info: N
`)
			rprt = rprtOK
		case "S", "stop":
			extended = true // always print RPRT
			rprt = rc.call(ctx, rc.rot.Stop)
		case "P", "set_pos":
			extended = true // always print RPRT
			if len(args) != 2 {
				rprt = rprtEINVAL
				break
			}
			az, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				rprt = rprtEINVAL
				break
			}
			el, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				rprt = rprtEINVAL
				break
			}
			rprt = rc.call(ctx, func(ctx context.Context) error {
				return rc.rot.SetPosition(ctx, az, el)
			})
		case "M", "move":
			extended = true // always print RPRT
			rprt = rprtNotImpl
		case "p", "get_pos":
			status := rc.status()
			if status == nil {
				rprt = rprtIO
				break
			}
			az := rotator.SignedAzimuth(status.AzimuthPosition())
			if extended {
				fmt.Fprintf(conn, "Azimuth: %.6f\nElevation: %.6f\n", az, status.ElevationPosition())
			} else {
				fmt.Fprintf(conn, "%.6f\n%.6f\n", az, status.ElevationPosition())
			}
			rprt = rprtOK
		case "q", "Q", "quit":
			return
		}
		if extended || rprt != rprtOK {
			fmt.Fprintf(conn, "RPRT %d\n", rprt)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("reading from %v: %v", conn.RemoteAddr(), err)
	}
}
