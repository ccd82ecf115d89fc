// dish_simulator pretends to be the dish controller, for running the
// dashboard without hardware.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tarm/serial"
	"golang.org/x/sync/errgroup"

	"github.com/w1xm/dish_interface/simulator"
)

var (
	addr              = flag.String("addr", "127.0.0.1:8080", "address for the device HTTP surface")
	consoleAddr       = flag.String("console", "", "TCP address for the serial console; empty to disable")
	consoleSerial     = flag.String("console_serial", "", "serial port to serve the console on, e.g. one end of a null modem")
	consoleBaud       = flag.Int("console_baud", 115200, "console serial baud rate")
	seed              = flag.Uint64("seed", 1, "seed for the wind model")
	noWeatherLocation = flag.Bool("no_weather_location", false, "fail weather updates for a missing location")
	noWeatherAPIKey   = flag.Bool("no_weather_api_key", false, "fail weather updates for a missing API key")
)

func serveConsoleTCP(ctx context.Context, sim *simulator.Simulator, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	log.Printf("console listening on %v", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		log.Printf("console connection from %v", conn.RemoteAddr())
		go func() {
			if err := sim.ServeConsole(ctx, conn); err != nil {
				log.Printf("console %v: %v", conn.RemoteAddr(), err)
			}
		}()
	}
}

func serveConsoleSerial(ctx context.Context, sim *simulator.Simulator, port string, baud int) error {
	for {
		p, err := serial.OpenPort(&serial.Config{Name: port, Baud: baud})
		if err != nil {
			log.Printf("opening %q: %v", port, err)
		} else {
			log.Printf("opened %q", port)
			if err := sim.ServeConsole(ctx, p); err != nil {
				log.Printf("%q: %v", port, err)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
}

func main() {
	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim := simulator.New(simulator.Config{
		NoWeatherLocation: *noWeatherLocation,
		NoWeatherAPIKey:   *noWeatherAPIKey,
		Seed:              *seed,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sim.Run(ctx)
	})
	if *consoleAddr != "" {
		g.Go(func() error {
			return serveConsoleTCP(ctx, sim, *consoleAddr)
		})
	}
	if *consoleSerial != "" {
		g.Go(func() error {
			return serveConsoleSerial(ctx, sim, *consoleSerial, *consoleBaud)
		})
	}

	srv := &http.Server{
		Handler:      sim.Handler(),
		Addr:         *addr,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	g.Go(func() error {
		<-ctx.Done()
		return srv.Close()
	})
	g.Go(func() error {
		log.Printf("Listening on %v", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
