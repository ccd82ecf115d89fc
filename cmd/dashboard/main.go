package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/w1xm/dish_interface/config"
	"github.com/w1xm/dish_interface/device"
	"github.com/w1xm/dish_interface/logbuf"
	"github.com/w1xm/dish_interface/rotator"
	"github.com/w1xm/dish_interface/telemetry"
)

var (
	configFile  = flag.String("config", "", "YAML configuration file")
	deviceURL   = flag.String("device", "", "device base URL, e.g. http://discoverydish.local")
	listenAddr  = flag.String("listen", "", "address for the web dashboard")
	staticDir   = flag.String("static_dir", "", "directory containing static files")
	rotctldAddr = flag.String("rotctld", "", "address for the rotctld bridge; empty to disable")
	serialPort  = flag.String("serial", "", "serial port name")
	mode        = flag.String("mode", "web", "web or terminal")
	debug       = flag.Bool("debug", false, "log dropped and stale polls")
	logFile     = flag.String("log_file", "", "write the log to this file, rotated by size")
)

var errQuit = errors.New("quit")

// frontend is where snapshots end up: the web server or the terminal UI.
type frontend interface {
	logbuf.Sink
	telemetry.Plotter
	SetField(name, value string)
	// Applied is called once per applied snapshot, after the fields, logs
	// and plot.
	Applied(snap *telemetry.Snapshot, stats telemetry.Stats)
	Alert(msg string)
	Run(ctx context.Context) error
}

// applyFlags overrides cfg with every flag given on the command line.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Device.URL = *deviceURL
		case "listen":
			cfg.Server.Listen = *listenAddr
		case "static_dir":
			cfg.Server.StaticDir = *staticDir
		case "rotctld":
			cfg.Rotctld.Listen = *rotctldAddr
		case "serial":
			cfg.Serial.Port = *serialPort
		case "debug":
			cfg.Logging.Debug = *debug
		case "log_file":
			cfg.Logging.File = *logFile
		}
	})
}

// setupLogging sends the log to a rotating file if one is configured. The
// terminal UI owns the screen, so without a file its log is discarded.
func setupLogging(c config.LoggingConfig, terminal bool) io.Closer {
	switch {
	case c.File != "":
		w := &lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAgeDays,
		}
		log.SetOutput(w)
		return w
	case terminal:
		log.SetOutput(io.Discard)
	}
	return nil
}

func main() {
	flag.Parse()

	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if *mode != "web" && *mode != "terminal" {
		log.Fatalf("unknown mode %q", *mode)
	}
	if c := setupLogging(cfg.Logging, *mode == "terminal"); c != nil {
		defer c.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	g, ctx := errgroup.WithContext(ctx)

	client := device.NewClient(cfg.Device.URL, &http.Client{Timeout: cfg.CommandTimeout()})
	dispatcher := device.NewDispatcher(ctx, client)
	defer dispatcher.Wait()

	var (
		ui   frontend
		logs *logbuf.Buffer
	)
	switch *mode {
	case "terminal":
		t := newTerminalUI(dispatcher)
		logs = logbuf.New(cfg.LogBuf.Capacity, t)
		t.logs = logs
		ui = t
	default:
		s := NewServer(dispatcher, cfg.Server, cfg.Skyplane)
		logs = logbuf.New(cfg.LogBuf.Capacity, s)
		s.logs = logs
		ui = s
	}
	dispatcher.Alert = ui.Alert

	display := telemetry.NewDisplay()
	registerFields(display, ui.SetField)

	poller, err := telemetry.New(telemetry.Config{
		URL:      cfg.Device.URL,
		Interval: cfg.PollInterval(),
		Timeout:  cfg.PollTimeout(),
		Debug:    cfg.Logging.Debug,
	}, display, logs, ui)
	if err != nil {
		return err
	}
	poller.OnSnapshot = func(snap *telemetry.Snapshot) {
		ui.Applied(snap, poller.Stats())
	}
	g.Go(func() error {
		return poller.Run(ctx)
	})

	var rot rotator.Rotator = client
	status := func() rotator.Status {
		if snap := poller.Latest(); snap != nil {
			return snap
		}
		return nil
	}
	if cfg.Serial.Port != "" {
		serial := device.ConnectSerial(ctx, cfg.Serial.Port, cfg.Serial.Baud, func(s rotator.Status) {
			if cfg.Logging.Debug {
				log.Printf("serial position: az %.2f el %.2f", s.AzimuthPosition(), s.ElevationPosition())
			}
		})
		rot = serial
		status = func() rotator.Status {
			if snap := poller.Latest(); snap != nil {
				return snap
			}
			if pos, ok := serial.Position(); ok {
				return pos
			}
			return nil
		}
	}
	if cfg.Rotctld.Listen != "" {
		r := &rotctld{rot: rot, status: status, timeout: cfg.CommandTimeout()}
		g.Go(func() error {
			return r.ListenAndServe(ctx, cfg.Rotctld.Listen)
		})
	}

	g.Go(func() error {
		return ui.Run(ctx)
	})

	err = g.Wait()
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
