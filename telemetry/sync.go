package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/w1xm/dish_interface/logbuf"
	"github.com/w1xm/dish_interface/skyplane"
)

const (
	DefaultInterval = 250 * time.Millisecond
	VariablePath    = "/variable"
)

// Plotter redraws the skyplane from a frame.
type Plotter interface {
	Plot(f skyplane.Frame)
}

// RendererPlotter draws straight onto a renderer's canvas.
type RendererPlotter struct {
	*skyplane.Renderer
}

func (p RendererPlotter) Plot(f skyplane.Frame) {
	p.Draw(f)
}

// FrameOf extracts what the skyplane shows from a snapshot.
func FrameOf(s *Snapshot) skyplane.Frame {
	return skyplane.Frame{
		AzPos:       s.AzPos,
		ElPos:       s.ElPos,
		AzSetpoint:  s.AzSetpoint,
		ElSetpoint:  s.ElSetpoint,
		WindBearing: s.WindDirection,
		WindValid:   s.WeatherValid,
	}
}

type Config struct {
	// URL is the device's base URL, e.g. http://dish.local.
	URL      string
	Interval time.Duration
	// Timeout bounds each poll. Zero means a poll may hang until the
	// device answers or the sync is stopped.
	Timeout time.Duration
	Client  *http.Client
	// Debug logs every dropped tick.
	Debug bool
}

type Stats struct {
	Issued  uint64
	Applied uint64
	// Dropped counts ticks lost to transport or decode errors.
	Dropped uint64
	// Stale counts responses that arrived after a newer one was applied.
	Stale uint64
}

type result struct {
	seq  uint64
	snap *Snapshot
	err  error
}

// Sync polls the device on a fixed period and applies each snapshot to the
// field display, the log buffer and the skyplane. Polls may overlap; all
// applying happens on the Run goroutine, and a response is applied only if
// no later-issued poll has been applied already.
type Sync struct {
	cfg     Config
	url     string
	client  *http.Client
	display *Display
	logs    *logbuf.Buffer
	plot    Plotter

	// OnSnapshot, if set, is called on the Run goroutine after each
	// snapshot is applied.
	OnSnapshot func(s *Snapshot)

	seq     uint64
	applied uint64

	issued, appliedCount, dropped, stale atomic.Uint64

	mu     sync.RWMutex
	latest *Snapshot
}

func New(cfg Config, display *Display, logs *logbuf.Buffer, plot Plotter) (*Sync, error) {
	if cfg.URL == "" {
		return nil, errors.New("telemetry: device URL required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Sync{
		cfg:     cfg,
		url:     strings.TrimRight(cfg.URL, "/") + VariablePath,
		client:  client,
		display: display,
		logs:    logs,
		plot:    plot,
	}, nil
}

// Fetch performs one poll.
func (s *Sync) Fetch(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status code: %s", resp.Status)
	}
	snap, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.url, err)
	}
	return snap, nil
}

// Run polls until ctx is canceled. Failed polls are dropped; the next tick
// is the retry.
func (s *Sync) Run(ctx context.Context) error {
	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()
	results := make(chan result)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.seq++
			s.issued.Add(1)
			go s.poll(ctx, s.seq, results)
		case r := <-results:
			s.apply(r)
		}
	}
}

func (s *Sync) poll(ctx context.Context, seq uint64, results chan<- result) {
	snap, err := s.Fetch(ctx)
	select {
	case results <- result{seq: seq, snap: snap, err: err}:
	case <-ctx.Done():
	}
}

func (s *Sync) apply(r result) {
	if r.err != nil {
		s.dropped.Add(1)
		if s.cfg.Debug {
			log.Printf("poll %d dropped: %v", r.seq, r.err)
		}
		return
	}
	if r.seq <= s.applied {
		s.stale.Add(1)
		if s.cfg.Debug {
			log.Printf("poll %d arrived after poll %d; dropped", r.seq, s.applied)
		}
		return
	}
	s.applied = r.seq
	s.appliedCount.Add(1)
	s.Apply(r.snap)
}

// Apply pushes one snapshot to every consumer, in order: fields, log lines,
// log display, skyplane.
func (s *Sync) Apply(snap *Snapshot) {
	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()

	if s.display != nil {
		s.display.Update(snap)
	}
	if s.logs != nil {
		if snap.NewLogMessages != "" {
			s.logs.AppendFragment(snap.NewLogMessages)
		}
		s.logs.Refresh()
	}
	if s.plot != nil {
		s.plot.Plot(FrameOf(snap))
	}
	if s.OnSnapshot != nil {
		s.OnSnapshot(snap)
	}
}

// Latest returns the most recently applied snapshot, or nil.
func (s *Sync) Latest() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Sync) Stats() Stats {
	return Stats{
		Issued:  s.issued.Load(),
		Applied: s.appliedCount.Load(),
		Dropped: s.dropped.Load(),
		Stale:   s.stale.Load(),
	}
}
