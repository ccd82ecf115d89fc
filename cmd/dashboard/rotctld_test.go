package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/w1xm/dish_interface/device"
	"github.com/w1xm/dish_interface/rotator"
)

type fakeRotator struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeRotator) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeRotator) Stop(ctx context.Context) error {
	return f.record("stop")
}

func (f *fakeRotator) SetPosition(ctx context.Context, az, el float64) error {
	if el > device.MaxSetpointEl {
		return fmt.Errorf("elevation %v: %w", el, device.ErrOutOfRange)
	}
	return f.record(fmt.Sprintf("set %.1f %.1f", az, el))
}

// session writes each input line and collects replies until none arrive
// for a moment.
func session(t *testing.T, rc *rotctld, input []string) []string {
	t.Helper()
	a, b := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		rc.handle(ctx, a)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(b)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	go func() {
		for _, in := range input {
			fmt.Fprintf(b, "%s\n", in)
		}
	}()

	var got []string
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return got
			}
			got = append(got, line)
			continue
		case <-time.After(200 * time.Millisecond):
		}
		break
	}
	b.Close()
	<-done
	return got
}

func TestRotctld(t *testing.T) {
	for _, test := range []struct {
		name   string
		status rotator.Status
		err    error
		input  []string
		want   []string
		calls  []string
	}{
		{
			name:   "get_pos",
			status: rotator.Position{Az: 270, El: 45},
			input:  []string{"p"},
			want:   []string{"-90.000000", "45.000000"},
		},
		{
			name:   "get_pos extended",
			status: rotator.Position{Az: 90, El: 10},
			input:  []string{`+\get_pos`},
			want:   []string{"get_pos:", "Azimuth: 90.000000", "Elevation: 10.000000", "RPRT 0"},
		},
		{
			name:  "get_pos without status",
			input: []string{"p"},
			want:  []string{"RPRT -6"},
		},
		{
			name:  "set_pos",
			input: []string{"P 120.5 30"},
			want:  []string{"RPRT 0"},
			calls: []string{"set 120.5 30.0"},
		},
		{
			name:  "set_pos without space",
			input: []string{"P10 20"},
			want:  []string{"RPRT 0"},
			calls: []string{"set 10.0 20.0"},
		},
		{
			name:  "set_pos bad args",
			input: []string{"P 1", "P x 2"},
			want:  []string{"RPRT -22", "RPRT -22"},
		},
		{
			name:  "set_pos out of range",
			input: []string{"P 10 95"},
			want:  []string{"RPRT -22"},
		},
		{
			name:  "stop",
			input: []string{"S"},
			want:  []string{"RPRT 0"},
			calls: []string{"stop"},
		},
		{
			name:  "stop fails",
			err:   errors.New("boom"),
			input: []string{`+\stop`},
			want:  []string{"stop:", "RPRT -6"},
			calls: []string{"stop"},
		},
		{
			name:  "move unsupported",
			input: []string{"M 8 50"},
			want:  []string{"RPRT -4"},
		},
		{
			name:  "unknown",
			input: []string{"z"},
			want:  []string{"RPRT -1"},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			f := &fakeRotator{err: test.err}
			rc := &rotctld{
				rot:    f,
				status: func() rotator.Status { return test.status },
			}
			got := session(t, rc, test.input)
			if diff := cmp.Diff(got, test.want); diff != "" {
				t.Errorf("replies: got(-)/want(+):\n%s", diff)
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			if diff := cmp.Diff(f.calls, test.calls); diff != "" {
				t.Errorf("calls: got(-)/want(+):\n%s", diff)
			}
		})
	}
}

func TestRotctldDumpCaps(t *testing.T) {
	rc := &rotctld{rot: &fakeRotator{}, status: func() rotator.Status { return nil }}
	got := strings.Join(session(t, rc, []string{"1"}), "\n")
	for _, want := range []string{"Rot type: Az-El", "Can set Position: Y", "Can Move: N"} {
		if !strings.Contains(got, want) {
			t.Errorf("dump_caps missing %q:\n%s", want, got)
		}
	}
}
