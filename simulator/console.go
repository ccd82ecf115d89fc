package simulator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ServeConsole speaks the controller's serial console protocol on conn
// until conn or ctx closes.
func (s *Simulator) ServeConsole(ctx context.Context, conn io.ReadWriteCloser) error {
	s.setSerialActive(true)
	defer s.setSerialActive(false)
	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-done:
		}
		return conn.Close()
	})
	g.Go(func() error {
		defer close(done)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}
			reply, err := s.parseConsole(input)
			if err != nil {
				log.Printf("parsing %q: %v", input, err)
				continue
			}
			if reply == "" {
				continue
			}
			if _, err := fmt.Fprintf(conn, "%s\n", reply); err != nil {
				return err
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading console: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (s *Simulator) parseConsole(input string) (string, error) {
	st := s.State()
	switch {
	case input == "AZ EL":
		return fmt.Sprintf("AZ%.2f EL%.2f", st.AzPos, st.ElPos), nil
	case input == "AZ":
		return fmt.Sprintf("AZ%.2f", st.AzPos), nil
	case input == "EL":
		return fmt.Sprintf("EL%.2f", st.ElPos), nil
	case strings.HasPrefix(input, "STATUS"):
		return fmt.Sprintf("Corrected Angle Elevation: %.2f°\nCorrected Angle Azimuth: %.2f°\nCal Mode: %s",
			st.ElPos, st.AzPos, map[bool]string{true: "ON", false: "OFF"}[st.CalMode]), nil
	case strings.HasPrefix(input, "SA SE"):
		return "", nil
	case strings.HasPrefix(input, "AZ"):
		azs, els, ok := strings.Cut(input, " ")
		if !ok || !strings.HasPrefix(els, "EL") {
			return "", fmt.Errorf("invalid AZ EL command format")
		}
		az, err := strconv.ParseFloat(azs[2:], 64)
		if err != nil {
			return "", err
		}
		el, err := strconv.ParseFloat(els[2:], 64)
		if err != nil {
			return "", err
		}
		s.SetSetpoint(az, el)
		return "", nil
	case strings.HasPrefix(input, "HOME"):
		s.SetSetpoint(0, 0)
		return "", nil
	case strings.HasPrefix(input, "MV_AZ"), strings.HasPrefix(input, "MV_EL"):
		runTime, err := strconv.Atoi(strings.TrimSpace(input[5:]))
		if err != nil {
			return "", err
		}
		s.CalMove(input[3:5], runTime)
		return "", nil
	case strings.HasPrefix(input, "CAL_ON"):
		s.SetCalMode(true)
		return "", nil
	case strings.HasPrefix(input, "CAL_OFF"):
		s.SetCalMode(false)
		return "", nil
	case strings.HasPrefix(input, "CAL_EL"):
		s.CalibrateElevation()
		return "", nil
	}
	s.mu.Lock()
	s.logf(levelWarn, "Unknown serial command: %s", input)
	s.mu.Unlock()
	return "", fmt.Errorf("unknown command")
}
