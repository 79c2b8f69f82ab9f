package scanner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/apscanner/pkg/models"
)

// ErrScanUnavailable means the host cannot scan: no iw binary or no wireless interface
var ErrScanUnavailable = errors.New("scanner: wireless scan unavailable")

// Scanner produces the access points currently visible to the host
type Scanner interface {
	Scan(ctx context.Context) ([]models.Observation, error)
}

// ParseError describes a BSS record that was dropped
type ParseError struct {
	Record int
	Field  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("scanner: record %d: %s: %v", e.Record, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errMissing = errors.New("missing")

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// IWScanner scans with the iw(8) command
type IWScanner struct {
	command string
	iface   string
	run     runFunc
}

// Option configures an IWScanner
type Option func(*IWScanner)

// WithInterface pins the wireless interface instead of taking the first one iw reports
func WithInterface(iface string) Option {
	return func(s *IWScanner) { s.iface = iface }
}

// WithCommand overrides the iw binary
func WithCommand(path string) Option {
	return func(s *IWScanner) { s.command = path }
}

func withRunner(run runFunc) Option {
	return func(s *IWScanner) { s.run = run }
}

// NewIWScanner creates a scanner backed by iw
func NewIWScanner(opts ...Option) *IWScanner {
	s := &IWScanner{command: "iw", run: execRun}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrScanUnavailable, err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, bytes.TrimSpace(exitErr.Stderr))
	}
	return out, err
}

// Scan runs one scan. Records that cannot be parsed are logged and skipped.
func (s *IWScanner) Scan(ctx context.Context) ([]models.Observation, error) {
	iface := s.iface
	if iface == "" {
		out, err := s.run(ctx, s.command, "dev")
		if err != nil {
			return nil, err
		}
		if iface = firstInterface(out); iface == "" {
			return nil, fmt.Errorf("%w: no wireless interface found", ErrScanUnavailable)
		}
	}

	out, err := s.run(ctx, s.command, "dev", iface, "scan")
	if err != nil {
		return nil, err
	}

	observations, errs := ParseIW(out)
	for _, err := range errs {
		log.Warn().Err(err).Str("interface", iface).Msg("Dropped scan record")
	}
	log.Debug().Str("interface", iface).Int("networks", len(observations)).Msg("Scan completed")
	return observations, nil
}

func firstInterface(out []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if name, ok := strings.CutPrefix(line, "Interface "); ok {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

// ParseIW reads the output of `iw dev <iface> scan`. Every record lacking a
// mac, a frequency or a channel is dropped and reported as a *ParseError.
func ParseIW(out []byte) ([]models.Observation, []error) {
	var (
		observations []models.Observation
		errs         []error
		record       []string
		index        int
	)

	flush := func() {
		if record == nil {
			return
		}
		obs, err := parseRecord(index, record)
		if err != nil {
			errs = append(errs, err)
		} else {
			observations = append(observations, obs)
		}
		index++
		record = nil
	}

	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		// records start at column zero; "BSS Load:" and friends are indented
		if strings.HasPrefix(line, "BSS ") {
			flush()
			record = []string{line}
			continue
		}
		if record != nil {
			record = append(record, line)
		}
	}
	flush()

	return observations, errs
}

func parseRecord(index int, lines []string) (models.Observation, error) {
	var (
		obs      models.Observation
		htWidth  models.Width
		vhtWidth models.Width
		section  string
	)

	head := strings.TrimPrefix(lines[0], "BSS ")
	if i := strings.IndexAny(head, "( "); i >= 0 {
		head = head[:i]
	}
	obs.MAC = strings.ToLower(strings.TrimSpace(head))
	if obs.MAC == "" {
		return obs, &ParseError{Record: index, Field: "mac", Err: errMissing}
	}

	for _, raw := range lines[1:] {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, "*") {
			section = line
		}
		item := strings.TrimSpace(strings.TrimPrefix(line, "*"))

		switch {
		case strings.HasPrefix(line, "freq:"):
			f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "freq:")), 64)
			if err != nil {
				return obs, &ParseError{Record: index, Field: "freq", Err: err}
			}
			obs.Frequency = uint16(f)
		case strings.HasPrefix(line, "signal:"):
			v := strings.Fields(strings.TrimPrefix(line, "signal:"))
			if len(v) > 0 {
				if dbm, err := strconv.ParseFloat(v[0], 64); err == nil {
					obs.Signal = dbm
				}
			}
		case strings.HasPrefix(line, "SSID:"):
			obs.SSID = strings.TrimSpace(strings.TrimPrefix(line, "SSID:"))
		case strings.HasPrefix(line, "DS Parameter set: channel"):
			obs.Channel = parseChannel(strings.TrimPrefix(line, "DS Parameter set: channel"))
		case strings.HasPrefix(item, "primary channel:") && obs.Channel == 0:
			obs.Channel = parseChannel(strings.TrimPrefix(item, "primary channel:"))
		case strings.HasPrefix(item, "STA channel width:"):
			if strings.Contains(item, "any") {
				htWidth = models.Width40
			} else {
				htWidth = models.Width20
			}
		case strings.HasPrefix(item, "channel width:") && strings.HasPrefix(section, "VHT operation"):
			vhtWidth = vhtChannelWidth(item)
		}
	}

	if obs.Frequency == 0 {
		return obs, &ParseError{Record: index, Field: "freq", Err: errMissing}
	}
	if obs.Channel == 0 {
		obs.Channel = channelForFrequency(obs.Frequency)
	}
	if obs.Channel == 0 {
		return obs, &ParseError{Record: index, Field: "channel", Err: fmt.Errorf("no channel for %d MHz", obs.Frequency)}
	}
	obs.Width = htWidth
	if vhtWidth != "" {
		obs.Width = vhtWidth
	}
	return obs, nil
}

func parseChannel(s string) uint8 {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	if err != nil {
		return 0
	}
	return uint8(n)
}

// vhtChannelWidth reads "channel width: 1 (80 MHz)". Width 0 defers to HT.
func vhtChannelWidth(item string) models.Width {
	fields := strings.Fields(strings.TrimPrefix(item, "channel width:"))
	if len(fields) == 0 {
		return ""
	}
	switch fields[0] {
	case "1":
		return models.Width80
	case "2", "3":
		return models.Width160
	default:
		return ""
	}
}

func channelForFrequency(mhz uint16) uint8 {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz < 2484:
		return uint8((mhz - 2407) / 5)
	case mhz >= 5000 && mhz < 5950:
		return uint8((mhz - 5000) / 5)
	default:
		return 0
	}
}
