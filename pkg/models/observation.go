package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Band identifies the frequency band an access point broadcasts on
type Band int

const (
	BandUnknown Band = iota
	Band24GHz
	Band5GHz
)

// band24Limit is the first frequency (MHz) past the 2.4GHz band
const band24Limit = 2500

// BandForFrequency derives the band from a raw frequency in MHz
func BandForFrequency(mhz uint16) Band {
	switch {
	case mhz == 0:
		return BandUnknown
	case mhz < band24Limit:
		return Band24GHz
	default:
		return Band5GHz
	}
}

func (b Band) String() string {
	switch b {
	case Band24GHz:
		return "2.4GHz"
	case Band5GHz:
		return "5GHz"
	default:
		return "unknown"
	}
}

// Width is a 5GHz channel width class
type Width string

const (
	Width20  Width = "MHz20"
	Width40  Width = "MHz40"
	Width80  Width = "MHz80"
	Width160 Width = "MHz160"
)

// ParseWidth accepts either the wire form ("MHz80") or a scanner form ("80 MHz", "80")
func ParseWidth(s string) (Width, error) {
	s = strings.TrimSpace(s)
	switch Width(s) {
	case Width20, Width40, Width80, Width160:
		return Width(s), nil
	}

	field := strings.Fields(s)
	if len(field) == 0 {
		return "", fmt.Errorf("empty channel width")
	}
	n, err := strconv.Atoi(strings.TrimSuffix(field[0], "MHz"))
	if err != nil {
		return "", fmt.Errorf("invalid channel width %q: %w", s, err)
	}
	switch n {
	case 20:
		return Width20, nil
	case 40:
		return Width40, nil
	case 80:
		return Width80, nil
	case 160:
		return Width160, nil
	}
	return "", fmt.Errorf("unsupported channel width %q", s)
}

// Observation is one parsed access point record from a scan
type Observation struct {
	SSID      string  `json:"ssid" doc:"Network name"`
	MAC       string  `json:"mac" validate:"required,mac" doc:"Hardware address of the access point"`
	Channel   uint8   `json:"channel" validate:"min=1,max=196" doc:"Channel the access point is on"`
	Signal    float64 `json:"signal" doc:"Signal quality as a fraction or in dBm"`
	Frequency uint16  `json:"frequency" validate:"required" doc:"Frequency in MHz"`
	Width     Width   `json:"width,omitempty" validate:"omitempty,oneof=MHz20 MHz40 MHz80 MHz160" doc:"Channel width"`
}

// Band reports the band derived from the observation's frequency
func (o Observation) Band() Band {
	return BandForFrequency(o.Frequency)
}
