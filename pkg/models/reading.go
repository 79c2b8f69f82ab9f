package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
)

// Pair couples an observation with the suggestion computed for it. On the
// wire it is a two element array: [observation, suggestion].
type Pair struct {
	Observation Observation
	Suggestion  Suggestion
}

func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Observation, p.Suggestion})
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("pair must be an array: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("pair must have 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Observation); err != nil {
		return fmt.Errorf("invalid observation: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Suggestion); err != nil {
		return err
	}
	return nil
}

// ChannelGroups maps a channel to the pairs observed on it
type ChannelGroups map[uint8][]Pair

// Channels returns the group keys in ascending order
func (g ChannelGroups) Channels() []uint8 {
	channels := make([]uint8, 0, len(g))
	for ch := range g {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	return channels
}

// Len counts every pair across all groups
func (g ChannelGroups) Len() int {
	n := 0
	for _, pairs := range g {
		n += len(pairs)
	}
	return n
}

// Reading is one complete scan-and-suggest snapshot for a locale
type Reading struct {
	// milliseconds since the epoch
	Timestamp int64         `json:"timestamp"`
	Local     string        `json:"local"`
	Wifi24GHz ChannelGroups `json:"wifi_2_4_ghz"`
	Wifi5GHz  ChannelGroups `json:"wifi_5_ghz"`
}

// TakenAt converts the reading timestamp
func (r *Reading) TakenAt() time.Time {
	return time.UnixMilli(r.Timestamp).UTC()
}

// Each visits every pair, 2.4GHz first, groups in ascending channel order.
// Returning false stops the walk.
func (r *Reading) Each(fn func(Pair) bool) {
	for _, groups := range []ChannelGroups{r.Wifi24GHz, r.Wifi5GHz} {
		for _, ch := range groups.Channels() {
			for _, p := range groups[ch] {
				if !fn(p) {
					return
				}
			}
		}
	}
}

// Find returns the first pair whose observation matches ssid and mac exactly
func (r *Reading) Find(ssid, mac string) (Pair, bool) {
	var (
		found Pair
		ok    bool
	)
	r.Each(func(p Pair) bool {
		if p.Observation.SSID == ssid && p.Observation.MAC == mac {
			found, ok = p, true
			return false
		}
		return true
	})
	return found, ok
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks an uploaded reading: every observation is well formed,
// sits in the map of its own band under its own channel, and carries a
// suggestion of the same band naming real channels.
func (r *Reading) Validate() error {
	var errs []error

	check := func(want Band, groups ChannelGroups) {
		for _, ch := range groups.Channels() {
			for i, p := range groups[ch] {
				o := p.Observation
				where := fmt.Sprintf("%s[%d][%d]", want, ch, i)
				if err := validate.Struct(o); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", where, err))
					continue
				}
				if o.Band() != want {
					errs = append(errs, fmt.Errorf("%s: frequency %d is not %s", where, o.Frequency, want))
				}
				if o.Channel != ch {
					errs = append(errs, fmt.Errorf("%s: observation reports channel %d", where, o.Channel))
				}
				if p.Suggestion.Band != want {
					errs = append(errs, fmt.Errorf("%s: suggestion is %s", where, p.Suggestion.Band))
					continue
				}
				if err := p.Suggestion.Valid(); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", where, err))
				}
			}
		}
	}
	check(Band24GHz, r.Wifi24GHz)
	check(Band5GHz, r.Wifi5GHz)

	return errors.Join(errs...)
}

// ReadingRecord is the index row kept for every stored reading
type ReadingRecord struct {
	ID         string    `json:"id"`
	Locale     string    `json:"locale"`
	TakenAt    time.Time `json:"taken_at"`
	File       string    `json:"file"`
	Networks24 int       `json:"networks_24"`
	Networks5  int       `json:"networks_5"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewReadingRecord summarizes a reading stored under id at file
func NewReadingRecord(id, file string, r *Reading) *ReadingRecord {
	return &ReadingRecord{
		ID:         id,
		Locale:     r.Local,
		TakenAt:    r.TakenAt(),
		File:       file,
		Networks24: r.Wifi24GHz.Len(),
		Networks5:  r.Wifi5GHz.Len(),
		CreatedAt:  time.Now().UTC(),
	}
}
