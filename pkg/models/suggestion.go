package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/danielgtaylor/huma/v2"
)

// Suggestions5G holds the recommended channel for every 5GHz width/DFS class
type Suggestions5G struct {
	NDFS20 uint8 `json:"ndfs_20" doc:"Non-DFS 20MHz channel"`
	DFS20  uint8 `json:"dfs_20" doc:"DFS 20MHz channel"`
	NDFS40 uint8 `json:"ndfs_40" doc:"Non-DFS 40MHz channel"`
	DFS40  uint8 `json:"dfs_40" doc:"DFS 40MHz channel"`
	NDFS80 uint8 `json:"ndfs_80" doc:"Non-DFS 80MHz channel"`
	DFS80  uint8 `json:"dfs_80" doc:"DFS 80MHz channel"`
	DFS160 uint8 `json:"dfs_160" doc:"DFS 160MHz channel"`
}

// Fields returns the record in class order, matching Classes5G
func (r Suggestions5G) Fields() [7]uint8 {
	return [7]uint8{r.NDFS20, r.DFS20, r.NDFS40, r.DFS40, r.NDFS80, r.DFS80, r.DFS160}
}

// ChannelClass is one 5GHz width/DFS category and the channels it may be placed on
type ChannelClass struct {
	Name     string
	Channels []uint8
}

// Classes5G lists the 5GHz candidate sets in record field order
var Classes5G = []ChannelClass{
	{Name: "ndfs_20", Channels: []uint8{36, 40, 44, 48, 149, 153, 157, 161, 165}},
	{Name: "dfs_20", Channels: []uint8{
		36, 40, 44, 48, 52, 56, 60, 64, 100, 104, 108, 112, 116, 120, 124, 128, 132, 136,
		140, 144, 149, 153, 157, 161, 165,
	}},
	{Name: "ndfs_40", Channels: []uint8{38, 46, 151, 159}},
	{Name: "dfs_40", Channels: []uint8{38, 46, 54, 62, 102, 110, 118, 126, 134, 142, 151, 159}},
	{Name: "ndfs_80", Channels: []uint8{42, 155}},
	{Name: "dfs_80", Channels: []uint8{42, 58, 106, 122, 138, 155}},
	// 160MHz is always DFS
	{Name: "dfs_160", Channels: []uint8{50, 114}},
}

// Suggestion is the advice for one access point. Band selects which payload is
// meaningful: Channel for Band24GHz, Record for Band5GHz.
type Suggestion struct {
	Band    Band
	Channel uint8
	Record  Suggestions5G
}

// Suggest24 builds a 2.4GHz suggestion
func Suggest24(channel uint8) Suggestion {
	return Suggestion{Band: Band24GHz, Channel: channel}
}

// Suggest5 builds a 5GHz suggestion
func Suggest5(record Suggestions5G) Suggestion {
	return Suggestion{Band: Band5GHz, Record: record}
}

// IsZero reports whether the suggestion carries no band
func (s Suggestion) IsZero() bool {
	return s.Band == BandUnknown
}

// Valid reports whether the suggestion names channels that exist: 1 to 14 on
// 2.4GHz, and a member of each field's class on 5GHz.
func (s Suggestion) Valid() error {
	switch s.Band {
	case Band24GHz:
		if s.Channel < 1 || s.Channel > 14 {
			return fmt.Errorf("2.4GHz suggestion %d is not a channel", s.Channel)
		}
		return nil
	case Band5GHz:
		var errs []error
		for i, v := range s.Record.Fields() {
			class := Classes5G[i]
			if !slices.Contains(class.Channels, v) {
				errs = append(errs, fmt.Errorf("%s suggestion %d is not in its class", class.Name, v))
			}
		}
		return errors.Join(errs...)
	default:
		return fmt.Errorf("suggestion has no band")
	}
}

func (s Suggestion) String() string {
	switch s.Band {
	case Band24GHz:
		return fmt.Sprintf("channel %d", s.Channel)
	case Band5GHz:
		r := s.Record
		return fmt.Sprintf("20MHz: %d, DFS 20MHz: %d, 40MHz: %d, DFS 40MHz: %d, 80MHz: %d, DFS 80MHz: %d, 160MHz: %d",
			r.NDFS20, r.DFS20, r.NDFS40, r.DFS40, r.NDFS80, r.DFS80, r.DFS160)
	default:
		return "none"
	}
}

// MarshalJSON writes a 2.4GHz suggestion as a bare channel number and a 5GHz
// suggestion as its 7-field record.
func (s Suggestion) MarshalJSON() ([]byte, error) {
	switch s.Band {
	case Band24GHz:
		return json.Marshal(s.Channel)
	case Band5GHz:
		return json.Marshal(s.Record)
	default:
		return nil, fmt.Errorf("suggestion has no band")
	}
}

func (s *Suggestion) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty suggestion")
	}
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("suggestion is null")
	}

	if data[0] == '{' {
		var record Suggestions5G
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("invalid 5GHz suggestion: %w", err)
		}
		*s = Suggest5(record)
		return nil
	}

	var channel uint8
	if err := json.Unmarshal(data, &channel); err != nil {
		return fmt.Errorf("invalid 2.4GHz suggestion: %w", err)
	}
	*s = Suggest24(channel)
	return nil
}

// Schema describes the wire form to the OpenAPI generator
func (s Suggestion) Schema(r huma.Registry) *huma.Schema {
	return &huma.Schema{
		Description: "2.4GHz channel number or 5GHz per-class record",
		OneOf: []*huma.Schema{
			{Type: huma.TypeInteger, Minimum: ptr(1.0), Maximum: ptr(14.0)},
			r.Schema(reflect.TypeOf(Suggestions5G{}), true, "Suggestions5G"),
		},
	}
}

func ptr[T any](v T) *T {
	return &v
}
