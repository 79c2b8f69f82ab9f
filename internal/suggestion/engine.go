// Package suggestion turns a list of access point observations into a
// Reading with per-device channel advice.
package suggestion

import (
	"slices"
	"time"

	"github.com/RMahshie/apscanner/pkg/models"
)

// Anchors are the non-overlapping 2.4GHz channels
var Anchors = []uint8{1, 6, 11}

// Classes5G lists the 5GHz candidate sets in record field order
var Classes5G = models.Classes5G

// Engine builds Readings. It is not safe for concurrent use because the
// random source is not.
type Engine struct {
	rng Rand
	now func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces the clock used for Reading timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine drawing from rng
func NewEngine(rng Rand, opts ...Option) *Engine {
	e := &Engine{rng: rng, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Build classifies the observations by band, assigns every one of them a
// suggestion and returns the assembled Reading.
func (e *Engine) Build(locale string, observations []models.Observation) (*models.Reading, error) {
	var obs24, obs5 []models.Observation
	for _, o := range observations {
		if o.Band() == models.Band24GHz {
			obs24 = append(obs24, o)
		} else {
			obs5 = append(obs5, o)
		}
	}

	wifi24, err := e.assign24(obs24)
	if err != nil {
		return nil, err
	}
	wifi5, err := e.assign5(obs5)
	if err != nil {
		return nil, err
	}

	return &models.Reading{
		Timestamp: e.now().UnixMilli(),
		Local:     locale,
		Wifi24GHz: wifi24,
		Wifi5GHz:  wifi5,
	}, nil
}

func group(observations []models.Observation, initial func(models.Observation) models.Suggestion) models.ChannelGroups {
	groups := make(models.ChannelGroups)
	for _, o := range observations {
		groups[o.Channel] = append(groups[o.Channel], models.Pair{Observation: o, Suggestion: initial(o)})
	}
	return groups
}

// assign24 moves every observation off a non-anchor channel onto an anchor,
// favouring the anchors with the fewest occupants. Anchor occupants stay put.
func (e *Engine) assign24(observations []models.Observation) (models.ChannelGroups, error) {
	groups := group(observations, func(o models.Observation) models.Suggestion {
		return models.Suggest24(o.Channel)
	})

	total := len(observations)
	if total == 0 {
		return groups, nil
	}

	weights := make([]int, len(Anchors))
	for i, anchor := range Anchors {
		weights[i] = total - len(groups[anchor])
	}
	dist, err := newCategorical("2.4GHz anchor", Anchors, weights)
	if err != nil {
		return nil, err
	}

	for _, ch := range groups.Channels() {
		if slices.Contains(Anchors, ch) {
			continue
		}
		for i := range groups[ch] {
			groups[ch][i].Suggestion = models.Suggest24(dist.sample(e.rng))
		}
	}
	return groups, nil
}

// assign5 draws one sequence per class and hands out their elements in group
// order, giving every observation a complete record.
func (e *Engine) assign5(observations []models.Observation) (models.ChannelGroups, error) {
	groups := group(observations, func(models.Observation) models.Suggestion {
		return models.Suggest5(models.Suggestions5G{})
	})

	count := len(observations)
	sequences := make([][]uint8, len(Classes5G))
	for i, class := range Classes5G {
		dist, err := newUniform(class.Name, class.Channels)
		if err != nil {
			return nil, err
		}
		sequences[i] = dist.draw(e.rng, count)
	}

	next := 0
	for _, ch := range groups.Channels() {
		for i := range groups[ch] {
			groups[ch][i].Suggestion = models.Suggest5(models.Suggestions5G{
				NDFS20: sequences[0][next],
				DFS20:  sequences[1][next],
				NDFS40: sequences[2][next],
				DFS40:  sequences[3][next],
				NDFS80: sequences[4][next],
				DFS80:  sequences[5][next],
				DFS160: sequences[6][next],
			})
			next++
		}
	}
	return groups, nil
}
