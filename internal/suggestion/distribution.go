package suggestion

import "fmt"

// Rand is the random source the engine draws from. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// DistributionError reports an attempt to sample from an empty or zero-weight set
type DistributionError struct {
	Name   string
	Reason string
}

func (e *DistributionError) Error() string {
	return fmt.Sprintf("suggestion: cannot build %s distribution: %s", e.Name, e.Reason)
}

// categorical samples channels proportionally to integer weights
type categorical struct {
	channels   []uint8
	cumulative []int
}

func newCategorical(name string, channels []uint8, weights []int) (*categorical, error) {
	if len(channels) == 0 {
		return nil, &DistributionError{Name: name, Reason: "no candidates"}
	}
	if len(channels) != len(weights) {
		return nil, &DistributionError{Name: name, Reason: "weights do not match candidates"}
	}

	cumulative := make([]int, len(weights))
	total := 0
	for i, w := range weights {
		if w < 0 {
			return nil, &DistributionError{Name: name, Reason: fmt.Sprintf("negative weight for channel %d", channels[i])}
		}
		total += w
		cumulative[i] = total
	}
	if total == 0 {
		return nil, &DistributionError{Name: name, Reason: "all weights are zero"}
	}

	return &categorical{channels: channels, cumulative: cumulative}, nil
}

func newUniform(name string, channels []uint8) (*categorical, error) {
	weights := make([]int, len(channels))
	for i := range weights {
		weights[i] = 1
	}
	return newCategorical(name, channels, weights)
}

func (c *categorical) sample(r Rand) uint8 {
	x := r.IntN(c.cumulative[len(c.cumulative)-1])
	for i, bound := range c.cumulative {
		if x < bound {
			return c.channels[i]
		}
	}
	return c.channels[len(c.channels)-1]
}

// draw takes n independent samples
func (c *categorical) draw(r Rand, n int) []uint8 {
	out := make([]uint8, n)
	for i := range out {
		out[i] = c.sample(r)
	}
	return out
}
