package denpa

import (
	"math"
	"math/rand"
)

// Choices is a weighted set held as parallel value and weight slices.
// Weights are relative and need not sum to one.
type Choices[T any] struct {
	Values  []T
	Weights []float64
}

// Len returns the number of members.
func (c *Choices[T]) Len() int {
	return len(c.Values)
}

// Append adds a member with the given weight.
func (c *Choices[T]) Append(value T, weight float64) {
	c.Values = append(c.Values, value)
	c.Weights = append(c.Weights, weight)
}

// Choose draws one member with probability proportional to its weight.
// When every weight is zero the draw is uniform. Choose panics on an empty set.
func (c *Choices[T]) Choose(rng *rand.Rand) T {
	var total float64
	for _, w := range c.Weights {
		total += w
	}
	if total <= 0 {
		return c.Values[rng.Intn(len(c.Values))]
	}
	n := rng.Float64() * total
	var cum float64
	for i, w := range c.Weights {
		cum += w
		if n < cum {
			return c.Values[i]
		}
	}
	// Rounding can leave n at the very top of the range.
	for i := len(c.Weights) - 1; i >= 0; i-- {
		if c.Weights[i] > 0 {
			return c.Values[i]
		}
	}
	return c.Values[len(c.Values)-1]
}

// NaturalWeights replaces the weights with a harmonic decay favouring
// earlier members: weight(i) = (ln(n+1) - ln(i+1)) / n.
func (c *Choices[T]) NaturalWeights() {
	n := len(c.Values)
	for i := range c.Weights {
		c.Weights[i] = (math.Log(float64(n+1)) - math.Log(float64(i+1))) / float64(n)
	}
}

// IndexOf returns the index of the first member equal to value, or -1.
func IndexOf[T comparable](c *Choices[T], value T) int {
	for i, v := range c.Values {
		if v == value {
			return i
		}
	}
	return -1
}
