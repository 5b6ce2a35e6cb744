package command

import (
	"github.com/agnivade/levenshtein"
)

// DefaultMaxDistance is the largest edit distance that still yields a suggestion.
const DefaultMaxDistance = 2

// Matcher finds the closest registered token to an unknown one.
type Matcher struct {
	registry    *Registry
	maxDistance int
}

// NewMatcher returns a matcher over r. A non-positive maxDistance selects
// DefaultMaxDistance.
func NewMatcher(r *Registry, maxDistance int) *Matcher {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}
	return &Matcher{registry: r, maxDistance: maxDistance}
}

// Suggest returns the closest name or alias within the distance threshold.
// Ties go to the token registered first.
func (m *Matcher) Suggest(token string) (string, bool) {
	key := m.registry.Normalize(token)
	if key == "" {
		return "", false
	}

	best, bestDist := "", m.maxDistance+1
	for _, candidate := range m.registry.Tokens() {
		if candidate == key {
			return candidate, true
		}
		d := levenshtein.ComputeDistance(key, candidate)
		if d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// MaxDistance returns the configured threshold.
func (m *Matcher) MaxDistance() int { return m.maxDistance }
