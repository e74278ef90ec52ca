// Package classifier scores a user suggestion against the persona's product.
package classifier

import (
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/ashureev/persona-coach/internal/domain"
)

// Rand is the randomness used for outcome tie-breaks and template picks.
type Rand interface {
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64
	// IntN returns a value in [0, n).
	IntN(n int) int
}

// DefaultRand is backed by the goroutine-safe math/rand/v2 top-level source.
var DefaultRand Rand = globalRand{}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// Tier thresholds and probabilities. They are tuning constants and must not drift.
const (
	detailedLength = 100
	moderateLength = 50

	detailedSatisfiedChance = 0.7
	moderateNeedsMoreChance = 0.5
	vagueUnclearChance      = 0.3
)

var specificTerms = []string{
	"step", "how", "guide", "tutorial", "example", "feature", "setting", "configure",
}

// Features are the deterministic signals extracted from a suggestion.
type Features struct {
	Length           int
	HasSpecificTerms bool
	MentionsProduct  bool
}

// Extract computes the suggestion features used by Classify.
func Extract(suggestion, product string) Features {
	lower := strings.ToLower(suggestion)

	hasTerms := false
	for _, term := range specificTerms {
		if strings.Contains(lower, term) {
			hasTerms = true
			break
		}
	}

	return Features{
		Length:           utf8.RuneCountInString(suggestion),
		HasSpecificTerms: hasTerms,
		MentionsProduct:  strings.Contains(lower, strings.ToLower(product)),
	}
}

// Classify maps a suggestion to an outcome. rng supplies one draw per call;
// a nil rng uses DefaultRand.
func Classify(suggestion, product string, rng Rand) domain.Status {
	if rng == nil {
		rng = DefaultRand
	}
	return Decide(Extract(suggestion, product), rng.Float64())
}

// Decide applies the tiered thresholds to features and a draw r in [0, 1].
func Decide(f Features, r float64) domain.Status {
	switch {
	case f.Length > detailedLength && f.HasSpecificTerms && f.MentionsProduct:
		if r < detailedSatisfiedChance {
			return domain.StatusSatisfied
		}
		return domain.StatusNeedsMore
	case f.Length > moderateLength && (f.HasSpecificTerms || f.MentionsProduct):
		if r < moderateNeedsMoreChance {
			return domain.StatusNeedsMore
		}
		return domain.StatusSatisfied
	default:
		if r < vagueUnclearChance {
			return domain.StatusUnclear
		}
		return domain.StatusNeedsMore
	}
}
