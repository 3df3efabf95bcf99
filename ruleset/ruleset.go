// Package ruleset decides which card triples form a set.
//
// A card id encodes its features in base FeatureSize: feature i of card c is
// (c / FeatureSize^i) % FeatureSize. Three cards form a set when, for every
// feature, the three values are either all equal or all distinct.
package ruleset

// SetSize is the number of cards in a set.
const SetSize = 3

// Rules is the rule oracle for a deck of FeatureSize^FeatureCount cards. It is
// immutable and safe for concurrent use.
type Rules struct {
	FeatureSize  int
	FeatureCount int
}

// New returns Rules for the given feature dimensions.
func New(featureSize, featureCount int) *Rules {
	return &Rules{FeatureSize: featureSize, FeatureCount: featureCount}
}

// DeckSize returns the number of distinct cards.
func (r *Rules) DeckSize() int {
	n := 1
	for i := 0; i < r.FeatureCount; i++ {
		n *= r.FeatureSize
	}
	return n
}

// CardToFeatures returns the feature values of card.
func (r *Rules) CardToFeatures(card int) []int {
	features := make([]int, r.FeatureCount)
	for i := range features {
		features[i] = card % r.FeatureSize
		card /= r.FeatureSize
	}
	return features
}

// CardsToFeatures returns the feature values of every card, in order.
func (r *Rules) CardsToFeatures(cards []int) [][]int {
	out := make([][]int, len(cards))
	for i, c := range cards {
		out[i] = r.CardToFeatures(c)
	}
	return out
}

// TestSet reports whether cards form a set. Anything but three distinct cards is not a set.
func (r *Rules) TestSet(cards []int) bool {
	if len(cards) != SetSize {
		return false
	}
	a, b, c := cards[0], cards[1], cards[2]
	if a == b || a == c || b == c {
		return false
	}
	for i := 0; i < r.FeatureCount; i++ {
		fa, fb, fc := a%r.FeatureSize, b%r.FeatureSize, c%r.FeatureSize
		allSame := fa == fb && fb == fc
		allDiff := fa != fb && fb != fc && fa != fc
		if !allSame && !allDiff {
			return false
		}
		a, b, c = a/r.FeatureSize, b/r.FeatureSize, c/r.FeatureSize
	}
	return true
}

// FindSets returns up to limit sets among cards, in enumeration order. A limit
// <= 0 means no limit.
func (r *Rules) FindSets(cards []int, limit int) [][]int {
	var sets [][]int
	triple := make([]int, SetSize)
	for i := 0; i < len(cards); i++ {
		for j := i + 1; j < len(cards); j++ {
			for k := j + 1; k < len(cards); k++ {
				triple[0], triple[1], triple[2] = cards[i], cards[j], cards[k]
				if !r.TestSet(triple) {
					continue
				}
				sets = append(sets, []int{cards[i], cards[j], cards[k]})
				if limit > 0 && len(sets) >= limit {
					return sets
				}
			}
		}
	}
	return sets
}

// HasSet reports whether at least one set exists among cards.
func (r *Rules) HasSet(cards []int) bool {
	return len(r.FindSets(cards, 1)) > 0
}
