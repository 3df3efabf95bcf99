package ruleset

import (
	"reflect"
	"testing"
)

func TestCardToFeatures(t *testing.T) {
	r := New(3, 4)

	tests := []struct {
		card     int
		expected []int
	}{
		{0, []int{0, 0, 0, 0}},
		{1, []int{1, 0, 0, 0}},
		{5, []int{2, 1, 0, 0}},
		{80, []int{2, 2, 2, 2}},
	}
	for _, test := range tests {
		if got := r.CardToFeatures(test.card); !reflect.DeepEqual(got, test.expected) {
			t.Errorf("CardToFeatures(%d) = %v, want %v", test.card, got, test.expected)
		}
	}
}

func TestTestSet(t *testing.T) {
	r := New(3, 4)

	tests := []struct {
		name     string
		cards    []int
		expected bool
	}{
		{"first feature all different", []int{0, 1, 2}, true},
		{"every feature all different", []int{0, 40, 80}, true},
		{"two same one different", []int{0, 1, 3}, false},
		{"duplicate card", []int{0, 0, 0}, false},
		{"too few cards", []int{0, 1}, false},
		{"too many cards", []int{0, 1, 2, 3}, false},
	}
	for _, test := range tests {
		if got := r.TestSet(test.cards); got != test.expected {
			t.Errorf("%s: TestSet(%v) = %v, want %v", test.name, test.cards, got, test.expected)
		}
	}
}

func TestFindSetsFullDeck(t *testing.T) {
	r := New(3, 2)
	deck := make([]int, r.DeckSize())
	for i := range deck {
		deck[i] = i
	}

	// A 9-card deck with two features has 12 sets.
	sets := r.FindSets(deck, 0)
	if len(sets) != 12 {
		t.Fatalf("expected 12 sets, got %d", len(sets))
	}
	for _, s := range sets {
		if !r.TestSet(s) {
			t.Errorf("FindSets returned non-set %v", s)
		}
	}
}

func TestFindSetsLimit(t *testing.T) {
	r := New(3, 4)
	deck := make([]int, r.DeckSize())
	for i := range deck {
		deck[i] = i
	}

	if sets := r.FindSets(deck, 1); len(sets) != 1 {
		t.Errorf("expected exactly 1 set with limit 1, got %d", len(sets))
	}
	if !r.HasSet(deck) {
		t.Error("full deck should contain a set")
	}
}

func TestFindSetsNone(t *testing.T) {
	r := New(3, 4)
	// 0,1,3,4 pairwise share the upper features and never complete a set among themselves.
	cards := []int{0, 1, 3, 4}

	if r.HasSet(cards) {
		t.Errorf("expected no set among %v, got %v", cards, r.FindSets(cards, 0))
	}
	if r.HasSet(nil) {
		t.Error("empty card list should contain no set")
	}
}
