package annot

import "testing"

func TestSelectorsOrderByDistance(t *testing.T) {
	near := &Node{Vertical: 1, Horizontal: 5}
	far := &Node{Vertical: 2, Horizontal: 0}
	first := &Node{Vertical: 1, Horizontal: 0}

	cases := []struct {
		name      string
		selector  Selector
		current   *Node
		candidate *Node
		want      *Node
	}{
		{name: "nearest oldest prefers vertical", selector: NearestAndOldest, current: far, candidate: near, want: near},
		{name: "nearest oldest ignores horizontal across depths", selector: NearestAndOldest, current: near, candidate: far, want: near},
		{name: "nearest oldest tie", selector: NearestAndOldest, current: near, candidate: first, want: first},
		{name: "nearest newest tie", selector: NearestAndNewest, current: first, candidate: near, want: near},
		{name: "farthest oldest", selector: FarthestAndOldest, current: near, candidate: far, want: far},
		{name: "farthest newest tie", selector: FarthestAndNewest, current: near, candidate: first, want: near},
		{name: "nil current", selector: NearestAndOldest, current: nil, candidate: far, want: far},
		{name: "nil candidate", selector: FarthestAndNewest, current: far, candidate: nil, want: far},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.selector.Choose(tc.current, tc.candidate); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSelectorKeepsCurrentOnFullTie(t *testing.T) {
	a := &Node{Vertical: 1, Horizontal: 1}
	b := &Node{Vertical: 1, Horizontal: 1}
	for _, s := range []Selector{NearestAndOldest, NearestAndNewest, FarthestAndOldest, FarthestAndNewest} {
		if got := s.Choose(a, b); got != a {
			t.Fatalf("%T: expected current on tie", s)
		}
	}
}

func TestSelectorFuncFallsBackToDefault(t *testing.T) {
	near := &Node{Vertical: 0}
	far := &Node{Vertical: 3}
	var fn SelectorFunc
	if got := fn.Choose(far, near); got != near {
		t.Fatalf("expected nil SelectorFunc to behave as NearestAndOldest")
	}
	custom := SelectorFunc(func(current, _ *Node) *Node { return current })
	if got := custom.Choose(far, near); got != far {
		t.Fatalf("expected custom selector result")
	}
}

func TestParseSelector(t *testing.T) {
	cases := map[string]Selector{
		"":                    NearestAndOldest,
		"NearestAndOldest":    NearestAndOldest,
		"nearest_and_oldest":  NearestAndOldest,
		"nearest-newest":      NearestAndNewest,
		"FARTHEST_AND_OLDEST": FarthestAndOldest,
		"farthest newest":     FarthestAndNewest,
	}
	for name, want := range cases {
		got, ok := ParseSelector(name)
		if !ok || got != want {
			t.Fatalf("ParseSelector(%q) = %v, %v", name, got, ok)
		}
	}
	if got, ok := ParseSelector("sideways"); ok || got != NearestAndOldest {
		t.Fatalf("expected unknown selector to fall back with ok=false")
	}
}
