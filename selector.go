package annot

import "strings"

// Selector picks the canonical node when one type is reached via several
// paths. Choose must return current on a full tie.
type Selector interface {
	Choose(current, candidate *Node) *Node
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(current, candidate *Node) *Node

// Choose implements Selector.
func (f SelectorFunc) Choose(current, candidate *Node) *Node {
	if f == nil {
		return NearestAndOldest.Choose(current, candidate)
	}
	return f(current, candidate)
}

var (
	// NearestAndOldest prefers the smaller vertical distance, then the smaller
	// horizontal distance. It is the default.
	NearestAndOldest Selector = distanceSelector{nearest: true, oldest: true}
	// NearestAndNewest prefers the smaller vertical distance, then the larger
	// horizontal distance.
	NearestAndNewest Selector = distanceSelector{nearest: true, oldest: false}
	// FarthestAndOldest prefers the larger vertical distance, then the smaller
	// horizontal distance.
	FarthestAndOldest Selector = distanceSelector{nearest: false, oldest: true}
	// FarthestAndNewest prefers the larger vertical distance, then the larger
	// horizontal distance.
	FarthestAndNewest Selector = distanceSelector{nearest: false, oldest: false}
)

type distanceSelector struct {
	nearest bool
	oldest  bool
}

func (s distanceSelector) String() string {
	vertical, horizontal := "farthest", "newest"
	if s.nearest {
		vertical = "nearest"
	}
	if s.oldest {
		horizontal = "oldest"
	}
	return vertical + "-" + horizontal
}

func (s distanceSelector) Choose(current, candidate *Node) *Node {
	switch {
	case current == nil:
		return candidate
	case candidate == nil:
		return current
	}
	if current.Vertical != candidate.Vertical {
		if (candidate.Vertical < current.Vertical) == s.nearest {
			return candidate
		}
		return current
	}
	if current.Horizontal != candidate.Horizontal {
		if (candidate.Horizontal < current.Horizontal) == s.oldest {
			return candidate
		}
		return current
	}
	return current
}

// ParseSelector maps a strategy name to a Selector. Names are matched
// case-insensitively with "-" and "_" separators and an optional "and", so
// "NearestAndOldest", "nearest-and-oldest" and "nearest_oldest" are equal.
// Unknown names yield NearestAndOldest and false.
func ParseSelector(name string) (Selector, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", "", "_", "", " ", "", "and", "").Replace(key)
	switch key {
	case "", "nearestoldest":
		return NearestAndOldest, true
	case "nearestnewest":
		return NearestAndNewest, true
	case "farthestoldest":
		return FarthestAndOldest, true
	case "farthestnewest":
		return FarthestAndNewest, true
	default:
		return NearestAndOldest, false
	}
}
