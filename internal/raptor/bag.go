// Package raptor implements the round-based scanners: the single-criterion
// earliest-arrival scanner (RAPTOR) and the bag-valued multi-criterion scanner
// (McRAPTOR), plus the label/bag algebra both share.
package raptor

import (
	"github.com/antigravity/transit-router/internal/journey"
	"github.com/antigravity/transit-router/internal/network"
)

// Label is a (arrival_time, cost, boarding) record in multi-criterion search. a
// dominates b iff a.ArrivalTime <= b.ArrivalTime && a.Cost <= b.Cost.
type Label struct {
	ArrivalTime network.Timestamp
	Cost        float64
	Boarding    *journey.Boarding
}

// Dominates reports whether l dominates other.
func (l Label) Dominates(other Label) bool {
	return l.ArrivalTime <= other.ArrivalTime && l.Cost <= other.Cost
}

// Bag is a fixed-capacity Pareto front of labels. Labels are kept sorted
// by strictly increasing arrival time — which, given non-domination, implies strictly
// decreasing cost. The backing slice is allocated once at its capacity and never grows
// past it, so Add never triggers a heap allocation after construction.
type Bag struct {
	capacity int
	labels   []Label
}

// NewBag allocates a bag with the given fixed capacity N.
func NewBag(capacity int) Bag {
	return Bag{capacity: capacity, labels: make([]Label, 0, capacity)}
}

// Labels returns the bag's current non-dominated, arrival-time-sorted labels. The
// returned slice aliases the bag's storage and must not be retained past the next Add.
func (b *Bag) Labels() []Label { return b.labels }

// Len reports how many labels are currently stored.
func (b *Bag) Len() int { return len(b.labels) }

// Dominates reports whether any stored label dominates other — the pruning predicate
// used against the destination bag in the round loop.
func (b *Bag) Dominates(other Label) bool {
	for _, l := range b.labels {
		if l.Dominates(other) {
			return true
		}
	}
	return false
}

// Add inserts newLabel into the bag if it is not dominated by an existing label,
// discarding any existing labels it dominates. When the bag is full, the label with the
// largest arrival time is evicted first. Returns true iff the bag was mutated.
func (b *Bag) Add(newLabel Label) bool {
	if len(b.labels) == 0 {
		b.labels = append(b.labels, newLabel)
		return true
	}

	// Partition point: first stored label with an arrival time strictly greater than
	// newLabel's.
	partition := len(b.labels)
	for i, l := range b.labels {
		if newLabel.ArrivalTime < l.ArrivalTime {
			partition = i
			break
		}
	}
	isLastLabel := partition == len(b.labels)

	// Labels before the partition have arrival_time <= newLabel.ArrivalTime; any of them
	// with cost <= newLabel.Cost dominates it.
	for _, l := range b.labels[:partition] {
		if l.Cost <= newLabel.Cost {
			return false
		}
	}

	// newLabel is not dominated. Among labels at/after the partition (strictly larger
	// arrival time), keep only those with a smaller cost — newLabel dominates the rest.
	if !isLastLabel {
		kept := b.labels[:partition]
		for _, l := range b.labels[partition:] {
			if l.Cost < newLabel.Cost {
				kept = append(kept, l)
			}
		}
		b.labels = kept
		// partition still marks the boundary: everything before it is untouched,
		// everything we just re-appended sits at or after it.
	}

	// Arrival times among stored labels are unique, so an existing label sharing
	// newLabel's arrival time, if any, must be immediately before the partition.
	if partition > 0 && b.labels[partition-1].ArrivalTime == newLabel.ArrivalTime {
		if newLabel.Cost < b.labels[partition-1].Cost {
			b.labels[partition-1] = newLabel
			return true
		}
		// Would have been caught by the domination check above.
		return false
	}

	if len(b.labels) == b.capacity {
		if isLastLabel {
			// newLabel would be appended last; only keep it if it improves on the
			// current worst (largest) arrival time. Given partition == len(b.labels),
			// newLabel.ArrivalTime is already >= every stored arrival time, so this
			// branch cannot trigger the improving case in practice — refuse.
			if newLabel.ArrivalTime < b.labels[len(b.labels)-1].ArrivalTime {
				b.labels = b.labels[:len(b.labels)-1]
			} else {
				return false
			}
		} else {
			// Evict the label with the largest arrival time to make room.
			b.labels = b.labels[:len(b.labels)-1]
		}
	}

	b.labels = append(b.labels, Label{})
	copy(b.labels[partition+1:], b.labels[partition:len(b.labels)-1])
	b.labels[partition] = newLabel
	return true
}
