package sim

// packetsFromRanks builds packets with ids 1, 2, 3, ... in rank order.
func packetsFromRanks(ranks ...int) []Packet {
	out := make([]Packet, len(ranks))
	for i, r := range ranks {
		out[i] = Packet{Rank: r, ID: float64(i + 1)}
	}
	return out
}

// referenceAdmit is a direct transcription of the admission rule used as an
// oracle: first bound (lowest priority first) the rank satisfies, else the
// top; inversion iff rank < top bound before admission.
func referenceAdmit(bounds []int, rank int) (queue int, inversion bool) {
	n := len(bounds)
	prevTop := bounds[n-1]
	queue = n - 1
	for i := 0; i < n; i++ {
		if rank >= bounds[i] {
			queue = i
			break
		}
	}
	bounds[queue] = rank
	if rank < prevTop {
		cost := bounds[n-1] - rank
		for i := 0; i < n-1; i++ {
			bounds[i] -= cost
		}
		return queue, true
	}
	return queue, false
}

// lcgRanks returns a deterministic pseudo-random rank sequence in [1, maxRank].
func lcgRanks(n, maxRank int, seed uint32) []int {
	out := make([]int, n)
	x := seed
	for i := range out {
		x = x*1664525 + 1013904223
		out[i] = int(x>>8)%maxRank + 1
	}
	return out
}

// trackerWithBounds seeds a tracker with the given bounds, lowest-priority
// queue first.
func trackerWithBounds(bounds ...int) *BoundTracker {
	return &BoundTracker{bounds: append([]int(nil), bounds...)}
}
