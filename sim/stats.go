package sim

// InversionStats counts inversions observed by one stage.
// Written only by the goroutine that owns the stage; handed off read-only
// once that goroutine has returned.
type InversionStats struct {
	Total   int64         // inversions across all ranks
	PerRank map[int]int64 // rank -> inversions at that rank
	Packets int64         // packets admitted by the stage
}

// NewInversionStats returns empty stats ready for recording.
func NewInversionStats() InversionStats {
	return InversionStats{PerRank: make(map[int]int64)}
}

// Observe records one admission outcome.
func (s *InversionStats) Observe(rank int, adm Admission) {
	s.Packets++
	if !adm.Inversion {
		return
	}
	if s.PerRank == nil {
		s.PerRank = make(map[int]int64)
	}
	s.Total++
	s.PerRank[rank]++
}

// Clone returns a deep copy.
func (s InversionStats) Clone() InversionStats {
	out := InversionStats{Total: s.Total, Packets: s.Packets, PerRank: make(map[int]int64, len(s.PerRank))}
	for r, c := range s.PerRank {
		out.PerRank[r] = c
	}
	return out
}
