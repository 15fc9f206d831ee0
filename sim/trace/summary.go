package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions    int
	InversionCount    int
	InversionRate     float64 // InversionCount / TotalDecisions
	MeanCost          float64 // mean push-down over inversions
	MaxCost           int
	QueueDistribution map[string]map[int]int // stage -> queue index -> packets placed
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		QueueDistribution: make(map[string]map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Admissions)
	totalCost := 0
	for _, a := range st.Admissions {
		perQueue, ok := summary.QueueDistribution[a.Stage]
		if !ok {
			perQueue = make(map[int]int)
			summary.QueueDistribution[a.Stage] = perQueue
		}
		perQueue[a.Queue]++

		if a.Inversion {
			summary.InversionCount++
			totalCost += a.Cost
			if a.Cost > summary.MaxCost {
				summary.MaxCost = a.Cost
			}
		}
	}

	if summary.TotalDecisions > 0 {
		summary.InversionRate = float64(summary.InversionCount) / float64(summary.TotalDecisions)
	}
	if summary.InversionCount > 0 {
		summary.MeanCost = float64(totalCost) / float64(summary.InversionCount)
	}
	return summary
}
