package report

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pifo-sim/pifo-sim/sim/sweep"
)

var sweepLabels = []string{"mode", "stage", "queues", "stage2_queues", "max_rank"}

// Registry builds a Prometheus registry holding one gauge sample per stage
// and sweep row.
func Registry(res *sweep.Result) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	normalized := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pifo_normalized_mean_inversions",
		Help: "Mean inversions per packet, averaged over iterations.",
	}, sweepLabels)
	total := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pifo_inversions_total",
		Help: "Inversion count per run, averaged over iterations.",
	}, sweepLabels)
	for _, c := range []prometheus.Collector{normalized, total} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering collector: %w", err)
		}
	}

	for _, row := range res.Rows {
		for _, m := range row.Stages {
			labels := prometheus.Labels{
				"mode":          res.Mode,
				"stage":         m.Stage,
				"queues":        strconv.Itoa(row.Queues),
				"stage2_queues": strconv.Itoa(row.Stage2Queues),
				"max_rank":      strconv.Itoa(row.MaxRank),
			}
			normalized.With(labels).Set(m.NormalizedMeanInversions)
			total.With(labels).Set(m.MeanInversions)
		}
	}
	return reg, nil
}

// WritePrometheusTextfile writes the sweep gauges in the text exposition
// format, atomically replacing path.
func WritePrometheusTextfile(path string, res *sweep.Result) error {
	reg, err := Registry(res)
	if err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing prometheus textfile: %w", err)
	}
	return nil
}
