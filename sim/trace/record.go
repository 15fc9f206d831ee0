// Package trace provides decision-trace recording for SP-PIFO admission analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// AdmissionRecord captures a single rank-to-queue admission decision.
type AdmissionRecord struct {
	Stage     string  // stage actor name ("stage1", "stage2")
	Seq       int64   // admission order within the stage, starting at 0
	PacketID  float64 // arrival sequence id of the packet
	Rank      int
	Queue     int   // queue index chosen; NumQueues-1 is the highest priority
	Inversion bool  // rank was below the top bound before admission
	Cost      int   // push-down applied to lower bounds (0 if none)
	Bounds    []int // bounds after admission, index 0 = lowest priority
}
