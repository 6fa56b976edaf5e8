// Package metrics defines the recording hooks the planner, verifier and
// settlement executor emit into. The default recorder is a no-op; wire the
// Prometheus recorder to export.
package metrics

import "time"

// Recorder receives operational events. Labels carry at least "chain"
// where a chain context exists.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Event counter names emitted by the core.
const (
	EventPlanSingle   = "plan_single"
	EventPlanMulti    = "plan_multi"
	EventPlanNone     = "plan_none"
	EventQuoteSkipped = "quote_skipped"
	EventVerifyOK     = "verify_ok"
	EventVerifyFail   = "verify_fail"
	EventSettleOK     = "settle_ok"
	EventSettleFail   = "settle_fail"
)
