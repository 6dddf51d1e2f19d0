package smoothing

// Smoother turns noisy per-frame pitch estimates into a stable trajectory.
// One instance serves one listening session; implementations are stateful
// and not safe for concurrent use.
//
// Dropout semantics: unvoiced frames are reported through MarkDropout rather
// than Update. Brief dropouts (breath, bow change) keep the current value;
// once the accumulated dropout exceeds the grace window the filter resets to
// uninitialized so the next voiced frame seeds fresh instead of blending
// with stale history.
type Smoother interface {
	// Update feeds a voiced frequency sample and the elapsed time since the
	// previous frame, returning the smoothed frequency
	Update(rawHz, dt float64) float64

	// MarkDropout accounts an unvoiced frame of duration dt
	MarkDropout(dt float64)

	// Value returns the current smoothed frequency and whether the filter
	// holds a valid value
	Value() (float64, bool)

	// Reset returns the filter to the uninitialized state
	Reset()
}

// clampDt bounds anomalously large frame gaps (a stalled caller) before they
// reach the filter math
func clampDt(dt, maxDt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if maxDt > 0 && dt > maxDt {
		return maxDt
	}
	return dt
}
