package common

// Ring is a fixed-capacity overwrite ring for scalar histories (recent cents
// offsets, pitch trajectories). Once full, new pushes evict the oldest value.
type Ring struct {
	buffer   []float64
	capacity int
	writePos int
	count    int
}

// NewRing creates a ring holding up to capacity values
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		buffer:   make([]float64, capacity),
		capacity: capacity,
	}
}

// Push appends a value, evicting the oldest when full
func (r *Ring) Push(value float64) {
	r.buffer[r.writePos] = value
	r.writePos = (r.writePos + 1) % r.capacity
	if r.count < r.capacity {
		r.count++
	}
}

// Values returns the stored values oldest-first in a fresh slice
func (r *Ring) Values() []float64 {
	out := make([]float64, r.count)
	start := (r.writePos - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		out[i] = r.buffer[(start+i)%r.capacity]
	}
	return out
}

// Len returns the number of stored values
func (r *Ring) Len() int {
	return r.count
}

// Full reports whether the ring has reached capacity
func (r *Ring) Full() bool {
	return r.count == r.capacity
}

// Clear empties the ring
func (r *Ring) Clear() {
	r.writePos = 0
	r.count = 0
}
