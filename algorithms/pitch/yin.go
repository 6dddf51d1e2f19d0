package pitch

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/tonalhq/woodshed/algorithms/common"
)

// Frames at or above this length use the FFT path for the difference
// function; below it the direct form is cheaper
const fftThreshold = 2048

// Params contains parameters for the YIN estimator
type Params struct {
	SampleRate int     `json:"sample_rate"`
	MinFreq    float64 `json:"min_freq"`    // Hz, lowest detectable fundamental
	MaxFreq    float64 `json:"max_freq"`    // Hz, highest detectable fundamental
	Threshold  float64 `json:"threshold"`   // CMND acceptance threshold
	NoiseFloor float64 `json:"noise_floor"` // RMS below this is treated as silence
}

// DefaultParams returns estimator defaults covering bass through high
// vocal/instrumental range
func DefaultParams(sampleRate int) Params {
	return Params{
		SampleRate: sampleRate,
		MinFreq:    30.0,
		MaxFreq:    900.0,
		Threshold:  0.10,
		NoiseFloor: 0.006,
	}
}

// Estimate is the per-frame detection result. Voiced=false is the "no stable
// pitch this frame" case: silence, noise, or no CMND minimum under threshold.
type Estimate struct {
	Frequency  float64 `json:"frequency"`
	Confidence float64 `json:"confidence"`
	Voiced     bool    `json:"voiced"`
}

// Estimator implements YIN fundamental-frequency estimation over a single
// PCM frame.
//
// References:
// - de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental frequency estimator for speech and music"
type Estimator struct {
	params Params
}

// NewEstimator creates a YIN estimator with validation
func NewEstimator(params Params) (*Estimator, error) {
	if params.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", params.SampleRate)
	}
	if !isFinitePositive(params.MinFreq) || !isFinitePositive(params.MaxFreq) || params.MaxFreq <= params.MinFreq {
		return nil, fmt.Errorf("invalid frequency range: [%v, %v]", params.MinFreq, params.MaxFreq)
	}
	if params.Threshold <= 0 || params.Threshold >= 1 {
		return nil, fmt.Errorf("invalid threshold: %v", params.Threshold)
	}

	return &Estimator{params: params}, nil
}

// Params returns the current estimator parameters
func (e *Estimator) Params() Params {
	return e.params
}

// Estimate runs YIN over one audio frame. Degenerate input (short frame,
// silence, non-finite bounds, no threshold crossing) yields an unvoiced
// estimate rather than an error.
func (e *Estimator) Estimate(frame []float64) Estimate {
	n := len(frame)
	if n < 4 {
		return Estimate{}
	}
	if !isFinitePositive(e.params.MinFreq) || !isFinitePositive(e.params.MaxFreq) {
		return Estimate{}
	}

	// Silence gate
	if common.RMS(frame) < e.params.NoiseFloor {
		return Estimate{}
	}

	w := n / 2
	sr := float64(e.params.SampleRate)

	maxLag := int(sr / e.params.MinFreq)
	if maxLag > w-1 {
		maxLag = w - 1
	}
	minLag := int(sr / e.params.MaxFreq)
	if minLag < 2 {
		minLag = 2
	}
	if minLag >= maxLag {
		return Estimate{}
	}

	var diff []float64
	if n >= fftThreshold {
		diff = e.differenceFFT(frame, w, maxLag)
	} else {
		diff = e.differenceDirect(frame, w, maxLag)
	}

	// Cumulative mean normalized difference, cmnd(0) := 1
	cmnd := make([]float64, maxLag+1)
	cmnd[0] = 1.0
	runningSum := 0.0
	for tau := 1; tau <= maxLag; tau++ {
		runningSum += diff[tau]
		if runningSum > 0 {
			cmnd[tau] = diff[tau] * float64(tau) / runningSum
		} else {
			cmnd[tau] = 1.0
		}
	}

	// First crossing under threshold, then descend to the local minimum.
	// Taking the lowest-lag robust minimum avoids octave errors from
	// shallow earlier dips.
	bestTau := -1
	for tau := minLag; tau <= maxLag; tau++ {
		if cmnd[tau] < e.params.Threshold {
			for tau+1 <= maxLag && cmnd[tau+1] < cmnd[tau] {
				tau++
			}
			bestTau = tau
			break
		}
	}

	if bestTau < 0 {
		return Estimate{}
	}

	period := common.ParabolicPeak(cmnd, bestTau)
	if period <= 0 {
		return Estimate{}
	}

	frequency := sr / period
	if math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return Estimate{}
	}
	if frequency < e.params.MinFreq || frequency > e.params.MaxFreq {
		return Estimate{}
	}

	return Estimate{
		Frequency:  frequency,
		Confidence: common.Clamp(1.0-cmnd[bestTau], 0.0, 1.0),
		Voiced:     true,
	}
}

// differenceDirect computes the squared-difference function in the time
// domain: d(tau) = sum((x[j] - x[j+tau])^2) over the half-frame window
func (e *Estimator) differenceDirect(frame []float64, w, maxLag int) []float64 {
	diff := make([]float64, maxLag+1)
	for tau := 0; tau <= maxLag; tau++ {
		sum := 0.0
		for j := 0; j < w; j++ {
			delta := frame[j] - frame[j+tau]
			sum += delta * delta
		}
		diff[tau] = sum
	}
	return diff
}

// differenceFFT computes the same function via the correlation identity
// d(tau) = p(0) + p(tau) - 2*c(tau), with the cross term c(tau) obtained
// from an FFT cross-correlation of the frame against its leading window.
// Zero-padding past n+w keeps the circular correlation linear over the lag
// range of interest.
func (e *Estimator) differenceFFT(frame []float64, w, maxLag int) []float64 {
	n := len(frame)
	size := common.NextPowerOfTwo(n + w)

	padded := make([]float64, size)
	copy(padded, frame)
	window := make([]float64, size)
	copy(window, frame[:w])

	specFrame := fft.FFTReal(padded)
	specWindow := fft.FFTReal(window)

	cross := make([]complex128, size)
	for i := range cross {
		cross[i] = specFrame[i] * cmplx.Conj(specWindow[i])
	}
	corr := fft.IFFT(cross)

	// Prefix sums of squared samples give the power terms in O(1) per lag
	prefix := make([]float64, n+1)
	for i, v := range frame {
		prefix[i+1] = prefix[i] + v*v
	}
	p0 := prefix[w]

	diff := make([]float64, maxLag+1)
	for tau := 0; tau <= maxLag; tau++ {
		pt := prefix[tau+w] - prefix[tau]
		d := p0 + pt - 2*real(corr[tau])
		if d < 0 {
			d = 0 // numeric jitter from the FFT round-trip
		}
		diff[tau] = d
	}
	return diff
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
