package tuning

import "math"

// Equal temperament reference: A4 = 440 Hz = MIDI note 69
const (
	A4Freq = 440.0
	A4MIDI = 69.0
)

var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchClassName returns the note name for a pitch class, wrapping any
// integer into 0-11
func PitchClassName(pc int) string {
	pc %= 12
	if pc < 0 {
		pc += 12
	}
	return pitchClassNames[pc]
}

// FreqToMIDI converts a frequency to a continuous (fractional) MIDI note
// number. Non-positive or non-finite input returns NaN.
func FreqToMIDI(hz float64) float64 {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return math.NaN()
	}
	return A4MIDI + 12.0*math.Log2(hz/A4Freq)
}

// MIDIToFreq converts a continuous MIDI note number to frequency
func MIDIToFreq(midi float64) float64 {
	return A4Freq * math.Pow(2.0, (midi-A4MIDI)/12.0)
}

// CentsFromPitchClass returns the signed cents offset from the nearest
// octave instance of the target pitch class. The semitone distance is
// wrapped into [-6, +6) so an E played in any octave measures against the
// closest E. Returns false for unusable input.
func CentsFromPitchClass(hz float64, pc int) (float64, bool) {
	midi := FreqToMIDI(hz)
	if math.IsNaN(midi) {
		return 0, false
	}

	diff := midi - float64(pc)
	diff -= 12.0 * math.Round(diff/12.0)

	return diff * 100.0, true
}

// NearestPitchClass returns the pitch class closest to the given frequency
// and the cents offset from it
func NearestPitchClass(hz float64) (pc int, cents float64, ok bool) {
	midi := FreqToMIDI(hz)
	if math.IsNaN(midi) {
		return 0, 0, false
	}

	nearest := math.Round(midi)
	pc = int(math.Mod(nearest, 12))
	if pc < 0 {
		pc += 12
	}

	return pc, (midi - nearest) * 100.0, true
}
