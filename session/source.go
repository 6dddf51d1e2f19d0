package session

import (
	"context"
	"errors"
)

// Acquisition failures are terminal for a session: the engine surfaces them
// once and does not retry. Restarting is an explicit caller action. The two
// sentinels let the caller distinguish "permission denied" from "device
// error" for its own messaging.
var (
	ErrPermissionDenied  = errors.New("audio input permission denied")
	ErrDeviceUnavailable = errors.New("audio input device unavailable")
	ErrListenerClosed    = errors.New("listener closed")
)

// FrameSource is the audio input boundary. An external collaborator
// (microphone capture, a file reader in tests) delivers fixed-size PCM
// frames at a known sample rate; the engine assumes gross DC offset and hum
// were already filtered upstream.
//
// ReadFrame blocks until a frame is available or ctx is done. Frame
// ownership transfers to the caller for the duration of one processing pass
// only; sources may reuse the backing array between calls.
type FrameSource interface {
	ReadFrame(ctx context.Context) ([]float64, error)
}
