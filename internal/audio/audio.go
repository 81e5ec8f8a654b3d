// Package audio decodes transport audio payloads into the canonical
// in-memory representation the speech ports consume: mono signed 16-bit
// PCM at a fixed sample rate.
package audio

import "time"

// PCM is a decoded clip: interleaved signed 16-bit samples plus rate.
type PCM struct {
	Samples  []int16
	Rate     int
	Channels int
}

// Duration reports the clip length for mono clips.
func (p PCM) Duration() time.Duration {
	if p.Rate <= 0 || p.Channels <= 0 {
		return 0
	}
	frames := len(p.Samples) / p.Channels
	return time.Duration(frames) * time.Second / time.Duration(p.Rate)
}

// Empty reports whether the clip carries no usable signal.
func (p PCM) Empty() bool { return len(p.Samples) == 0 || p.Rate <= 0 }
