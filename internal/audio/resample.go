package audio

// Downmix folds an interleaved multi-channel clip to mono by averaging
// each frame. Mono clips are returned as-is.
func Downmix(clip PCM) PCM {
	if clip.Channels <= 1 {
		clip.Channels = 1
		return clip
	}
	frames := len(clip.Samples) / clip.Channels
	out := make([]int16, frames)
	for f := 0; f < frames; f++ {
		var acc int
		for c := 0; c < clip.Channels; c++ {
			acc += int(clip.Samples[f*clip.Channels+c])
		}
		out[f] = int16(acc / clip.Channels)
	}
	return PCM{Samples: out, Rate: clip.Rate, Channels: 1}
}

// Resample converts a mono clip to the target rate with linear
// interpolation. Good enough for speech fed into recognition models;
// callers wanting band-limited conversion should resample upstream.
func Resample(clip PCM, targetRate int) PCM {
	if clip.Rate == targetRate || clip.Rate <= 0 || targetRate <= 0 || len(clip.Samples) == 0 {
		return clip
	}
	ratio := float64(clip.Rate) / float64(targetRate)
	n := int(float64(len(clip.Samples)) / ratio)
	if n == 0 {
		n = 1
	}
	out := make([]int16, n)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(clip.Samples)-1 {
			out[i] = clip.Samples[len(clip.Samples)-1]
			continue
		}
		frac := pos - float64(j)
		a, b := float64(clip.Samples[j]), float64(clip.Samples[j+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return PCM{Samples: out, Rate: targetRate, Channels: 1}
}
