package wavio

// Resample converts samples from srcRate to dstRate by linear interpolation,
// adapted from the teacher gateway's internal/audio.Resample and widened to
// match the degenerate single-sample case the original pipeline's
// _resample_audio documents explicitly: a one-sample input resamples to a
// constant-valued buffer of the target length rather than a single point.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}

	durationSeconds := float64(len(samples)) / float64(srcRate)
	targetLen := int(durationSeconds*float64(dstRate) + 0.5)
	if targetLen < 1 {
		targetLen = 1
	}

	if len(samples) == 1 {
		out := make([]float32, targetLen)
		for i := range out {
			out[i] = samples[0]
		}
		return out
	}

	out := make([]float32, targetLen)
	lastIdx := float64(len(samples) - 1)
	for i := range out {
		var srcIdx float64
		if targetLen > 1 {
			srcIdx = lastIdx * float64(i) / float64(targetLen-1)
		}
		lo := int(srcIdx)
		frac := float32(srcIdx - float64(lo))
		out[i] = interpolate(samples, lo, frac)
	}

	return out
}

func interpolate(samples []float32, idx int, frac float32) float32 {
	if idx+1 >= len(samples) {
		return samples[len(samples)-1]
	}
	return samples[idx]*(1-frac) + samples[idx+1]*frac
}
