package whisper

// samplesToFloat32Mono converts 16-bit PCM samples to float32 normalized to
// the range [-1.0, 1.0], down-mixing multi-channel input to mono by
// averaging all channels per frame.
func samplesToFloat32Mono(samples []int16, channels int) []float32 {
	if channels <= 1 {
		mono := make([]float32, len(samples))
		for i, s := range samples {
			mono[i] = float32(s) / 32768.0
		}
		return mono
	}

	frames := len(samples) / channels
	mono := make([]float32, frames)
	for i := range frames {
		var sum float32
		for ch := range channels {
			sum += float32(samples[i*channels+ch]) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
