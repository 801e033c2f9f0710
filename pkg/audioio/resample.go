package audioio

// Resample converts mono PCM between sample rates by linear
// interpolation. The output holds len(samples)*to/from samples. Equal
// rates return the input unchanged.
func Resample(samples []int16, from, to int) []int16 {
	if from == to || from <= 0 || to <= 0 || len(samples) == 0 {
		return samples
	}

	n := int(int64(len(samples)) * int64(to) / int64(from))
	out := make([]int16, n)
	last := len(samples) - 1
	step := float64(from) / float64(to)

	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = samples[last]
			continue
		}
		a, b := float64(samples[j]), float64(samples[j+1])
		out[i] = int16(a + (pos-float64(j))*(b-a))
	}
	return out
}

// MonoToStereo interleaves each sample into both channels.
func MonoToStereo(samples []int16) []int16 {
	out := make([]int16, 0, len(samples)*2)
	for _, s := range samples {
		out = append(out, s, s)
	}
	return out
}
