package sampling

import "math/rand"

// SeqBootstrap draws sampleLength event columns with replacement, where each
// draw's probability is proportional to the candidate's average uniqueness
// against the concurrency of everything drawn so far. Overlap-heavy events
// get progressively less likely; the draw sequence is deterministic under a
// seeded rng.
func SeqBootstrap(m *IndicatorMatrix, sampleLength int, rng *rand.Rand) []int {
	_, cols := m.Dims()
	if cols == 0 {
		return nil
	}
	if sampleLength <= 0 {
		sampleLength = cols
	}

	acc := make([]float64, len(m.BarTimes))
	weights := make([]float64, cols)
	sample := make([]int, 0, sampleLength)

	for len(sample) < sampleLength {
		var total float64
		for c := 0; c < cols; c++ {
			weights[c] = m.Uniqueness(c, acc)
			total += weights[c]
		}
		pick := cols - 1
		u := rng.Float64() * total
		for c := 0; c < cols; c++ {
			u -= weights[c]
			if u < 0 {
				pick = c
				break
			}
		}
		sample = append(sample, pick)
		for r := m.starts[pick]; r <= m.ends[pick]; r++ {
			acc[r]++
		}
	}
	return sample
}

// UniformBootstrap draws sampleLength columns uniformly with replacement.
// It is the standard bagging baseline the sequential scheme is compared to.
func UniformBootstrap(m *IndicatorMatrix, sampleLength int, rng *rand.Rand) []int {
	_, cols := m.Dims()
	if cols == 0 {
		return nil
	}
	if sampleLength <= 0 {
		sampleLength = cols
	}
	sample := make([]int, sampleLength)
	for i := range sample {
		sample[i] = rng.Intn(cols)
	}
	return sample
}
