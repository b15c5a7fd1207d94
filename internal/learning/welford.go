package learning

// UpdateWelford folds one observation into the running (n, mean, m2) moments
// using Welford's algorithm. Numerically stable and exact over the full
// history regardless of feed order.
func UpdateWelford(n int64, mean, m2, x float64) (int64, float64, float64) {
	n++
	delta := x - mean
	mean += delta / float64(n)
	delta2 := x - mean
	m2 += delta * delta2
	return n, mean, m2
}

// VarianceFromM2 converts a Welford M2 accumulator into a variance. Below two
// samples there is no variance signal.
func VarianceFromM2(m2 float64, n int64) float64 {
	if n < 2 {
		return 0
	}
	return m2 / float64(n)
}
