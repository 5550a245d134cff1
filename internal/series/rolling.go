package series

import "math"

// Rolling and shift helpers. All return a slice the same length as the
// input; positions without a full trailing window hold NaN.

// RollingMean computes the trailing-window arithmetic mean. The first
// (window-1) positions are NaN. Leading NaNs in the input (an already-
// windowed vector) push the window forward instead of poisoning the sum.
func RollingMean(vals []float64, window int) []float64 {
	out := undefined(len(vals))
	if window <= 0 {
		return out
	}
	start := 0
	for start < len(vals) && !finite(vals[start]) {
		start++
	}
	if len(vals)-start < window {
		return out
	}
	sum := 0.0
	for i := start; i < len(vals); i++ {
		sum += vals[i]
		if i-start >= window {
			sum -= vals[i-window]
		}
		if i-start >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// RollingStd computes the trailing-window population standard deviation.
func RollingStd(vals []float64, window int) []float64 {
	out := undefined(len(vals))
	if window <= 0 || len(vals) < window {
		return out
	}
	for i := window - 1; i < len(vals); i++ {
		mean := 0.0
		for j := i - window + 1; j <= i; j++ {
			mean += vals[j]
		}
		mean /= float64(window)
		variance := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := vals[j] - mean
			variance += d * d
		}
		out[i] = math.Sqrt(variance / float64(window))
	}
	return out
}

// RollingMax computes the trailing-window maximum.
func RollingMax(vals []float64, window int) []float64 {
	out := undefined(len(vals))
	if window <= 0 || len(vals) < window {
		return out
	}
	for i := window - 1; i < len(vals); i++ {
		m := vals[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			if vals[j] > m {
				m = vals[j]
			}
		}
		out[i] = m
	}
	return out
}

// RollingMin computes the trailing-window minimum.
func RollingMin(vals []float64, window int) []float64 {
	out := undefined(len(vals))
	if window <= 0 || len(vals) < window {
		return out
	}
	for i := window - 1; i < len(vals); i++ {
		m := vals[i-window+1]
		for j := i - window + 2; j <= i; j++ {
			if vals[j] < m {
				m = vals[j]
			}
		}
		out[i] = m
	}
	return out
}

// EMA computes the unadjusted recursive exponential moving average with
// alpha = 2/(span+1), seeded from the first full simple average. The first
// (span-1) positions are NaN.
func EMA(vals []float64, span int) []float64 {
	return recursiveSmooth(vals, span, 2.0/float64(span+1))
}

// Wilder computes Wilder's smoothing: the same recursion as EMA but with
// alpha = 1/period. Used by RSI, ATR, and ADX. Numerically distinct from
// the EMA alpha — do not conflate the two.
func Wilder(vals []float64, period int) []float64 {
	return recursiveSmooth(vals, period, 1.0/float64(period))
}

// recursiveSmooth is the shared s[t] = alpha*x[t] + (1-alpha)*s[t-1]
// recursion, seeded from the simple average of the first `seed` values.
// Leading NaNs in vals push the seed window forward.
func recursiveSmooth(vals []float64, seed int, alpha float64) []float64 {
	out := undefined(len(vals))
	if seed <= 0 || len(vals) < seed {
		return out
	}

	// Skip any undefined prefix (e.g. smoothing an already-windowed input).
	start := 0
	for start < len(vals) && !finite(vals[start]) {
		start++
	}
	if len(vals)-start < seed {
		return out
	}

	sum := 0.0
	for i := start; i < start+seed; i++ {
		sum += vals[i]
	}
	prev := sum / float64(seed)
	out[start+seed-1] = prev

	for i := start + seed; i < len(vals); i++ {
		prev = alpha*vals[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out
}

// Shift returns the series moved forward by n positions: out[i] = vals[i-n].
// The first n positions are NaN. This is the only sanctioned way to access
// "the previous bar" — never manual off-by-one indexing.
func Shift(vals []float64, n int) []float64 {
	out := undefined(len(vals))
	for i := n; i < len(vals); i++ {
		out[i] = vals[i-n]
	}
	return out
}

// Diff returns first differences: out[i] = vals[i] - vals[i-1], NaN at 0.
func Diff(vals []float64) []float64 {
	out := undefined(len(vals))
	for i := 1; i < len(vals); i++ {
		out[i] = vals[i] - vals[i-1]
	}
	return out
}

// undefined allocates a slice of n NaNs.
func undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
