package series

import (
	"math"
	"testing"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func assertNaN(t *testing.T, label string, got float64) {
	t.Helper()
	if !math.IsNaN(got) {
		t.Errorf("%s: got %.6f, want NaN", label, got)
	}
}

func TestRollingMean_Correctness(t *testing.T) {
	// Hand-calculated mean(3) over 100, 102, 104, 103, 105:
	// idx 2: (100+102+104)/3 = 102
	// idx 3: (102+104+103)/3 = 103
	// idx 4: (104+103+105)/3 = 104
	out := RollingMean([]float64{100, 102, 104, 103, 105}, 3)

	assertNaN(t, "mean idx 0", out[0])
	assertNaN(t, "mean idx 1", out[1])
	assertClose(t, "mean idx 2", out[2], 102, 0.0001)
	assertClose(t, "mean idx 3", out[3], 103, 0.0001)
	assertClose(t, "mean idx 4", out[4], 104, 0.0001)
}

func TestRollingMean_SkipsLeadingNaN(t *testing.T) {
	// An already-windowed input: the window starts after the NaN prefix.
	in := []float64{math.NaN(), math.NaN(), 10, 20, 30, 40}
	out := RollingMean(in, 2)

	for i := 0; i < 3; i++ {
		assertNaN(t, "prefix", out[i])
	}
	assertClose(t, "first full window", out[3], 15, 0.0001)
	assertClose(t, "next", out[4], 25, 0.0001)
	assertClose(t, "last", out[5], 35, 0.0001)
}

func TestRollingMean_ShortInput(t *testing.T) {
	out := RollingMean([]float64{1, 2}, 5)
	for i, v := range out {
		if !math.IsNaN(v) {
			t.Errorf("idx %d: got %v, want NaN", i, v)
		}
	}
}

func TestRollingStd_Population(t *testing.T) {
	// Window {2, 4, 6}: mean 4, variance (4+0+4)/3, std = sqrt(8/3).
	out := RollingStd([]float64{2, 4, 6}, 3)
	assertClose(t, "std", out[2], math.Sqrt(8.0/3.0), 1e-9)
}

func TestRollingMaxMin(t *testing.T) {
	vals := []float64{3, 1, 4, 1, 5, 9, 2}
	max := RollingMax(vals, 3)
	min := RollingMin(vals, 3)

	assertClose(t, "max idx 2", max[2], 4, 0)
	assertClose(t, "max idx 5", max[5], 9, 0)
	assertClose(t, "min idx 3", min[3], 1, 0)
	assertClose(t, "min idx 6", min[6], 2, 0)
	assertNaN(t, "max idx 1", max[1])
}

func TestEMA_SeededFromSMA(t *testing.T) {
	// EMA(3) over 10, 20, 30, 40: alpha = 2/4 = 0.5.
	// Seed at idx 2: (10+20+30)/3 = 20.
	// idx 3: 0.5*40 + 0.5*20 = 30.
	out := EMA([]float64{10, 20, 30, 40}, 3)

	assertNaN(t, "ema idx 0", out[0])
	assertNaN(t, "ema idx 1", out[1])
	assertClose(t, "ema seed", out[2], 20, 0.0001)
	assertClose(t, "ema idx 3", out[3], 30, 0.0001)
}

func TestWilder_AlphaIsOneOverPeriod(t *testing.T) {
	// Wilder(3) over 10, 20, 30, 40: alpha = 1/3.
	// Seed at idx 2: 20. idx 3: 40/3 + 20*2/3 = 26.6667.
	out := Wilder([]float64{10, 20, 30, 40}, 3)

	assertClose(t, "wilder seed", out[2], 20, 0.0001)
	assertClose(t, "wilder idx 3", out[3], 26.6667, 0.0001)

	// Same input, EMA would give 30: the two alphas must not be conflated.
	ema := EMA([]float64{10, 20, 30, 40}, 3)
	if math.Abs(out[3]-ema[3]) < 1 {
		t.Error("Wilder and EMA produced the same value; alphas conflated")
	}
}

func TestRecursiveSmooth_SkipsLeadingNaN(t *testing.T) {
	in := []float64{math.NaN(), 10, 20, 30, 40}
	out := EMA(in, 3)

	assertNaN(t, "idx 0", out[0])
	assertNaN(t, "idx 2", out[2])
	assertClose(t, "seed after prefix", out[3], 20, 0.0001)
	assertClose(t, "idx 4", out[4], 30, 0.0001)
}

func TestShift(t *testing.T) {
	out := Shift([]float64{1, 2, 3, 4}, 1)
	assertNaN(t, "shift idx 0", out[0])
	assertClose(t, "shift idx 1", out[1], 1, 0)
	assertClose(t, "shift idx 3", out[3], 3, 0)

	out2 := Shift([]float64{1, 2, 3, 4}, 2)
	assertNaN(t, "shift2 idx 1", out2[1])
	assertClose(t, "shift2 idx 2", out2[2], 1, 0)
}

func TestDiff(t *testing.T) {
	out := Diff([]float64{100, 103, 101})
	assertNaN(t, "diff idx 0", out[0])
	assertClose(t, "diff idx 1", out[1], 3, 0)
	assertClose(t, "diff idx 2", out[2], -2, 0)
}
