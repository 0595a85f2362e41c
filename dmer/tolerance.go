package dmer

import "math"

// Deviation returns the tolerance for a span of v bases:
// floor(sqrt(v*variance)*coef). It approximates coef standard deviations of
// the cumulative indel and substitution error over the span. Negative spans
// have zero tolerance.
func Deviation(v float64, variance, coef float64) int {
	if v <= 0 || variance <= 0 {
		return 0
	}
	return int(math.Sqrt(v*variance) * coef)
}

// Deviations computes Deviation for every value of vals. The result is stored
// in buf if it has enough capacity.
func Deviations(vals []int, variance, coef float64, buf []int) []int {
	buf = buf[:0]
	for _, v := range vals {
		buf = append(buf, Deviation(float64(v), variance, coef))
	}
	return buf
}

// IsMatch reports whether every value of a lies within devs of the
// corresponding value of b. Unless allowSame is set, seeds from the same
// profile never match.
func IsMatch(a, b Seed, devs []int, allowSame bool) bool {
	if !allowSame && a.Profile == b.Profile {
		return false
	}
	if len(a.Vals) != len(b.Vals) || len(devs) < len(a.Vals) {
		return false
	}
	for i, v := range a.Vals {
		if v < b.Vals[i]-devs[i] || v > b.Vals[i]+devs[i] {
			return false
		}
	}
	return true
}

// siteProb returns the probability that a motif of the given length starts at
// a given base, assuming i.i.d. uniform bases.
func siteProb(motifLen, alphabetSize int) float64 {
	return 1 / math.Pow(float64(alphabetSize), float64(motifLen))
}

// FalsePositiveRate returns the probability that a random window, drawn from
// the geometric site-spacing model, falls within devs of vals on every axis.
// Multiplied by the number of seeds in the index, it estimates how many of the
// candidates produced for vals are spurious.
func FalsePositiveRate(vals, devs []int, motifLen, alphabetSize int) float64 {
	p2 := 1 - siteProb(motifLen, alphabetSize)
	rate := 1.0
	for i, v := range vals {
		dev := 0
		if i < len(devs) {
			dev = devs[i]
		}
		lo, hi := v-dev, v+dev
		if lo < 0 {
			lo = 0
		}
		if hi < lo {
			return 0
		}
		// P(lo <= X <= hi) for P(X=x) = p2^x * p1.
		rate *= math.Pow(p2, float64(lo)) - math.Pow(p2, float64(hi+1))
	}
	return rate
}
