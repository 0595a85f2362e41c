package overlap

import (
	"math"

	"github.com/grailbio/sitelaps/dmer"
)

// MatchInfo summarizes the extension of one seed match.
//
// INVARIANT: Matched <= min(Region1, Region2), and every position is a valid
// index into the distances of its profile.
type MatchInfo struct {
	// Matched is the number of accepted steps of the walk, the anchor
	// included once.
	Matched int
	// Start1 and End1 are the first and last matched distance indices in the
	// first profile (inclusive).
	Start1, End1 int
	// Start2 and End2 are the same for the second profile.
	Start2, End2 int
	// Region1 and Region2 are the number of distances searched in each
	// profile.
	Region1, Region2 int
}

// Identity returns Matched normalized by the longer region.
func (m MatchInfo) Identity() float64 {
	n := m.Region1
	if m.Region2 > n {
		n = m.Region2
	}
	if n == 0 {
		return 0
	}
	return float64(m.Matched) / float64(n)
}

// Containment returns Matched normalized by the shorter region.
func (m MatchInfo) Containment() float64 {
	n := m.Region1
	if m.Region2 < n {
		n = m.Region2
	}
	if n == 0 {
		return 0
	}
	return float64(m.Matched) / float64(n)
}

// walkResult is the outcome of a walk in one direction.
type walkResult struct {
	matched      int
	last1, last2 int
	region1      int
	region2      int
	// anchor is set if the first accepted step is the anchor itself.
	anchor bool
}

// regionLen returns the number of distances of d visited when walking from
// pos with the given step (+1 or -1), anchor included.
func regionLen(d []int, pos, step int) int {
	if step > 0 {
		return len(d) - pos
	}
	return pos + 1
}

// clampRegion truncates the region of the profile with the longer span so
// that it covers about the same number of bases as the other one. A region is
// truncated to the smallest prefix whose span reaches the shorter span minus
// its tolerance.
func clampRegion(d1, d2 []int, pos1, pos2, step, r1, r2 int, variance, coef float64) (int, int) {
	span := func(d []int, pos, n int) int {
		s := 0
		for i := 0; i < n; i++ {
			s += d[pos+step*i]
		}
		return s
	}
	truncate := func(d []int, pos, n, limit int) int {
		s := 0
		for i := 0; i < n; i++ {
			s += d[pos+step*i]
			if s >= limit {
				return i + 1
			}
		}
		return n
	}
	s1, s2 := span(d1, pos1, r1), span(d2, pos2, r2)
	switch {
	case s1 > s2:
		r1 = truncate(d1, pos1, r1, s2-dmer.Deviation(float64(s2), variance, coef))
	case s2 > s1:
		r2 = truncate(d2, pos2, r2, s1-dmer.Deviation(float64(s1), variance, coef))
	}
	return r1, r2
}

// walk extends a match from (pos1, pos2) in one direction. It keeps a pending
// sum per profile. While the two sums are not within tolerance of their
// average, the profile with the smaller sum absorbs its next distance. Once
// they are, the step is counted as matched and both sums restart from the
// next distances. The walk stops when either region is exhausted.
func walk(d1, d2 []int, pos1, pos2, step int, variance, coef float64) walkResult {
	r := walkResult{last1: pos1, last2: pos2}
	r.region1, r.region2 = clampRegion(d1, d2, pos1, pos2, step,
		regionLen(d1, pos1, step), regionLen(d2, pos2, step), variance, coef)
	if r.region1 <= 0 || r.region2 <= 0 {
		return r
	}
	i, j := 0, 0
	s1, s2 := d1[pos1], d2[pos2]
	for {
		avg := float64(s1+s2) / 2
		dev := float64(dmer.Deviation(avg, variance, coef))
		if math.Abs(float64(s1)-avg) <= dev && math.Abs(float64(s2)-avg) <= dev {
			if r.matched == 0 && i == 0 && j == 0 {
				r.anchor = true
			}
			r.matched++
			r.last1, r.last2 = pos1+step*i, pos2+step*j
			i++
			j++
			if i >= r.region1 || j >= r.region2 {
				break
			}
			s1, s2 = d1[pos1+step*i], d2[pos2+step*j]
			continue
		}
		if s1 < s2 {
			i++
			if i >= r.region1 {
				break
			}
			s1 += d1[pos1+step*i]
		} else {
			j++
			if j >= r.region2 {
				break
			}
			s2 += d2[pos2+step*j]
		}
	}
	return r
}

// Validate extends a seed match anchored at d1[pos1] and d2[pos2] forward and
// backward, and combines the two walks. The anchor is part of both walks, so
// it is counted once in the region lengths, and once in Matched if it was
// accepted. The anchor step is the same in both directions. When it is
// rejected, as can happen for a seed that passed the looser filtering
// tolerance, neither walk counts it and Matched is the plain sum of the
// steps accepted further out. Matched never exceeds either region.
//
// variance is the indel variance per base and coef the CNDF coefficient
// applied to the tolerance of each step. An anchor outside either profile
// yields a zero MatchInfo.
func Validate(d1, d2 []int, pos1, pos2 int, variance, coef float64) MatchInfo {
	if pos1 < 0 || pos1 >= len(d1) || pos2 < 0 || pos2 >= len(d2) {
		return MatchInfo{}
	}
	fwd := walk(d1, d2, pos1, pos2, 1, variance, coef)
	bwd := walk(d1, d2, pos1, pos2, -1, variance, coef)
	matched := fwd.matched + bwd.matched
	if fwd.anchor {
		matched--
	}
	m := MatchInfo{
		Matched: matched,
		Start1:  bwd.last1,
		End1:    fwd.last1,
		Start2:  bwd.last2,
		End2:    fwd.last2,
		Region1: fwd.region1 + bwd.region1 - 1,
		Region2: fwd.region2 + bwd.region2 - 1,
	}
	if m.Matched > m.Region1 {
		m.Matched = m.Region1
	}
	if m.Matched > m.Region2 {
		m.Matched = m.Region2
	}
	return m
}
