// Package dmer implements the seed index used to find approximately equal
// windows of restriction-site distances.
//
// A seed ("d-mer") is a window of L consecutive distances taken from one
// profile. Every axis of the L-dimensional value space is cut into D bins of
// equal probability mass under a geometric model of site spacing, and each
// seed is stored in the cell addressed by its L bin indices. Seeds within the
// per-axis tolerance of a query land in the query's own cell or in a cell one
// bin higher along some axes.
package dmer

import (
	"strconv"
	"strings"
)

// Seed is a window of consecutive distances from one profile.
type Seed struct {
	// Profile is the index of the profile in its ProfileSet.
	Profile int
	// Pos is the index of the first distance of the window.
	Pos int
	// Vals aliases the distances of the profile. It must not be modified.
	Vals []int
}

// String returns a human-readable description of the seed.
func (s Seed) String() string {
	buf := strings.Builder{}
	for _, v := range s.Vals {
		buf.WriteByte(' ')
		buf.WriteString(strconv.Itoa(v))
	}
	buf.WriteString(" profile: ")
	buf.WriteString(strconv.Itoa(s.Profile))
	buf.WriteString(" pos: ")
	buf.WriteString(strconv.Itoa(s.Pos))
	return buf.String()
}

// Profiles is the read-only view of a profile collection that the index is
// built from. *rsite.ProfileSet implements it.
type Profiles interface {
	// Len returns the number of profiles.
	Len() int
	// Dists returns the distances of the i'th profile.
	Dists(i int) []int
}

// AppendSeeds appends every length-L window of dists to buf. The seeds alias
// dists. A profile shorter than L yields no seeds.
func AppendSeeds(buf []Seed, profile int, dists []int, L int) []Seed {
	if L <= 0 {
		return buf
	}
	for i := 0; i+L <= len(dists); i++ {
		buf = append(buf, Seed{Profile: profile, Pos: i, Vals: dists[i : i+L : i+L]})
	}
	return buf
}
