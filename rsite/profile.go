// Package rsite represents reads as restriction-site distance profiles: the
// ordered list of gaps between consecutive occurrences of a recognition motif,
// plus the number of bases before the first and after the last site.
package rsite

import (
	"strconv"
	"strings"
)

// Orientation of a profile relative to the sequence it was digested from.
const (
	Forward = 1
	Reverse = -1
)

// Profile is a read encoded as ordered inter-site distances.
//
// INVARIANT: every element of Dists is >= 0.
type Profile struct {
	// Name is the sequence name from the FASTA header.
	Name string
	// Dists[i] is the number of bases between site i and site i+1.
	Dists []int
	// Lead is the number of bases before the first site.
	Lead int
	// Trail is the number of bases from the last site to the end of the read.
	Trail int
	// Orient is Forward or Reverse.
	Orient int
}

// Len returns the number of distances in the profile.
func (p *Profile) Len() int { return len(p.Dists) }

// Flip reverses the profile in place: distances are reversed, Lead and Trail
// swap, and the orientation is negated. Flipping twice is a no-op.
func (p *Profile) Flip() {
	n := len(p.Dists)
	for i := 0; i < n/2; i++ {
		p.Dists[i], p.Dists[n-1-i] = p.Dists[n-1-i], p.Dists[i]
	}
	p.Lead, p.Trail = p.Trail, p.Lead
	p.Orient = -p.Orient
}

// Flipped returns a flipped copy of the profile. The receiver is not modified.
func (p *Profile) Flipped() Profile {
	c := *p
	c.Dists = append([]int(nil), p.Dists...)
	c.Flip()
	return c
}

// BasePos translates a distance index into a base-pair coordinate. The result
// is Lead plus the sum of Dists[0:idx]. If inclusive is set, Dists[idx] is
// added as well, or Trail if idx == Len(). Indices outside [0, Len()] are
// clamped.
func (p *Profile) BasePos(idx int, inclusive bool) int {
	n := len(p.Dists)
	if idx < 0 {
		idx = 0
	}
	if idx > n {
		idx = n
	}
	pos := p.Lead
	for _, d := range p.Dists[:idx] {
		pos += d
	}
	if inclusive {
		if idx < n {
			pos += p.Dists[idx]
		} else {
			pos += p.Trail
		}
	}
	return pos
}

// BaseLen returns the total length of the read in bases.
func (p *Profile) BaseLen() int { return p.BasePos(len(p.Dists), true) }

// String returns "lead, d0, d1, ..., trail".
func (p *Profile) String() string {
	buf := strings.Builder{}
	buf.WriteString(strconv.Itoa(p.Lead))
	buf.WriteString(", ")
	for _, d := range p.Dists {
		buf.WriteString(strconv.Itoa(d))
		buf.WriteString(", ")
	}
	buf.WriteString(strconv.Itoa(p.Trail))
	return buf.String()
}

// ProfileSet is an append-only list of profiles. The index of a profile is its
// insertion order. Reverse-complement variants are stored as separate entries.
//
// A ProfileSet is thread compatible while being filled, and safe for
// concurrent reads afterwards.
type ProfileSet struct {
	profiles []Profile
	nSites   int
}

// Add appends a profile and returns its index.
func (s *ProfileSet) Add(p Profile) int {
	s.profiles = append(s.profiles, p)
	s.nSites += len(p.Dists)
	return len(s.profiles) - 1
}

// AddSequence digests seq with the given motif, and appends the resulting
// profile. If addRC is set, a flipped copy named name+"_RC" is appended too.
// It returns the number of distances contributed, which is used to estimate
// the number of seeds. An empty record (no name, no sequence) is a no-op.
func (s *ProfileSet) AddSequence(name, seq, motif string, addRC bool) int {
	if name == "" && seq == "" {
		return 0
	}
	p := Digest(name, seq, motif)
	s.Add(p)
	if !addRC {
		return len(p.Dists)
	}
	rc := p.Flipped()
	rc.Name += "_RC"
	s.Add(rc)
	return 2 * len(p.Dists)
}

// Len returns the number of profiles.
func (s *ProfileSet) Len() int { return len(s.profiles) }

// NumSites returns the total number of distances over all profiles.
func (s *ProfileSet) NumSites() int { return s.nSites }

// Get returns the idx'th profile, or nil if idx is out of range.
func (s *ProfileSet) Get(idx int) *Profile {
	if idx < 0 || idx >= len(s.profiles) {
		return nil
	}
	return &s.profiles[idx]
}

// Dists returns the distances of the idx'th profile, or nil if idx is out of
// range.
func (s *ProfileSet) Dists(idx int) []int {
	if p := s.Get(idx); p != nil {
		return p.Dists
	}
	return nil
}
